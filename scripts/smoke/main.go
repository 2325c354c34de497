// Command smoke exercises a running Harvest server end to end: it posts
// real job URLs to /api/v1/scrape and prints a per-site summary table.
//
// Job postings expire quickly, so pass live URLs as arguments; the
// built-in defaults mostly exercise site detection and the error paths.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "Harvest API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	output = flag.String("output", "smoke-results.json", "JSON output file path")
)

var defaultURLs = []string{
	"https://www.linkedin.com/jobs/view/3999999999",
	"https://www.indeed.com/viewjob?jk=abcdef0123456789",
	"https://wellfound.com/jobs/3000001-senior-backend-engineer",
	"https://example.com/careers/backend-engineer",
}

// --- Request / Response types (mirrors models package) ---

type scrapeRequest struct {
	URL string `json:"url"`
}

type scrapeResponse struct {
	Success             bool            `json:"success"`
	Site                string          `json:"site"`
	Title               string          `json:"title"`
	Company             string          `json:"company"`
	Description         string          `json:"description"`
	DescriptionMarkdown string          `json:"description_markdown"`
	ModalDismissed      bool            `json:"modal_dismissed"`
	ErrorKind           string          `json:"error_kind"`
	Error               json.RawMessage `json:"error"`
	Timing              timingInfo      `json:"timing"`
	CacheStatus         string          `json:"cache_status"`
}

type timingInfo struct {
	TotalMs  int64 `json:"total_ms"`
	ScrapeMs int64 `json:"scrape_ms"`
}

// --- Smoke result types ---

type urlResult struct {
	URL            string `json:"url"`
	Site           string `json:"site"`
	Success        bool   `json:"success"`
	TotalMs        int64  `json:"total_ms"`
	ScrapeMs       int64  `json:"scrape_ms"`
	DescriptionLen int    `json:"description_len"`
	MarkdownLen    int    `json:"markdown_len"`
	ModalDismissed bool   `json:"modal_dismissed"`
	CacheStatus    string `json:"cache_status,omitempty"`
	ErrorKind      string `json:"error_kind,omitempty"`
	Error          string `json:"error,omitempty"`
}

type smokeReport struct {
	Timestamp string      `json:"timestamp"`
	APIURL    string      `json:"api_url"`
	Results   []urlResult `json:"results"`
}

func main() {
	flag.Parse()

	urls := flag.Args()
	if len(urls) == 0 {
		urls = defaultURLs
	}

	fmt.Println("=== Harvest Smoke Suite ===")
	fmt.Printf("API URL:  %s\n", *apiURL)
	fmt.Printf("URLs:     %d\n", len(urls))
	fmt.Printf("Output:   %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure Harvest is running (e.g. make run)\n")
		os.Exit(1)
	}

	report := smokeReport{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		APIURL:    *apiURL,
	}

	for i, u := range urls {
		fmt.Printf("[%d/%d] %s ... ", i+1, len(urls), truncateURL(u, 60))
		ur := scrapeOnce(u)
		if ur.Success {
			fmt.Printf("OK  %dms  %s chars (%s)\n", ur.TotalMs, formatInt(ur.DescriptionLen), ur.Site)
		} else {
			fmt.Printf("FAILED [%s]: %s\n", ur.ErrorKind, ur.Error)
		}
		report.Results = append(report.Results, ur)
	}

	fmt.Println()
	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func scrapeOnce(url string) urlResult {
	ur := urlResult{URL: url}

	bodyBytes, err := json.Marshal(scrapeRequest{URL: url})
	if err != nil {
		ur.Error = fmt.Sprintf("marshal error: %v", err)
		return ur
	}

	req, err := http.NewRequest("POST", *apiURL+"/api/v1/scrape", bytes.NewReader(bodyBytes))
	if err != nil {
		ur.Error = fmt.Sprintf("request error: %v", err)
		return ur
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	// Scrapes pace themselves with multi-second delays; allow plenty.
	client := &http.Client{Timeout: 300 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		ur.Error = fmt.Sprintf("request failed: %v", err)
		return ur
	}
	defer resp.Body.Close()

	var sr scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		ur.Error = fmt.Sprintf("decode error: %v", err)
		return ur
	}

	ur.Site = sr.Site
	ur.Success = sr.Success
	ur.TotalMs = sr.Timing.TotalMs
	ur.ScrapeMs = sr.Timing.ScrapeMs
	ur.DescriptionLen = len(sr.Description)
	ur.MarkdownLen = len(sr.DescriptionMarkdown)
	ur.ModalDismissed = sr.ModalDismissed
	ur.CacheStatus = sr.CacheStatus
	ur.ErrorKind = sr.ErrorKind
	ur.Error = errorText(sr.Error)

	return ur
}

// errorText renders the error field, which is a plain string on scrape
// failures and a {code, message} object on API-level failures.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var detail struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Code != "" {
		return fmt.Sprintf("[%s] %s", detail.Code, detail.Message)
	}
	return string(raw)
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 95))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tSite\tStatus\tLatency\tDesc Len\tModal\n")
	fmt.Fprintf(w, "───\t────\t──────\t───────\t────────\t─────\n")

	for _, r := range results {
		status := "OK"
		if !r.Success {
			status = r.ErrorKind
			if status == "" {
				status = "FAILED"
			}
		}

		modal := "-"
		if r.ModalDismissed {
			modal = "dismissed"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%dms\t%s\t%s\n",
			truncateURL(r.URL, 40),
			r.Site,
			status,
			r.TotalMs,
			formatInt(r.DescriptionLen),
			modal,
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 95))
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func formatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

func writeJSON(path string, report smokeReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
