package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// scrapeRequest mirrors the Harvest API request model.
type scrapeRequest struct {
	URL    string `json:"url"`
	MaxAge int    `json:"max_age,omitempty"`
}

// scrapeResponse mirrors the Harvest API scrape response model. The
// error field is a plain string on scrape failures and a
// {code, message} object on API-level failures, so it stays raw here.
type scrapeResponse struct {
	URL                 string          `json:"url"`
	Site                string          `json:"site"`
	Title               string          `json:"title"`
	Company             string          `json:"company"`
	Location            string          `json:"location"`
	Description         string          `json:"description"`
	DescriptionMarkdown string          `json:"description_markdown"`
	ModalDismissed      bool            `json:"modal_dismissed"`
	Success             bool            `json:"success"`
	ErrorKind           string          `json:"error_kind"`
	Error               json.RawMessage `json:"error"`
	DuplicateOf         string          `json:"duplicate_of"`
	ProxyUsed           string          `json:"proxy_used"`
	CacheStatus         string          `json:"cache_status"`
}

// batchResponse mirrors the Harvest batch API response.
type batchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// batchStatusResponse mirrors the Harvest batch status API response.
type batchStatusResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Results   []json.RawMessage `json:"results"`
}

// healthResponse mirrors the Harvest health API response.
type healthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
	Engine  struct {
		BrowserRunning bool  `json:"browser_running"`
		ActiveSessions int   `json:"active_sessions"`
		TotalScrapes   int64 `json:"total_scrapes"`
		Limiter        struct {
			HourlyUsed  int    `json:"hourly_used"`
			HourlyLimit int    `json:"hourly_limit"`
			DailyUsed   int    `json:"daily_used"`
			DailyLimit  int    `json:"daily_limit"`
			ResetDate   string `json:"reset_date"`
		} `json:"limiter"`
	} `json:"engine"`
}

// profilesResponse mirrors the Harvest profiles API response.
type profilesResponse struct {
	Profiles []struct {
		Key                 string `json:"key"`
		Name                string `json:"name"`
		DescriptionRules    int    `json:"description_rules"`
		ModalRules          int    `json:"modal_rules"`
		DynamicLoading      bool   `json:"dynamic_loading"`
		StrongBotProtection bool   `json:"strong_bot_protection"`
	} `json:"profiles"`
}

func main() {
	apiURL := os.Getenv("HARVEST_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("HARVEST_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "HARVEST_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"harvest",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	scrapeJobTool := mcp.NewTool("scrape_job",
		mcp.WithDescription("Scrape a job posting URL and return the extracted description as markdown. Detects the job board, waits out bot challenges, and dismisses signup overlays automatically. Scrapes are paced by a shared request budget and can take a few minutes."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the job posting to scrape"),
		),
		mcp.WithNumber("max_age",
			mcp.Description("Accept a cached result up to this many milliseconds old. Omit or 0 to always scrape fresh."),
		),
	)
	s.AddTool(scrapeJobTool, handleScrapeJob(apiURL, apiKey))

	// scrape_batch tool
	scrapeBatchTool := mcp.NewTool("scrape_batch",
		mcp.WithDescription("Scrape multiple job posting URLs and return the extracted description for each. Postings syndicated across boards are flagged as duplicates. Large batches run for a long time because fetches share one request budget."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of job posting URLs to scrape (max 50)"),
		),
		mcp.WithNumber("workers",
			mcp.Description("Parallel workers (1-3, default 1). Extra workers overlap page processing; fetches stay paced."),
		),
	)
	s.AddTool(scrapeBatchTool, handleScrapeBatch(apiURL, apiKey))

	// batch_status tool
	batchStatusTool := mcp.NewTool("batch_status",
		mcp.WithDescription("Check on a batch scrape job by id without waiting for it to finish. Returns progress and any results collected so far."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The batch job id returned by scrape_batch"),
		),
	)
	s.AddTool(batchStatusTool, handleBatchStatus(apiURL, apiKey))

	// list_profiles tool
	listProfilesTool := mcp.NewTool("list_profiles",
		mcp.WithDescription("List the site profiles the scraper knows about: which job boards get dedicated extraction rules, modal handling, and bot-protection hints."),
	)
	s.AddTool(listProfilesTool, handleListProfiles(apiURL, apiKey))

	// health tool
	healthTool := mcp.NewTool("health",
		mcp.WithDescription("Report scraper health: uptime, browser state, and how much of the hourly and daily request budget is left."),
	)
	s.AddTool(healthTool, handleHealth(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the Harvest API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// apiGet sends a GET request to the Harvest API and returns the response body.
func apiGet(ctx context.Context, client *http.Client, apiURL, apiKey, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollJobCompletion polls a job endpoint until status is no longer "processing" or context is cancelled.
func pollJobCompletion(ctx context.Context, client *http.Client, apiURL, apiKey, endpoint string) ([]byte, error) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			body, err := apiGet(ctx, client, apiURL, apiKey, endpoint)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}

			// Quick check if still processing.
			var status struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}

			if status.Status != "processing" {
				return body, nil
			}
		}
	}
}

// errorText renders the polymorphic error field of a scrape response.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "unknown error"
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

// formatPosting renders one scrape result as readable text.
func formatPosting(sr *scrapeResponse) string {
	var sb strings.Builder
	if sr.Title != "" {
		sb.WriteString("Title: " + sr.Title + "\n")
	}
	if sr.Company != "" {
		sb.WriteString("Company: " + sr.Company + "\n")
	}
	if sr.Location != "" {
		sb.WriteString("Location: " + sr.Location + "\n")
	}
	sb.WriteString(fmt.Sprintf("Site: %s\nSource: %s\n\n", sr.Site, sr.URL))

	body := sr.DescriptionMarkdown
	if body == "" {
		body = sr.Description
	}
	sb.WriteString(body)

	if sr.ErrorKind == "CHALLENGE_TIMEOUT" {
		sb.WriteString("\n\n---\nNote: a bot challenge never visibly cleared; the content above may be incomplete.")
	}
	return sb.String()
}

func handleScrapeJob(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 300 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := scrapeRequest{
			URL:    url,
			MaxAge: request.GetInt("max_age", 0),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/scrape", reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scrape request failed: %v", err)), nil
		}

		var sr scrapeResponse
		if err := json.Unmarshal(respBody, &sr); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !sr.Success {
			msg := errorText(sr.Error)
			if sr.ErrorKind != "" {
				msg = fmt.Sprintf("[%s] %s", sr.ErrorKind, msg)
			}
			return mcp.NewToolResultError(msg), nil
		}

		result := formatPosting(&sr)
		if sr.CacheStatus == "hit" {
			result += "\n\n---\nServed from cache."
		}
		return mcp.NewToolResultText(result), nil
	}
}

func handleScrapeBatch(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		payload := map[string]interface{}{
			"urls": urls,
		}
		if workers := request.GetInt("workers", 0); workers > 0 {
			payload["workers"] = workers
		}

		// POST to create batch job.
		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/batch/scrape", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch request failed: %v", err)), nil
		}

		var batchResp batchResponse
		if err := json.Unmarshal(respBody, &batchResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch response: %v", err)), nil
		}

		if batchResp.ID == "" {
			return mcp.NewToolResultError("batch job creation failed: " + string(respBody)), nil
		}

		// Poll for completion.
		resultBody, err := pollJobCompletion(ctx, client, apiURL, apiKey, "/api/v1/batch/"+batchResp.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling batch job failed: %v", err)), nil
		}

		var statusResp batchStatusResponse
		if err := json.Unmarshal(resultBody, &statusResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch status: %v", err)), nil
		}

		return mcp.NewToolResultText(formatBatch(&statusResp)), nil
	}
}

// formatBatch renders a batch status with its per-URL results.
func formatBatch(statusResp *batchStatusResponse) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Batch %s: %s (%d/%d completed)\n\n", statusResp.ID, statusResp.Status, statusResp.Completed, statusResp.Total))

	for i, raw := range statusResp.Results {
		var sr scrapeResponse
		if err := json.Unmarshal(raw, &sr); err != nil {
			sb.WriteString(fmt.Sprintf("--- Result %d: parse error ---\n\n", i+1))
			continue
		}

		header := sr.Title
		if header == "" {
			header = sr.URL
		}

		switch {
		case sr.DuplicateOf != "":
			sb.WriteString(fmt.Sprintf("--- [%d] %s — duplicate of %s, content omitted ---\n\n", i+1, header, sr.DuplicateOf))
		case sr.Success:
			body := sr.DescriptionMarkdown
			if body == "" {
				body = sr.Description
			}
			sb.WriteString(fmt.Sprintf("--- [%d] %s ---\n%s\n\n", i+1, header, body))
		default:
			msg := errorText(sr.Error)
			if sr.ErrorKind != "" {
				msg = fmt.Sprintf("[%s] %s", sr.ErrorKind, msg)
			}
			sb.WriteString(fmt.Sprintf("--- [%d] %s FAILED: %s ---\n\n", i+1, sr.URL, msg))
		}
	}

	return sb.String()
}

func handleBatchStatus(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		respBody, err := apiGet(ctx, client, apiURL, apiKey, "/api/v1/batch/"+id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch status request failed: %v", err)), nil
		}

		var statusResp batchStatusResponse
		if err := json.Unmarshal(respBody, &statusResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch status: %v", err)), nil
		}
		if statusResp.ID == "" {
			return mcp.NewToolResultError("batch job not found: " + id), nil
		}

		return mcp.NewToolResultText(formatBatch(&statusResp)), nil
	}
}

func handleHealth(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		respBody, err := apiGet(ctx, client, apiURL, apiKey, "/api/v1/health")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("health request failed: %v", err)), nil
		}

		var hr healthResponse
		if err := json.Unmarshal(respBody, &hr); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse health response: %v", err)), nil
		}

		l := hr.Engine.Limiter
		text := fmt.Sprintf(
			"Status: %s\nVersion: %s\nUptime: %s\nBrowser running: %t\nActive sessions: %d\nTotal scrapes: %d\nBudget: %d/%d this hour, %d/%d today (daily counter for %s)",
			hr.Status, hr.Version, hr.Uptime,
			hr.Engine.BrowserRunning, hr.Engine.ActiveSessions, hr.Engine.TotalScrapes,
			l.HourlyUsed, l.HourlyLimit, l.DailyUsed, l.DailyLimit, l.ResetDate,
		)
		return mcp.NewToolResultText(text), nil
	}
}

func handleListProfiles(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		respBody, err := apiGet(ctx, client, apiURL, apiKey, "/api/v1/profiles")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("profiles request failed: %v", err)), nil
		}

		var pr profilesResponse
		if err := json.Unmarshal(respBody, &pr); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse profiles response: %v", err)), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%d site profiles:\n\n", len(pr.Profiles)))
		for _, p := range pr.Profiles {
			var notes []string
			if p.DynamicLoading {
				notes = append(notes, "dynamic loading")
			}
			if p.StrongBotProtection {
				notes = append(notes, "strong bot protection")
			}
			suffix := ""
			if len(notes) > 0 {
				suffix = " [" + strings.Join(notes, ", ") + "]"
			}
			sb.WriteString(fmt.Sprintf("- %s (%s): %d description rules, %d modal rules%s\n",
				p.Name, p.Key, p.DescriptionRules, p.ModalRules, suffix))
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}
