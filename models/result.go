package models

// ScrapeResult is the outcome of scraping a single job posting.
// Every scrape produces one, whether it succeeded or failed; the
// ErrorKind field carries the failure taxonomy when Success is false.
type ScrapeResult struct {
	// URL is the job posting that was scraped.
	URL string `json:"url"`

	// Site is the display name of the matched site profile
	// (e.g. "LinkedIn", "Naukri", "Generic").
	Site string `json:"site"`

	// Title, Company and Location are best-effort fields. They may be
	// empty even on success; their absence never fails a scrape.
	Title    string `json:"title,omitempty"`
	Company  string `json:"company,omitempty"`
	Location string `json:"location,omitempty"`

	// Description is the extracted job description text. A scrape is
	// successful if and only if this field is non-empty.
	Description string `json:"description,omitempty"`

	// DescriptionMarkdown is the description converted to markdown,
	// populated when the matched element's HTML could be captured.
	DescriptionMarkdown string `json:"description_markdown,omitempty"`

	// ModalDismissed reports whether an overlay was closed by clicking
	// a known dismiss control. Pressing Escape does not count.
	ModalDismissed bool `json:"modal_dismissed"`

	// Success is true when a non-empty description was extracted.
	Success bool `json:"success"`

	// ErrorKind is one of the ErrCode* scrape-outcome constants. Empty
	// on success, with one exception: CHALLENGE_TIMEOUT can annotate a
	// successful result whose challenge page never visibly cleared.
	ErrorKind string `json:"error_kind,omitempty"`

	// Error is a human-readable failure message. Empty on success.
	Error string `json:"error,omitempty"`

	// Diagnostics records the per-selector extraction trace for the
	// description field, in attempt order.
	Diagnostics []string `json:"diagnostics,omitempty"`

	// DuplicateOf is set on batch results whose description is
	// near-identical to an earlier result in the same batch.
	DuplicateOf string `json:"duplicate_of,omitempty"`

	// ProxyUsed is the proxy server for this scrape, or
	// "Direct connection" when none was configured.
	ProxyUsed string `json:"proxy_used"`

	// FetchedAt is the unix timestamp when the result was produced.
	FetchedAt int64 `json:"fetched_at"`
}

// Failed constructs a failure result with the given kind and message.
func Failed(url, site, kind, message string) *ScrapeResult {
	return &ScrapeResult{
		URL:       url,
		Site:      site,
		Success:   false,
		ErrorKind: kind,
		Error:     message,
		ProxyUsed: "Direct connection",
	}
}
