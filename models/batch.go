package models

// BatchRequest is the payload for POST /api/v1/batch/scrape.
type BatchRequest struct {
	// URLs is the list of job postings to scrape. Required.
	URLs []string `json:"urls" binding:"required,min=1,max=50"`

	// Workers overrides the configured parallelism for this batch.
	// The shared request budget still serializes page fetches, so
	// values above 3 are rejected.
	Workers int `json:"workers,omitempty" binding:"omitempty,min=1,max=3"`
}

// BatchResponse is the immediate response for POST /api/v1/batch/scrape.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id.
type BatchStatusResponse struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	Completed int            `json:"completed"`
	Total     int            `json:"total"`
	Results   []ScrapeResult `json:"results,omitempty"`
}
