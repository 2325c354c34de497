package handler

import (
	"net/http"
	"testing"

	"github.com/jobseekerhq/harvest/models"
)

func TestStatusForResult(t *testing.T) {
	tests := []struct {
		name   string
		result models.ScrapeResult
		want   int
	}{
		{
			name:   "success maps to 200",
			result: models.ScrapeResult{Success: true},
			want:   http.StatusOK,
		},
		{
			// A cleared-too-late challenge is an annotation, not a failure.
			name:   "success with challenge annotation still 200",
			result: models.ScrapeResult{Success: true, ErrorKind: models.ErrCodeChallengeTimeout},
			want:   http.StatusOK,
		},
		{
			name:   "budget exhausted maps to 429",
			result: models.ScrapeResult{ErrorKind: models.ErrCodeRateLimited},
			want:   http.StatusTooManyRequests,
		},
		{
			name:   "session start failure maps to 503",
			result: models.ScrapeResult{ErrorKind: models.ErrCodeSessionStart},
			want:   http.StatusServiceUnavailable,
		},
		{
			name:   "access blocked maps to 502",
			result: models.ScrapeResult{ErrorKind: models.ErrCodeAccessBlocked},
			want:   http.StatusBadGateway,
		},
		{
			name:   "extraction failure maps to 422",
			result: models.ScrapeResult{ErrorKind: models.ErrCodeExtraction},
			want:   http.StatusUnprocessableEntity,
		},
		{
			name:   "challenge timeout maps to 504",
			result: models.ScrapeResult{ErrorKind: models.ErrCodeChallengeTimeout},
			want:   http.StatusGatewayTimeout,
		},
		{
			name:   "unknown failure maps to 500",
			result: models.ScrapeResult{ErrorKind: models.ErrCodeUnknown},
			want:   http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusForResult(&tt.result); got != tt.want {
				t.Errorf("statusForResult(%s) = %d, want %d", tt.result.ErrorKind, got, tt.want)
			}
		})
	}
}
