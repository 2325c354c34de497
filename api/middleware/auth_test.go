package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/jobseekerhq/harvest/models"
)

func newAuthRouter(apiKeys []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(apiKeys))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"key": c.GetString("api_key")})
	})
	return r
}

func doRequest(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_NoKeysConfiguredIsOpen(t *testing.T) {
	r := newAuthRouter(nil)

	w := doRequest(r, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with no configured keys, got %d", w.Code)
	}
}

func TestAuth_MissingKeyRejected(t *testing.T) {
	r := newAuthRouter([]string{"secret-1"})

	w := doRequest(r, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", w.Code)
	}

	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != models.ErrCodeUnauthorized {
		t.Errorf("expected error code %s, got %+v", models.ErrCodeUnauthorized, resp.Error)
	}
}

func TestAuth_InvalidKeyRejected(t *testing.T) {
	r := newAuthRouter([]string{"secret-1"})

	w := doRequest(r, map[string]string{"X-API-Key": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown key, got %d", w.Code)
	}
}

func TestAuth_AcceptedHeaderStyles(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"x-api-key header", map[string]string{"X-API-Key": "secret-1"}},
		{"bearer token", map[string]string{"Authorization": "Bearer secret-1"}},
	}

	r := newAuthRouter([]string{"secret-1", "secret-2"})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, tt.headers)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d (body %s)", w.Code, w.Body.String())
			}

			var body struct {
				Key string `json:"key"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal response: %v", err)
			}
			if body.Key != "secret-1" {
				t.Errorf("handler should see the accepted key, got %q", body.Key)
			}
		})
	}
}

func TestAuth_NonBearerAuthorizationIgnored(t *testing.T) {
	r := newAuthRouter([]string{"secret-1"})

	w := doRequest(r, map[string]string{"Authorization": "Basic c2VjcmV0LTE="})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-bearer authorization, got %d", w.Code)
	}
}
