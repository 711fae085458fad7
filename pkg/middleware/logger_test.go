package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// TestLogger はLoggerミドルウェアを検証する。
func TestLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "2xxはinfoで出力されること", status: http.StatusOK, wantLevel: "info"},
		{name: "4xxはwarnで出力されること", status: http.StatusBadRequest, wantLevel: "warn"},
		{name: "5xxはerrorで出力されること", status: http.StatusInternalServerError, wantLevel: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			router := gin.New()
			router.Use(RequestID())
			router.Use(Logger(zerolog.New(&buf)))
			router.GET("/test", func(c *gin.Context) {
				c.Status(tt.status)
			})

			req := httptest.NewRequest(http.MethodGet, "/test?url=https://api.1inch.dev/x", nil)
			req.Header.Set("X-Request-ID", "req-log")
			router.ServeHTTP(httptest.NewRecorder(), req)

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("ログのパースに失敗: %v (%s)", err, buf.String())
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %q", entry["level"], tt.wantLevel)
			}
			if entry["method"] != http.MethodGet {
				t.Errorf("method = %v, want %q", entry["method"], http.MethodGet)
			}
			if entry["path"] != "/test" {
				t.Errorf("path = %v, want %q", entry["path"], "/test")
			}
			if entry["status"] != float64(tt.status) {
				t.Errorf("status = %v, want %d", entry["status"], tt.status)
			}
			if entry["request_id"] != "req-log" {
				t.Errorf("request_id = %v, want %q", entry["request_id"], "req-log")
			}
		})
	}
}
