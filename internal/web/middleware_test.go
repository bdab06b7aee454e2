package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/yelinaung/trackify/internal/logger"
)

// Not parallel: swaps the global logger.
func TestAccessLog(t *testing.T) {
	original := logger.Log
	t.Cleanup(func() { logger.Log = original })

	handler := accessLog(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	t.Run("request fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger.SetOutput(&buf)

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/dashboard?view=1", nil))

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		require.Equal(t, "HTTP request", line["message"])
		require.Equal(t, "GET", line["method"])
		require.Equal(t, "/dashboard", line["path"], "query strings may carry filters and are left out")
		require.InDelta(t, http.StatusTeapot, line["status"], 0)
		require.InDelta(t, len("short and stout"), line["bytes"], 0)
		require.NotContains(t, line, "trace_id")
	})

	t.Run("trace id from span context", func(t *testing.T) {
		var buf bytes.Buffer
		logger.SetOutput(&buf)

		traceID := trace.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6, 0xa3, 0xce, 0x92, 0x9d, 0x0e, 0x0e, 0x47, 0x36}
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     trace.SpanID{0x00, 0xf0, 0x67, 0xaa, 0x0b, 0xa9, 0x02, 0xb7},
			TraceFlags: trace.FlagsSampled,
		})
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req = req.WithContext(trace.ContextWithSpanContext(req.Context(), sc))

		handler.ServeHTTP(httptest.NewRecorder(), req)

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		require.Equal(t, traceID.String(), line["trace_id"])
	})
}

func TestLocalPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"/dashboard?view=1", "/dashboard?view=1"},
		{"/login", "/login"},
		{"", "/"},
		{"dashboard", "/"},
		{"//evil.example/x", "/"},
		{`/\evil.example`, "/"},
		{"https://evil.example", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, localPath(tt.in))
		})
	}
}
