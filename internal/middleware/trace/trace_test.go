package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "tally/internal/log"
)

func newTraced(t *testing.T, status int) (http.Handler, *Middleware, *bytes.Buffer, *string) {
	t.Helper()
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentHTTP, Output: &buf})
	m := NewMiddleware(logger, func(*http.Request) string { return "192.0.2.1" })
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		applog.FromContext(r.Context()).InfoContext(r.Context(), "inside")
		w.WriteHeader(status)
	}))
	return h, m, &buf, &seen
}

func TestGeneratesRequestID(t *testing.T) {
	h, m, buf, seen := newTraced(t, http.StatusTeapot)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	id := rr.Header().Get(HeaderRequestID)
	if !strings.HasPrefix(id, "req_") || id != *seen {
		t.Fatalf("header id %q, context id %q", id, *seen)
	}
	out := buf.String()
	if strings.Count(out, "request_id="+id) != 2 {
		t.Fatalf("both log lines must carry the id: %q", out)
	}
	if !strings.Contains(out, "status_code=418") || !strings.Contains(out, "level=WARN") {
		t.Fatalf("completion not logged as warning: %q", out)
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Fatalf("TotalRequests = %d", got)
	}
}

func TestIncomingRequestID(t *testing.T) {
	cases := []struct {
		header string
		keep   bool
	}{
		{"abc-123", true},
		{"has space", false},
		{strings.Repeat("x", maxRequestIDLen+1), false},
	}
	for _, tc := range cases {
		h, _, _, seen := newTraced(t, http.StatusOK)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, tc.header)
		h.ServeHTTP(httptest.NewRecorder(), req)
		if (*seen == tc.header) != tc.keep {
			t.Fatalf("header %q: context id %q", tc.header, *seen)
		}
	}
}

func TestCountsServerErrors(t *testing.T) {
	h, m, _, _ := newTraced(t, http.StatusInternalServerError)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got := m.GetMetrics().ServerErrors; got != 1 {
		t.Fatalf("ServerErrors = %d", got)
	}
}
