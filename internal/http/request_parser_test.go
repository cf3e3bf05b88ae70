package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"tally/internal/core"
)

func TestParseLedgerQuery(t *testing.T) {
	cases := []struct {
		name    string
		query   string
		want    core.LedgerQuery
		wantCat int64
		wantErr bool
	}{
		{name: "empty", query: ""},
		{name: "all fields", query: "date=2024-03-01&category_id=4&offset=10&limit=5",
			want: core.LedgerQuery{Date: "2024-03-01", Offset: 10, Limit: 5}, wantCat: 4},
		{name: "bad category", query: "category_id=x", wantErr: true},
		{name: "bad offset", query: "offset=1.5", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tc.query)
			got, err := ParseLedgerQuery(q)
			if tc.wantErr {
				if core.KindOf(err) != core.KindValidation {
					t.Fatalf("err = %v, want validation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLedgerQuery: %v", err)
			}
			if got.Date != tc.want.Date || got.Offset != tc.want.Offset || got.Limit != tc.want.Limit {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
			if tc.wantCat != 0 && (got.CategoryID == nil || *got.CategoryID != tc.wantCat) {
				t.Fatalf("category = %v, want %d", got.CategoryID, tc.wantCat)
			}
		})
	}
}

func TestParseReportParams(t *testing.T) {
	q, _ := url.ParseQuery("period=Custom&start=2024-01-01&end=%202024-01-31%20")
	p := ParseReportParams(q)
	if p.Period != core.PeriodCustom || p.Start != "2024-01-01" || p.End != "2024-01-31" {
		t.Fatalf("params = %+v", p)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer alice":   "alice",
		"bearer  bob ":   "bob",
		"Basic abc":      "",
		"Bearer":         "",
		"Bearer    ":     "",
		"":               "",
	}
	for header, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", header)
		got, ok := bearerToken(r)
		if got != want || ok != (want != "") {
			t.Errorf("bearerToken(%q) = %q, %v", header, got, ok)
		}
	}
}

func TestErrorResponse(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
		msg    string
	}{
		{core.NotFound("receipt %s not found", "r1"), http.StatusNotFound, "not_found", "receipt r1 not found"},
		{core.Forbidden("nope"), http.StatusForbidden, "forbidden", "nope"},
		{core.Validation("bad"), http.StatusBadRequest, "validation", "bad"},
		{core.Conflict("dup"), http.StatusConflict, "conflict", "dup"},
		{core.Upstream(errPlain("timeout"), "parse receipt"), http.StatusBadGateway, "upstream_failure", "parse receipt"},
		{errPlain("disk full"), http.StatusInternalServerError, "storage_failure", "internal error"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		ErrorResponse(tc.err).Write(rr)
		expectError(t, rr, tc.status, tc.kind)
		if !strings.Contains(rr.Body.String(), tc.msg) {
			t.Errorf("body %q missing %q", rr.Body.String(), tc.msg)
		}
		if rr.Header().Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", rr.Header().Get("Content-Type"))
		}
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }

func TestJSONResponseNoBody(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Header("X-Test", "1").Write(rr)
	if rr.Code != http.StatusNoContent || rr.Body.Len() != 0 || rr.Header().Get("X-Test") != "1" {
		t.Fatalf("response = %d %q %v", rr.Code, rr.Body, rr.Header())
	}
}
