package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tally/internal/core"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return core.Validation("request body is required")
		}
		return core.Validation("invalid request body: %v", err)
	}
	if dec.More() {
		return core.Validation("request body must contain a single JSON object")
	}
	return nil
}

// pathInt parses a numeric path segment.
func pathInt(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, core.Validation("invalid %s %q", name, raw)
	}
	return n, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(q url.Values, name string) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.Validation("invalid %s %q", name, v)
	}
	return n, nil
}

// ParseLedgerQuery extracts the ledger filter from query parameters.
func ParseLedgerQuery(q url.Values) (core.LedgerQuery, error) {
	lq := core.LedgerQuery{Date: strings.TrimSpace(q.Get("date"))}

	if v := strings.TrimSpace(q.Get("category_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return lq, core.Validation("invalid category_id %q", v)
		}
		lq.CategoryID = &id
	}

	var err error
	if lq.Offset, err = queryInt(q, "offset"); err != nil {
		return lq, err
	}
	if lq.Limit, err = queryInt(q, "limit"); err != nil {
		return lq, err
	}
	return lq, nil
}

// ReportParams holds the report window requested by the caller.
type ReportParams struct {
	Period core.Period
	Start  string
	End    string
}

// ParseReportParams reads period, start and end. Unknown or missing periods
// are left to the report engine, which falls back to monthly.
func ParseReportParams(q url.Values) ReportParams {
	return ReportParams{
		Period: core.Period(strings.ToLower(strings.TrimSpace(q.Get("period")))),
		Start:  strings.TrimSpace(q.Get("start")),
		End:    strings.TrimSpace(q.Get("end")),
	}
}

// errUploadTooLarge marks an upload over the configured limit.
var errUploadTooLarge = errors.New("upload too large")

// readReceiptUpload returns the bytes of the multipart field "receipt".
func readReceiptUpload(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, errUploadTooLarge
		}
		return nil, core.Validation("invalid multipart form: %v", err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, _, err := r.FormFile("receipt")
	if err != nil {
		return nil, core.Validation("multipart field %q is required", "receipt")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read receipt upload: %w", err)
	}
	return data, nil
}
