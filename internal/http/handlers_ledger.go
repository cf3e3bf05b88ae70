package http

import (
	"errors"
	"net/http"
	"strconv"

	"tally/internal/core"
)

func (s *Server) handleQueryLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorize(w, r)
	if !ok {
		return
	}
	lq, err := ParseLedgerQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, "query ledger", err)
		return
	}
	page, err := s.svc.Ledger.Query(r.Context(), id, lq)
	if err != nil {
		writeError(w, r, "query ledger", err)
		return
	}
	if page.Rows == nil {
		page.Rows = []core.LedgerEntry{}
	}
	NewJSONResponse().Body(page).Write(w)
}

func (s *Server) handleIngestReceipt(w http.ResponseWriter, r *http.Request) {
	image, err := readReceiptUpload(w, r, s.opts.MaxUploadBytes)
	if errors.Is(err, errUploadTooLarge) {
		writeStatusError(w, http.StatusRequestEntityTooLarge, errTooLarge,
			"receipt image exceeds "+strconv.FormatInt(s.opts.MaxUploadBytes, 10)+" bytes")
		return
	}
	if err != nil {
		writeError(w, r, "ingest receipt", err)
		return
	}

	res, err := s.svc.Ingestion.Ingest(r.Context(), r.PathValue("id"), ownerFrom(r.Context()), image)
	if err != nil {
		writeError(w, r, "ingest receipt", err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/v1/receipts/"+res.ReceiptID).
		Body(res).
		Write(w)
}

// receiptFor loads the receipt named in the path and checks that the caller
// owns its workspace. Receipts of deleted workspaces are reported missing.
func (s *Server) receiptFor(w http.ResponseWriter, r *http.Request, op string) (core.Receipt, bool) {
	rec, err := s.svc.Receipts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, op, err)
		return rec, false
	}
	if _, err := s.svc.Workspaces.Authorize(r.Context(), rec.WorkspaceID, ownerFrom(r.Context())); err != nil {
		if core.KindOf(err) == core.KindNotFound {
			err = core.NotFound("receipt %s not found", rec.ID)
		}
		writeError(w, r, op, err)
		return rec, false
	}
	return rec, true
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.receiptFor(w, r, "get receipt")
	if !ok {
		return
	}
	NewJSONResponse().Body(rec).Write(w)
}

func (s *Server) handleCorrectReceipt(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.receiptFor(w, r, "correct receipt")
	if !ok {
		return
	}
	var req struct {
		Fixes []core.Fix `json:"fixes"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "correct receipt", err)
		return
	}
	updated, err := s.svc.Corrections.Correct(r.Context(), rec.ID, req.Fixes)
	if err != nil {
		writeError(w, r, "correct receipt", err)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}
