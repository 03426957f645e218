package console

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"

	"mailtrack/internal/claim"
	"mailtrack/internal/table"
	"mailtrack/pkg/model"
)

// APIError represents a structured error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
)

// Handler serves the mail view over HTTP. Query state lives in the
// request: every GET /view carries the full set of pipeline options, so
// the handler itself holds no per-client session.
type Handler struct {
	view *MailView
}

func NewHandler(view *MailView) *Handler {
	if view == nil {
		panic("mail view cannot be nil")
	}
	return &Handler{view: view}
}

// Routes registers the console endpoints on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /view", h.handleView)
	mux.HandleFunc("GET /suggest", h.handleSuggest)
	mux.HandleFunc("POST /selection/toggle", h.handleToggleSelect)
	mux.HandleFunc("POST /selection/all", h.handleSelectAll)
	mux.HandleFunc("POST /selection/clear", h.handleClearSelection)
	mux.HandleFunc("POST /claim/compose", h.handleCompose)
	mux.HandleFunc("POST /claim/claimant", h.handleClaimant)
	mux.HandleFunc("POST /claim/submit", h.handleSubmit)
	mux.HandleFunc("POST /claim/cancel", h.handleCancel)
	return mux
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Routes().ServeHTTP(w, r)
}

// viewRequest is the query-string form of the pipeline options.
type viewRequest struct {
	Query    string `schema:"q"`
	SortKey  string `schema:"sortKey"`
	SortDir  string `schema:"sortDir"`
	Page     int    `schema:"page"`
	PageSize int    `schema:"pageSize"`
	Status   string `schema:"status"`
	MailType string `schema:"mailType"`
	Received string `schema:"received"`
	Expr     string `schema:"expr"`
}

// viewResponse is one rendered page plus the selection summary the
// table header needs.
type viewResponse struct {
	State              ViewState                  `json:"state"`
	Page               table.Page[model.MailItem] `json:"page"`
	Selected           []string                   `json:"selected"`
	AllVisibleSelected bool                       `json:"allVisibleSelected"`
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.decodeOptions(w, r)
	if !ok {
		return
	}

	page := h.view.Render(opts)
	writeJSON(w, http.StatusOK, viewResponse{
		State:              h.view.State(),
		Page:               page,
		Selected:           h.view.SelectedIDs(),
		AllVisibleSelected: h.view.IsAllVisibleSelectedOn(opts),
	})
}

// decodeOptions reads the pipeline options out of the query string.
// Every endpoint that depends on "the page the client is viewing" takes
// the same parameters as GET /view. Writes the error response itself.
func (h *Handler) decodeOptions(w http.ResponseWriter, r *http.Request) (table.Options[model.MailItem], bool) {
	var req viewRequest
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	if err := decoder.Decode(&req, r.URL.Query()); err != nil {
		slog.Warn("View: invalid query parameters", "error", err)
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid query parameters")
		return table.Options[model.MailItem]{}, false
	}

	opts, err := h.buildOptions(req)
	if err != nil {
		slog.Warn("View: invalid filter", "error", err)
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return opts, false
	}
	return opts, true
}

// buildOptions maps the wire form to pipeline options. Filters compose:
// every present filter parameter adds one conjunct.
func (h *Handler) buildOptions(req viewRequest) (table.Options[model.MailItem], error) {
	opts := table.Options[model.MailItem]{
		Query:    req.Query,
		SortKey:  req.SortKey,
		SortDir:  table.SortDirection(req.SortDir),
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if opts.SortDir != table.SortDesc {
		opts.SortDir = table.SortAsc
	}

	if req.Status != "" {
		opts.Filters = append(opts.Filters, table.CategoricalFilter[model.MailItem]{Field: "status", Value: req.Status})
	}
	if req.MailType != "" {
		opts.Filters = append(opts.Filters, table.CategoricalFilter[model.MailItem]{Field: "mailType", Value: req.MailType})
	}
	if req.Received != "" {
		bucket, err := table.ParseDateBucket(req.Received)
		if err != nil {
			return opts, err
		}
		opts.Filters = append(opts.Filters, table.DateBucketFilter[model.MailItem]{Field: "insertDateTime", Bucket: bucket})
	}
	if req.Expr != "" {
		f, err := table.NewExprFilter[model.MailItem](req.Expr)
		if err != nil {
			return opts, err
		}
		opts.Filters = append(opts.Filters, f)
	}
	return opts, nil
}

func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	suggestions := h.view.Suggest(r.URL.Query().Get("q"))
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": suggestions})
}

func (h *Handler) handleToggleSelect(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.decodeOptions(w, r)
	if !ok {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Identifier is required")
		return
	}
	if err := h.view.ToggleSelect(id); err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Record not found")
		return
	}
	h.writeSelection(w, opts)
}

func (h *Handler) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.decodeOptions(w, r)
	if !ok {
		return
	}
	h.view.SelectAllVisibleOn(opts)
	h.writeSelection(w, opts)
}

func (h *Handler) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.decodeOptions(w, r)
	if !ok {
		return
	}
	h.view.ClearSelection()
	h.writeSelection(w, opts)
}

func (h *Handler) writeSelection(w http.ResponseWriter, opts table.Options[model.MailItem]) {
	writeJSON(w, http.StatusOK, map[string]any{
		"selected":           h.view.SelectedIDs(),
		"allVisibleSelected": h.view.IsAllVisibleSelectedOn(opts),
	})
}

// composeResponse carries the generated reference code back to the modal.
type composeResponse struct {
	State           claim.State `json:"state"`
	ReferenceNumber string      `json:"referenceNumber"`
	Identifiers     []string    `json:"identifiers"`
}

func (h *Handler) handleCompose(w http.ResponseWriter, r *http.Request) {
	tx, err := h.view.ComposeClaim()
	if err != nil {
		if errors.Is(err, model.ErrEmptySelection) {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Selection is empty")
			return
		}
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, composeResponse{
		State:           h.view.ClaimState(),
		ReferenceNumber: tx.ReferenceNumber,
		Identifiers:     tx.Identifiers,
	})
}

// claimantRequest is the claimant detail form.
type claimantRequest struct {
	PersonName    string `json:"personName"`
	PersonContact string `json:"personContact"`
	IDNumber      string `json:"idNumber"`
	Status        string `json:"status"`
	Note          string `json:"note"`
}

func (h *Handler) handleClaimant(w http.ResponseWriter, r *http.Request) {
	var req claimantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}

	err := h.view.SetClaimant(req.PersonName, req.PersonContact, req.IDNumber, claim.Outcome(req.Status), req.Note)
	if err != nil {
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]claim.State{"state": h.view.ClaimState()})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	err := h.view.SubmitClaim(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]claim.State{"state": h.view.ClaimState()})
	case errors.Is(err, model.ErrEmptySelection), errors.Is(err, model.ErrMissingClaimant):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeBadRequest, err.Error())
	case errors.Is(err, model.ErrRequestFailed):
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "Claim submission failed")
	case model.IsCanceled(err):
		w.WriteHeader(499) // Client Closed Request
	case h.view.ClaimState() == claim.StateComposing:
		// Submission ran and failed in transport; the modal stays open.
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "Claim submission failed")
	default:
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	}
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := h.view.CancelClaim(); err != nil {
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]claim.State{"state": h.view.ClaimState()})
}

// writeError writes a structured JSON error response
func writeError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(APIError{Code: code, Message: message}); err != nil {
		slog.Warn("Failed to encode error response", "error", err)
	}
}

// writeJSON writes a JSON response with proper error handling
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Failed to encode JSON response", "error", err)
	}
}
