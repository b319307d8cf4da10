package reconstruct

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/local/manualrebuild/internal/ai"
	"github.com/local/manualrebuild/internal/logger"
	"github.com/local/manualrebuild/internal/metrics"
)

// AuditEntry is the per-request record kept by an AuditLog.
type AuditEntry struct {
	Outcome    string     `json:"outcome"`
	StatusCode int        `json:"status_code"`
	Message    string     `json:"message,omitempty"`
	PageRange  string     `json:"page_range"`
	MIMEType   string     `json:"mime_type"`
	Model      string     `json:"model,omitempty"`
	Route      string     `json:"route,omitempty"`
	BaseURL    string     `json:"base_url,omitempty"`
	OutputSize int        `json:"output_size"`
	Start      *time.Time `json:"start_time,omitempty"`
	End        *time.Time `json:"end_time,omitempty"`
}

type AuditLog interface {
	Record(ctx context.Context, requestID string, e AuditEntry) error
	Get(ctx context.Context, requestID string) (AuditEntry, bool, error)
}

type Dependencies struct {
	Forwarder *Forwarder
	Audit     AuditLog // optional
	MaxBodyMB int
}

type Handler struct {
	deps    Dependencies
	maxBody int64
}

func NewHandler(deps Dependencies) *Handler {
	mb := deps.MaxBodyMB
	if mb <= 0 {
		mb = 25
	}
	return &Handler{deps: deps, maxBody: int64(mb) << 20}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/reconstruct", h.handleReconstruct)
	mux.HandleFunc("/api/requests/", h.handleAudit)
}

type successResp struct {
	Text  string `json:"text"`
	Debug *Debug `json:"debug,omitempty"`
}

type errorResp struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Debug   *Debug `json:"debug,omitempty"`
}

func (h *Handler) handleReconstruct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResp{Error: "method not allowed"})
		return
	}
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)
	lg := logger.WithRequest(requestID)
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	defer r.Body.Close()

	var req Request
	var res Result
	var decodeDetails string
	err := json.NewDecoder(r.Body).Decode(&req)
	status := 0
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
			err = &ai.InvalidRequestError{Message: "request body too large"}
		} else {
			decodeDetails = err.Error()
			err = &ai.InvalidRequestError{Message: "invalid json body"}
		}
	} else {
		res, err = h.deps.Forwarder.Reconstruct(r.Context(), req)
	}
	if status == 0 {
		status = statusFor(err)
	}

	outcome := ai.Kind(err)
	metrics.IncReconstruct(outcome)
	h.record(r.Context(), lg, requestID, req, res, err, status, start)

	level := zerolog.InfoLevel
	if err != nil {
		level = zerolog.WarnLevel
		if outcome == "unexpected" || outcome == "configuration" {
			level = zerolog.ErrorLevel
		}
	}
	lg.WithLevel(level).Err(err).
		Str("page_range", req.PageRange).
		Str("mime", req.MIMEType).
		Str("model", res.Debug.Model).
		Str("route", res.Debug.Route).
		Str("outcome", outcome).
		Int("status", status).
		Int("output_bytes", len(res.Text)).
		Dur("duration", time.Since(start)).
		Msg("reconstruct finished")

	if err != nil {
		body := errorResp{Error: ai.Message(err), Details: decodeDetails}
		var up *ai.UpstreamError
		if errors.As(err, &up) {
			body.Details = up.Body
			body.Debug = &res.Debug
		}
		writeJSON(w, status, body)
		return
	}
	metrics.ObserveOutput(len(res.Text))
	writeJSON(w, http.StatusOK, successResp{Text: res.Text, Debug: &res.Debug})
}

func (h *Handler) record(ctx context.Context, lg zerolog.Logger, requestID string, req Request, res Result, err error, status int, start time.Time) {
	if h.deps.Audit == nil {
		return
	}
	end := time.Now()
	e := AuditEntry{
		Outcome:    ai.Kind(err),
		StatusCode: status,
		PageRange:  req.PageRange,
		MIMEType:   req.MIMEType,
		Model:      res.Debug.Model,
		Route:      res.Debug.Route,
		BaseURL:    res.Debug.BaseURLUsed,
		OutputSize: len(res.Text),
		Start:      &start,
		End:        &end,
	}
	if err != nil {
		e.Message = ai.Message(err)
	}
	// the audit write must outlive a caller that already hung up
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if aerr := h.deps.Audit.Record(actx, requestID, e); aerr != nil {
		lg.Warn().Err(aerr).Msg("audit record failed")
	}
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResp{Error: "method not allowed"})
		return
	}
	if h.deps.Audit == nil {
		writeJSON(w, http.StatusNotFound, errorResp{Error: "request audit is disabled"})
		return
	}
	requestID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/requests/"), "/")
	if requestID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "missing request id"})
		return
	}
	e, ok, err := h.deps.Audit.Get(r.Context(), requestID)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResp{Error: "audit store unavailable"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp{Error: "request not found"})
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return ai.StatusCode(err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
