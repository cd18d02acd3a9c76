package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/whoisalfaz/site-audit/internal/audit"
	"github.com/whoisalfaz/site-audit/internal/model"
	"github.com/whoisalfaz/site-audit/internal/platform/errs"
)

const validationFailed = "Validation failed"

// Transport handles HTTP requests for site audits.
type Transport struct {
	service *Service
	logger  *slog.Logger
}

// NewTransport creates an HTTP transport backed by the given service.
func NewTransport(service *Service, logger *slog.Logger) *Transport {
	return &Transport{service: service, logger: logger}
}

// RegisterRoutes attaches the transport's handlers to mux. The middleware in
// auditMW wraps only the audit endpoint.
func (t *Transport) RegisterRoutes(mux *http.ServeMux, auditMW ...func(http.Handler) http.Handler) {
	var h http.Handler = http.HandlerFunc(t.handleAudit)
	for i := len(auditMW) - 1; i >= 0; i-- {
		h = auditMW[i](h)
	}
	mux.Handle("POST /audit", h)
	mux.HandleFunc("GET /healthz", t.handleHealth)
}

type auditRequest model.AuditRequest

func (r auditRequest) validate() error {
	fields := make(map[string][]string)

	if strings.TrimSpace(r.URL) == "" {
		fields["url"] = append(fields["url"], "URL is required")
	} else if _, err := audit.NormalizeURL(r.URL); err != nil {
		fields["url"] = append(fields["url"], "Please enter a valid URL")
	}

	if strings.TrimSpace(r.Name) == "" {
		fields["name"] = append(fields["name"], "Name is required")
	}

	email := strings.TrimSpace(r.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		fields["email"] = append(fields["email"], "Invalid email")
	}

	if len(fields) > 0 {
		return &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: "One or more fields are invalid.",
			Fields:  fields,
		}
	}
	return nil
}

func (r auditRequest) normalized() model.AuditRequest {
	return model.AuditRequest{
		URL:   strings.TrimSpace(r.URL),
		Name:  strings.TrimSpace(r.Name),
		Email: strings.TrimSpace(r.Email),
	}
}

func (t *Transport) handleAudit(w http.ResponseWriter, r *http.Request) {
	const maxRequestBody = 1 << 20 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req auditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.renderError(w, http.StatusBadRequest, "Invalid request body. Please send a JSON object with \"url\", \"name\" and \"email\" fields.")
		return
	}

	if err := req.validate(); err != nil {
		t.handleServiceError(w, err)
		return
	}

	resp, err := t.service.Audit(r.Context(), req.normalized())
	if err != nil {
		t.handleServiceError(w, err)
		return
	}

	t.renderJSON(w, http.StatusOK, resp)
}

func (t *Transport) handleHealth(w http.ResponseWriter, _ *http.Request) {
	t.renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (t *Transport) handleServiceError(w http.ResponseWriter, err error) {
	var appErr *errs.AppError
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case errs.InvalidInput:
			t.renderJSON(w, http.StatusBadRequest, model.ErrorResponse{
				Error:      validationFailed,
				StatusCode: http.StatusBadRequest,
				Message:    appErr.Message,
				Details:    appErr.Fields,
			})
		case errs.Timeout:
			t.renderError(w, http.StatusGatewayTimeout, appErr.Message)
		default:
			t.renderError(w, http.StatusInternalServerError, appErr.Message)
		}
		return
	}

	t.renderError(w, http.StatusInternalServerError, "An unexpected error occurred.")
}

func (t *Transport) renderJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		t.logger.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"Internal Server Error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (t *Transport) renderError(w http.ResponseWriter, status int, message string) {
	t.renderJSON(w, status, model.ErrorResponse{
		Error:      http.StatusText(status),
		StatusCode: status,
		Message:    message,
	})
}
