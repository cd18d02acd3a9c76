package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/whoisalfaz/site-audit/internal/model"
	"github.com/whoisalfaz/site-audit/internal/notify"
	"github.com/whoisalfaz/site-audit/internal/platform/errs"
	"github.com/whoisalfaz/site-audit/internal/platform/requestid"
)

const enqueueTimeout = 5 * time.Second

// Service runs audits and queues the follow-up notifications.
type Service struct {
	auditor Auditor
	outbox  Enqueuer
	logger  *slog.Logger
}

// NewService creates a Service. outbox may be nil, in which case no
// notifications are queued.
func NewService(auditor Auditor, outbox Enqueuer, logger *slog.Logger) *Service {
	return &Service{auditor: auditor, outbox: outbox, logger: logger}
}

// Audit runs the audit for req and queues the report, operator alert and
// contact upsert. A failure to queue is logged and does not fail the audit.
func (s *Service) Audit(ctx context.Context, req model.AuditRequest) (*model.AuditResponse, error) {
	logger := requestid.Logger(ctx, s.logger).With("url", req.URL)

	results, err := s.auditor.Run(ctx, req.URL)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = &errs.AppError{
				Kind:    errs.Timeout,
				Message: "The audit timed out. Please try again.",
				Cause:   err,
			}
		}
		logger.Error("audit failed", "error", err, "kind", errs.KindOf(err).String())
		return nil, err
	}

	statuses := make([]any, 0, len(results.Checks))
	for _, c := range results.Checks {
		statuses = append(statuses, slog.String(c.Name, string(c.Status)))
	}
	logger.Info("audit complete",
		"target", results.URL,
		"grade", results.Grade,
		"score", results.OverallScore,
		slog.Group("checks", statuses...),
	)

	return &model.AuditResponse{
		Success:             true,
		Results:             results,
		NotificationsQueued: s.enqueue(ctx, logger, req, results),
	}, nil
}

func (s *Service) enqueue(ctx context.Context, logger *slog.Logger, req model.AuditRequest, results *model.AuditResults) bool {
	if s.outbox == nil {
		return false
	}

	// The client may already be gone; the jobs must still be written.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()

	lead := notify.Lead{Name: req.Name, Email: req.Email, URL: results.URL}
	n, err := s.outbox.EnqueueAudit(ctx, lead, results)
	if err != nil {
		logger.Error("failed to queue notifications", "email", req.Email, "error", err)
		return false
	}
	logger.Debug("notifications queued", "email", req.Email, "jobs", n)
	return true
}
