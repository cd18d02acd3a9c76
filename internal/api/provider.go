package api

import (
	"context"

	"github.com/whoisalfaz/site-audit/internal/model"
	"github.com/whoisalfaz/site-audit/internal/notify"
)

// Auditor runs a complete audit of one URL.
type Auditor interface {
	Run(ctx context.Context, rawURL string) (*model.AuditResults, error)
}

// Enqueuer durably queues the notifications for a finished audit.
type Enqueuer interface {
	EnqueueAudit(ctx context.Context, lead notify.Lead, results *model.AuditResults) (int, error)
}
