// Package notify delivers audit results to the people who asked for them.
// Deliveries are queued in a durable outbox and performed by a Dispatcher, so
// an audit response never waits on the email provider.
package notify

import (
	"context"

	"github.com/whoisalfaz/site-audit/internal/model"
)

// Reporter sends the formatted audit report to the requester.
type Reporter interface {
	SendReport(ctx context.Context, email, name string, results *model.AuditResults) error
}

// AdminNotifier tells the site operator that an audit was requested.
type AdminNotifier interface {
	NotifyAdmin(ctx context.Context, name, email, url string, results *model.AuditResults) error
}

// ContactUpserter creates or updates a marketing contact for the requester.
type ContactUpserter interface {
	UpsertContact(ctx context.Context, email, name, url string) error
}

// Kind names a notification type.
type Kind string

const (
	KindReport  Kind = "report"
	KindAdmin   Kind = "admin"
	KindContact Kind = "contact"
)

// Kinds lists every notification queued for an audit, in delivery order.
var Kinds = []Kind{KindReport, KindAdmin, KindContact}

// Lead identifies who requested an audit.
type Lead struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	URL   string `json:"url"`
}

// Payload is the persisted body of an outbox job.
type Payload struct {
	Lead    Lead                `json:"lead"`
	Results *model.AuditResults `json:"results,omitempty"`
}
