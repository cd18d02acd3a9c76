package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/whoisalfaz/site-audit/internal/platform/errs"
)

const (
	defaultPollInterval = time.Second
	defaultMaxAttempts  = 5
	defaultBaseBackoff  = 5 * time.Second
	defaultMaxBackoff   = 10 * time.Minute
	deliveryTimeout     = 30 * time.Second
	settleTimeout       = 5 * time.Second
)

// Delivery outcomes reported to the Recorder.
const (
	OutcomeSent    = "sent"
	OutcomeRetry   = "retry"
	OutcomeDead    = "dead"
	OutcomeDropped = "dropped"
)

var errUnknownKind = errors.New("notify: unknown job kind")

// Store is the job queue the Dispatcher drains.
type Store interface {
	Claim(ctx context.Context, limit int) ([]Job, error)
	Complete(ctx context.Context, id string) error
	Retry(ctx context.Context, id string, cause error, next time.Time) error
	Bury(ctx context.Context, id string, cause error) error
	Pending(ctx context.Context) (int, error)
}

// Recorder receives delivery metrics.
type Recorder interface {
	ObserveNotification(kind, outcome string)
	SetOutboxPending(n int)
}

// Channels are the delivery backends, one per job kind.
type Channels struct {
	Reports  Reporter
	Admin    AdminNotifier
	Contacts ContactUpserter
}

// Dispatcher delivers queued jobs with a fixed pool of workers. Failed
// deliveries are retried with exponential backoff until they succeed or run
// out of attempts.
type Dispatcher struct {
	store    Store
	channels Channels
	workers  int
	logger   *slog.Logger
	recorder Recorder

	pollInterval time.Duration
	maxAttempts  int
	baseBackoff  time.Duration
	maxBackoff   time.Duration
	timeout      time.Duration
	now          func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRecorder reports delivery outcomes to r.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithPollInterval sets how often the store is checked for due jobs.
func WithPollInterval(interval time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.pollInterval = interval }
}

// WithLogger sets the dispatcher's logger.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher returns a Dispatcher draining store into channels with the
// given number of workers.
func NewDispatcher(store Store, channels Channels, workers int, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:        store,
		channels:     channels,
		workers:      max(workers, 1),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		pollInterval: defaultPollInterval,
		maxAttempts:  defaultMaxAttempts,
		baseBackoff:  defaultBaseBackoff,
		maxBackoff:   defaultMaxBackoff,
		timeout:      deliveryTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run polls for due jobs until ctx is cancelled. Deliveries already in
// progress are allowed to finish.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := d.RunOnce(ctx); err != nil && ctx.Err() == nil {
			d.logger.Error("outbox poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce claims one batch of due jobs, delivers them concurrently and
// returns how many were processed.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	batch, err := d.store.Claim(ctx, d.workers)
	if err != nil {
		return 0, err
	}

	if len(batch) > 0 {
		jobs := make(chan Job, len(batch))
		for _, j := range batch {
			jobs <- j
		}
		close(jobs)

		var wg sync.WaitGroup
		for range min(len(batch), d.workers) {
			wg.Go(func() {
				for j := range jobs {
					d.handle(ctx, j)
				}
			})
		}
		wg.Wait()
	}

	if d.recorder != nil {
		if n, err := d.store.Pending(ctx); err == nil {
			d.recorder.SetOutboxPending(n)
		}
	}
	return len(batch), nil
}

// handle delivers one job and records the outcome. Recording runs under its
// own deadline, independent of the delivery's.
func (d *Dispatcher) handle(ctx context.Context, j Job) {
	base := context.WithoutCancel(ctx)
	logger := d.logger.With("job_id", j.ID, "kind", j.Kind, "email", j.Payload.Lead.Email, "attempt", j.Attempts+1)

	deliverCtx, cancelDeliver := context.WithTimeout(base, d.timeout)
	deliveryErr := d.deliver(deliverCtx, j)
	cancelDeliver()

	settleCtx, cancelSettle := context.WithTimeout(base, settleTimeout)
	defer cancelSettle()

	outcome, err := d.settle(settleCtx, j, deliveryErr)
	if err != nil {
		logger.Error("failed to record delivery outcome", "outcome", outcome, "error", err)
	}
	if d.recorder != nil {
		d.recorder.ObserveNotification(string(j.Kind), outcome)
	}
	logger.Info("notification processed", "outcome", outcome)
}

func (d *Dispatcher) deliver(ctx context.Context, j Job) error {
	p := j.Payload
	switch j.Kind {
	case KindReport:
		if p.Results == nil {
			return &errs.AppError{Kind: errs.InvalidInput, Message: "report job has no results", Cause: errNilResults}
		}
		return d.channels.Reports.SendReport(ctx, p.Lead.Email, p.Lead.Name, p.Results)
	case KindAdmin:
		if p.Results == nil {
			return &errs.AppError{Kind: errs.InvalidInput, Message: "admin job has no results", Cause: errNilResults}
		}
		return d.channels.Admin.NotifyAdmin(ctx, p.Lead.Name, p.Lead.Email, p.Lead.URL, p.Results)
	case KindContact:
		return d.channels.Contacts.UpsertContact(ctx, p.Lead.Email, p.Lead.Name, p.Lead.URL)
	default:
		return &errs.AppError{Kind: errs.InvalidInput, Message: fmt.Sprintf("job kind %q", j.Kind), Cause: errUnknownKind}
	}
}

// settle records the outcome of one delivery attempt in the store.
func (d *Dispatcher) settle(ctx context.Context, j Job, deliveryErr error) (string, error) {
	if deliveryErr == nil {
		return OutcomeSent, d.store.Complete(ctx, j.ID)
	}

	switch errs.KindOf(deliveryErr) {
	case errs.NotConfigured, errs.InvalidInput:
		return OutcomeDropped, d.store.Bury(ctx, j.ID, deliveryErr)
	}

	failures := j.Attempts + 1
	if failures >= d.maxAttempts {
		return OutcomeDead, d.store.Bury(ctx, j.ID, deliveryErr)
	}
	return OutcomeRetry, d.store.Retry(ctx, j.ID, deliveryErr, d.now().Add(d.backoff(failures)))
}

// backoff returns the delay before retry number n (1-based).
func (d *Dispatcher) backoff(n int) time.Duration {
	delay := d.baseBackoff
	for i := 1; i < n; i++ {
		delay *= 2
		if delay >= d.maxBackoff {
			return d.maxBackoff
		}
	}
	return min(delay, d.maxBackoff)
}
