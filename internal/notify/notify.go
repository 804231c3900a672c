// Package notify delivers committed notifications outside the database.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/emilythestrangee/stackit/backend/internal/ledger"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// Log records every notification as a structured log line.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, n models.Notification) {
	l.logger.InfoContext(ctx, "notification queued", "notification_id", n.ID, "user_id", n.UserID)
}

// Fanout hands each notification to every notifier in order.
type Fanout []ledger.Notifier

func (f Fanout) Notify(ctx context.Context, n models.Notification) {
	for _, notifier := range f {
		notifier.Notify(ctx, n)
	}
}

// Async runs the wrapped notifier off the request path. Wait blocks until
// every delivery started so far has finished.
type Async struct {
	next ledger.Notifier
	wg   sync.WaitGroup
}

func NewAsync(next ledger.Notifier) *Async {
	return &Async{next: next}
}

func (a *Async) Notify(ctx context.Context, n models.Notification) {
	// The request context is cancelled once the response is written.
	detached := context.WithoutCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.next.Notify(detached, n)
	}()
}

func (a *Async) Wait() {
	a.wg.Wait()
}
