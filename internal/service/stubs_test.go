package service

import (
	"context"
	"sync"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	"github.com/noah-isme/aju-clearance-api/pkg/mailer"
)

type recordingAudit struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
	return nil
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.logs))
	for _, l := range r.logs {
		out = append(out, l.Action)
	}
	return out
}

type recordingMailer struct {
	sent []mailer.Message
}

func (r *recordingMailer) Send(ctx context.Context, msg mailer.Message) error {
	r.sent = append(r.sent, msg)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.DomainEvent
}

func (r *recordingPublisher) Emit(ctx context.Context, event models.DomainEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingPublisher) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// passthroughTx runs fn directly; rollback semantics are covered by the
// repository tests.
type passthroughTx struct {
	calls int
}

func (p *passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}
