// Package privacy decides which data types may cross the device boundary and
// keeps the audit trail of every such decision.
package privacy

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/models"
)

//go:generate mockgen -source=gate.go -destination=../mock/privacy_mock.go -package=mock

// Gate is consulted by the sync pipelines before a record leaves or enters
// the local store.
type Gate interface {
	IsAllowed(ctx context.Context, dataType models.DataType) bool
	Audit(ctx context.Context, entry models.AuditEntry)
}

// AuditSink receives audit entries. store.AuditLogRepository satisfies it.
type AuditSink interface {
	Append(ctx context.Context, entry models.AuditEntry) error
}

// PolicyGate allows every data type except the denied ones. The denied set
// can change at runtime as the user updates consent.
type PolicyGate struct {
	mu     sync.RWMutex
	denied map[models.DataType]struct{}
	sinks  []AuditSink
	now    func() time.Time
}

func NewPolicyGate(denied []models.DataType, sinks ...AuditSink) *PolicyGate {
	g := &PolicyGate{
		denied: make(map[models.DataType]struct{}, len(denied)),
		sinks:  sinks,
		now:    time.Now,
	}
	for _, dt := range denied {
		g.denied[dt] = struct{}{}
	}
	return g
}

func (g *PolicyGate) IsAllowed(_ context.Context, dataType models.DataType) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, denied := g.denied[dataType]
	return !denied
}

// SetAllowed grants or revokes consent for dataType.
func (g *PolicyGate) SetAllowed(dataType models.DataType, allowed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if allowed {
		delete(g.denied, dataType)
		return
	}
	g.denied[dataType] = struct{}{}
}

// Denied returns the denied data types in lexical order.
func (g *PolicyGate) Denied() []models.DataType {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]models.DataType, 0, len(g.denied))
	for dt := range g.denied {
		out = append(out, dt)
	}
	slices.Sort(out)
	return out
}

// Audit hands entry to every sink. A failing sink is logged and never
// fails the caller.
func (g *PolicyGate) Audit(ctx context.Context, entry models.AuditEntry) {
	if entry.At.IsZero() {
		entry.At = g.now()
	}

	for _, sink := range g.sinks {
		if err := sink.Append(ctx, entry); err != nil {
			logger.FromContext(ctx).Warn().Err(err).
				Str("func", "PolicyGate.Audit").
				Str("action", string(entry.Action)).
				Str("record_id", entry.RecordID).
				Msg("failed to write audit entry")
		}
	}
}
