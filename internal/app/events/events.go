// Package events publishes domain events to pluggable sinks. Emission is
// fire and forget: a slow or failing sink never blocks the operation that
// produced the event.
package events

import (
	"sync"
	"time"

	"github.com/harshpreetweb3/insurance-dao/pkg/logger"
)

// Type enumerates the emitted event kinds.
type Type string

const (
	TypeOrganizationCreated Type = "organization_created"
	TypeSharesBought        Type = "shares_bought"
	TypeSharesRedeemed      Type = "shares_redeemed"
	TypeContributionMade    Type = "contribution_made"
	TypeProposalCreated     Type = "proposal_created"
	TypeVoteCast            Type = "vote_cast"
	TypeProposalExecuted    Type = "proposal_executed"
	TypeProposalRejected    Type = "proposal_rejected"
	TypeAnnuityIssued       Type = "annuity_issued"
	TypeAnnuityPurchased    Type = "annuity_purchased"
	TypePayoutClaimed       Type = "payout_claimed"
	TypeAnnuityDefaulted    Type = "annuity_defaulted"
	TypeRepaymentMade       Type = "repayment_made"
	TypeCollateralReleased  Type = "collateral_released"
	TypeProceedsWithdrawn   Type = "proceeds_withdrawn"
)

// Event is one emitted domain event.
type Event struct {
	Type       Type                   `json:"type"`
	OrgID      string                 `json:"org_id,omitempty"`
	Actor      string                 `json:"actor,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Sink receives emitted events.
type Sink interface {
	Emit(e Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(Event) {}

// Log writes each event to the structured log.
type Log struct {
	log *logger.Logger
}

// NewLog returns a sink logging at info level.
func NewLog(log *logger.Logger) *Log {
	if log == nil {
		log = logger.NewDefault("events")
	}
	return &Log{log: log}
}

func (l *Log) Emit(e Event) {
	entry := l.log.WithField("event", string(e.Type))
	if e.OrgID != "" {
		entry = entry.WithField("org_id", e.OrgID)
	}
	if e.Actor != "" {
		entry = entry.WithField("actor", e.Actor)
	}
	for k, v := range e.Attributes {
		entry = entry.WithField(k, v)
	}
	entry.Info("event emitted")
}

// Memory buffers events for inspection in tests.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Emit(e Event) {
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
}

// Events returns a copy of everything emitted so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// ByType returns the emitted events of one type.
func (m *Memory) ByType(t Type) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Multi fans one event out to several sinks.
type Multi []Sink

func (m Multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}
