package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemorySink(t *testing.T) {
	m := NewMemory()
	m.Emit(Event{Type: TypeSharesBought, OrgID: "o1", Actor: "alice"})
	m.Emit(Event{Type: TypeVoteCast, OrgID: "o1", Actor: "bob"})
	m.Emit(Event{Type: TypeSharesBought, OrgID: "o2", Actor: "carol"})

	require.Len(t, m.Events(), 3)
	bought := m.ByType(TypeSharesBought)
	require.Len(t, bought, 2)
	require.Equal(t, "alice", bought[0].Actor)
}

func TestMultiFanOut(t *testing.T) {
	a := NewMemory()
	b := NewMemory()
	sink := Multi{a, b, Nop{}}

	sink.Emit(Event{Type: TypePayoutClaimed, OccurredAt: time.Now()})

	require.Len(t, a.Events(), 1)
	require.Len(t, b.Events(), 1)
}
