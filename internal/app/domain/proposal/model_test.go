package proposal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuorumCountsDistinctVoters(t *testing.T) {
	pr := &Proposal{MinimumQuorum: 2, Voters: []string{"alice"}}
	require.False(t, pr.QuorumMet())

	pr.Voters = append(pr.Voters, "bob")
	require.True(t, pr.QuorumMet())
}

func TestHasVoted(t *testing.T) {
	pr := &Proposal{Voters: []string{"alice", "bob"}}
	require.True(t, pr.HasVoted("alice"))
	require.False(t, pr.HasVoted("carol"))
}
