package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessLog_AppendChainsHashes(t *testing.T) {
	log := NewAccessLog(func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) })
	first := log.Append("p1", "u1", "read", "physician")
	second := log.Append("p1", "u2", "write", "nurse")

	assert.Equal(t, genesisHash, first.PreviousHash)
	assert.Equal(t, first.EntryHash, second.PreviousHash)
	require.NoError(t, log.VerifyChain())
}

func TestAccessLog_VerifyChain_EmptyLogIsValid(t *testing.T) {
	log := NewAccessLog(nil)
	require.NoError(t, log.VerifyChain())
}

func TestAccessLog_VerifyChain_DetectsTampering(t *testing.T) {
	log := NewAccessLog(nil)
	log.Append("p1", "u1", "read", "physician")
	log.entries[0].Action = "delete"
	require.ErrorIs(t, log.VerifyChain(), ErrChainBroken)
}

func TestAccessLog_Query_FiltersByPatientAndRedactsUserID(t *testing.T) {
	log := NewAccessLog(nil)
	log.Append("p1", "u1", "read", "physician")
	log.Append("p2", "u2", "read", "nurse")

	results := log.Query(Filter{PatientID: "p1", RedactUserIDs: true})
	require.Len(t, results, 1)
	assert.Equal(t, "[redacted]", results[0].UserID)
}

func TestAccessLog_Append_EvictsPastCap(t *testing.T) {
	log := NewAccessLog(nil)
	for i := 0; i < maxAccessLogEntries+1; i++ {
		log.Append("p1", "u1", "read", "physician")
	}
	assert.Len(t, log.entries, retainedAccessLogEntries)
	require.NoError(t, log.VerifyChain())
}
