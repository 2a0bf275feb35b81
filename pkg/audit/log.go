package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxAccessLogEntries and retainedAccessLogEntries implement the bounded
// retention policy: once the log exceeds the max, the oldest entries are
// dropped down to the retained count.
const (
	maxAccessLogEntries      = 10_000
	retainedAccessLogEntries = 5_000
)

// genesisHash seeds the chain before any entry has been appended.
const genesisHash = "genesis"

// ErrChainBroken is returned by VerifyChain when an entry's stored hash
// does not match its recomputed hash, or its previous-hash link does not
// match the entry before it.
var ErrChainBroken = errors.New("audit: access log hash chain is broken")

// AccessEntry is a single patient-record access event, hash-chained to the
// entry before it so tampering with or reordering a retained entry is
// detectable by VerifyChain. Eviction (see Append) advances the verifiable
// window's start rather than breaking it: VerifyChain only attests to the
// entries currently retained, never to full history back to the original
// genesis — tamper-evidence over the retention window matters more here
// than an unbroken record of every access ever made.
type AccessEntry struct {
	EntryID      string    `json:"entry_id"`
	Timestamp    time.Time `json:"timestamp"`
	PatientID    string    `json:"patient_id"`
	UserID       string    `json:"user_id"`
	Action       string    `json:"action"`
	Role         string    `json:"role"`
	PreviousHash string    `json:"previous_hash"`
	EntryHash    string    `json:"entry_hash"`
}

// AccessLog is a bounded, mutex-guarded in-memory log of patient-record
// accesses, independent from the per-request Trail.
type AccessLog struct {
	mu        sync.Mutex
	clock     func() time.Time
	entries   []AccessEntry
	chainHead string
}

// NewAccessLog creates an empty access log.
func NewAccessLog(clock func() time.Time) *AccessLog {
	if clock == nil {
		clock = time.Now
	}
	return &AccessLog{clock: clock, chainHead: genesisHash}
}

// Append records an access event, chaining it to the current head, then
// evicting the oldest entries down to retainedAccessLogEntries if the log
// has grown past the cap.
func (l *AccessLog) Append(patientID, userID, action, role string) AccessEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := AccessEntry{
		EntryID:      uuid.New().String(),
		Timestamp:    l.clock(),
		PatientID:    patientID,
		UserID:       userID,
		Action:       action,
		Role:         role,
		PreviousHash: l.chainHead,
	}
	entry.EntryHash = hashAccessEntry(entry)
	l.chainHead = entry.EntryHash

	l.entries = append(l.entries, entry)
	if len(l.entries) > maxAccessLogEntries {
		drop := len(l.entries) - retainedAccessLogEntries
		l.entries = append([]AccessEntry(nil), l.entries[drop:]...)
	}
	return entry
}

// hashAccessEntry computes the SHA-256 hash of an entry's fields including
// its previous-hash link, binding it to its position in the chain.
func hashAccessEntry(e AccessEntry) string {
	hashable := struct {
		EntryID      string    `json:"entry_id"`
		Timestamp    time.Time `json:"timestamp"`
		PatientID    string    `json:"patient_id"`
		UserID       string    `json:"user_id"`
		Action       string    `json:"action"`
		Role         string    `json:"role"`
		PreviousHash string    `json:"previous_hash"`
	}{e.EntryID, e.Timestamp, e.PatientID, e.UserID, e.Action, e.Role, e.PreviousHash}

	data, _ := json.Marshal(hashable)
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// VerifyChain recomputes and checks the hash chain across the currently
// retained entries. It attests only to the retained window: the first
// entry's PreviousHash is trusted as the window's starting point rather
// than required to equal the original genesis hash.
func (l *AccessLog) VerifyChain() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	expectedPrev := genesisHash
	if len(l.entries) > 0 {
		expectedPrev = l.entries[0].PreviousHash
	}
	for i, entry := range l.entries {
		if entry.PreviousHash != expectedPrev {
			return fmt.Errorf("%w: entry %d previous_hash mismatch", ErrChainBroken, i)
		}
		if hashAccessEntry(entry) != entry.EntryHash {
			return fmt.Errorf("%w: entry %d hash mismatch", ErrChainBroken, i)
		}
		expectedPrev = entry.EntryHash
	}
	return nil
}

// Filter describes the optional filters accepted by Query.
type Filter struct {
	PatientID      string
	Action         string
	Since          time.Time
	Until          time.Time
	RedactUserIDs  bool
}

// Query returns the entries matching the filter, oldest first.
func (l *AccessLog) Query(f Filter) []AccessEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]AccessEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if f.PatientID != "" && e.PatientID != f.PatientID {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
			continue
		}
		if f.RedactUserIDs {
			e.UserID = "[redacted]"
		}
		out = append(out, e)
	}
	return out
}
