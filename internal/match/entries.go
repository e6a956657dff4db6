package match

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntrySource stamps new log entries. seq is the 1-based position of the
// entry in the match log, which only ever grows.
type EntrySource interface {
	NextEntry(seq int) (id string, ts time.Time)
}

// SequenceSource derives ids and timestamps from the entry sequence alone,
// so replaying the same plays yields identical logs.
type SequenceSource struct {
	Prefix string
	Base   time.Time
	Step   time.Duration
}

// NextEntry implements EntrySource.
func (s SequenceSource) NextEntry(seq int) (string, time.Time) {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "entry"
	}
	step := s.Step
	if step == 0 {
		step = time.Second
	}
	return fmt.Sprintf("%s-%06d", prefix, seq), s.Base.Add(time.Duration(seq) * step)
}

// UUIDSource stamps entries with random v4 ids and the wall clock.
// Suited to interactive hosts where logs are never compared.
type UUIDSource struct {
	Now func() time.Time
}

// NextEntry implements EntrySource.
func (s UUIDSource) NextEntry(int) (string, time.Time) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return uuid.NewString(), now().UTC()
}
