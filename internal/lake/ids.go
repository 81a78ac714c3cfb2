package lake

import (
	"strconv"

	"github.com/google/uuid"
)

// IDGenerator generates branch identities.
// Implemented by UUIDv7Generator (production), SequenceIDs and
// testutil.SequentialIDs (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 branch ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceIDs derives compact ids ("b1", "b2", ...) from a Sequencer.
type SequenceIDs struct {
	Prefix string
	Seq    Sequencer
}

// NewSequenceIDs creates a generator backed by its own Clock.
func NewSequenceIDs(prefix string) *SequenceIDs {
	return &SequenceIDs{Prefix: prefix, Seq: NewClock()}
}

// Generate returns Prefix followed by the next sequence number.
func (g *SequenceIDs) Generate() string {
	return g.Prefix + strconv.FormatInt(g.Seq.Next(), 10)
}
