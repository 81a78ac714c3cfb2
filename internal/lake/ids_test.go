package lake

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator_ValidFormat(t *testing.T) {
	id := UUIDv7Generator{}.Generate()

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	gen := UUIDv7Generator{}
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		id := gen.Generate()
		require.False(t, seen[id], "id %s generated twice", id)
		seen[id] = true
	}
}

func TestSequenceIDs(t *testing.T) {
	gen := NewSequenceIDs("br")
	assert.Equal(t, "br1", gen.Generate())
	assert.Equal(t, "br2", gen.Generate())

	shared := NewClockAt(10)
	a := &SequenceIDs{Prefix: "a", Seq: shared}
	b := &SequenceIDs{Prefix: "b", Seq: shared}
	assert.Equal(t, "a11", a.Generate())
	assert.Equal(t, "b12", b.Generate())
}
