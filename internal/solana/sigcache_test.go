package solana

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sigs(names ...string) []Signature {
	out := make([]Signature, len(names))
	for i, n := range names {
		out[i] = Signature{Signature: n, Slot: uint64(i + 1)}
	}
	return out
}

func TestSignatureCacheHitWithinTTL(t *testing.T) {
	c := NewSignatureCache(time.Minute, nil)
	c.Put("addr", sigs("a", "b", "c"))

	got, ok := c.Get("addr", 3)
	require.True(t, ok)
	assert.Len(t, got, 3)
}

func TestSignatureCacheExpiresAfterTTL(t *testing.T) {
	c := NewSignatureCache(time.Minute, nil)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Put("addr", sigs("a"))

	c.now = func() time.Time { return now.Add(61 * time.Second) }
	_, ok := c.Get("addr", 1)
	assert.False(t, ok)
	// The stale entry is evicted on the missed read.
	assert.Equal(t, 0, c.Len())
}

func TestSignatureCacheMinSizeMiss(t *testing.T) {
	c := NewSignatureCache(time.Minute, nil)
	c.Put("addr", sigs("a", "b"))

	_, ok := c.Get("addr", 5)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestSignatureCacheLastWriterWins(t *testing.T) {
	c := NewSignatureCache(time.Minute, nil)
	c.Put("addr", sigs("old"))
	c.Put("addr", sigs("new1", "new2"))

	got, ok := c.Get("addr", 1)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "new1", got[0].Signature)
}

func TestSignatureCacheReturnsSnapshot(t *testing.T) {
	c := NewSignatureCache(time.Minute, nil)
	original := sigs("a", "b")
	c.Put("addr", original)

	original[0].Signature = "mutated"
	got, ok := c.Get("addr", 1)
	require.True(t, ok)
	assert.Equal(t, "a", got[0].Signature)
}
