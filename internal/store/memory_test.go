package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLatestAndHistory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.LatestInvestigation(ctx, "wallet")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.SaveInvestigation(ctx, "wallet", []byte(`{"v":1}`)))
	require.NoError(t, m.SaveInvestigation(ctx, "wallet", []byte(`{"v":2}`)))

	latest, err := m.LatestInvestigation(ctx, "wallet")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(latest))

	list, err := m.ListInvestigations(ctx, "wallet", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.JSONEq(t, `{"v":2}`, string(list[0]))
	assert.JSONEq(t, `{"v":1}`, string(list[1]))
}

func TestMemoryBoundsHistory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i := 0; i < maxHistoryPerWallet+10; i++ {
		require.NoError(t, m.SaveInvestigation(ctx, "wallet", []byte(fmt.Sprintf(`{"v":%d}`, i))))
	}

	list, err := m.ListInvestigations(ctx, "wallet", 0)
	require.NoError(t, err)
	assert.Len(t, list, maxHistoryPerWallet)
	// Newest entry survives; the oldest ten were evicted.
	assert.JSONEq(t, fmt.Sprintf(`{"v":%d}`, maxHistoryPerWallet+9), string(list[0]))
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	payload := []byte(`{"v":1}`)
	require.NoError(t, m.SaveInvestigation(ctx, "wallet", payload))

	payload[0] = 'X'
	latest, err := m.LatestInvestigation(ctx, "wallet")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(latest))

	latest[0] = 'Y'
	again, err := m.LatestInvestigation(ctx, "wallet")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(again))
}

type failingStore struct{ Store }

func (f *failingStore) SaveInvestigation(context.Context, string, []byte) error {
	return errors.New("archive down")
}
func (f *failingStore) Close() error { return nil }

func TestTeeArchiveFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	primary := NewMemory()
	tee := NewTee(primary, &failingStore{})

	require.NoError(t, tee.SaveInvestigation(ctx, "wallet", []byte(`{"v":1}`)))
	latest, err := tee.LatestInvestigation(ctx, "wallet")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(latest))
}

func TestTeeNilArchiveIsPrimary(t *testing.T) {
	primary := NewMemory()
	assert.Equal(t, Store(primary), NewTee(primary, nil))
}
