package execctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-data/stratum/internal/adapter"
)

func TestResultStoreConsumeOnce(t *testing.T) {
	s := NewResultStore()
	s.Store("probe", &adapter.Response{Code: "SUCCESS", RowsAffected: 2}, []map[string]any{{"n": int64(2)}})

	got, err := s.Load("probe")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "SUCCESS", got.Response.Code)
	assert.Len(t, got.Table, 1)

	_, err = s.Load("probe")
	var loaded *ResultAlreadyLoadedError
	require.ErrorAs(t, err, &loaded)
	assert.Equal(t, "probe", loaded.Name)
}

func TestResultStoreAbsentKey(t *testing.T) {
	s := NewResultStore()
	got, err := s.Load("never_stored")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResultStoreMainStaysReadable(t *testing.T) {
	s := NewResultStore()
	s.Store(MainResultKey, &adapter.Response{Code: "SUCCESS"}, nil)

	for range 3 {
		got, err := s.Load(MainResultKey)
		require.NoError(t, err)
		require.NotNil(t, got)
	}
}

func TestResultStoreRestore(t *testing.T) {
	s := NewResultStore()
	s.Store("probe", &adapter.Response{Code: "SUCCESS"}, nil)
	_, err := s.Load("probe")
	require.NoError(t, err)

	// Storing again resets the consumed state.
	s.Store("probe", &adapter.Response{Code: "SUCCESS"}, nil)
	got, err := s.Load("probe")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestResultStoreRaw(t *testing.T) {
	s := NewResultStore()
	s.StoreRaw("note", "checkpoint reached")
	got, err := s.Load("note")
	require.NoError(t, err)
	assert.Equal(t, "checkpoint reached", got.Raw)
	assert.Nil(t, got.Response)
}
