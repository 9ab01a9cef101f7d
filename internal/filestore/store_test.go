package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nested", "state.json"))
	require.NoError(t, err)

	_, ok, err := s.LastSuccess(context.Background(), "ts")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordSuccess_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".sitepipe", "state.json")
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordSuccess(ctx, "ts", at))

	reopened, err := Open(path)
	require.NoError(t, err)
	got, ok, err := reopened.LastSuccess(ctx, "ts")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, at.Equal(got), "got %s want %s", got, at)

	// Older timestamps are ignored on disk as well.
	require.NoError(t, reopened.RecordSuccess(ctx, "ts", at.Add(-time.Hour)))
	again, err := Open(path)
	require.NoError(t, err)
	got, _, _ = again.LastSuccess(ctx, "ts")
	assert.True(t, at.Equal(got))
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err := Open(bad)
	assert.ErrorContains(t, err, "decoding state file")

	wrongVersion := filepath.Join(dir, "v9.json")
	require.NoError(t, os.WriteFile(wrongVersion, []byte(`{"version":9,"tasks":{}}`), 0o644))
	_, err = Open(wrongVersion)
	assert.ErrorContains(t, err, "version 9")
}
