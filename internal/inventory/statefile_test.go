package inventory_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movemate/internal/inventory"
	"movemate/internal/transit"
)

func TestStateFile_MissingFile(t *testing.T) {
	f := inventory.StateFile{Path: filepath.Join(t.TempDir(), "none.txt")}
	entries, err := f.Load()
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestStateFile_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buses_state.txt")
	f := inventory.StateFile{Path: path}
	in := []transit.Entry{{RouteID: 101, Occupancy: 2}, {RouteID: 102, Occupancy: 0}}

	require.NoError(t, f.Save(context.Background(), in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "101 2\n102 0\n", string(raw))

	out, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestStateFile_LoadStopsAtGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.txt")
	require.NoError(t, os.WriteFile(path, []byte("101 3\n102   4\n103 x\n104 5\n"), 0o644))

	out, err := inventory.StateFile{Path: path}.Load()
	require.NoError(t, err)
	assert.Equal(t, []transit.Entry{{RouteID: 101, Occupancy: 3}, {RouteID: 102, Occupancy: 4}}, out)
}

func TestStateFile_SaveFailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.txt")
	require.NoError(t, os.WriteFile(path, []byte("101 1\n"), 0o644))

	bad := inventory.StateFile{Path: filepath.Join(dir, "missing-dir", "state.txt")}
	assert.Error(t, bad.Save(context.Background(), []transit.Entry{{RouteID: 101, Occupancy: 9}}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "101 1\n", string(raw))
}

type saverFunc func(ctx context.Context, entries []transit.Entry) error

func (f saverFunc) Save(ctx context.Context, entries []transit.Entry) error { return f(ctx, entries) }

func TestSavers_AttemptsAll(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	s := inventory.Savers{
		saverFunc(func(context.Context, []transit.Entry) error { calls++; return boom }),
		nil,
		saverFunc(func(context.Context, []transit.Entry) error { calls++; return nil }),
	}
	err := s.Save(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}
