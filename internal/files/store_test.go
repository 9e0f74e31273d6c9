package files

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAll(t *testing.T) map[string]AckStore {
	t.Helper()
	dir := t.TempDir()
	stores := map[string]AckStore{}
	for driver, p := range map[string]string{
		"memory": "",
		"file":   filepath.Join(dir, "acks.json"),
		"sqlite": filepath.Join(dir, "acks.db"),
	} {
		s, err := Open(driver, p)
		require.NoError(t, err, driver)
		t.Cleanup(func() { _ = s.Close() })
		stores[driver] = s
	}
	return stores
}

func TestAckStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			key := Key("visitor-1")
			ok, err := s.Acknowledged(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.SetAcknowledged(ctx, key))
			require.NoError(t, s.SetAcknowledged(ctx, key), "setting twice is fine")
			ok, err = s.Acknowledged(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)

			other, err := s.Acknowledged(ctx, Key("visitor-2"))
			require.NoError(t, err)
			assert.False(t, other)

			require.NoError(t, s.Reset(ctx, key))
			ok, err = s.Acknowledged(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)
			require.NoError(t, s.Reset(ctx, key))
		})
	}
}

func TestFlagSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	for _, driver := range []string{"file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			p := filepath.Join(dir, driver+".store")
			s, err := Open(driver, p)
			require.NoError(t, err)
			require.NoError(t, s.SetAcknowledged(ctx, Key("")))
			require.NoError(t, s.Close())

			s, err = Open(driver, p)
			require.NoError(t, err)
			defer s.Close()
			ok, err := s.Acknowledged(ctx, FlagName)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestFileAckStoreDirectoryPath(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileAckStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ackFileName), s.Path())

	require.NoError(t, s.SetAcknowledged(context.Background(), FlagName))
	_, err = os.Stat(s.Path())
	assert.NoError(t, err)
}

func TestFileAckStoreRejectsCorruptFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "acks.json")
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0o600))
	_, err := NewFileAckStore(p)
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, FlagName, Key(""))
	assert.Equal(t, "abc/"+FlagName, Key("abc"))
	assert.Equal(t, "abc/"+FlagName, Key("/abc/"))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("postgres", "x")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryAckStore().Acknowledged(ctx, FlagName)
	assert.ErrorIs(t, err, context.Canceled)
}
