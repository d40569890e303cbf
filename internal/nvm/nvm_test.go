// internal/nvm/nvm_test.go
package nvm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exercise(t *testing.T, m Memory) {
	t.Helper()

	require.Equal(t, 64, m.Size())

	b, err := m.Load(10)
	require.NoError(t, err)
	assert.Equal(t, Erased, b, "fresh memory must read erased")

	require.NoError(t, StoreRange(m, 8, []byte{1, 2, 3, 0xFF, 0}))
	got, err := LoadRange(m, 8, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 0xFF, 0}, got)

	_, err = m.Load(64)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, m.Store(-1, 0), ErrOutOfRange)

	require.NoError(t, Erase(m))
	got, err = LoadRange(m, 8, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, got)
}

func TestRAM(t *testing.T) {
	exercise(t, NewRAM(64))
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeprom.bin")
	m, err := OpenFile(path, 64)
	require.NoError(t, err)
	defer m.Close()

	exercise(t, m)
}

func TestFile_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeprom.bin")

	m, err := OpenFile(path, 32)
	require.NoError(t, err)
	require.NoError(t, m.Store(5, 0x42))
	require.NoError(t, m.Close())

	m, err = OpenFile(path, 32)
	require.NoError(t, err)
	defer m.Close()

	b, err := m.Load(5)
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), b)
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeprom.db")
	m, err := OpenSQLite(path, 64)
	require.NoError(t, err)
	defer m.Close()

	exercise(t, m)
}

func TestSQLite_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeprom.db")

	m, err := OpenSQLite(path, 32)
	require.NoError(t, err)
	require.NoError(t, m.Store(31, 0x07))
	require.NoError(t, m.Close())

	m, err = OpenSQLite(path, 32)
	require.NoError(t, err)
	defer m.Close()

	b, err := m.Load(31)
	require.NoError(t, err)
	assert.Equal(t, byte(0x07), b)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open("flash", "", 16)
	assert.Error(t, err)
}
