// internal/journal/journal_test.go
package journal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_AppendAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "door", "events.cbor")

	j, err := OpenFile(path)
	require.NoError(t, err)

	j.Record(NewEvent(KindGranted, "33010203040506b2", ""))
	j.Record(NewEvent(KindLockout, "", "3 consecutive denials"))
	require.NoError(t, j.Close())

	// reopen appends
	j, err = OpenFile(path)
	require.NoError(t, err)
	j.Record(NewEvent(KindLockOpened, "", ""))
	require.NoError(t, j.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	events, err := ReadAll(f)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, KindGranted, events[0].Kind)
	assert.Equal(t, "33010203040506b2", events[0].Address)
	assert.Equal(t, KindLockout, events[1].Kind)
	assert.Equal(t, "3 consecutive denials", events[1].Detail)
	assert.Equal(t, KindLockOpened, events[2].Kind)
	assert.NotEqual(t, events[0].ID, events[1].ID)
}

func TestFile_RecordAfterCloseIsDropped(t *testing.T) {
	j, err := OpenFile(filepath.Join(t.TempDir(), "events.cbor"))
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	j.Record(NewEvent(KindHorn, "", ""))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "credential_removed", KindCredentialRemoved.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
