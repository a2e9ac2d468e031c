package vault

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/br-sch/PassManageApp/crypto"
	"github.com/br-sch/PassManageApp/storage/memory"
)

func TestBackupRoundTrip(t *testing.T) {
	key := testKey(t)
	state := State{
		Entries: []Entry{
			{ID: "1", Title: "Email", Username: "alice", Password: "pw", LastChangedAt: 42, FolderID: "f_1"},
			{ID: "2", Title: "Bank", Password: "pw2", LastChangedAt: 43},
		},
		Folders: []Folder{{ID: "f_1", Name: "Work"}},
	}

	payload := BuildBackupPayload(state, "deadbeef", 1_700_000_000_000)
	assert.Equal(t, BackupVersion, payload.Version)
	assert.Equal(t, "deadbeef", payload.EmailHash)

	blob, err := EncryptBackup(payload, key)
	require.NoError(t, err)

	got, err := DecryptBackup(blob, key)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, "Email", got.Entries[0].Title)
	assert.Equal(t, "f_1", got.Entries[0].FolderID)
	assert.Empty(t, got.Entries[1].FolderID)
}

func TestDecryptBackupWrongKey(t *testing.T) {
	key := testKey(t)
	blob, err := EncryptBackup(BackupPayload{Version: BackupVersion}, key)
	require.NoError(t, err)

	other, err := crypto.DeriveKey("not it", "alice@example.com", testKDF)
	require.NoError(t, err)
	_, err = DecryptBackup(blob, other)
	assert.ErrorIs(t, err, ErrImport)
}

func TestDecryptBackupGarbage(t *testing.T) {
	_, err := DecryptBackup("not an envelope at all", testKey(t))
	assert.ErrorIs(t, err, ErrImport)
}

func TestMergeBackupIntoEmptyVault(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, memory.New(), testKey(t), time.Now)

	payload := BackupPayload{
		Version: BackupVersion,
		Folders: []BackupFolder{{ID: "old_f", Name: "Work"}},
		Entries: []BackupEntry{
			{ID: "10", Title: "Email", Username: "alice", Password: "pw", LastChangedAt: 42, FolderID: "old_f"},
			{ID: "11", Title: "Bank", Password: "pw2", LastChangedAt: 43},
		},
	}
	res, err := s.MergeBackup(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, MergeResult{Added: 2, Skipped: 0, Folders: 1}, res)

	state, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, state.Entries, 2)
	require.Len(t, state.Folders, 1)

	// The backup's folder ID is not reused: members point at the folder
	// created during the merge.
	assert.NotEqual(t, "old_f", state.Folders[0].ID)
	var email Entry
	for _, e := range state.Entries {
		if e.Title == "Email" {
			email = e
		}
	}
	assert.Equal(t, state.Folders[0].ID, email.FolderID)
	assert.Equal(t, int64(42), email.LastChangedAt)
}

func TestMergeBackupTwiceAddsNothing(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, memory.New(), testKey(t), time.Now)

	payload := BackupPayload{
		Version: BackupVersion,
		Entries: []BackupEntry{
			{Title: "Email", Password: "pw"},
			{Title: "Bank", Password: "pw2"},
		},
	}
	_, err := s.MergeBackup(ctx, payload)
	require.NoError(t, err)

	res, err := s.MergeBackup(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, MergeResult{Added: 0, Skipped: 2, Folders: 0}, res)

	state, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, state.Entries, 2)
}

func TestMergeBackupDedupIsCaseAndSpaceInsensitive(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, memory.New(), testKey(t), time.Now)

	_, err := s.AddItem(ctx, NewEntry{Title: "Email", Password: "pw"})
	require.NoError(t, err)

	res, err := s.MergeBackup(ctx, BackupPayload{Entries: []BackupEntry{
		{Title: "  EMAIL ", Password: "other"},
		{Title: "Fresh", Password: "new"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Skipped)
}

func TestMergeBackupReusesFolderByName(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, memory.New(), testKey(t), time.Now)

	live, err := s.AddFolder(ctx, "Work")
	require.NoError(t, err)

	res, err := s.MergeBackup(ctx, BackupPayload{
		Folders: []BackupFolder{{ID: "b1", Name: "work"}},
		Entries: []BackupEntry{{Title: "VPN", Password: "pw", FolderID: "b1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Folders, "case-variant name must reuse the live folder")

	state, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, state.Folders, 1)
	assert.Equal(t, live.ID, state.Entries[0].FolderID)
}

func TestMergeBackupUnknownFolderReference(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, memory.New(), testKey(t), time.Now)

	res, err := s.MergeBackup(ctx, BackupPayload{
		Entries: []BackupEntry{{Title: "Orphan", Password: "pw", FolderID: "never-declared"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)

	state, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.Entries[0].FolderID)
}

func TestMergeBackupInternalDuplicatesAllImported(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, memory.New(), testKey(t), time.Now)

	res, err := s.MergeBackup(ctx, BackupPayload{Entries: []BackupEntry{
		{Title: "Email", Password: "a"},
		{Title: "Email", Password: "b"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
}
