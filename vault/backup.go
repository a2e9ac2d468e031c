package vault

import (
	"encoding/json"
	"fmt"

	"github.com/br-sch/PassManageApp/crypto"
)

// BackupVersion is the current backup payload version. Older payloads are
// still importable; missing fields simply decode to their zero values.
const BackupVersion = 3

// BackupEntry is the compact wire form of an entry inside a backup. Field
// names are intentionally short: backups are copied around as opaque text
// and every byte of plaintext structure is paid for twice after encryption.
type BackupEntry struct {
	Title         string `json:"t"`
	Username      string `json:"u"`
	Password      string `json:"p"`
	LastChangedAt int64  `json:"ts"`
	ID            string `json:"id"`
	FolderID      string `json:"folderId,omitempty"`
}

// BackupFolder is the wire form of a folder inside a backup.
type BackupFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BackupPayload is the plaintext structure that gets encrypted into a
// portable backup blob.
type BackupPayload struct {
	Version   int            `json:"version"`
	CreatedAt int64          `json:"createdAt"`
	EmailHash string         `json:"emailHash"`
	Folders   []BackupFolder `json:"folders"`
	Entries   []BackupEntry  `json:"entries"`
}

// BuildBackupPayload snapshots a decrypted state into the backup wire form.
func BuildBackupPayload(state State, accountHash string, createdAt int64) BackupPayload {
	p := BackupPayload{
		Version:   BackupVersion,
		CreatedAt: createdAt,
		EmailHash: accountHash,
		Folders:   make([]BackupFolder, 0, len(state.Folders)),
		Entries:   make([]BackupEntry, 0, len(state.Entries)),
	}
	for _, f := range state.Folders {
		p.Folders = append(p.Folders, BackupFolder{ID: f.ID, Name: f.Name})
	}
	for _, e := range state.Entries {
		p.Entries = append(p.Entries, BackupEntry{
			Title:         e.Title,
			Username:      e.Username,
			Password:      e.Password,
			LastChangedAt: e.LastChangedAt,
			ID:            e.ID,
			FolderID:      e.FolderID,
		})
	}
	return p
}

// EncryptBackup serializes and encrypts a payload under the given derived
// key. The result is a single envelope string safe to write to a file or
// paste into a message.
func EncryptBackup(payload BackupPayload, key []byte, opts ...crypto.CipherOption) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding backup: %w", err)
	}
	blob, err := crypto.EncryptText(string(raw), key, opts...)
	if err != nil {
		return "", fmt.Errorf("encrypting backup: %w", err)
	}
	return blob, nil
}

// DecryptBackup opens an encrypted backup blob. A wrong key and a corrupt
// blob are indistinguishable by construction; both yield ErrImport.
func DecryptBackup(blob string, key []byte) (BackupPayload, error) {
	raw, err := crypto.DecryptText(blob, key)
	if err != nil {
		return BackupPayload{}, ErrImport
	}
	var payload BackupPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return BackupPayload{}, ErrImport
	}
	return payload, nil
}
