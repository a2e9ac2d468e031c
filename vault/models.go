// Package vault implements the per-account credential vault: the in-memory
// entry/folder model, the encrypt-to-storage round trip, the versioned
// backup codec, and the merge engine that reconciles imported backups.
package vault

// Entry is a single credential record. FolderID is a weak reference: it may
// name a folder that no longer exists, which readers treat as "no folder".
type Entry struct {
	ID            string
	Title         string
	Username      string
	Password      string
	LastChangedAt int64  // unix milliseconds, bumped when the password changes
	FolderID      string // "" means no folder
}

// Folder groups entries. Names are case-insensitive-unique at creation.
type Folder struct {
	ID   string
	Name string
}

// State is one account's decrypted vault contents. It is re-derived from
// storage on every load and never cached across sessions.
type State struct {
	Entries []Entry
	Folders []Folder
}

// NewEntry is the caller-supplied portion of an entry to be added.
type NewEntry struct {
	Title    string
	Username string
	Password string
	FolderID string
}

// BulkEntry is an entry staged for bulk insertion, carrying its original
// change timestamp. IDs are minted at insert time.
type BulkEntry struct {
	Title         string
	Username      string
	Password      string
	LastChangedAt int64
	FolderID      string
}

// StorageKey returns the storage key holding an account's encrypted vault
// blob.
func StorageKey(accountHash string) string {
	return "vault_" + accountHash
}

// stored wire shapes: string fields hold ciphertext envelopes, never
// plaintext.

type storedEntry struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	LastChangedAt int64  `json:"lastChangedAt"`
	FolderID      string `json:"folderId,omitempty"`
}

type storedFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type storedVault struct {
	Items   []storedEntry  `json:"items"`
	Folders []storedFolder `json:"folders"`
}
