package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/br-sch/PassManageApp/crypto"
	"github.com/br-sch/PassManageApp/internal/logging"
	"github.com/br-sch/PassManageApp/internal/util"
	"github.com/br-sch/PassManageApp/storage"
)

// Store is the vault record store for one authenticated account. Every
// mutation is a full read-modify-write cycle over the encrypted blob,
// serialized by an internal mutex: a persist completes before the next
// mutation on the same account is accepted.
type Store struct {
	mu         sync.Mutex
	store      storage.Store
	ehash      string
	key        []byte
	log        logging.Logger
	now        func() time.Time
	cipherOpts []crypto.CipherOption
}

// Open binds a Store to an account namespace and its derived key. The key
// is copied; call Close to wipe the copy when the session ends.
func Open(st storage.Store, accountHash string, key []byte, opts ...StoreOption) *Store {
	s := &Store{
		store: st,
		ehash: accountHash,
		key:   util.CopyBytes(key),
		log:   logging.Nop{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close wipes the store's key copy. The Store must not be used afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	util.WipeBytes(s.key)
	s.key = nil
}

// Load returns the account's decrypted vault state. A missing blob yields
// an empty state; an undecryptable or unparsable blob also yields an empty
// state with a warning, never an error, so a damaged vault cannot block
// login.
func (s *Store) Load(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx), nil
}

// AddItem creates a new entry and persists the full next state.
func (s *Store) AddItem(ctx context.Context, e NewEntry) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.load(ctx)
	nowMs := s.now().UnixMilli()
	entry := Entry{
		ID:            mintEntryID(takenIDs(state), nowMs, 0),
		Title:         e.Title,
		Username:      e.Username,
		Password:      e.Password,
		LastChangedAt: nowMs,
		FolderID:      e.FolderID,
	}
	state.Entries = append([]Entry{entry}, state.Entries...)

	if err := s.persist(ctx, state); err != nil {
		return Entry{}, err
	}
	s.log.Info(ctx, "entry added", "account", s.ehash, "id", entry.ID)
	return entry, nil
}

// UpdateItem replaces an entry's fields. LastChangedAt is bumped only when
// the password actually changes; editing other fields leaves it untouched.
func (s *Store) UpdateItem(ctx context.Context, e Entry) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.load(ctx)
	idx := -1
	for i := range state.Entries {
		if state.Entries[i].ID == e.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Entry{}, fmt.Errorf("%s: %w", e.ID, ErrEntryNotFound)
	}

	next := state.Entries[idx]
	if e.Password != next.Password {
		next.LastChangedAt = s.now().UnixMilli()
	}
	next.Title = e.Title
	next.Username = e.Username
	next.Password = e.Password
	next.FolderID = e.FolderID
	state.Entries[idx] = next

	if err := s.persist(ctx, state); err != nil {
		return Entry{}, err
	}
	s.log.Info(ctx, "entry updated", "account", s.ehash, "id", e.ID)
	return next, nil
}

// RemoveItem deletes an entry by ID.
func (s *Store) RemoveItem(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.load(ctx)
	kept := state.Entries[:0]
	found := false
	for _, e := range state.Entries {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return fmt.Errorf("%s: %w", id, ErrEntryNotFound)
	}
	state.Entries = kept

	if err := s.persist(ctx, state); err != nil {
		return err
	}
	s.log.Info(ctx, "entry removed", "account", s.ehash, "id", id)
	return nil
}

// AddFolder creates a folder. Names are compared trimmed and
// case-insensitively; a duplicate yields ErrFolderExists and no write.
func (s *Store) AddFolder(ctx context.Context, name string) (Folder, error) {
	if err := ctx.Err(); err != nil {
		return Folder{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.load(ctx)
	folder, err := s.addFolderLocked(ctx, &state, name)
	if err != nil {
		return Folder{}, err
	}
	if err := s.persist(ctx, state); err != nil {
		return Folder{}, err
	}
	s.log.Info(ctx, "folder added", "account", s.ehash, "id", folder.ID)
	return folder, nil
}

func (s *Store) addFolderLocked(ctx context.Context, state *State, name string) (Folder, error) {
	for _, f := range state.Folders {
		if strings.EqualFold(strings.TrimSpace(f.Name), strings.TrimSpace(name)) {
			return Folder{}, fmt.Errorf("%q: %w", name, ErrFolderExists)
		}
	}
	folder := Folder{ID: "f_" + uuid.NewString(), Name: name}
	state.Folders = append([]Folder{folder}, state.Folders...)
	return folder, nil
}

// RenameFolder changes a folder's display name.
func (s *Store) RenameFolder(ctx context.Context, id, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.load(ctx)
	found := false
	for i := range state.Folders {
		if state.Folders[i].ID == id {
			state.Folders[i].Name = name
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%s: %w", id, ErrFolderNotFound)
	}

	if err := s.persist(ctx, state); err != nil {
		return err
	}
	s.log.Info(ctx, "folder renamed", "account", s.ehash, "id", id)
	return nil
}

// RemoveFolder deletes a folder and clears the folder reference on its
// member entries. The entries themselves are kept.
func (s *Store) RemoveFolder(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.load(ctx)
	kept := state.Folders[:0]
	found := false
	for _, f := range state.Folders {
		if f.ID == id {
			found = true
			continue
		}
		kept = append(kept, f)
	}
	if !found {
		return fmt.Errorf("%s: %w", id, ErrFolderNotFound)
	}
	state.Folders = kept
	for i := range state.Entries {
		if state.Entries[i].FolderID == id {
			state.Entries[i].FolderID = ""
		}
	}

	if err := s.persist(ctx, state); err != nil {
		return err
	}
	s.log.Info(ctx, "folder removed", "account", s.ehash, "id", id)
	return nil
}

// AddItemsBulk appends many entries and replaces the folder list in a
// single persist. Every staged entry gets a unique ID even within the same
// millisecond: IDs are minted from one timestamp base plus a per-item
// offset.
func (s *Store) AddItemsBulk(ctx context.Context, list []BulkEntry, folders []Folder) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.load(ctx)
	nowMs := s.now().UnixMilli()
	taken := takenIDs(state)

	prepared := make([]Entry, 0, len(list))
	for i, e := range list {
		ts := e.LastChangedAt
		if ts == 0 {
			ts = nowMs
		}
		prepared = append(prepared, Entry{
			ID:            mintEntryID(taken, nowMs, int64(i)),
			Title:         e.Title,
			Username:      e.Username,
			Password:      e.Password,
			LastChangedAt: ts,
			FolderID:      e.FolderID,
		})
	}
	state.Entries = append(prepared, state.Entries...)
	state.Folders = append([]Folder(nil), folders...)

	if err := s.persist(ctx, state); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "bulk add complete", "account", s.ehash, "added", len(prepared), "total", len(state.Entries))
	return prepared, nil
}

// takenIDs collects the entry IDs already present in a state.
func takenIDs(state State) map[string]struct{} {
	taken := make(map[string]struct{}, len(state.Entries))
	for _, e := range state.Entries {
		taken[e.ID] = struct{}{}
	}
	return taken
}

// mintEntryID produces a time-based ID at base+offset milliseconds,
// skipping forward past any ID in taken. The minted ID is recorded in
// taken so entries of the same batch never collide.
func mintEntryID(taken map[string]struct{}, base, offset int64) string {
	for {
		id := strconv.FormatInt(base+offset, 10)
		if _, ok := taken[id]; !ok {
			taken[id] = struct{}{}
			return id
		}
		offset++
	}
}

func (s *Store) load(ctx context.Context) State {
	raw, err := s.store.Get(StorageKey(s.ehash))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn(ctx, "vault read failed, treating as absent", "account", s.ehash, "error", err)
		}
		return State{}
	}

	var sv storedVault
	if strings.HasPrefix(strings.TrimSpace(raw), "[") {
		// Legacy shape: a bare array of items, no folders.
		s.log.Warn(ctx, "vault blob uses legacy array shape", "account", s.ehash)
		if err := json.Unmarshal([]byte(raw), &sv.Items); err != nil {
			s.log.Warn(ctx, "vault blob is unreadable, starting empty", "account", s.ehash, "error", err)
			return State{}
		}
	} else if err := json.Unmarshal([]byte(raw), &sv); err != nil {
		s.log.Warn(ctx, "vault blob is unreadable, starting empty", "account", s.ehash, "error", err)
		return State{}
	}

	state, err := s.decrypt(sv)
	if err != nil {
		s.log.Warn(ctx, "vault decryption failed, starting empty", "account", s.ehash, "error", err)
		return State{}
	}
	return state
}

func (s *Store) decrypt(sv storedVault) (State, error) {
	state := State{
		Entries: make([]Entry, 0, len(sv.Items)),
		Folders: make([]Folder, 0, len(sv.Folders)),
	}
	for _, it := range sv.Items {
		title, err := crypto.DecryptText(it.Title, s.key)
		if err != nil {
			return State{}, err
		}
		username, err := crypto.DecryptText(it.Username, s.key)
		if err != nil {
			return State{}, err
		}
		password, err := crypto.DecryptText(it.Password, s.key)
		if err != nil {
			return State{}, err
		}
		ts := it.LastChangedAt
		if ts == 0 {
			ts = s.now().UnixMilli()
		}
		state.Entries = append(state.Entries, Entry{
			ID:            it.ID,
			Title:         title,
			Username:      username,
			Password:      password,
			LastChangedAt: ts,
			FolderID:      it.FolderID,
		})
	}
	for _, f := range sv.Folders {
		name, err := crypto.DecryptText(f.Name, s.key)
		if err != nil {
			return State{}, err
		}
		state.Folders = append(state.Folders, Folder{ID: f.ID, Name: name})
	}
	return state, nil
}

// persist encrypts and writes the full state snapshot. The storage Set is
// the atomicity boundary: either the new snapshot lands or the previous one
// remains readable.
func (s *Store) persist(ctx context.Context, state State) error {
	sv := storedVault{
		Items:   make([]storedEntry, 0, len(state.Entries)),
		Folders: make([]storedFolder, 0, len(state.Folders)),
	}
	for _, e := range state.Entries {
		title, err := crypto.EncryptText(e.Title, s.key, s.cipherOpts...)
		if err != nil {
			return fmt.Errorf("encrypting entry: %w", err)
		}
		username, err := crypto.EncryptText(e.Username, s.key, s.cipherOpts...)
		if err != nil {
			return fmt.Errorf("encrypting entry: %w", err)
		}
		password, err := crypto.EncryptText(e.Password, s.key, s.cipherOpts...)
		if err != nil {
			return fmt.Errorf("encrypting entry: %w", err)
		}
		sv.Items = append(sv.Items, storedEntry{
			ID:            e.ID,
			Title:         title,
			Username:      username,
			Password:      password,
			LastChangedAt: e.LastChangedAt,
			FolderID:      e.FolderID,
		})
	}
	for _, f := range state.Folders {
		name, err := crypto.EncryptText(f.Name, s.key, s.cipherOpts...)
		if err != nil {
			return fmt.Errorf("encrypting folder: %w", err)
		}
		sv.Folders = append(sv.Folders, storedFolder{ID: f.ID, Name: name})
	}

	raw, err := json.Marshal(sv)
	if err != nil {
		return fmt.Errorf("encoding vault: %w", err)
	}
	if err := s.store.Set(StorageKey(s.ehash), string(raw)); err != nil {
		return fmt.Errorf("persisting vault: %w", err)
	}
	s.log.Debug(ctx, "vault persisted", "account", s.ehash, "items", len(sv.Items), "folders", len(sv.Folders))
	return nil
}
