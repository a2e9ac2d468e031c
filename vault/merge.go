package vault

import (
	"context"
	"errors"
	"strings"
)

// MergeResult reports what a backup merge changed.
type MergeResult struct {
	// Added is the number of entries imported.
	Added int
	// Skipped is the number of backup entries dropped as duplicates of a
	// live entry.
	Skipped int
	// Folders is the number of folders created during the merge.
	Folders int
}

// MergeBackup folds a decrypted backup payload into the live vault.
//
// Folders are matched to live folders by name, preferring an exact match
// and falling back to a case-insensitive one; unmatched backup folders are
// created. Entries are deduplicated against live entries by title, compared
// trimmed and lowercased; backup-internal duplicates are all imported. The
// whole merge lands in one persist, so a failure partway leaves the live
// vault untouched.
func (s *Store) MergeBackup(ctx context.Context, payload BackupPayload) (MergeResult, error) {
	if err := ctx.Err(); err != nil {
		return MergeResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.load(ctx)
	var res MergeResult

	nameToID := make(map[string]string, len(state.Folders))
	for _, f := range state.Folders {
		nameToID[f.Name] = f.ID
	}

	// Remap backup folder IDs onto live folder IDs, creating folders as
	// needed. The map grows as folders are created so repeated names in
	// the backup reuse the folder made for the first occurrence.
	folderRemap := make(map[string]string, len(payload.Folders))
	for _, bf := range payload.Folders {
		if id, ok := nameToID[bf.Name]; ok {
			folderRemap[bf.ID] = id
			continue
		}
		folder, err := s.addFolderLocked(ctx, &state, bf.Name)
		if err == nil {
			nameToID[bf.Name] = folder.ID
			folderRemap[bf.ID] = folder.ID
			res.Folders++
			continue
		}
		if !errors.Is(err, ErrFolderExists) {
			return MergeResult{}, err
		}
		for _, f := range state.Folders {
			if strings.EqualFold(strings.TrimSpace(f.Name), strings.TrimSpace(bf.Name)) {
				nameToID[bf.Name] = f.ID
				folderRemap[bf.ID] = f.ID
				break
			}
		}
	}

	liveTitles := make(map[string]struct{}, len(state.Entries))
	for _, e := range state.Entries {
		liveTitles[titleKey(e.Title)] = struct{}{}
	}

	staged := make([]BulkEntry, 0, len(payload.Entries))
	for _, be := range payload.Entries {
		if _, dup := liveTitles[titleKey(be.Title)]; dup {
			res.Skipped++
			continue
		}
		staged = append(staged, BulkEntry{
			Title:         be.Title,
			Username:      be.Username,
			Password:      be.Password,
			LastChangedAt: be.LastChangedAt,
			FolderID:      folderRemap[be.FolderID],
		})
	}
	res.Added = len(staged)

	nowMs := s.now().UnixMilli()
	taken := takenIDs(state)
	prepared := make([]Entry, 0, len(staged))
	for i, e := range staged {
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

	if err := s.persist(ctx, state); err != nil {
		return MergeResult{}, err
	}
	s.log.Info(ctx, "backup merged", "account", s.ehash,
		"added", res.Added, "skipped", res.Skipped, "folders", res.Folders)
	return res, nil
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
