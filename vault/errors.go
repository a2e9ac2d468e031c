package vault

import "errors"

var (
	// ErrFolderExists rejects a folder whose name case-insensitively
	// matches an existing folder.
	ErrFolderExists = errors.New("folder already exists")
	// ErrFolderNotFound indicates an unknown folder ID.
	ErrFolderNotFound = errors.New("folder not found")
	// ErrEntryNotFound indicates an unknown entry ID.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrImport indicates a backup could not be decrypted or parsed,
	// typically because the key is wrong or the data is corrupt.
	ErrImport = errors.New("wrong password or corrupt backup")
)
