// Package auth implements account registration, password login with
// verifier checking and brute-force lockout, biometric unlock, and session
// lifecycle for the credential vault.
//
// No password, key, or salt is ever persisted: accounts are represented
// solely by a password verifier and lockout bookkeeping, stored under keys
// namespaced by a hash of the normalized username.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/br-sch/PassManageApp/crypto"
	"github.com/br-sch/PassManageApp/internal/logging"
	"github.com/br-sch/PassManageApp/internal/util"
	"github.com/br-sch/PassManageApp/storage"
	"github.com/br-sch/PassManageApp/vault"
)

// Storage keys. All per-account records are namespaced by the account hash.
const sessionEmailKey = "session_email"

func verifierKeyFor(ehash string) string { return "verifier_" + ehash }
func attemptsKeyFor(ehash string) string { return "attempts_" + ehash }
func bioFlagKeyFor(ehash string) string  { return "bio_" + ehash }
func bioKeyKeyFor(ehash string) string   { return "bio_key_" + ehash }

// Gate is the platform biometric collaborator. A successful Prompt is
// treated as equivalent to a successful password check.
type Gate interface {
	Available() bool
	Prompt(ctx context.Context) error
}

// Manager owns account records in a storage.Store and issues Sessions.
type Manager struct {
	store  storage.Store
	sealed storage.Store // platform-protected store for the biometric key copy
	gate   Gate
	params crypto.KDFParams
	log    logging.Logger
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithKDFParams overrides the password-stretching parameters.
func WithKDFParams(params crypto.KDFParams) Option {
	return func(m *Manager) {
		m.params = params
	}
}

// WithLogger sets the structured logger.
func WithLogger(log logging.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithClock sets the time source used for lockout windows.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithBiometricGate wires the platform gate. Without one, all biometric
// operations report ErrBiometricUnavailable.
func WithBiometricGate(gate Gate) Option {
	return func(m *Manager) {
		m.gate = gate
	}
}

// WithSealedStore sets the platform-protected store holding the biometric
// key copy. Defaults to the main store; production callers should pass a
// keyring-backed store.
func WithSealedStore(s storage.Store) Option {
	return func(m *Manager) {
		m.sealed = s
	}
}

// NewManager creates a Manager over the given store.
func NewManager(store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		params: crypto.DefaultKDFParams(),
		log:    logging.Nop{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sealed == nil {
		m.sealed = store
	}
	return m
}

// Register creates a new account and returns an authenticated session.
// Fails with ErrAlreadyExists when a verifier is already stored for the
// normalized username, and ErrInvalidInput for blank credentials.
func (m *Manager) Register(ctx context.Context, username, password string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidInput
	}

	ehash := crypto.AccountHash(username)
	if _, err := m.getRecord(ctx, verifierKeyFor(ehash)); err == nil {
		m.log.Warn(ctx, "registration rejected, user already exists", "account", ehash)
		return nil, ErrAlreadyExists
	}

	key, err := crypto.DeriveKey(password, username, m.params)
	if err != nil {
		return nil, err
	}

	raw, err := crypto.MakeVerifier(key).Encode()
	if err != nil {
		util.WipeBytes(key)
		return nil, err
	}
	if err := m.store.Set(verifierKeyFor(ehash), raw); err != nil {
		util.WipeBytes(key)
		return nil, fmt.Errorf("storing verifier: %w", err)
	}
	m.rememberUsername(ctx, username)

	m.log.Info(ctx, "registration successful", "account", ehash)
	return newSession(username, ehash, key), nil
}

// Login authenticates an account. Lockout windows are checked before any
// key derivation; an active window yields *LockedError without touching the
// failure counter. Unknown accounts and wrong passwords are both reported
// as ErrInvalidCredentials.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ehash := crypto.AccountHash(username)
	now := m.now()

	state := m.readLockout(ctx, ehash)
	if d := Decide(state, now); !d.Allowed {
		m.log.Warn(ctx, "login rejected, account locked", "account", ehash, "remaining", d.Remaining)
		return nil, &LockedError{Remaining: d.Remaining}
	}

	rawVerifier, err := m.getRecord(ctx, verifierKeyFor(ehash))
	if err != nil {
		m.log.Warn(ctx, "login failed, invalid credentials", "account", ehash)
		return nil, ErrInvalidCredentials
	}

	key, err := crypto.DeriveKey(password, username, m.params)
	if err != nil {
		return nil, err
	}

	if !crypto.CheckVerifier(crypto.ParseVerifier(rawVerifier), key) {
		util.WipeBytes(key)
		next := RecordFailure(state, now)
		m.writeLockout(ctx, ehash, next)
		if d := Decide(next, now); !d.Allowed {
			m.log.Warn(ctx, "login failed, lock window started", "account", ehash, "failures", next.Count)
			return nil, &LockedError{Remaining: d.Remaining}
		}
		m.log.Warn(ctx, "login failed, invalid credentials", "account", ehash, "failures", next.Count)
		return nil, ErrInvalidCredentials
	}

	m.writeLockout(ctx, ehash, RecordSuccess())
	m.rememberUsername(ctx, username)

	m.log.Info(ctx, "login successful", "account", ehash)
	return newSession(username, ehash, key), nil
}

// Logout clears the persisted username hint and the session's key material.
func (m *Manager) Logout(ctx context.Context, s *Session) {
	if err := m.store.Delete(sessionEmailKey); err != nil {
		m.log.Warn(ctx, "clearing session record failed", "error", err)
	}
	if s != nil {
		s.Clear()
	}
	m.log.Info(ctx, "logged out")
}

// ActiveUsername returns the persisted username hint, if any. Only the
// username is ever persisted; a fresh authentication is always required to
// obtain key material.
func (m *Manager) ActiveUsername(ctx context.Context) (string, bool) {
	v, err := m.getRecord(ctx, sessionEmailKey)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

// DeleteAccount verifies the password, then erases every record belonging
// to the account: verifier, lockout state, biometric flag and key copy, and
// the vault blob. Sub-deletions are best effort; one failure does not stop
// the others. The active session is cleared when it belongs to the deleted
// account.
func (m *Manager) DeleteAccount(ctx context.Context, username, password string, active *Session) error {
	stored, err := m.verify(ctx, username)
	if err != nil {
		return err
	}
	derived, err := crypto.DeriveKey(password, username, m.params)
	if err != nil {
		return err
	}
	ok := crypto.CheckVerifier(stored, derived)
	util.WipeBytes(derived)
	if !ok {
		return ErrInvalidCredentials
	}

	ehash := crypto.AccountHash(username)
	var errs []error
	for _, k := range []string{
		verifierKeyFor(ehash),
		attemptsKeyFor(ehash),
		bioFlagKeyFor(ehash),
		vault.StorageKey(ehash),
	} {
		if err := m.store.Delete(k); err != nil {
			m.log.Warn(ctx, "account record deletion failed", "key", k, "error", err)
			errs = append(errs, fmt.Errorf("deleting %s: %w", k, err))
		}
	}
	if err := m.sealed.Delete(bioKeyKeyFor(ehash)); err != nil {
		m.log.Warn(ctx, "sealed key deletion failed", "error", err)
		errs = append(errs, fmt.Errorf("deleting sealed key: %w", err))
	}

	if current, ok := m.ActiveUsername(ctx); ok && crypto.AccountHash(current) == ehash {
		if err := m.store.Delete(sessionEmailKey); err != nil {
			m.log.Warn(ctx, "clearing session record failed", "error", err)
		}
	}
	if active != nil && active.AccountHash() == ehash {
		active.Clear()
	}

	m.log.Info(ctx, "account deleted", "account", ehash)
	return errors.Join(errs...)
}

// EnableBiometric opts the session's account into biometric unlock: the
// derived key is copied into the sealed store, released later only after a
// successful gate prompt.
func (m *Manager) EnableBiometric(ctx context.Context, s *Session) error {
	if m.gate == nil || !m.gate.Available() {
		return ErrBiometricUnavailable
	}
	if s == nil || !s.Active() {
		return ErrInvalidCredentials
	}

	buf, err := s.OpenKey()
	if err != nil {
		return err
	}
	defer buf.Destroy()

	ehash := s.AccountHash()
	if err := m.sealed.Set(bioKeyKeyFor(ehash), util.HexEncode(buf.Bytes())); err != nil {
		return fmt.Errorf("sealing key: %w", err)
	}
	if err := m.store.Set(bioFlagKeyFor(ehash), "1"); err != nil {
		return fmt.Errorf("storing biometric flag: %w", err)
	}
	m.log.Info(ctx, "biometric unlock enabled", "account", ehash)
	return nil
}

// DisableBiometric removes the opt-in flag and the sealed key copy.
func (m *Manager) DisableBiometric(ctx context.Context, username string) error {
	ehash := crypto.AccountHash(username)
	var errs []error
	if err := m.store.Delete(bioFlagKeyFor(ehash)); err != nil {
		errs = append(errs, fmt.Errorf("deleting biometric flag: %w", err))
	}
	if err := m.sealed.Delete(bioKeyKeyFor(ehash)); err != nil {
		errs = append(errs, fmt.Errorf("deleting sealed key: %w", err))
	}
	m.log.Info(ctx, "biometric unlock disabled", "account", ehash)
	return errors.Join(errs...)
}

// HasBiometric reports whether the account opted into biometric unlock.
func (m *Manager) HasBiometric(ctx context.Context, username string) bool {
	_, err := m.getRecord(ctx, bioFlagKeyFor(crypto.AccountHash(username)))
	return err == nil
}

// BiometricUnlock releases the sealed key after a successful gate prompt
// and returns an authenticated session, bypassing password derivation.
func (m *Manager) BiometricUnlock(ctx context.Context, username string) (*Session, error) {
	ehash := crypto.AccountHash(username)
	if _, err := m.getRecord(ctx, bioFlagKeyFor(ehash)); err != nil {
		return nil, ErrBiometricNotEnabled
	}
	if m.gate == nil || !m.gate.Available() {
		return nil, ErrBiometricUnavailable
	}
	if err := m.gate.Prompt(ctx); err != nil {
		m.log.Warn(ctx, "biometric prompt rejected", "account", ehash)
		return nil, ErrBiometricDenied
	}

	sealed, err := m.sealed.Get(bioKeyKeyFor(ehash))
	if err != nil {
		return nil, ErrBiometricNotEnabled
	}
	key, err := util.HexDecode(sealed)
	if err != nil || len(key) != crypto.KeySize {
		return nil, fmt.Errorf("sealed key is corrupt")
	}

	m.rememberUsername(ctx, username)
	m.log.Info(ctx, "biometric unlock successful", "account", ehash)
	return newSession(username, ehash, key), nil
}

// verify loads the stored verifier for an account. Unknown accounts map to
// ErrInvalidCredentials, indistinguishable from a bad password downstream.
func (m *Manager) verify(ctx context.Context, username string) (crypto.Verifier, error) {
	raw, err := m.getRecord(ctx, verifierKeyFor(crypto.AccountHash(username)))
	if err != nil {
		return crypto.Verifier{}, ErrInvalidCredentials
	}
	return crypto.ParseVerifier(raw), nil
}

// getRecord reads a key, treating backend failures as absence. Reads never
// propagate storage errors; writes do.
func (m *Manager) getRecord(ctx context.Context, key string) (string, error) {
	v, err := m.store.Get(key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.log.Warn(ctx, "storage read failed, treating as absent", "key", key, "error", err)
		}
		return "", err
	}
	return v, nil
}

func (m *Manager) readLockout(ctx context.Context, ehash string) LockoutState {
	raw, err := m.getRecord(ctx, attemptsKeyFor(ehash))
	if err != nil {
		return LockoutState{}
	}
	var state LockoutState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		m.log.Warn(ctx, "lockout record is corrupt, resetting", "account", ehash)
		return LockoutState{}
	}
	return state
}

func (m *Manager) writeLockout(ctx context.Context, ehash string, state LockoutState) {
	raw, err := json.Marshal(state)
	if err != nil {
		m.log.Error(ctx, "encoding lockout record failed", "error", err)
		return
	}
	if err := m.store.Set(attemptsKeyFor(ehash), string(raw)); err != nil {
		m.log.Error(ctx, "persisting lockout record failed", "account", ehash, "error", err)
	}
}

func (m *Manager) rememberUsername(ctx context.Context, username string) {
	if err := m.store.Set(sessionEmailKey, username); err != nil {
		m.log.Warn(ctx, "persisting session record failed", "error", err)
	}
}
