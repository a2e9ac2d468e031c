package auth

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/br-sch/PassManageApp/crypto"
	"github.com/br-sch/PassManageApp/storage"
	"github.com/br-sch/PassManageApp/storage/memory"
	"github.com/br-sch/PassManageApp/vault"
)

var testKDF = crypto.KDFParams{Iterations: 1000}

type fakeGate struct {
	available bool
	denied    bool
	prompts   int
}

func (g *fakeGate) Available() bool { return g.available }

func (g *fakeGate) Prompt(context.Context) error {
	g.prompts++
	if g.denied {
		return errors.New("user cancelled")
	}
	return nil
}

func sessionKey(t *testing.T, s *Session) []byte {
	t.Helper()
	buf, err := s.OpenKey()
	require.NoError(t, err)
	defer buf.Destroy()
	out := make([]byte, len(buf.Bytes()))
	copy(out, buf.Bytes())
	return out
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	m := NewManager(mem, WithKDFParams(testKDF))

	reg, err := m.Register(ctx, "Alice@Example.com ", "hunter2")
	require.NoError(t, err)
	assert.True(t, reg.Active())
	assert.Equal(t, crypto.AccountHash("alice@example.com"), reg.AccountHash())

	// Case and whitespace variants of the username are the same account.
	login, err := m.Login(ctx, "alice@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, sessionKey(t, reg), sessionKey(t, login))

	expected, err := crypto.DeriveKey("hunter2", "alice@example.com", testKDF)
	require.NoError(t, err)
	assert.Equal(t, expected, sessionKey(t, login))
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.New(), WithKDFParams(testKDF))

	_, err := m.Register(ctx, "  ", "pw")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = m.Register(ctx, "alice@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.New(), WithKDFParams(testKDF))

	_, err := m.Register(ctx, "alice@example.com", "pw")
	require.NoError(t, err)

	_, err = m.Register(ctx, "ALICE@example.com", "other")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestLoginUnknownAccount(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	m := NewManager(mem, WithKDFParams(testKDF))

	_, err := m.Login(ctx, "nobody@example.com", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown accounts never grow a lockout record.
	_, err = mem.Get(attemptsKeyFor(crypto.AccountHash("nobody@example.com")))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoginWrongPassword(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.New(), WithKDFParams(testKDF))

	_, err := m.Register(ctx, "alice@example.com", "pw")
	require.NoError(t, err)

	_, err = m.Login(ctx, "alice@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func storedFailures(t *testing.T, st storage.Store, ehash string) LockoutState {
	t.Helper()
	raw, err := st.Get(attemptsKeyFor(ehash))
	require.NoError(t, err)
	var state LockoutState
	require.NoError(t, json.Unmarshal([]byte(raw), &state))
	return state
}

func TestLockoutEscalation(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	cur := time.UnixMilli(1_700_000_000_000)
	m := NewManager(mem, WithKDFParams(testKDF), WithClock(func() time.Time { return cur }))

	_, err := m.Register(ctx, "alice@example.com", "pw")
	require.NoError(t, err)
	ehash := crypto.AccountHash("alice@example.com")

	// Four misses are free.
	for i := 0; i < 4; i++ {
		_, err = m.Login(ctx, "alice@example.com", "nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// The fifth starts a five minute window.
	_, err = m.Login(ctx, "alice@example.com", "nope")
	var locked *LockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 5*time.Minute, locked.Remaining)

	// During the window even the right password is rejected and the
	// counter does not move.
	cur = cur.Add(time.Minute)
	_, err = m.Login(ctx, "alice@example.com", "pw")
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 4*time.Minute, locked.Remaining)
	assert.Equal(t, 5, storedFailures(t, mem, ehash).Count)

	// After the window a sixth miss escalates to thirty minutes.
	cur = cur.Add(5 * time.Minute)
	_, err = m.Login(ctx, "alice@example.com", "nope")
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 30*time.Minute, locked.Remaining)
	assert.Equal(t, 6, storedFailures(t, mem, ehash).Count)

	// A successful login after expiry resets everything.
	cur = cur.Add(31 * time.Minute)
	_, err = m.Login(ctx, "alice@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, 0, storedFailures(t, mem, ehash).Count)
}

func TestActiveUsernameHint(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.New(), WithKDFParams(testKDF))

	_, ok := m.ActiveUsername(ctx)
	assert.False(t, ok)

	s, err := m.Register(ctx, "alice@example.com", "pw")
	require.NoError(t, err)

	name, ok := m.ActiveUsername(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", name)

	m.Logout(ctx, s)
	_, ok = m.ActiveUsername(ctx)
	assert.False(t, ok)
	assert.False(t, s.Active())
}

func TestDeleteAccountWrongPassword(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	m := NewManager(mem, WithKDFParams(testKDF))

	_, err := m.Register(ctx, "alice@example.com", "pw")
	require.NoError(t, err)

	err = m.DeleteAccount(ctx, "alice@example.com", "nope", nil)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = mem.Get(verifierKeyFor(crypto.AccountHash("alice@example.com")))
	assert.NoError(t, err, "records must survive a failed deletion")
}

func TestDeleteAccountCascade(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	sealed := memory.New()
	gate := &fakeGate{available: true}
	m := NewManager(mem,
		WithKDFParams(testKDF),
		WithSealedStore(sealed),
		WithBiometricGate(gate),
	)

	s, err := m.Register(ctx, "alice@example.com", "pw")
	require.NoError(t, err)
	ehash := s.AccountHash()

	require.NoError(t, m.EnableBiometric(ctx, s))
	require.NoError(t, mem.Set(vault.StorageKey(ehash), "ciphertext"))
	_, err = m.Login(ctx, "alice@example.com", "nope") // leave a lockout record
	require.Error(t, err)

	require.NoError(t, m.DeleteAccount(ctx, "alice@example.com", "pw", s))

	for _, k := range []string{
		verifierKeyFor(ehash),
		attemptsKeyFor(ehash),
		bioFlagKeyFor(ehash),
		vault.StorageKey(ehash),
		sessionEmailKey,
	} {
		_, err := mem.Get(k)
		assert.ErrorIs(t, err, storage.ErrNotFound, "key %s must be gone", k)
	}
	_, err = sealed.Get(bioKeyKeyFor(ehash))
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.False(t, s.Active())
}

func TestBiometricUnlock(t *testing.T) {
	ctx := context.Background()
	sealed := memory.New()
	gate := &fakeGate{available: true}
	m := NewManager(memory.New(),
		WithKDFParams(testKDF),
		WithSealedStore(sealed),
		WithBiometricGate(gate),
	)

	s, err := m.Register(ctx, "alice@example.com", "pw")
	require.NoError(t, err)
	want := sessionKey(t, s)

	require.NoError(t, m.EnableBiometric(ctx, s))
	assert.True(t, m.HasBiometric(ctx, "alice@example.com"))
	m.Logout(ctx, s)

	unlocked, err := m.BiometricUnlock(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, gate.prompts)
	assert.Equal(t, want, sessionKey(t, unlocked))
}

func TestBiometricUnlockDenied(t *testing.T) {
	ctx := context.Background()
	gate := &fakeGate{available: true}
	m := NewManager(memory.New(),
		WithKDFParams(testKDF),
		WithSealedStore(memory.New()),
		WithBiometricGate(gate),
	)

	s, err := m.Register(ctx, "alice@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, m.EnableBiometric(ctx, s))

	gate.denied = true
	_, err = m.BiometricUnlock(ctx, "alice@example.com")
	assert.ErrorIs(t, err, ErrBiometricDenied)
}

func TestBiometricNotEnabled(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.New(),
		WithKDFParams(testKDF),
		WithBiometricGate(&fakeGate{available: true}),
	)

	_, err := m.Register(ctx, "alice@example.com", "pw")
	require.NoError(t, err)

	_, err = m.BiometricUnlock(ctx, "alice@example.com")
	assert.ErrorIs(t, err, ErrBiometricNotEnabled)
}

func TestBiometricUnavailable(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.New(), WithKDFParams(testKDF))

	s, err := m.Register(ctx, "alice@example.com", "pw")
	require.NoError(t, err)

	assert.ErrorIs(t, m.EnableBiometric(ctx, s), ErrBiometricUnavailable)
}

func TestDisableBiometric(t *testing.T) {
	ctx := context.Background()
	sealed := memory.New()
	m := NewManager(memory.New(),
		WithKDFParams(testKDF),
		WithSealedStore(sealed),
		WithBiometricGate(&fakeGate{available: true}),
	)

	s, err := m.Register(ctx, "alice@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, m.EnableBiometric(ctx, s))
	require.NoError(t, m.DisableBiometric(ctx, "alice@example.com"))

	assert.False(t, m.HasBiometric(ctx, "alice@example.com"))
	_, err = sealed.Get(bioKeyKeyFor(s.AccountHash()))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
