package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/br-sch/PassManageApp/auth"
	"github.com/br-sch/PassManageApp/internal/logging"
	bboltstorage "github.com/br-sch/PassManageApp/storage/bbolt"
	"github.com/br-sch/PassManageApp/storage/keyring"
	"github.com/br-sch/PassManageApp/vault"
)

var (
	dataDir  string
	username string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "passmanage",
	Short: "PassManage is a local encrypted password vault",
	Long: `A local-only password manager. All entries are encrypted with a key
derived from your master password; nothing ever leaves this machine.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDataDir(), "Directory for the vault database")
	rootCmd.PersistentFlags().StringVarP(&username, "user", "u", "", "Account email (defaults to the last account used)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".passmanage")
}

func newLogger() logging.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return logging.NewSlogLogger(slog.New(h))
}

// env holds everything an authenticated command needs. Close releases the
// database and wipes the session key.
type env struct {
	store   *bboltstorage.Store
	manager *auth.Manager
	session *auth.Session
	vault   *vault.Store
	log     logging.Logger
}

func (e *env) Close() {
	if e.vault != nil {
		e.vault.Close()
	}
	if e.session != nil {
		e.session.Clear()
	}
	if e.store != nil {
		e.store.Close()
	}
}

func openStore() (*bboltstorage.Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	st, err := bboltstorage.NewFromFile(filepath.Join(dataDir, "vault.db"), nil)
	if err != nil {
		return nil, fmt.Errorf("opening vault storage: %w", err)
	}
	return st, nil
}

func newManager(st *bboltstorage.Store, log logging.Logger) *auth.Manager {
	return auth.NewManager(st,
		auth.WithLogger(log),
		auth.WithSealedStore(keyring.New()),
	)
}

// unlock opens the store, resolves the account, prompts for the master
// password, and logs in.
func unlock(ctx context.Context) (*env, error) {
	log := newLogger()
	st, err := openStore()
	if err != nil {
		return nil, err
	}

	e := &env{store: st, log: log}
	e.manager = newManager(st, log)

	user, err := resolveUser(ctx, e.manager)
	if err != nil {
		st.Close()
		return nil, err
	}
	password, err := promptPassword(fmt.Sprintf("Master password for %s: ", user))
	if err != nil {
		st.Close()
		return nil, err
	}

	e.session, err = e.manager.Login(ctx, user, password)
	if err != nil {
		st.Close()
		return nil, loginError(err)
	}

	buf, err := e.session.OpenKey()
	if err != nil {
		e.Close()
		return nil, err
	}
	defer buf.Destroy()
	e.vault = vault.Open(st, e.session.AccountHash(), buf.Bytes(), vault.WithLogger(log))
	return e, nil
}

func resolveUser(ctx context.Context, m *auth.Manager) (string, error) {
	if username != "" {
		return username, nil
	}
	if last, ok := m.ActiveUsername(ctx); ok {
		return last, nil
	}
	return promptLine("Account email: ")
}

func loginError(err error) error {
	var locked *auth.LockedError
	if errors.As(err, &locked) {
		return fmt.Errorf("account is locked, try again in %d minute(s)", locked.RemainingMinutes())
	}
	return err
}

func promptPassword(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(raw), nil
}

func promptLine(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	var line string
	if _, err := fmt.Scanln(&line); err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
