package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/br-sch/PassManageApp/vault"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write an encrypted backup of the vault",
	Long: `Exports the whole vault as a single encrypted blob. The backup is
encrypted with the key derived from your master password; importing it
requires logging in with the same password.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := unlock(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		state, err := e.vault.Load(ctx)
		if err != nil {
			return err
		}
		payload := vault.BuildBackupPayload(state, e.session.AccountHash(), time.Now().UnixMilli())

		buf, err := e.session.OpenKey()
		if err != nil {
			return err
		}
		blob, err := vault.EncryptBackup(payload, buf.Bytes())
		buf.Destroy()
		if err != nil {
			return err
		}

		if err := os.WriteFile(args[0], []byte(blob), 0o600); err != nil {
			return fmt.Errorf("writing backup: %w", err)
		}
		fmt.Printf("Exported %d entries and %d folders to %s.\n",
			len(payload.Entries), len(payload.Folders), args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge an encrypted backup into the vault",
	Long: `Decrypts a backup made with the same master password and merges it in:
folders are matched by name, entries already present (by title) are
skipped, everything else is added. The live vault is never overwritten.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := unlock(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading backup: %w", err)
		}

		buf, err := e.session.OpenKey()
		if err != nil {
			return err
		}
		payload, err := vault.DecryptBackup(string(raw), buf.Bytes())
		buf.Destroy()
		if err != nil {
			return err
		}

		res, err := e.vault.MergeBackup(ctx, payload)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d entries (%d duplicates skipped, %d folders created).\n",
			res.Added, res.Skipped, res.Folders)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)
}
