package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/br-sch/PassManageApp/vault"
)

var (
	entryTitle  string
	entryUser   string
	entryFolder string
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a credential entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := unlock(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		entryPassword, err := promptPassword("Password for this entry: ")
		if err != nil {
			return err
		}

		folderID := ""
		if entryFolder != "" {
			folderID, err = folderIDByName(ctx, e, entryFolder)
			if err != nil {
				return err
			}
		}

		entry, err := e.vault.AddItem(ctx, vault.NewEntry{
			Title:    args[0],
			Username: entryUser,
			Password: entryPassword,
			FolderID: folderID,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Added %q (id %s).\n", entry.Title, entry.ID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all entries",
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
		if len(state.Entries) == 0 {
			fmt.Println("Vault is empty.")
			return nil
		}

		folderNames := make(map[string]string, len(state.Folders))
		for _, f := range state.Folders {
			folderNames[f.ID] = f.Name
		}

		now := time.Now()
		for _, entry := range state.Entries {
			folder := folderNames[entry.FolderID]
			if folder == "" {
				folder = "-"
			}
			fmt.Printf("%-16s %-24s %-16s %-10s %s\n",
				entry.ID, entry.Title, entry.Username, folder, vault.Since(entry.LastChangedAt, now))
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <title or id>",
	Short: "Show one entry, including its password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := unlock(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		entry, err := findEntry(ctx, e, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Title:    %s\n", entry.Title)
		fmt.Printf("Username: %s\n", entry.Username)
		fmt.Printf("Password: %s\n", entry.Password)
		fmt.Printf("Changed:  %s\n", vault.Since(entry.LastChangedAt, time.Now()))
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <title or id>",
	Short: "Remove an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := unlock(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		entry, err := findEntry(ctx, e, args[0])
		if err != nil {
			return err
		}
		if err := e.vault.RemoveItem(ctx, entry.ID); err != nil {
			return err
		}
		fmt.Printf("Removed %q.\n", entry.Title)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <title or id>",
	Short: "Update an entry's fields",
	Long: `Prompts for a new password for the entry. Pass --title or --username
to change those fields; the change timestamp only moves when the password
actually changes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := unlock(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		entry, err := findEntry(ctx, e, args[0])
		if err != nil {
			return err
		}

		if entryTitle != "" {
			entry.Title = entryTitle
		}
		if entryUser != "" {
			entry.Username = entryUser
		}
		newPassword, err := promptPassword("New password (empty keeps current): ")
		if err != nil {
			return err
		}
		if newPassword != "" {
			entry.Password = newPassword
		}

		updated, err := e.vault.UpdateItem(ctx, entry)
		if err != nil {
			return err
		}
		fmt.Printf("Updated %q.\n", updated.Title)
		return nil
	},
}

// findEntry resolves a user-supplied reference, matching the exact ID first
// and then the title, case-insensitively.
func findEntry(ctx context.Context, e *env, ref string) (vault.Entry, error) {
	state, err := e.vault.Load(ctx)
	if err != nil {
		return vault.Entry{}, err
	}
	for _, entry := range state.Entries {
		if entry.ID == ref {
			return entry, nil
		}
	}
	for _, entry := range state.Entries {
		if strings.EqualFold(entry.Title, ref) {
			return entry, nil
		}
	}
	return vault.Entry{}, fmt.Errorf("no entry matches %q", ref)
}

func init() {
	addCmd.Flags().StringVar(&entryUser, "username", "", "Username stored in the entry")
	addCmd.Flags().StringVar(&entryFolder, "folder", "", "Folder name to file the entry under")
	updateCmd.Flags().StringVar(&entryTitle, "title", "", "New title")
	updateCmd.Flags().StringVar(&entryUser, "username", "", "New username")
	rootCmd.AddCommand(addCmd, listCmd, showCmd, rmCmd, updateCmd)
}
