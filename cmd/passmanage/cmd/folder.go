package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage entry folders",
}

var folderAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := unlock(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		folder, err := e.vault.AddFolder(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created folder %q (id %s).\n", folder.Name, folder.ID)
		return nil
	},
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List folders and their entry counts",
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
		if len(state.Folders) == 0 {
			fmt.Println("No folders.")
			return nil
		}
		counts := make(map[string]int)
		for _, entry := range state.Entries {
			counts[entry.FolderID]++
		}
		for _, f := range state.Folders {
			fmt.Printf("%-24s %d entries\n", f.Name, counts[f.ID])
		}
		return nil
	},
}

var folderRenameCmd = &cobra.Command{
	Use:   "rename <name> <new name>",
	Short: "Rename a folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := unlock(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := folderIDByName(ctx, e, args[0])
		if err != nil {
			return err
		}
		if err := e.vault.RenameFolder(ctx, id, args[1]); err != nil {
			return err
		}
		fmt.Printf("Renamed %q to %q.\n", args[0], args[1])
		return nil
	},
}

var folderRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a folder, keeping its entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := unlock(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := folderIDByName(ctx, e, args[0])
		if err != nil {
			return err
		}
		if err := e.vault.RemoveFolder(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Removed folder %q. Its entries were kept.\n", args[0])
		return nil
	},
}

func folderIDByName(ctx context.Context, e *env, name string) (string, error) {
	state, err := e.vault.Load(ctx)
	if err != nil {
		return "", err
	}
	for _, f := range state.Folders {
		if strings.EqualFold(strings.TrimSpace(f.Name), strings.TrimSpace(name)) {
			return f.ID, nil
		}
	}
	return "", fmt.Errorf("no folder named %q", name)
}

func init() {
	folderCmd.AddCommand(folderAddCmd, folderListCmd, folderRenameCmd, folderRmCmd)
	rootCmd.AddCommand(folderCmd)
}
