package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Account maintenance",
}

var accountDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Permanently delete the account and its vault",
	Long: `Deletes the account's verifier, lockout state, biometric material, and
the encrypted vault blob. Requires the master password. This cannot be
undone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := newLogger()

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		manager := newManager(st, log)

		user, err := resolveUser(ctx, manager)
		if err != nil {
			return err
		}
		confirm, err := promptLine(fmt.Sprintf("Type %q to confirm deletion: ", user))
		if err != nil {
			return err
		}
		if confirm != user {
			return fmt.Errorf("confirmation did not match, nothing deleted")
		}
		password, err := promptPassword("Master password: ")
		if err != nil {
			return err
		}

		if err := manager.DeleteAccount(ctx, user, password, nil); err != nil {
			return err
		}
		fmt.Printf("Account %s and its vault were deleted.\n", user)
		return nil
	},
}

var accountLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the remembered account email",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		manager := newManager(st, newLogger())
		manager.Logout(ctx, nil)
		fmt.Println("Logged out.")
		return nil
	},
}

func init() {
	accountCmd.AddCommand(accountDeleteCmd, accountLogoutCmd)
	rootCmd.AddCommand(accountCmd)
}
