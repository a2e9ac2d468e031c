package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := newLogger()

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		manager := newManager(st, log)

		user := username
		if user == "" {
			user, err = promptLine("Account email: ")
			if err != nil {
				return err
			}
		}
		password, err := promptPassword("Choose a master password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Repeat master password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}

		session, err := manager.Register(ctx, user, password)
		if err != nil {
			return err
		}
		defer session.Clear()

		fmt.Printf("Account created for %s.\n", user)
		fmt.Println("There is no password recovery: losing the master password loses the vault.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
}
