package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pavuchara/nextgen/internal/autolike"
)

var autolikeCmd = &cobra.Command{
	Use:   "autolike",
	Short: "Register a throwaway user and like a random published post once",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open(needs{})
		if err != nil {
			return err
		}
		defer a.close()

		status := autolike.NewRunner(a.service(), 0).RunOnce(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), status)
		if status == autolike.StatusFailed {
			return errors.New("autolike failed")
		}
		return nil
	},
}
