package main

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <lead-id>",
	Short: "Resolve the source URL for one lead and print it (no persist)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return eris.Errorf("invalid lead id %q", args[0])
		}

		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		lead, err := env.Store.GetLead(cmd.Context(), id)
		if err != nil {
			return err
		}
		if lead == nil {
			return eris.Errorf("lead %d not found", id)
		}

		found, err := env.Chain.Find(cmd.Context(), *lead)
		if err != nil {
			return err
		}
		if found == "" {
			fmt.Printf("lead %d: no source found\n", id)
			return nil
		}
		fmt.Printf("lead %d: %s\n", id, found)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
