package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/scalarfield/pkg/fieldstore"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := fieldstore.ParseID(args[0])
		if err != nil {
			return err
		}

		store, err := openStore(getApp(cmd).config)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(id); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted field %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
