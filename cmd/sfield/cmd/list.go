package cmd

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored fields",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")
		if err := checkOutputFormat(format); err != nil {
			return err
		}

		store, err := openStore(getApp(cmd).config)
		if err != nil {
			return err
		}
		defer store.Close()

		infos, err := store.List()
		if err != nil {
			return err
		}

		if format == outputJSON {
			return outputJSONTo(cmd.OutOrStdout(), infos)
		}
		return outputFieldsTable(cmd.OutOrStdout(), infos)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringP("output", "o", outputTable, "Output format (table, json)")
}
