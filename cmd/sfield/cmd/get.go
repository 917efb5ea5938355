package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/scalarfield/pkg/exr"
	"github.com/ssargent/scalarfield/pkg/fieldio"
	"github.com/ssargent/scalarfield/pkg/fieldstore"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <id> <out>",
	Short: "Write a stored field to a file",
	Long: `Write a stored field to a file. The output format follows the file
extension.

Example:
  sfield get 2ZkUQwGR4g8YbYDx1ZDqMaHIxNG height.exr`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := getApp(cmd)
		channel, _ := cmd.Flags().GetString("channel")

		id, err := fieldstore.ParseID(args[0])
		if err != nil {
			return err
		}

		store, err := openStore(app.config)
		if err != nil {
			return err
		}
		defer store.Close()

		field, err := store.Read(id)
		if err != nil {
			return err
		}

		if err := fieldio.WriteFile(args[1], field, exr.WithChannel(channel)); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %dx%d field to %s\n", field.Height, field.Width, args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().String("channel", exr.DefaultChannel, "OpenEXR channel name for .exr output")
}
