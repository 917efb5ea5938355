package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/scalarfield/pkg/exr"
	"github.com/ssargent/scalarfield/pkg/fieldio"
)

// putCmd represents the put command
var putCmd = &cobra.Command{
	Use:   "put <file>",
	Short: "Store a field file in the repository",
	Long: `Store an SF01 or OpenEXR field in the repository and print its id.

Example:
  sfield put height.sf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := getApp(cmd)
		channel, _ := cmd.Flags().GetString("channel")

		field, err := fieldio.ReadFile(args[0], exr.WithChannel(channel))
		if err != nil {
			return err
		}

		store, err := openStore(app.config)
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := store.Create(field)
		if err != nil {
			return err
		}

		app.log.Debug("stored field", "id", id.String(), "file", args[0])
		fmt.Fprintln(cmd.OutOrStdout(), id.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
	putCmd.Flags().String("channel", exr.DefaultChannel, "OpenEXR channel to read")
}
