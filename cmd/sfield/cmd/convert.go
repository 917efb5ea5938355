package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/scalarfield/pkg/codec"
	"github.com/ssargent/scalarfield/pkg/exr"
	"github.com/ssargent/scalarfield/pkg/fieldio"
)

var convertCmd = &cobra.Command{
	Use:   "convert <in> <out>",
	Short: "Convert a field between SF01 and OpenEXR",
	Long: `Convert a field file. The input format is detected from its magic bytes
and the output format from the output extension (.exr for OpenEXR, anything
else for SF01).

Examples:
  sfield convert height.sf height.exr
  sfield convert render.exr depth.sf --channel Z`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, _ := cmd.Flags().GetString("channel")

		field, err := convertFile(args[0], args[1], channel)
		if err != nil {
			return err
		}

		getApp(cmd).log.Debug("converted field", "in", args[0], "out", args[1], "height", field.Height, "width", field.Width)
		fmt.Fprintf(cmd.OutOrStdout(), "Converted %dx%d field %s -> %s (%s)\n",
			field.Height, field.Width, args[0], args[1], fieldio.FormatFromPath(args[1]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().String("channel", exr.DefaultChannel, "OpenEXR channel to read or write")
}

func convertFile(in, out, channel string) (*codec.ScalarField, error) {
	field, err := fieldio.ReadFile(in, exr.WithChannel(channel))
	if err != nil {
		return nil, err
	}
	if err := fieldio.WriteFile(out, field, exr.WithChannel(channel)); err != nil {
		return nil, err
	}
	return field, nil
}
