package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/scalarfield/pkg/codec"
	"github.com/ssargent/scalarfield/pkg/exr"
	"github.com/ssargent/scalarfield/pkg/fieldio"
)

// inspectReport describes a field file
type inspectReport struct {
	Path         string           `json:"path"`
	Format       fieldio.Format   `json:"format"`
	Height       int              `json:"height"`
	Width        int              `json:"width"`
	FileBytes    int              `json:"file_bytes"`
	EncodedBytes int              `json:"sf01_bytes"`
	Stats        codec.FieldStats `json:"stats"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show dimensions and value statistics of a field file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")
		channel, _ := cmd.Flags().GetString("channel")
		if err := checkOutputFormat(format); err != nil {
			return err
		}

		report, err := inspectFile(args[0], channel)
		if err != nil {
			return err
		}

		if format == outputJSON {
			return outputJSONTo(cmd.OutOrStdout(), report)
		}
		return outputReportTable(cmd.OutOrStdout(), report)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringP("output", "o", outputTable, "Output format (table, json)")
	inspectCmd.Flags().String("channel", exr.DefaultChannel, "OpenEXR channel to inspect")
}

func inspectFile(path, channel string) (*inspectReport, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	field, err := fieldio.Unmarshal(data, exr.WithChannel(channel))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	format := fieldio.Detect(data)
	if format == fieldio.FormatUnknown {
		format = fieldio.FormatSF
	}

	return &inspectReport{
		Path:         path,
		Format:       format,
		Height:       field.Height,
		Width:        field.Width,
		FileBytes:    len(data),
		EncodedBytes: field.EncodedSize(),
		Stats:        field.Stats(),
	}, nil
}
