package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssargent/scalarfield/pkg/exr"
	"github.com/ssargent/scalarfield/pkg/fieldio"
	"github.com/ssargent/scalarfield/pkg/fieldlog"
	"github.com/ssargent/scalarfield/pkg/logger"
)

var packCmd = &cobra.Command{
	Use:   "pack <log> <files...>",
	Short: "Append field files to a field log",
	Long: `Append field files, in order, to a field log: a single file of
back-to-back SF01 containers. A damaged tail left by an interrupted write is
cut off before appending.

Example:
  sfield pack frames.sfl frame-000.sf frame-001.exr`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, _ := cmd.Flags().GetString("channel")
		start := time.Now()

		offsets, err := packFiles(getApp(cmd).log, args[0], args[1:], channel)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, off := range offsets {
			fmt.Fprintf(out, "%d\t%s\n", off, args[i+1])
		}
		fmt.Fprintf(out, "Packed %d fields into %s in %s\n", len(offsets), args[0], formatDuration(time.Since(start)))
		return nil
	},
}

var unpackCmd = &cobra.Command{
	Use:   "unpack <log> <dir>",
	Short: "Extract every field of a field log into a directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		target, err := fieldio.ParseFormat(format)
		if err != nil {
			return err
		}

		files, err := unpackLog(getApp(cmd).log, args[0], args[1], target)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Unpacked %d fields into %s\n", len(files), args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(unpackCmd)
	packCmd.Flags().String("channel", exr.DefaultChannel, "OpenEXR channel to read")
	unpackCmd.Flags().String("format", "sf", "Output format (sf, exr)")
}

// packFiles appends each file to the log and returns the offset of each frame
func packFiles(log logger.Logger, logPath string, files []string, channel string) ([]int64, error) {
	recovery, err := fieldlog.Truncate(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to validate %s: %w", logPath, err)
	}
	if recovery.Truncated {
		log.Warn("truncated damaged field log tail",
			"log", logPath,
			"frames", recovery.Frames,
			"bytes_removed", recovery.FileSize-recovery.ValidSize)
	}

	writer, err := fieldlog.NewWriter(fieldlog.WriterConfig{Path: logPath})
	if err != nil {
		return nil, err
	}

	offsets := make([]int64, 0, len(files))
	for _, file := range files {
		field, err := fieldio.ReadFile(file, exr.WithChannel(channel))
		if err != nil {
			writer.Close()
			return nil, err
		}
		off, err := writer.Append(field)
		if err != nil {
			writer.Close()
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		offsets = append(offsets, off)
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return offsets, nil
}

// unpackLog writes each frame of the log to dir as frame-NNNNN.<ext>. A
// damaged tail is reported but does not discard the frames before it.
func unpackLog(log logger.Logger, logPath, dir string, format fieldio.Format) ([]string, error) {
	reader, err := fieldlog.NewReader(fieldlog.ReaderConfig{Path: logPath})
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var files []string
	for {
		offset := reader.Offset()
		field, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, fieldlog.ErrCorruption) {
			log.Warn("stopping at damaged frame", "log", logPath, "offset", offset, "error", err)
			break
		}
		if err != nil {
			return files, err
		}

		name := filepath.Join(dir, fmt.Sprintf("frame-%05d.%s", len(files), format))
		data, err := fieldio.Marshal(field, format)
		if err != nil {
			return files, err
		}
		if err := os.WriteFile(name, data, 0o644); err != nil {
			return files, fmt.Errorf("write %s: %w", name, err)
		}
		files = append(files, name)
	}

	return files, nil
}
