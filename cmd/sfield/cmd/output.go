package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"

	"github.com/ssargent/scalarfield/pkg/fieldstore"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

func checkOutputFormat(format string) error {
	if format != outputTable && format != outputJSON {
		return fmt.Errorf("unknown output format %q, use table or json", format)
	}
	return nil
}

// outputJSONTo writes v as indented JSON
func outputJSONTo(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// outputReportTable displays an inspect report in table format
func outputReportTable(w io.Writer, r *inspectReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "File:\t%s\n", r.Path)
	fmt.Fprintf(tw, "Format:\t%s\n", r.Format)
	fmt.Fprintf(tw, "Dimensions:\t%dx%d (height x width)\n", r.Height, r.Width)
	fmt.Fprintf(tw, "File size:\t%d bytes\n", r.FileBytes)
	fmt.Fprintf(tw, "SF01 size:\t%d bytes\n", r.EncodedBytes)
	fmt.Fprintf(tw, "Elements:\t%d\n", r.Stats.Elements)
	fmt.Fprintf(tw, "Finite:\t%d\n", r.Stats.Finite)
	if r.Stats.Finite > 0 {
		fmt.Fprintf(tw, "Min:\t%g\n", r.Stats.Min)
		fmt.Fprintf(tw, "Max:\t%g\n", r.Stats.Max)
		fmt.Fprintf(tw, "Mean:\t%g\n", r.Stats.Mean)
	}
	if r.Stats.NaN+r.Stats.PosInf+r.Stats.NegInf > 0 {
		fmt.Fprintf(tw, "NaN / +Inf / -Inf:\t%d / %d / %d\n", r.Stats.NaN, r.Stats.PosInf, r.Stats.NegInf)
	}
	return nil
}

// outputFieldsTable displays stored fields in table format
func outputFieldsTable(w io.Writer, infos []fieldstore.FieldInfo) error {
	if len(infos) == 0 {
		fmt.Fprintln(w, "No fields found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tHEIGHT\tWIDTH\tBYTES\tCREATED")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n",
			info.ID,
			info.Height,
			info.Width,
			info.SizeBytes,
			info.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
