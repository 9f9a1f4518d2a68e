package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/doccrawl/internal/logger"
	"github.com/jmylchreest/doccrawl/internal/output"
	"github.com/jmylchreest/doccrawl/internal/sink"
)

var recordsCmd = &cobra.Command{
	Use:   "records [dir]",
	Short: "Split crawl output back into per-page records",
	Long: `Records reads the numbered output files of a crawl in order, splits them
at each "Page URL:" header and prints one record per page.

Examples:
  doccrawl records texts
  doccrawl records out/convex --format json -o convex.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecords,
}

func init() {
	rootCmd.AddCommand(recordsCmd)

	flags := recordsCmd.Flags()
	flags.String("format", string(output.FormatJSONL), "output format: json, jsonl, yaml")
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("ext", sink.DefaultExtension, "extension of the output files to read")
}

func runRecords(cmd *cobra.Command, args []string) error {
	dir := "texts"
	if len(args) == 1 {
		dir = args[0]
	}
	ext, _ := cmd.Flags().GetString("ext")

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	records, err := sink.ReadRecords(dir, ext)
	if err != nil {
		logger.Error("failed to read records", "dir", dir, "error", err)
		return err
	}
	logger.Debug("records loaded", "dir", dir, "count", len(records))

	outFile := os.Stdout
	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		f, err := os.Create(outPath) //#nosec G304 -- CLI tool writes to user-specified output file
		if err != nil {
			logger.Error("failed to create output file", "path", outPath, "error", err)
			return err
		}
		defer func() { _ = f.Close() }()
		outFile = f
	}

	w, err := output.NewWriter(outFile, format)
	if err != nil {
		return err
	}
	if err := output.WriteAll(w, records); err != nil {
		logger.Error("failed to write records", "error", err)
		return err
	}

	logInfo("%d records from %s", len(records), dir)
	return nil
}
