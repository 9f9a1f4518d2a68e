package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/doccrawl/internal/output"
	"github.com/jmylchreest/doccrawl/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		formatStr, _ := cmd.Flags().GetString("format")
		if formatStr == "" {
			fmt.Println(version.Full())
			return nil
		}
		format, err := output.ParseFormat(formatStr)
		if err != nil {
			return err
		}
		w, err := output.NewWriter(os.Stdout, format)
		if err != nil {
			return err
		}
		return output.WriteAll(w, []version.Info{version.Get()})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version.String()
	versionCmd.Flags().StringP("format", "f", "", "print as json, jsonl or yaml")
}
