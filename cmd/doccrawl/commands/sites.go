package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/doccrawl/internal/config"
	"github.com/jmylchreest/doccrawl/internal/output"
)

var sitesCmd = &cobra.Command{
	Use:   "sites [name...]",
	Short: "List available site profiles",
	Long: `List the built-in site profiles together with any loaded from --sites-file
or the "sites" key of the config file.

With names, only those profiles are printed. Use --format to dump full
profiles, e.g. as a starting point for a custom sites file:

  doccrawl sites convex --format yaml > sites.yaml`,
	RunE: runSites,
}

func init() {
	rootCmd.AddCommand(sitesCmd)
	sitesCmd.Flags().StringP("format", "f", "", "dump profiles as json, jsonl or yaml instead of a table")
}

func runSites(cmd *cobra.Command, args []string) error {
	registry, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	sites := registry.List()
	if len(args) > 0 {
		sites = sites[:0]
		for _, name := range args {
			s, err := registry.Get(name)
			if err != nil {
				return err
			}
			sites = append(sites, s)
		}
	}

	formatStr, _ := cmd.Flags().GetString("format")
	if formatStr == "" {
		return printSiteTable(sites)
	}

	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	if format == output.FormatYAML {
		// A sites file is a single document with a "sites" list.
		w, _ := output.NewWriter(os.Stdout, format)
		return output.WriteAll(w, []any{map[string]any{"sites": sites}})
	}

	w, err := output.NewWriter(os.Stdout, format)
	if err != nil {
		return err
	}
	return output.WriteAll(w, sites)
}

func printSiteTable(sites []config.Site) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLOADER\tSTRATEGY\tSTART\tDESCRIPTION")
	for _, s := range sites {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.Name,
			s.Loader,
			s.Extractor.WithDefaults().Strategy,
			strings.Join(s.StartURLs, ","),
			s.Description)
	}
	return tw.Flush()
}
