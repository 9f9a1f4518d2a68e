package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/doccrawl/internal/config"
	"github.com/jmylchreest/doccrawl/internal/crawler"
	"github.com/jmylchreest/doccrawl/internal/extractor"
	"github.com/jmylchreest/doccrawl/internal/loader"
	"github.com/jmylchreest/doccrawl/internal/logger"
	"github.com/jmylchreest/doccrawl/internal/sink"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl a documentation site into chunked markdown files",
	Long: `Crawl follows the next-page chain of a documentation site, starting at
each seed URL in turn, and appends every page to numbered output files.

A built-in or configured profile is selected with --site; any flag given
on the command line overrides the profile value. Without --site the
crawl is described entirely by flags and --url is required.

Examples:
  # Built-in profile
  doccrawl crawl --site nextjs

  # Profile with a smaller chunk size into a custom directory
  doccrawl crawl --site convex --chunk-size 1MiB -o out/convex

  # Ad-hoc crawl, keeping the query string
  doccrawl crawl -u "https://docs.example.com/list?page=1" \
      --next "a.next" --strip-query=false`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	flags := crawlCmd.Flags()
	addCrawlFlags(flags)

	_ = viper.BindPFlag("crawl.loader", flags.Lookup("loader"))
	_ = viper.BindPFlag("crawl.output_dir", flags.Lookup("output-dir"))
}

func addCrawlFlags(flags *pflag.FlagSet) {
	// Site selection
	flags.StringP("site", "s", "", "site profile name (see 'doccrawl sites')")
	flags.StringSliceP("url", "u", nil, "seed URL(s), crawled in order (can be repeated)")
	flags.String("base-url", "", "base URL for resolving relative links (default: first seed)")

	// Traversal
	flags.Bool("strip-query", true, "drop query strings when normalizing URLs")
	flags.Bool("same-host", false, "stop a chain when its next link leaves the base host")
	flags.Duration("delay", 2*time.Second, "pacing delay between pages")

	// Loading
	flags.String("loader", string(loader.ModeDynamic), "page loader: static, dynamic, auto")
	flags.Duration("timeout", 30*time.Second, "page load timeout")
	flags.String("wait", "", "CSS selector to wait for before extracting (dynamic loader)")
	flags.StringToString("header", nil, "extra request header as key=value (can be repeated)")

	// Extraction
	flags.String("strategy", string(extractor.StrategySelector), "extractor strategy: selector, script")
	flags.String("scope", "", "CSS selector of the content root")
	flags.String("content", "", "CSS selector list of content elements")
	flags.String("code", "", "CSS selector identifying code containers")
	flags.String("code-lines", "", "CSS selector of per-line elements inside code containers")
	flags.String("language", "", "fixed code fence language")
	flags.String("next", "", "CSS selector of the next-page link")

	// Output
	flags.StringP("output-dir", "o", "", "output directory (default: texts)")
	flags.String("chunk-size", "", "rollover threshold per output file (e.g. 5MiB, 512KB)")
	flags.String("ext", "", "output file extension (default: .md)")
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Debug("crawl command starting")

	registry, err := config.Load(viper.GetViper())
	if err != nil {
		logger.Error("failed to load site profiles", "error", err)
		return err
	}

	site, err := resolveSite(cmd.Flags(), registry)
	if err != nil {
		return err
	}
	if err := site.Validate(); err != nil {
		logger.Error("invalid site profile", "error", err)
		return err
	}
	logger.Debug("site resolved",
		"name", site.Name,
		"base_url", site.BaseURL,
		"seeds", site.StartURLs,
		"loader", site.Loader,
		"strategy", site.Extractor.WithDefaults().Strategy)

	ld, err := loader.New(site.Loader, site.LoaderConfig())
	if err != nil {
		logger.Error("failed to create loader", "loader", site.Loader, "error", err)
		return err
	}
	defer func() { _ = ld.Close() }()

	ext, err := extractor.New(site.Extractor)
	if err != nil {
		return err
	}

	sinkOpts, err := site.SinkOptions()
	if err != nil {
		return err
	}
	out, err := sink.Open(site.OutputDir, sinkOpts...)
	if err != nil {
		logger.Error("failed to open output directory", "dir", site.OutputDir, "error", err)
		return err
	}

	progress := newProgress(!viper.GetBool("quiet"))
	defer progress.stop()

	c, err := crawler.New(ld, ext, out, site.CrawlerConfig(), crawler.WithProgress(progress.update))
	if err != nil {
		return err
	}

	logger.Info("starting crawl",
		"site", site.Name,
		"seeds", len(site.StartURLs),
		"output", site.OutputDir,
		"chunk", humanize.IBytes(uint64(out.Threshold())))

	start := time.Now()
	stats, err := c.Crawl(ctx, site.StartURLs...)
	progress.stop()

	logger.Info("crawl complete",
		"pages", stats.Pages,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"written", humanize.IBytes(uint64(stats.Bytes)),
		"last_chunk", out.Path(out.Index()),
		"duration", time.Since(start).Round(time.Millisecond))

	if err != nil {
		if errors.Is(err, context.Canceled) {
			logInfo("crawl interrupted after %d pages", stats.Pages)
			return nil
		}
		var extErr *crawler.ExtractionError
		if errors.As(err, &extErr) {
			logError("page %s did not match the %s extractor: %v", extErr.URL, extErr.Extractor, extErr.Err)
		}
		return err
	}

	return nil
}

// resolveSite starts from the named profile (or the defaults) and applies
// every flag the user set explicitly.
func resolveSite(flags *pflag.FlagSet, registry *config.Registry) (config.Site, error) {
	site := config.Default()
	site.Name = "adhoc"
	site.Loader = loader.Mode(viper.GetString("crawl.loader"))
	if dir := viper.GetString("crawl.output_dir"); dir != "" {
		site.OutputDir = dir
	}

	if name, _ := flags.GetString("site"); name != "" {
		s, err := registry.Get(name)
		if err != nil {
			return site, err
		}
		site = s
	} else if urls, _ := flags.GetStringSlice("url"); len(urls) == 0 {
		return site, errors.New("either --site or --url is required")
	}

	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	dur := func(name string, dst *time.Duration) {
		if flags.Changed(name) {
			*dst, _ = flags.GetDuration(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if flags.Changed(name) {
			*dst, _ = flags.GetBool(name)
		}
	}

	if flags.Changed("url") {
		site.StartURLs, _ = flags.GetStringSlice("url")
	}
	str("base-url", &site.BaseURL)
	boolean("strip-query", &site.StripQuery)
	boolean("same-host", &site.SameHostOnly)
	dur("delay", &site.Delay)
	dur("timeout", &site.Timeout)
	str("wait", &site.WaitSelector)
	if flags.Changed("header") {
		site.Headers, _ = flags.GetStringToString("header")
	}
	str("output-dir", &site.OutputDir)
	str("chunk-size", &site.ChunkSize)
	str("ext", &site.FileExtension)

	if flags.Changed("loader") {
		mode, _ := flags.GetString("loader")
		site.Loader = loader.Mode(mode)
	}
	if flags.Changed("strategy") {
		strategy, _ := flags.GetString("strategy")
		site.Extractor.Strategy = extractor.Strategy(strategy)
	}
	str("scope", &site.Extractor.Scope)
	str("content", &site.Extractor.Content)
	str("code", &site.Extractor.Code)
	str("code-lines", &site.Extractor.CodeLines)
	str("language", &site.Extractor.Language)
	str("next", &site.Extractor.Next)

	if site.BaseURL == "" && len(site.StartURLs) > 0 {
		site.BaseURL = site.StartURLs[0]
	}

	return site, nil
}

// progress renders crawl events on a terminal spinner.
type progress struct {
	s       *spinner.Spinner
	pages   int
	stopped bool
}

func newProgress(enabled bool) *progress {
	if !enabled {
		return &progress{stopped: true}
	}
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " starting"
	s.Start()
	return &progress{s: s}
}

func (p *progress) update(ev crawler.Progress) {
	if p.stopped {
		return
	}

	var msg string
	switch ev.State {
	case crawler.StateLoading:
		msg = fmt.Sprintf(" [%d] %s", p.pages+1, ev.URL)
	case crawler.StateWritten:
		p.pages++
		msg = fmt.Sprintf(" [%d] %s -> %s", p.pages, ev.URL, ev.Chunk.Path)
	case crawler.StateFailed:
		msg = fmt.Sprintf(" [%d] failed %s", p.pages, ev.URL)
	default:
		return
	}

	p.s.Lock()
	p.s.Suffix = msg
	p.s.Unlock()
}

func (p *progress) stop() {
	if p.stopped {
		return
	}
	p.stopped = true
	p.s.Stop()
}
