// Package config loads and validates site profiles.
//
// A profile is the seed configuration for one documentation site: where the
// crawl starts, how URLs are normalized, how output is chunked, and how page
// content is located. Profiles come from the embedded built-ins, a YAML file,
// or the "sites" key of the viper config, later sources replacing earlier
// ones by name.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/doccrawl/internal/crawler"
	"github.com/jmylchreest/doccrawl/internal/extractor"
	"github.com/jmylchreest/doccrawl/internal/loader"
	"github.com/jmylchreest/doccrawl/internal/sink"
)

//go:embed builtin.yaml
var builtinYAML []byte

// ErrSiteNotFound is returned when no profile has the requested name.
var ErrSiteNotFound = errors.New("site not found")

// Site is one documentation site profile.
type Site struct {
	Name          string            `mapstructure:"name" yaml:"name" validate:"required"`
	Description   string            `mapstructure:"description" yaml:"description,omitempty"`
	BaseURL       string            `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	StartURLs     []string          `mapstructure:"start_urls" yaml:"start_urls" validate:"required,min=1,dive,required"`
	StripQuery    bool              `mapstructure:"strip_query" yaml:"strip_query"`
	SameHostOnly  bool              `mapstructure:"same_host_only" yaml:"same_host_only,omitempty"`
	ChunkSize     string            `mapstructure:"chunk_size" yaml:"chunk_size" validate:"required"`
	Delay         time.Duration     `mapstructure:"delay" yaml:"delay" validate:"min=0"`
	Timeout       time.Duration     `mapstructure:"timeout" yaml:"timeout" validate:"min=0"`
	Loader        loader.Mode       `mapstructure:"loader" yaml:"loader" validate:"oneof=static dynamic auto"`
	WaitSelector  string            `mapstructure:"wait_selector" yaml:"wait_selector,omitempty"`
	Headers       map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`
	OutputDir     string            `mapstructure:"output_dir" yaml:"output_dir" validate:"required"`
	FileExtension string            `mapstructure:"file_extension" yaml:"file_extension"`
	Extractor     extractor.Config  `mapstructure:"extractor" yaml:"extractor"`
}

// Default returns a profile holding every default value.
func Default() Site {
	return Site{
		StripQuery:    true,
		ChunkSize:     "5MiB",
		Delay:         2 * time.Second,
		Timeout:       30 * time.Second,
		Loader:        loader.ModeDynamic,
		OutputDir:     "texts",
		FileExtension: sink.DefaultExtension,
		Extractor:     extractor.DefaultConfig(),
	}
}

// ChunkSizeBytes parses ChunkSize ("5MiB", "512KB", "1048576").
func (s Site) ChunkSizeBytes() (int64, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s.ChunkSize))
	if err != nil {
		return 0, fmt.Errorf("invalid chunk_size %q: %w", s.ChunkSize, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("invalid chunk_size %q: must be positive", s.ChunkSize)
	}
	return int64(n), nil
}

// CrawlerConfig returns the engine settings for this site.
func (s Site) CrawlerConfig() crawler.Config {
	return crawler.Config{
		BaseURL:      s.BaseURL,
		StripQuery:   s.StripQuery,
		Delay:        s.Delay,
		SameHostOnly: s.SameHostOnly,
	}
}

// LoaderConfig returns the page loader settings for this site.
func (s Site) LoaderConfig() loader.Config {
	cfg := loader.DefaultConfig()
	if s.Timeout > 0 {
		cfg.Timeout = s.Timeout
	}
	cfg.WaitSelector = s.WaitSelector
	cfg.Headers = s.Headers
	return cfg
}

// SinkOptions returns the chunked sink options for this site.
func (s Site) SinkOptions() ([]sink.Option, error) {
	threshold, err := s.ChunkSizeBytes()
	if err != nil {
		return nil, err
	}
	return []sink.Option{
		sink.WithThreshold(threshold),
		sink.WithExtension(s.FileExtension),
	}, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the profile for missing or inconsistent values.
func (s Site) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("site %q: %s", s.Name, strings.Join(msgs, ", "))
		}
		return fmt.Errorf("site %q: %w", s.Name, err)
	}

	if _, err := s.ChunkSizeBytes(); err != nil {
		return fmt.Errorf("site %q: %w", s.Name, err)
	}

	if s.Extractor.WithDefaults().Strategy == extractor.StrategyScript && s.Loader != loader.ModeDynamic {
		return fmt.Errorf("site %q: script extractor requires the dynamic loader", s.Name)
	}

	return nil
}

// Registry holds profiles by name.
type Registry struct {
	sites map[string]Site
}

// NewRegistry creates a registry holding sites.
func NewRegistry(sites ...Site) *Registry {
	r := &Registry{sites: make(map[string]Site)}
	for _, s := range sites {
		r.Add(s)
	}
	return r
}

// Add stores s, replacing any profile with the same name.
func (r *Registry) Add(s Site) {
	r.sites[s.Name] = s
}

// Get returns the profile called name.
func (r *Registry) Get(name string) (Site, error) {
	s, ok := r.sites[name]
	if !ok {
		return Site{}, fmt.Errorf("%w: %s", ErrSiteNotFound, name)
	}
	return s, nil
}

// List returns all profiles sorted by name.
func (r *Registry) List() []Site {
	out := make([]Site, 0, len(r.sites))
	for _, s := range r.sites {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Builtin returns the embedded profiles.
func Builtin() ([]Site, error) {
	sites, err := Parse(builtinYAML)
	if err != nil {
		return nil, fmt.Errorf("builtin profiles: %w", err)
	}
	return sites, nil
}

// LoadFile reads profiles from a YAML file.
func LoadFile(path string) ([]Site, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- CLI tool reads a user-specified profile file
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	sites, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sites, nil
}

type siteFile struct {
	Sites []yaml.Node `yaml:"sites"`
}

// Parse decodes a YAML document with a top-level "sites" list. Keys a
// profile omits keep their default values.
func Parse(data []byte) ([]Site, error) {
	var file siteFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}

	sites := make([]Site, 0, len(file.Sites))
	for i := range file.Sites {
		s := Default()
		if err := file.Sites[i].Decode(&s); err != nil {
			return nil, fmt.Errorf("profile %d: %w", i+1, err)
		}
		sites = append(sites, s)
	}
	return sites, nil
}

// Load builds the registry from the built-ins, the file named by the
// "sites_file" key and the "sites" list of v, in that order.
func Load(v *viper.Viper) (*Registry, error) {
	builtin, err := Builtin()
	if err != nil {
		return nil, err
	}
	r := NewRegistry(builtin...)

	if path := v.GetString("sites_file"); path != "" {
		sites, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		for _, s := range sites {
			r.Add(s)
		}
	}

	raw, ok := v.Get("sites").([]any)
	if !ok {
		return r, nil
	}
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("sites[%d]: expected a mapping", i)
		}
		sv := viper.New()
		if err := sv.MergeConfigMap(m); err != nil {
			return nil, fmt.Errorf("sites[%d]: %w", i, err)
		}
		s := Default()
		if err := sv.Unmarshal(&s); err != nil {
			return nil, fmt.Errorf("sites[%d]: %w", i, err)
		}
		r.Add(s)
	}

	return r, nil
}
