package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/corey/eiji/internal/domain/corpus"
	"github.com/corey/eiji/internal/domain/index"
)

// DefaultConfigFile is looked up in the working directory when no --config
// flag is given.
const DefaultConfigFile = "eiji.yaml"

// DefaultPager pages results at the top, quitting without a prompt on short
// output and keeping ANSI colors.
const DefaultPager = "less -R -M +Gg -s"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// DictionaryConfig describes one dictionary: where its source is, how to
// normalize it, and where its derived files go.
type DictionaryConfig struct {
	Name    string `yaml:"name"`
	Group   string `yaml:"group,omitempty"`  // presentation group; defaults to Name
	Format  string `yaml:"format,omitempty"` // corpus.Format; defaults to plain
	Source  string `yaml:"source"`
	Source2 string `yaml:"source2,omitempty"` // second file of a parallel corpus
	Stem    string `yaml:"stem,omitempty"`    // artifact file stem; defaults to upper-cased Name

	Text    string `yaml:"text,omitempty"`
	Keys    string `yaml:"keys,omitempty"`
	Payload string `yaml:"payload,omitempty"`

	License []string `yaml:"license,omitempty"` // files printed by :license
}

// IndexPaths returns the dictionary's index files.
func (d DictionaryConfig) IndexPaths() index.Paths {
	return index.Paths{Keys: d.Keys, Payload: d.Payload, Corpus: d.Text}
}

// Sources returns the source files the dictionary is built from.
func (d DictionaryConfig) Sources() []string {
	if d.Source2 != "" {
		return []string{d.Source, d.Source2}
	}
	return []string{d.Source}
}

// Config is the resolved runtime configuration.
type Config struct {
	DataDir       string             `yaml:"data_dir"`
	KeyWidth      int                `yaml:"key_width"`
	MaxRecords    int                `yaml:"max_records"`
	Workers       int                `yaml:"workers"` // 0 means GOMAXPROCS
	Pager         string             `yaml:"pager"`   // empty disables paging
	WatchDebounce time.Duration      `yaml:"watch_debounce"`
	Dictionaries  []DictionaryConfig `yaml:"dictionaries"`
}

// Defaults returns the stock setup: EDICT and EIJIRO presented together,
// then subtitles, then REIJIRO examples, then the IPA-annotated Webster 1913
// and WordNet texts.
func Defaults() *Config {
	return &Config{
		DataDir:       ".",
		KeyWidth:      index.KeyWidth12,
		MaxRecords:    index.DefaultMaxRecords,
		Pager:         DefaultPager,
		WatchDebounce: 500 * time.Millisecond,
		Dictionaries: []DictionaryConfig{
			{Name: "edict", Group: "main", Format: string(corpus.FormatPlain), Source: "eiji-dict/edict.tab", Stem: "EDICT"},
			{Name: "eijiro", Group: "main", Format: string(corpus.FormatEijiro), Source: "EIJIRO-1448.TXT", Stem: "EIJIRO-1448"},
			{Name: "subtitle", Group: "subtitle", Format: string(corpus.FormatPlain), Source: "eiji-dict/train", Stem: "SUBTITLE"},
			{Name: "reijiro", Group: "reijiro", Format: string(corpus.FormatReijiro), Source: "REIJI-1441.TXT", Stem: "REIJI-1441"},
			{Name: "webster", Group: "webster", Format: string(corpus.FormatPlain), Source: "websters-1913-ipa.txt", Stem: "WEBSTER",
				License: []string{"beep/README", "beep/ACKNOWLEDGEMENTS"}},
			{Name: "wordnet", Group: "wordnet", Format: string(corpus.FormatPlain), Source: "wordnet-ipa.txt", Stem: "WORDNET",
				License: []string{"beep/README", "beep/ACKNOWLEDGEMENTS", "WordNet-2.0/LICENSE"}},
		},
	}
}

// LoadConfig reads a YAML config over Defaults. Unknown fields are rejected.
// A non-empty dictionaries list replaces the default list wholesale.
// path == "" returns Defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := decodeConfig(bytes.NewReader(data), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func decodeConfig(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Resolve fills per-dictionary defaults and makes every path absolute.
// Relative sources resolve against DataDir; derived files default to
// .eiji/index/<STEM>_{NGRAM,INDEX,TEXT}.
func (c *Config) Resolve() error {
	if c.DataDir == "" {
		c.DataDir = "."
	}
	abs, err := filepath.Abs(c.DataDir)
	if err != nil {
		return err
	}
	c.DataDir = abs
	paths := NewPaths(abs)

	for i := range c.Dictionaries {
		d := &c.Dictionaries[i]
		if d.Group == "" {
			d.Group = d.Name
		}
		if d.Format == "" {
			d.Format = string(corpus.FormatPlain)
		}
		if d.Stem == "" {
			d.Stem = strings.ToUpper(d.Name)
		}
		keys, payload, text := paths.Artifacts(d.Stem)
		d.Source = c.resolve(d.Source, d.Source)
		d.Source2 = c.resolve(d.Source2, d.Source2)
		d.Keys = c.resolve(d.Keys, keys)
		d.Payload = c.resolve(d.Payload, payload)
		d.Text = c.resolve(d.Text, text)
		for j, l := range d.License {
			d.License[j] = c.resolve(l, l)
		}
	}
	return nil
}

func (c *Config) resolve(p, fallback string) string {
	if p == "" {
		p = fallback
	}
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	if err := index.ValidateWidth(c.KeyWidth); err != nil {
		errs = append(errs, err)
	}
	if c.MaxRecords <= 0 {
		errs = append(errs, fmt.Errorf("max_records must be positive, got %d", c.MaxRecords))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.WatchDebounce < 0 {
		errs = append(errs, fmt.Errorf("watch_debounce must not be negative, got %s", c.WatchDebounce))
	}
	if len(c.Dictionaries) == 0 {
		errs = append(errs, errors.New("no dictionaries configured"))
	}

	seen := make(map[string]bool, len(c.Dictionaries))
	for i, d := range c.Dictionaries {
		if d.Name == "" {
			errs = append(errs, fmt.Errorf("dictionaries[%d]: name is required", i))
			continue
		}
		if seen[d.Name] {
			errs = append(errs, fmt.Errorf("dictionary %s: duplicate name", d.Name))
		}
		seen[d.Name] = true

		f, err := corpus.ParseFormat(d.Format)
		if err != nil {
			errs = append(errs, fmt.Errorf("dictionary %s: %w", d.Name, err))
			continue
		}
		if d.Source == "" && d.Text == "" {
			errs = append(errs, fmt.Errorf("dictionary %s: source or text is required", d.Name))
		}
		if f.NeedsSecondSource() && d.Source2 == "" {
			errs = append(errs, fmt.Errorf("dictionary %s: format %s needs source2", d.Name, f))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Groups returns group names in first-appearance order.
func (c *Config) Groups() []string {
	var out []string
	seen := map[string]bool{}
	for _, d := range c.Dictionaries {
		g := d.Group
		if g == "" {
			g = d.Name
		}
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out
}

// LicenseFiles returns every dictionary's license files, first appearance
// wins.
func (c *Config) LicenseFiles() []string {
	var out []string
	seen := map[string]bool{}
	for _, d := range c.Dictionaries {
		for _, l := range d.License {
			if !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	return out
}

// PagerCommand splits Pager into argv. An empty result means no pager.
func (c *Config) PagerCommand() []string {
	return strings.Fields(c.Pager)
}

// RetrieveOptions returns the per-query retrieval settings.
func (c *Config) RetrieveOptions() index.RetrieveOptions {
	return index.RetrieveOptions{MaxRecords: c.MaxRecords, Workers: c.Workers}
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
