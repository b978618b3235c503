package platform

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/strata/pkg/decoder/tag"
)

// ConfigFileName is the configuration file looked up by FindConfig.
const ConfigFileName = "strata.yaml"

// FileConfig is the YAML configuration file. Zero fields leave the
// defaults in place.
type FileConfig struct {
	Output          string   `yaml:"output"`
	Sink            string   `yaml:"sink"`
	Format          string   `yaml:"format"`
	Decoders        []string `yaml:"decoders"`
	Parallel        int      `yaml:"parallel"`
	TagPolicy       string   `yaml:"tag_policy"`
	LegacyBoolArray bool     `yaml:"legacy_bool_array"`
	Includes        []string `yaml:"includes"`
	Excludes        []string `yaml:"excludes"`
	DeletedPatterns []string `yaml:"deleted_patterns"`
	Index           *bool    `yaml:"index"`
	ReadOnly        bool     `yaml:"read_only"`
	SystemDir       string   `yaml:"system_dir"`
}

// LoadConfig reads a FileConfig. Unknown keys are rejected.
func LoadConfig(path string) (*FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg FileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if _, err := cfg.policy(); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *FileConfig) policy() (tag.Policy, error) {
	switch strings.ToLower(c.TagPolicy) {
	case "", "compat":
		return tag.Compat, nil
	case "strict":
		return tag.Strict, nil
	default:
		return tag.Compat, fmt.Errorf("unknown tag_policy %q", c.TagPolicy)
	}
}

// Options converts the file into functional options. Later options win, so
// callers append flag overrides after these.
func (c *FileConfig) Options() []Option {
	var opts []Option
	if c.Output != "" {
		opts = append(opts, WithOutput(c.Output))
	}
	if c.Sink != "" {
		opts = append(opts, WithSinkAdapter(c.Sink))
	}
	if c.Format != "" {
		opts = append(opts, WithFormat(c.Format))
	}
	if len(c.Decoders) > 0 {
		opts = append(opts, WithDecoders(c.Decoders...))
	}
	if c.Parallel != 0 {
		opts = append(opts, WithParallel(c.Parallel))
	}
	if p, err := c.policy(); err == nil && p != tag.Compat {
		opts = append(opts, WithTagPolicy(p))
	}
	if c.LegacyBoolArray {
		opts = append(opts, WithLegacyBoolArray(true))
	}
	if len(c.Includes) > 0 {
		opts = append(opts, WithIncludes(c.Includes...))
	}
	if len(c.Excludes) > 0 {
		opts = append(opts, WithExcludes(c.Excludes...))
	}
	if len(c.DeletedPatterns) > 0 {
		opts = append(opts, WithDeletedPatterns(c.DeletedPatterns...))
	}
	if c.Index != nil {
		opts = append(opts, WithIndex(*c.Index))
	}
	if c.ReadOnly {
		opts = append(opts, WithReadOnly(true))
	}
	if c.SystemDir != "" {
		opts = append(opts, WithSystemDir(c.SystemDir))
	}
	return opts
}

// FindConfig looks for strata.yaml in startDir and its parents and
// returns its absolute path.
func FindConfig(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		p := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("%s not found", ConfigFileName)
}
