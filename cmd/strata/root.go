package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/strata"
	"github.com/aretw0/strata/internal/platform"
)

var (
	verbose    bool
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Recover P2P client activity from forensic exports",
	Long: `Strata recognizes the state files left by eMule, Kademlia, uTorrent and
qBittorrent in a folder exported from a suspect machine, decodes them and
consolidates them into deduplicated evidence records with provenance.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (default: strata.yaml in the working directory or a parent)")
}

// engineFlags are shared by the commands that build an engine.
type engineFlags struct {
	output          string
	sink            string
	format          string
	decoders        []string
	parallel        int
	strict          bool
	legacyBoolArray bool
	includes        []string
	excludes        []string
	deleted         []string
	noIndex         bool
	readOnly        bool
}

func (f *engineFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "Output directory (fs sink) or database file (sqlite sink)")
	fl.StringVar(&f.sink, "sink", "", "Sink adapter: fs, sqlite or none")
	fl.StringVar(&f.format, "format", "", "Evidence file format for the fs sink: .json, .yaml or .cbor")
	fl.StringSliceVar(&f.decoders, "decoders", nil, "Only try these artifact formats (see 'strata formats')")
	fl.IntVarP(&f.parallel, "parallel", "p", 0, "Decode up to N folders at once")
	fl.BoolVar(&f.strict, "strict", false, "Fail records holding tags of unsupported types")
	fl.BoolVar(&f.legacyBoolArray, "legacy-bool-array", false, "Skip L/8+1 bytes for BOOLARRAY tags")
	fl.StringSliceVar(&f.includes, "include", nil, "Only walk paths matching these globs")
	fl.StringSliceVar(&f.excludes, "exclude", nil, "Skip paths matching these globs")
	fl.StringSliceVar(&f.deleted, "deleted", nil, "Mark paths matching these globs as deleted")
	fl.BoolVar(&f.noIndex, "no-index", false, "Do not read or write the scan index")
	fl.BoolVar(&f.readOnly, "read-only", false, "Never write to the output")
}

// options merges the configuration file with the flags the user set.
func (f *engineFlags) options(cmd *cobra.Command) ([]strata.Option, error) {
	var opts []strata.Option

	path := configPath
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			if found, err := platform.FindConfig(wd); err == nil {
				path = found
			}
		}
	}
	if path != "" {
		cfg, err := platform.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		slog.Debug("configuration loaded", "path", path)
		opts = append(opts, cfg.Options()...)
	}

	fl := cmd.Flags()
	if fl.Changed("output") {
		opts = append(opts, strata.WithOutput(f.output))
	}
	if fl.Changed("sink") {
		opts = append(opts, strata.WithSinkAdapter(f.sink))
	}
	if fl.Changed("format") {
		opts = append(opts, strata.WithFormat(f.format))
	}
	if fl.Changed("decoders") {
		opts = append(opts, strata.WithDecoders(f.decoders...))
	}
	if fl.Changed("parallel") {
		opts = append(opts, strata.WithParallel(f.parallel))
	}
	if fl.Changed("strict") {
		policy := strata.TagPolicyCompat
		if f.strict {
			policy = strata.TagPolicyStrict
		}
		opts = append(opts, strata.WithTagPolicy(policy))
	}
	if fl.Changed("legacy-bool-array") {
		opts = append(opts, strata.WithLegacyBoolArray(f.legacyBoolArray))
	}
	if fl.Changed("include") {
		opts = append(opts, strata.WithIncludes(f.includes...))
	}
	if fl.Changed("exclude") {
		opts = append(opts, strata.WithExcludes(f.excludes...))
	}
	if fl.Changed("deleted") {
		opts = append(opts, strata.WithDeletedPatterns(f.deleted...))
	}
	if fl.Changed("no-index") {
		opts = append(opts, strata.WithIndex(!f.noIndex))
	}
	if fl.Changed("read-only") {
		opts = append(opts, strata.WithReadOnly(f.readOnly))
	}

	return append(opts, strata.WithLogger(slog.Default())), nil
}
