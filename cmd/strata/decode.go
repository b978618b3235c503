package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/strata/pkg/bytesource"
	"github.com/aretw0/strata/pkg/decoder/tag"
	"github.com/aretw0/strata/pkg/scan"
)

var (
	decodeFormats   []string
	decodeStrict    bool
	decodeLegacyBit bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode <file>",
	Short: "Decode one artifact and print its record as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		policy := tag.Compat
		if decodeStrict {
			policy = tag.Strict
		}
		scanner, err := scan.New(scan.Config{
			Logger:  slog.Default(),
			Tags:    tag.Options{Policy: policy, LegacyBoolArray: decodeLegacyBit},
			Formats: decodeFormats,
		})
		if err != nil {
			fatal("Error initializing decoder", err)
		}

		f, err := bytesource.OpenFile(args[0])
		if err != nil {
			fatal("Error opening file", err)
		}
		defer f.Close()

		name, rec, ok, err := scanner.Decode(bytesource.New(f))
		if err != nil {
			fatal("Error reading file", err)
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "%s: not a recognized artifact\n", args[0])
			os.Exit(2)
		}

		out, err := json.MarshalIndent(struct {
			Format string `json:"format"`
			Record any    `json:"record"`
		}{name, rec}, "", "  ")
		if err != nil {
			fatal("Error encoding record", err)
		}
		fmt.Println(string(out))
	},
}

func init() {
	decodeCmd.Flags().StringSliceVar(&decodeFormats, "decoders", nil, "Only try these artifact formats")
	decodeCmd.Flags().BoolVar(&decodeStrict, "strict", false, "Fail records holding tags of unsupported types")
	decodeCmd.Flags().BoolVar(&decodeLegacyBit, "legacy-bool-array", false, "Skip L/8+1 bytes for BOOLARRAY tags")
	rootCmd.AddCommand(decodeCmd)
}
