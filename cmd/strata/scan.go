package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"github.com/spf13/cobra"

	"github.com/aretw0/strata"
	"github.com/aretw0/strata/pkg/core"
)

var (
	scanFlags engineFlags
	scanJSON  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <input>",
	Short: "Scan an exported folder and write the consolidated evidence",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := scanFlags.options(cmd)
		if err != nil {
			fatal("Error loading configuration", err)
		}

		eng, err := strata.New(args[0], opts...)
		if err != nil {
			fatal("Error initializing strata", err)
		}
		defer eng.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		report, err := eng.Run(ctx)
		if err != nil {
			fatal("Error scanning", err)
		}

		if scanJSON {
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				fatal("Error encoding report", err)
			}
			fmt.Println(string(out))
			return
		}
		printReport(report)
	},
}

func printReport(report core.RunReport) {
	fmt.Printf("%d evidence records\n", report.Total)
	kinds := make([]string, 0, len(report.ByKind))
	for k := range report.ByKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Printf("  %-26s %d\n", k, report.ByKind[core.EvidenceKind(k)])
	}
}

func init() {
	scanFlags.register(scanCmd)
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print the run report as JSON")
	rootCmd.AddCommand(scanCmd)
}
