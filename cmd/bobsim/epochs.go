package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sarchlab/bobsim/datarecording"
	"github.com/sarchlab/bobsim/tracing"
	"github.com/spf13/cobra"
)

var epochsCmd = &cobra.Command{
	Use:   "epochs [database]",
	Short: "Print the epoch statistics recorded by a run.",
	Long: "Epochs reads the sqlite file written by `run --record` and " +
		"prints the bandwidth, latency and power of every epoch.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		reader := datarecording.NewReader(args[0])
		defer reader.Close()

		return printEpochs(cmd.Context(), reader, limit, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(epochsCmd)
	epochsCmd.Flags().Int("limit", 0, "Print at most this many epochs.")
}

func printEpochs(
	ctx context.Context,
	reader datarecording.DataReader,
	limit int,
	w io.Writer,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	reader.MapTable(tracing.SystemEpochTable, tracing.SystemEpochEntry{})

	results, total, err := reader.Query(ctx, tracing.SystemEpochTable,
		datarecording.QueryParams{OrderBy: "Epoch", Limit: limit})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%6s %12s %10s %10s %10s %10s\n",
		"epoch", "cycle", "GB/s", "lat(ns)", "max(ns)", "power(W)")

	for _, r := range results {
		e := r.(*tracing.SystemEpochEntry)
		fmt.Fprintf(w, "%6d %12d %10.4f %10.2f %10.2f %10.3f\n",
			e.Epoch, e.Cycle, e.Bandwidth, e.MeanLatency, e.MaxLatency,
			e.SystemPower)
	}

	fmt.Fprintf(w, "%d of %d epochs\n", len(results), total)

	return nil
}
