package cmd

import (
	"context"
	"io"
	"os"

	"github.com/RyanBlaney/sonido-coach/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved comparison reports, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10,
		"maximum number of reports to list (0 lists all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	path := viper.GetString("db")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return writeOutput(os.Stdout, viper.GetString("output"), []store.Record{}, func(w io.Writer) error {
			return renderHistory(w, nil)
		})
	}

	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.List(ctx, historyLimit)
	if err != nil {
		return err
	}

	return writeOutput(os.Stdout, viper.GetString("output"), records, func(w io.Writer) error {
		return renderHistory(w, records)
	})
}
