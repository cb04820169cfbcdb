package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/RyanBlaney/sonido-coach/logging"
	"github.com/RyanBlaney/sonido-coach/performance"
	"github.com/RyanBlaney/sonido-coach/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var compareSave bool

var compareCmd = &cobra.Command{
	Use:   "compare [reference] [recording]",
	Short: "Grade a recording against a reference performance",
	Long: `Decode and analyse both files concurrently, then score the recording's
pitch, rhythm and timbre against the reference and print feedback. Either
file may be "-" to read it from standard input.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().BoolVar(&compareSave, "save", false,
		"save the report to the history database")
}

// comparisonOutput is the json and yaml form of a compare run
type comparisonOutput struct {
	Reference string                        `json:"reference"`
	Recording string                        `json:"recording"`
	Grade     string                        `json:"grade"`
	Report    *performance.ComparisonReport `json:"report"`
	SavedID   int64                         `json:"saved_id,omitempty"`
}

func runCompare(cmd *cobra.Command, args []string) error {
	if err := checkInputs(args...); err != nil {
		return err
	}
	cfg, err := loadAppConfig(viper.GetViper())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reference, recording, err := analyzePair(ctx, cfg, args[0], args[1], cmd.InOrStdin())
	if err != nil {
		return err
	}

	comparator, err := performance.NewComparator(cfg.Comparison)
	if err != nil {
		return err
	}
	report, err := comparator.Compare(reference, recording)
	if err != nil {
		return err
	}

	out := comparisonOutput{
		Reference: inputLabel(args[0]),
		Recording: inputLabel(args[1]),
		Grade:     letterGrade(report.TotalScore),
		Report:    report,
	}

	if compareSave {
		id, err := saveReport(ctx, viper.GetString("db"), out.Reference, out.Recording, report)
		if err != nil {
			return err
		}
		out.SavedID = id
	}

	return writeOutput(os.Stdout, viper.GetString("output"), out, func(w io.Writer) error {
		fmt.Fprintf(w, "%s vs %s\n\n", displayName(args[1]), displayName(args[0]))
		if err := renderReport(w, report); err != nil {
			return err
		}
		if out.SavedID > 0 {
			fmt.Fprintf(w, "\nSaved as report #%d\n", out.SavedID)
		}
		return nil
	})
}

// analyzePair analyses both files concurrently. The first failure cancels the
// other run.
func analyzePair(ctx context.Context, cfg *appConfig, referencePath, recordingPath string, stdin io.Reader) (reference, recording *performance.AnalysisResult, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reference, err = analyzeFile(gctx, cfg, referencePath, stdin)
		return err
	})
	g.Go(func() error {
		var err error
		recording, err = analyzeFile(gctx, cfg, recordingPath, stdin)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return reference, recording, nil
}

func saveReport(ctx context.Context, path, reference, recording string, report *performance.ComparisonReport) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create database directory: %w", err)
	}

	st, err := store.Open(path)
	if err != nil {
		return 0, err
	}
	defer st.Close()

	id, err := st.Save(ctx, reference, recording, report)
	if err != nil {
		return 0, err
	}
	logging.Info("report saved", logging.Fields{"id": id, "db": path})
	return id, nil
}
