package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/RyanBlaney/sonido-coach/performance"
	"github.com/RyanBlaney/sonido-coach/transcode"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// stdinPath in place of a file name reads audio from standard input
const stdinPath = "-"

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file|-]",
	Short: "Extract pitch, tempo, timbre and loudness from an audio file",
	Long: `Decode an audio file and print its pitch, tempo, key, timbre and loudness
analysis. Use "-" to read the audio from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig(viper.GetViper())
	if err != nil {
		return err
	}

	result, err := analyzeFile(cmd.Context(), cfg, args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	return writeOutput(os.Stdout, viper.GetString("output"), result, func(w io.Writer) error {
		return renderAnalysis(w, displayName(args[0]), result)
	})
}

// analyzeFile decodes path, or stdin when path is "-", and runs the analysis
// pipeline over it
func analyzeFile(ctx context.Context, cfg *appConfig, path string, stdin io.Reader) (*performance.AnalysisResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	decoder := transcode.NewDecoder(&cfg.Decoder)
	var (
		buf *performance.SampleBuffer
		err error
	)
	if path == stdinPath {
		buf, err = decoder.DecodeReader(ctx, stdin)
	} else {
		buf, err = decoder.DecodeFile(ctx, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", inputLabel(path), err)
	}

	analyzer, err := performance.NewAnalyzer(cfg.Analysis)
	if err != nil {
		return nil, err
	}

	result, err := analyzer.Analyze(ctx, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze %s: %w", inputLabel(path), err)
	}
	return result, nil
}

// inputLabel names an input in messages and saved reports
func inputLabel(path string) string {
	if path == stdinPath {
		return "standard input"
	}
	return path
}

func displayName(path string) string {
	if path == stdinPath {
		return "stdin"
	}
	return filepath.Base(path)
}

// checkInputs allows at most one input to come from standard input
func checkInputs(paths ...string) error {
	count := 0
	for _, p := range paths {
		if p == stdinPath {
			count++
		}
	}
	if count > 1 {
		return fmt.Errorf("only one input can be read from standard input")
	}
	return nil
}
