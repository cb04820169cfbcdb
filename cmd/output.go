package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/RyanBlaney/sonido-coach/algorithms/temporal"
	"github.com/RyanBlaney/sonido-coach/performance"
	"github.com/RyanBlaney/sonido-coach/store"
	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

var titleCaser = cases.Title(language.English)

var (
	bold    = color.New(color.Bold)
	faint   = color.New(color.Faint)
	warning = color.New(color.FgYellow)
)

var tierColors = map[performance.Tier]*color.Color{
	performance.TierExcellent: color.New(color.FgGreen, color.Bold),
	performance.TierGood:      color.New(color.FgCyan),
	performance.TierFair:      color.New(color.FgYellow),
	performance.TierPoor:      color.New(color.FgHiRed),
	performance.TierNeedsWork: color.New(color.FgRed, color.Bold),
}

// letterGrade maps a total score to the S+ ... F grade shown to players
func letterGrade(score int) string {
	switch {
	case score >= 95:
		return "S+"
	case score >= 90:
		return "S"
	case score >= 85:
		return "A+"
	case score >= 80:
		return "A"
	case score >= 75:
		return "B+"
	case score >= 70:
		return "B"
	case score >= 65:
		return "C+"
	case score >= 60:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}

// tierLabel renders a tier as "Needs Work"
func tierLabel(tier performance.Tier) string {
	return titleCaser.String(strings.ReplaceAll(string(tier), "_", " "))
}

func colorTier(tier performance.Tier, text string) string {
	if c, ok := tierColors[tier]; ok {
		return c.Sprint(text)
	}
	return text
}

// writeOutput encodes v as json or yaml, or calls table for the table format
func writeOutput(w io.Writer, format string, v any, table func(io.Writer) error) error {
	switch strings.ToLower(format) {
	case "", "table":
		return table(w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		return writeYAML(w, v)
	default:
		return fmt.Errorf("unsupported output format %q (want table, json or yaml)", format)
	}
}

// writeYAML goes through JSON so result types only need json tags
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

func renderAnalysis(w io.Writer, name string, r *performance.AnalysisResult) error {
	fmt.Fprintf(w, "%s\n", bold.Sprint(name))
	fmt.Fprintf(w, "  Duration:        %.2f s @ %d Hz\n", r.DurationSeconds, r.SampleRate)
	fmt.Fprintf(w, "  Tempo:           %.1f BPM (%s)\n", r.EstimatedTempoBPM, temporal.TempoMarking(r.EstimatedTempoBPM))
	fmt.Fprintf(w, "  Key:             %s\n", titleCaser.String(r.EstimatedKey))
	fmt.Fprintf(w, "  Range:           %s\n", r.FrequencyRange)
	fmt.Fprintf(w, "  Pitch samples:   %d\n", len(r.Pitch))
	fmt.Fprintf(w, "  Beats:           %d\n", len(r.Beats))
	fmt.Fprintf(w, "  Timbre frames:   %d\n", len(r.Timbre))
	for _, d := range r.Degraded {
		fmt.Fprintf(w, "  %s\n", warning.Sprintf("degraded %s: %s", d.Feature, d.Reason))
	}
	return nil
}

func renderReport(w io.Writer, r *performance.ComparisonReport) error {
	grade := fmt.Sprintf("%d/100  %s  %s", r.TotalScore, letterGrade(r.TotalScore), tierLabel(r.Tier))
	fmt.Fprintf(w, "%s %s\n\n", bold.Sprint("Score:"), colorTier(r.Tier, grade))
	fmt.Fprintf(w, "%s\n\n", r.Feedback.Overall)

	dimensions := []struct {
		name    string
		score   performance.DimensionScore
		details string
	}{
		{"Pitch", r.Pitch.DimensionScore, r.Feedback.Pitch},
		{"Rhythm", r.Rhythm.DimensionScore, r.Feedback.Rhythm},
		{"Timbre", r.Timbre.DimensionScore, r.Feedback.Timbre},
	}
	for _, d := range dimensions {
		fmt.Fprintf(w, "  %-8s %5.1f  %s\n", d.name, d.score.Score, faint.Sprint(d.details))
		for _, issue := range d.score.Issues {
			fmt.Fprintf(w, "           - %s\n", issue)
		}
	}

	fmt.Fprintf(w, "\n%s\n", bold.Sprint("Strengths"))
	for _, s := range r.Feedback.Strengths {
		fmt.Fprintf(w, "  + %s\n", s)
	}
	fmt.Fprintf(w, "%s\n", bold.Sprint("Improvements"))
	for _, s := range r.Feedback.Improvements {
		fmt.Fprintf(w, "  - %s\n", s)
	}
	for _, n := range r.Feedback.Notes {
		fmt.Fprintf(w, "%s\n", warning.Sprint("note: "+n))
	}
	return nil
}

func renderHistory(w io.Writer, records []store.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No saved reports.")
		return nil
	}
	fmt.Fprintf(w, "%-5s %-20s %-6s %-5s %-11s %s\n", "ID", "DATE", "SCORE", "GRADE", "TIER", "RECORDING")
	for _, rec := range records {
		fmt.Fprintf(w, "%-5d %-20s %-6d %-5s %s %s\n",
			rec.ID,
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			rec.TotalScore,
			letterGrade(rec.TotalScore),
			colorTier(rec.Tier, fmt.Sprintf("%-11s", tierLabel(rec.Tier))),
			rec.Recording,
		)
	}
	return nil
}
