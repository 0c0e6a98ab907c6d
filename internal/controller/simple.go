package controller

import (
	"bytes"
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "github.com/whr0724/genprog-code/internal/model"
)

// SimpleUI implements UI using the cobra command's printer.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context) error {
	return ctx.Err()
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(_ context.Context) {}

// DisplayEstimation prints the candidate-edit counts per operator.
func (s *SimpleUI) DisplayEstimation(ctx context.Context, estimates []EditEstimate, total int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Operator", "Candidates", "Top Weight"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER})

	for _, est := range estimates {
		table.Append([]string{est.Operator, fmt.Sprintf("%d", est.Candidates), fmt.Sprintf("%.3f", est.TopWeight)})
	}

	table.SetFooter([]string{"Total", fmt.Sprintf("%d", total), ""})
	table.Render()

	s.printf("\n%s", buf.String())

	return nil
}

// DisplayRunInfo announces the search configuration.
func (s *SimpleUI) DisplayRunInfo(ctx context.Context, mode string, demes, popSize, generations int) {
	if ctx.Err() != nil {
		return
	}

	s.printf("Starting %s search: %d deme(s), population %d, %d generation(s)\n",
		mode, demes, popSize, generations)
}

// DisplayGeneration reports one deme generation's fitness summary.
func (s *SimpleUI) DisplayGeneration(ctx context.Context, deme, gen int, best, mean, max float64) {
	if ctx.Err() != nil {
		return
	}

	s.printf("deme %d gen %d: best %.2f mean %.2f (solution at %.2f)\n", deme, gen, best, mean, max)
}

// DisplayTrial reports brute-force progress every few hundred trials.
func (s *SimpleUI) DisplayTrial(ctx context.Context, trial, total int, best float64) {
	if ctx.Err() != nil {
		return
	}

	if trial%200 != 0 && trial != total {
		return
	}

	s.printf("trial %d/%d: best fitness %.2f\n", trial, total, best)
}

// DisplayResult shows the final outcome.
func (s *SimpleUI) DisplayResult(ctx context.Context, result m.RepairResult) {
	if ctx.Err() != nil {
		return
	}

	if !result.Solved {
		s.printf("\nNo repair found after %d trial(s); best fitness %.2f\n", result.Trials, result.Fitness)
		return
	}

	s.printf("\nRepair found after %d trial(s)\n", result.Trials)

	if result.History != "" {
		s.printf("edits: %s\n", result.History)
	}

	if result.Diff != "" {
		s.printf("\n%s\n", result.Diff)
	}
}

func (s *SimpleUI) printf(format string, args ...any) {
	s.cmd.Printf(format, args...)
}
