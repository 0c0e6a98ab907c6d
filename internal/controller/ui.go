// Package controller provides the output surfaces for search runs: a plain
// text printer for pipes and logs, and an interactive terminal view.
package controller

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "github.com/whr0724/genprog-code/internal/model"
)

// EditEstimate summarizes the candidate search space for one operator kind.
type EditEstimate struct {
	Operator   string
	Candidates int
	TopWeight  float64
}

// UI is the display surface for a search run. Implementations can render
// plain text or an interactive terminal view.
type UI interface {
	Start(ctx context.Context) error
	Close(ctx context.Context)
	Wait(ctx context.Context)

	// DisplayEstimation shows the candidate-edit counts per operator.
	DisplayEstimation(ctx context.Context, estimates []EditEstimate, total int) error

	// DisplayRunInfo announces the search configuration.
	DisplayRunInfo(ctx context.Context, mode string, demes int, popSize, generations int)

	// DisplayGeneration reports one deme generation's fitness summary.
	DisplayGeneration(ctx context.Context, deme, gen int, best, mean, max float64)

	// DisplayTrial reports brute-force progress.
	DisplayTrial(ctx context.Context, trial, total int, best float64)

	// DisplayResult shows the final outcome, including the repair diff when
	// one was found.
	DisplayResult(ctx context.Context, result m.RepairResult)
}

// IsTTY reports whether the file is an interactive terminal.
func IsTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewUI picks the TUI on interactive terminals and the simple printer
// otherwise.
func NewUI(cmd *cobra.Command, interactive bool) UI {
	if interactive {
		return NewTUI(os.Stdout)
	}

	return NewSimpleUI(cmd)
}
