// Package fitness evaluates candidate variants against the target test
// suite and caches scores by edit-history fingerprint.
package fitness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/whr0724/genprog-code/internal/adapter"
	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/rep"
)

// Evaluator scores variants. Higher is better; a variant whose fitness
// equals MaxFitness passes the entire suite and is a solution.
type Evaluator interface {
	Evaluate(ctx context.Context, r rep.Representation) (float64, error)
	MaxFitness() float64
}

// IsSolution reports whether fitness reaches the solution threshold.
func IsSolution(e Evaluator, fitness float64) bool {
	return fitness >= e.MaxFitness()
}

// Config describes the target project for test-based evaluation.
type Config struct {
	// ProjectRoot is the directory copied into each evaluation workspace.
	ProjectRoot m.Path
	// PositiveTests pass on the original program and must keep passing.
	PositiveTests []string
	// NegativeTests fail on the original program and encode the bug.
	NegativeTests []string
}

// TestEvaluator stages a variant in a temporary copy of the project,
// compiles it and runs the named tests. A variant that fails to compile
// receives the sentinel minimum fitness and stays in the population, where
// selection will work against it.
type TestEvaluator struct {
	fs     adapter.SourceFSAdapter
	runner adapter.TestRunnerAdapter
	cfg    Config
}

// NewTestEvaluator constructs a TestEvaluator.
func NewTestEvaluator(fs adapter.SourceFSAdapter, runner adapter.TestRunnerAdapter, cfg Config) *TestEvaluator {
	return &TestEvaluator{fs: fs, runner: runner, cfg: cfg}
}

// MaxFitness is the number of positive tests.
func (e *TestEvaluator) MaxFitness() float64 {
	return float64(len(e.cfg.PositiveTests))
}

// Evaluate scores one variant. The score is
// posPassed * (negPassed / negTotal), which reaches the positive-test count
// exactly when every test passes and stays monotone in both counts.
func (e *TestEvaluator) Evaluate(ctx context.Context, r rep.Representation) (float64, error) {
	workDir, err := e.stageVariant(r)
	if workDir != "" {
		defer func() {
			if rmErr := e.fs.RemoveAll(workDir); rmErr != nil {
				slog.Warn("failed to remove evaluation workspace", "dir", workDir, "error", rmErr)
			}
		}()
	}

	if err != nil {
		return 0, err
	}

	if out, err := e.runner.Compile(ctx, string(workDir)); err != nil {
		slog.Debug("variant does not compile", "fingerprint", r.Fingerprint(), "output", truncate(out))
		return 0, nil
	}

	posPassed := e.countPassing(ctx, workDir, e.cfg.PositiveTests)
	negPassed := e.countPassing(ctx, workDir, e.cfg.NegativeTests)

	negTotal := len(e.cfg.NegativeTests)
	if negTotal == 0 {
		return float64(posPassed), nil
	}

	return float64(posPassed) * float64(negPassed) / float64(negTotal), nil
}

func (e *TestEvaluator) stageVariant(r rep.Representation) (m.Path, error) {
	tmpDir, err := e.fs.CreateTempDir("genprog-variant-*")
	if err != nil {
		return "", fmt.Errorf("create evaluation workspace: %w", err)
	}

	if err := e.fs.CopyDir(e.cfg.ProjectRoot, tmpDir); err != nil {
		return tmpDir, fmt.Errorf("copy project: %w", err)
	}

	files, err := r.Materialize()
	if err != nil {
		return tmpDir, fmt.Errorf("materialize variant: %w", err)
	}

	for path, src := range files {
		rel, err := e.fs.RelPath(e.cfg.ProjectRoot, path)
		if err != nil {
			return tmpDir, fmt.Errorf("relativize %s: %w", path, err)
		}

		target := e.fs.JoinPath(string(tmpDir), string(rel))
		if err := e.fs.WriteFile(target, []byte(src), 0o600); err != nil {
			return tmpDir, fmt.Errorf("write variant file %s: %w", target, err)
		}
	}

	return tmpDir, nil
}

func (e *TestEvaluator) countPassing(ctx context.Context, workDir m.Path, tests []string) int {
	passed := 0

	for _, name := range tests {
		if _, err := e.runner.RunTest(ctx, string(workDir), name); err == nil {
			passed++
		}
	}

	return passed
}

func truncate(s string) string {
	const limit = 400
	if len(s) <= limit {
		return s
	}

	return s[:limit] + "..."
}
