// Package domain wires the repair engine together: loading, localization,
// search and result reporting.
package domain

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/whr0724/genprog-code/internal/adapter"
	"github.com/whr0724/genprog-code/internal/fitness"
	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/rep"
	"github.com/whr0724/genprog-code/internal/store"
)

// Weights assigned to fault sites depending on which test paths execute
// them: statements only the failing tests reach are the prime suspects.
const (
	negOnlyWeight = 1.0
	sharedWeight  = 0.1
	fixWeight     = 1.0
)

// Localizer derives the weighted fault and fix paths for a program.
type Localizer struct {
	fs     adapter.SourceFSAdapter
	runner adapter.TestRunnerAdapter

	// Coverage tunes the emitted instrumentation.
	Coverage rep.CoverageOptions
}

// NewLocalizer constructs a Localizer.
func NewLocalizer(fs adapter.SourceFSAdapter, runner adapter.TestRunnerAdapter) *Localizer {
	return &Localizer{fs: fs, runner: runner}
}

// Localize produces the fault and fix paths. Manifest-supplied weights win;
// otherwise both paths are derived from statement coverage of the positive
// and negative tests. Fix-path ids are canonicalized and deduplicated;
// fault ids never are.
func (l *Localizer) Localize(ctx context.Context, original rep.Representation, man m.Manifest, cfg fitness.Config) (fault, fix m.Localization, err error) {
	fault = man.FaultLocalization()
	fix = man.FixLocalization()

	if fault == nil || fix == nil {
		posSet, negSet, covErr := l.coverageSets(ctx, original, cfg)
		if covErr != nil {
			return nil, nil, covErr
		}

		if fault == nil {
			fault = faultFromCoverage(posSet, negSet)
		}

		if fix == nil {
			fix = fixFromCoverage(posSet, negSet)
		}
	}

	fix = canonicalizeFix(original.Store(), fix)

	if len(fault) == 0 {
		slog.Warn("fault localization is empty; the failing tests reach no numbered statement")
	}

	return fault, fix, nil
}

// coverageSets stages the instrumented program and collects the statement
// ids executed by the positive and the negative tests.
func (l *Localizer) coverageSets(ctx context.Context, original rep.Representation, cfg fitness.Config) (posSet, negSet map[m.AtomID]struct{}, err error) {
	tmpDir, err := l.fs.CreateTempDir("genprog-coverage-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create coverage workspace: %w", err)
	}

	defer func() {
		if rmErr := l.fs.RemoveAll(tmpDir); rmErr != nil {
			slog.Warn("failed to remove coverage workspace", "dir", tmpDir, "error", rmErr)
		}
	}()

	if err := l.fs.CopyDir(cfg.ProjectRoot, tmpDir); err != nil {
		return nil, nil, fmt.Errorf("copy project for coverage: %w", err)
	}

	tracePath := l.fs.JoinPath(string(tmpDir), "genprog-trace.txt")

	files, err := original.Instrument(tracePath, l.Coverage)
	if err != nil {
		return nil, nil, fmt.Errorf("instrument program: %w", err)
	}

	var helperDir m.Path

	for path, src := range files {
		if string(path) == rep.CoverageHelperFile {
			continue
		}

		rel, relErr := l.fs.RelPath(cfg.ProjectRoot, path)
		if relErr != nil {
			return nil, nil, fmt.Errorf("relativize %s: %w", path, relErr)
		}

		target := l.fs.JoinPath(string(tmpDir), string(rel))

		// The generated helper lands next to the lexically first
		// instrumented file; all targets share one package.
		dir := m.Path(filepath.Dir(string(target)))
		if helperDir == "" || dir < helperDir {
			helperDir = dir
		}

		if err := l.fs.WriteFile(target, []byte(src), 0o600); err != nil {
			return nil, nil, fmt.Errorf("write instrumented file %s: %w", target, err)
		}
	}

	helperPath := l.fs.JoinPath(string(helperDir), rep.CoverageHelperFile)
	if err := l.fs.WriteFile(helperPath, []byte(files[m.Path(rep.CoverageHelperFile)]), 0o600); err != nil {
		return nil, nil, fmt.Errorf("write coverage helper: %w", err)
	}

	posSet, err = l.runAndCollect(ctx, tmpDir, tracePath, cfg.PositiveTests)
	if err != nil {
		return nil, nil, err
	}

	negSet, err = l.runAndCollect(ctx, tmpDir, tracePath, cfg.NegativeTests)
	if err != nil {
		return nil, nil, err
	}

	return posSet, negSet, nil
}

func (l *Localizer) runAndCollect(ctx context.Context, workDir m.Path, tracePath m.Path, tests []string) (map[m.AtomID]struct{}, error) {
	if err := os.RemoveAll(string(tracePath)); err != nil {
		return nil, fmt.Errorf("reset trace file: %w", err)
	}

	for _, name := range tests {
		// Coverage wants the executed path, pass or fail.
		if _, err := l.runner.RunTest(ctx, string(workDir), name); err != nil {
			slog.Debug("test failed during coverage collection", "test", name)
		}
	}

	return readTrace(tracePath)
}

// readTrace parses the one-id-per-line trace emitted by the instrumented
// program. A missing file means no statement executed.
func readTrace(tracePath m.Path) (map[m.AtomID]struct{}, error) {
	f, err := os.Open(string(tracePath))
	if err != nil {
		if os.IsNotExist(err) {
			return map[m.AtomID]struct{}{}, nil
		}

		return nil, fmt.Errorf("open trace %s: %w", tracePath, err)
	}

	defer func() {
		_ = f.Close()
	}()

	out := make(map[m.AtomID]struct{})
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		id, err := strconv.Atoi(line)
		if err != nil {
			slog.Warn("skipping malformed trace line", "line", line)
			continue
		}

		out[m.AtomID(id)] = struct{}{}
	}

	return out, scanner.Err()
}

// faultFromCoverage weights statements the failing tests execute:
// full weight when only failing tests reach them, a token weight when the
// passing tests share the path.
func faultFromCoverage(posSet, negSet map[m.AtomID]struct{}) m.Localization {
	out := make(m.Localization, 0, len(negSet))

	for id := range negSet {
		weight := negOnlyWeight
		if _, shared := posSet[id]; shared {
			weight = sharedWeight
		}

		out = append(out, m.WeightedAtom{ID: id, Weight: weight})
	}

	sortLocalization(out)

	return out
}

// fixFromCoverage uses every executed statement as a donor site.
func fixFromCoverage(posSet, negSet map[m.AtomID]struct{}) m.Localization {
	seen := make(map[m.AtomID]struct{}, len(posSet)+len(negSet))
	out := make(m.Localization, 0, len(posSet)+len(negSet))

	for id := range posSet {
		seen[id] = struct{}{}
		out = append(out, m.WeightedAtom{ID: id, Weight: fixWeight})
	}

	for id := range negSet {
		if _, ok := seen[id]; ok {
			continue
		}

		out = append(out, m.WeightedAtom{ID: id, Weight: fixWeight})
	}

	sortLocalization(out)

	return out
}

// canonicalizeFix collapses textually identical donor statements onto their
// representative id and drops the duplicates.
func canonicalizeFix(st *store.AtomStore, fix m.Localization) m.Localization {
	mapped := make(m.Localization, 0, len(fix))
	for _, wa := range fix {
		mapped = append(mapped, m.WeightedAtom{ID: st.CanonicalID(wa.ID), Weight: wa.Weight})
	}

	return mapped.Dedup()
}

// sortLocalization orders weight-descending, id-ascending so roulette
// accumulation is reproducible.
func sortLocalization(l m.Localization) {
	sort.Slice(l, func(i, j int) bool {
		if l[i].Weight != l[j].Weight {
			return l[i].Weight > l[j].Weight
		}

		return l[i].ID < l[j].ID
	})
}
