package domain

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"

	"github.com/whr0724/genprog-code/internal/adapter"
	"github.com/whr0724/genprog-code/internal/controller"
	"github.com/whr0724/genprog-code/internal/distributed"
	"github.com/whr0724/genprog-code/internal/fitness"
	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/rep"
	"github.com/whr0724/genprog-code/internal/search"
	"github.com/whr0724/genprog-code/internal/store"
	pkg "github.com/whr0724/genprog-code/pkg"
)

// RepairArgs collects everything one repair run needs.
type RepairArgs struct {
	// Manifest locates the repair target description.
	Manifest m.Path

	GAParams search.GAParams
	Mutator  search.Mutator
	Dist     distributed.Params

	Seed     int64
	Check    store.CheckMode
	SwapBug  bool
	Subatoms bool
	Coverage rep.CoverageOptions

	// Output is the directory the run artifact is written to.
	Output m.Path
	// CacheDir enables the persistent fitness cache when non-empty.
	CacheDir string
}

// Workflow drives a complete repair session.
type Workflow interface {
	// Repair runs the genetic algorithm (distributed when Dist.NumComps > 1).
	Repair(ctx context.Context, args RepairArgs) error

	// Brute runs the exhaustive distance-one search.
	Brute(ctx context.Context, args RepairArgs) error

	// Estimate enumerates the brute-force search space without evaluating.
	Estimate(ctx context.Context, args RepairArgs) error
}

type workflow struct {
	fs       adapter.SourceFSAdapter
	provider adapter.ASTProvider
	runner   adapter.TestRunnerAdapter
	ui       controller.UI
}

// NewWorkflow creates a Workflow with the provided dependencies.
func NewWorkflow(fs adapter.SourceFSAdapter, provider adapter.ASTProvider, runner adapter.TestRunnerAdapter, ui controller.UI) Workflow {
	return &workflow{fs: fs, provider: provider, runner: runner, ui: ui}
}

// newRng builds the single per-deme random source; a fixed seed reproduces
// a run.
func newRng(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// session is the loaded state shared by all workflow entry points.
type session struct {
	original  rep.Representation
	evaluator fitness.Evaluator
	cache     *fitness.CachedEvaluator
	cfg       fitness.Config
}

func (w *workflow) openSession(ctx context.Context, args RepairArgs) (*session, error) {
	man, err := m.LoadManifest(args.Manifest)
	if err != nil {
		return nil, err
	}

	loader := rep.NewLoader(w.provider, w.fs)

	st, err := loader.Load(man.Files)
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}

	root, err := w.fs.FindProjectRoot(man.Files[0])
	if err != nil {
		return nil, err
	}

	cfg := fitness.Config{
		ProjectRoot:   root,
		PositiveTests: man.PositiveTests,
		NegativeTests: man.NegativeTests,
	}

	original := rep.NewPatch(st, w.provider, rep.Options{
		Check:   args.Check,
		SwapBug: args.SwapBug,
	})

	localizer := NewLocalizer(w.fs, w.runner)
	localizer.Coverage = args.Coverage

	fault, fix, err := localizer.Localize(ctx, original, man, cfg)
	if err != nil {
		return nil, fmt.Errorf("localize: %w", err)
	}

	original.SetLocalization(fault, fix)

	slog.Info("localization complete", "fault_sites", len(fault), "fix_sites", len(fix))

	s := &session{
		original: original,
		cfg:      cfg,
	}

	s.evaluator = fitness.NewTestEvaluator(w.fs, w.runner, cfg)

	if args.CacheDir != "" {
		cached, err := fitness.OpenCachedEvaluator(s.evaluator, args.CacheDir)
		if err != nil {
			return nil, err
		}

		s.cache = cached
		s.evaluator = cached
	}

	return s, nil
}

func (s *session) close() {
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			slog.Warn("failed to close fitness cache", "error", err)
		}
	}
}

// Repair runs the GA, distributed across demes when configured.
func (w *workflow) Repair(ctx context.Context, args RepairArgs) error {
	s, err := w.openSession(ctx, args)
	if err != nil {
		return err
	}
	defer s.close()

	if err := w.ui.Start(ctx); err != nil {
		return err
	}
	defer w.ui.Close(ctx)

	start := time.Now()

	var result *search.Result

	if args.Dist.NumComps > 1 {
		w.ui.DisplayRunInfo(ctx, "distributed", args.Dist.NumComps, args.GAParams.PopSize, args.GAParams.Generations)

		coord := &distributed.Coordinator{
			Params:   args.Dist,
			GAParams: args.GAParams,
			Mutator:  args.Mutator,
			Seed:     args.Seed,
		}

		result, err = coord.Run(ctx, s.original, s.evaluator)
	} else {
		w.ui.DisplayRunInfo(ctx, "genetic", 1, args.GAParams.PopSize, args.GAParams.Generations)

		mutator := args.Mutator

		ga := &search.GA{
			Params:  args.GAParams,
			Mutator: &mutator,
			Rng:     newRng(args.Seed),
			Progress: func(gen int, best, mean float64) {
				w.ui.DisplayGeneration(ctx, 1, gen, best, mean, s.evaluator.MaxFitness())
			},
		}

		result, err = ga.Run(ctx, s.original, nil, s.evaluator)
	}

	if err != nil {
		return err
	}

	return w.finish(ctx, s, result, args, time.Since(start))
}

// Brute runs the exhaustive distance-one search.
func (w *workflow) Brute(ctx context.Context, args RepairArgs) error {
	s, err := w.openSession(ctx, args)
	if err != nil {
		return err
	}
	defer s.close()

	if err := w.ui.Start(ctx); err != nil {
		return err
	}
	defer w.ui.Close(ctx)

	trials, err := pkg.NewFileSpill[m.TrialReport]()
	if err != nil {
		return fmt.Errorf("open trial spill: %w", err)
	}

	defer func() {
		if err := trials.Close(); err != nil {
			slog.Warn("failed to close trial spill", "error", err)
		}
	}()

	w.ui.DisplayRunInfo(ctx, "brute-force", 1, 1, 1)

	bf := &search.BruteForce{
		Check:    args.Check,
		Subatoms: args.Subatoms,
		Trials:   trials,
		Progress: func(trial, total int, best float64) {
			w.ui.DisplayTrial(ctx, trial, total, best)
		},
	}

	start := time.Now()

	result, err := bf.Search(ctx, s.original, s.evaluator)
	if err != nil {
		return err
	}

	return w.finish(ctx, s, result, args, time.Since(start))
}

// Estimate enumerates the candidate edits without evaluating any of them.
func (w *workflow) Estimate(ctx context.Context, args RepairArgs) error {
	s, err := w.openSession(ctx, args)
	if err != nil {
		return err
	}
	defer s.close()

	if err := w.ui.Start(ctx); err != nil {
		return err
	}
	defer w.ui.Close(ctx)

	bf := &search.BruteForce{Check: args.Check, Subatoms: args.Subatoms}

	worklist, err := bf.Enumerate(s.original)
	if err != nil {
		return err
	}

	estimates := summarizeWorklist(worklist)

	if err := w.ui.DisplayEstimation(ctx, estimates, len(worklist)); err != nil {
		return err
	}

	w.ui.Wait(ctx)

	return nil
}

func summarizeWorklist(worklist []search.Candidate) []controller.EditEstimate {
	byOp := make(map[string]*controller.EditEstimate)

	for _, cand := range worklist {
		name := operatorName(cand.Edit)

		est, ok := byOp[name]
		if !ok {
			est = &controller.EditEstimate{Operator: name}
			byOp[name] = est
		}

		est.Candidates++
		if cand.Weight > est.TopWeight {
			est.TopWeight = cand.Weight
		}
	}

	out := make([]controller.EditEstimate, 0, len(byOp))
	for _, est := range byOp {
		out = append(out, *est)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Operator < out[j].Operator })

	return out
}

func operatorName(e m.Edit) string {
	switch e.Kind {
	case m.EditDelete:
		return "delete"
	case m.EditAppend:
		return "append"
	case m.EditSwap:
		return "swap"
	case m.EditReplace:
		return "replace"
	case m.EditReplaceSubatom:
		if e.SubatomConst {
			return "subatom-const"
		}

		return "subatom-swap"
	case m.EditTemplate:
		return "template"
	}

	return "unknown"
}

// finish assembles the run artifact, persists it and shows the result.
func (w *workflow) finish(ctx context.Context, s *session, result *search.Result, args RepairArgs, elapsed time.Duration) error {
	artifact := m.RepairResult{
		RunID:   uuid.NewString(),
		Elapsed: elapsed,
	}

	if result != nil {
		artifact.Solved = result.Solved
		artifact.Fitness = result.Fitness
		artifact.Trials = result.Trials
		artifact.Generation = result.Generation
		artifact.Deme = result.Deme

		if result.Variant != nil {
			artifact.History = m.EncodeHistory(result.Variant.History())

			if result.Solved {
				diff, err := w.variantDiff(s.original, result.Variant)
				if err != nil {
					slog.Warn("failed to build repair diff", "error", err)
				} else {
					artifact.Diff = diff
				}
			}
		}
	}

	if args.Output != "" {
		if err := w.writeArtifact(args.Output, artifact); err != nil {
			return err
		}
	}

	if s.cache != nil {
		hits, misses := s.cache.Stats()
		slog.Info("fitness cache statistics", "hits", hits, "misses", misses)
	}

	w.ui.DisplayResult(ctx, artifact)
	w.ui.Wait(ctx)

	return nil
}

// variantDiff renders a unified diff of the original program against the
// repaired variant.
func (w *workflow) variantDiff(original, repaired rep.Representation) (string, error) {
	before, err := original.Materialize()
	if err != nil {
		return "", err
	}

	after, err := repaired.Materialize()
	if err != nil {
		return "", err
	}

	paths := make([]string, 0, len(before))
	for path := range before {
		paths = append(paths, string(path))
	}

	sort.Strings(paths)

	var out strings.Builder

	for _, path := range paths {
		a, b := before[m.Path(path)], after[m.Path(path)]
		if a == b {
			continue
		}

		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(a),
			B:        difflib.SplitLines(b),
			FromFile: path,
			ToFile:   path + " (repaired)",
			Context:  3,
		})
		if err != nil {
			return "", err
		}

		out.WriteString(diff)
	}

	return out.String(), nil
}

func (w *workflow) writeArtifact(dir m.Path, artifact m.RepairResult) error {
	data, err := yaml.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("marshal run artifact: %w", err)
	}

	target := w.fs.JoinPath(string(dir), fmt.Sprintf("repair-%s.yaml", artifact.RunID))
	if err := w.fs.WriteFile(target, data, 0o600); err != nil {
		return fmt.Errorf("write run artifact: %w", err)
	}

	slog.Info("run artifact written", "path", target)

	return nil
}
