package distributed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/whr0724/genprog-code/internal/fitness"
	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/rep"
	"github.com/whr0724/genprog-code/internal/search"
)

// Params tune the multi-deme exchange.
type Params struct {
	// NumComps is the number of demes.
	NumComps int
	// VariantsExchanged is how many variants each deme sends per exchange.
	VariantsExchanged int
	// GenPerExchange is the number of GA generations between exchanges.
	GenPerExchange int
	// DiversitySelection picks outgoing variants by history coverage
	// instead of raw fitness.
	DiversitySelection bool
	// SplitSearch constrains each deme's mutations to its share of the
	// statement ids.
	SplitSearch bool
}

// errSolved signals group shutdown once any deme finds a repair.
var errSolved = errors.New("solution found")

// Coordinator runs NumComps demes of the GA concurrently. Demes are
// cooperatively coupled through an exchange barrier every GenPerExchange
// generations: each sends its selected variants to the next deme in the
// ring as an encoded message and blocks for the message from its
// predecessor. No mutable state crosses the deme boundary.
type Coordinator struct {
	Params   Params
	GAParams search.GAParams
	Mutator  search.Mutator
	Seed     int64

	mu   sync.Mutex
	best *search.Result
}

// Run starts the demes and returns the best result found. The first deme
// to find a repair cancels the rest.
func (c *Coordinator) Run(ctx context.Context, original rep.Representation, eval fitness.Evaluator) (*search.Result, error) {
	n := c.Params.NumComps
	if n < 1 {
		return nil, fmt.Errorf("num-comps must be positive, got %d", n)
	}

	// inbox[i] delivers messages to deme i+1.
	inbox := make([]chan string, n)
	for i := range inbox {
		inbox[i] = make(chan string, 1)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	for d := 1; d <= n; d++ {
		group.Go(func() error {
			return c.runDeme(groupCtx, d, inbox, original, eval)
		})
	}

	err := group.Wait()
	if err != nil && !errors.Is(err, errSolved) {
		return c.best, err
	}

	return c.best, nil
}

func (c *Coordinator) runDeme(ctx context.Context, compID int, inbox []chan string, original rep.Representation, eval fitness.Evaluator) error {
	n := c.Params.NumComps

	mutator := c.Mutator
	mutator.NumComps = n
	mutator.CompID = compID
	mutator.Split = c.Params.SplitSearch

	ga := &search.GA{
		Params:  c.GAParams,
		Mutator: &mutator,
		Rng:     rand.New(rand.NewSource(c.Seed + int64(compID))),
	}

	ga.Exchange = func(gen int, pop []search.Scored) ([]rep.Representation, error) {
		if c.Params.GenPerExchange <= 0 || gen%c.Params.GenPerExchange != 0 {
			return nil, nil
		}

		return c.exchange(ctx, compID, inbox, pop, original, eval)
	}

	result, err := ga.Run(ctx, original, nil, eval)
	if result != nil {
		result.Deme = compID
		c.recordResult(result)
	}

	if err != nil {
		return fmt.Errorf("deme %d: %w", compID, err)
	}

	if result != nil && result.Solved {
		slog.Info("deme found a repair", "deme", compID, "generation", result.Generation)
		return errSolved
	}

	return nil
}

// exchange implements the barrier: select outgoing variants, send them to
// the next deme in the ring, then block for the predecessor's message and
// rebuild the population as incoming plus retained.
func (c *Coordinator) exchange(ctx context.Context, compID int, inbox []chan string, pop []search.Scored, original rep.Representation, eval fitness.Evaluator) ([]rep.Representation, error) {
	outgoing, retained := c.selectOutgoing(pop, eval)

	histories := make([]m.History, 0, len(outgoing))
	for _, s := range outgoing {
		histories = append(histories, s.Variant.History())
	}

	msg := m.EncodeVariants(histories)
	next := inbox[compID%c.Params.NumComps]

	select {
	case next <- msg:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var incoming string
	select {
	case incoming = <-inbox[compID-1]:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	decoded, err := m.DecodeVariants(incoming)
	if err != nil {
		return nil, fmt.Errorf("decode exchange message: %w", err)
	}

	nextPop := make([]rep.Representation, 0, len(decoded)+len(retained))

	for _, h := range decoded {
		v := original.Clone()
		v.SetHistory(h)
		nextPop = append(nextPop, v)
	}

	for _, s := range retained {
		nextPop = append(nextPop, s.Variant)
	}

	slog.Debug("deme exchange complete", "deme", compID,
		"sent", len(histories), "received", len(decoded), "retained", len(retained))

	return nextPop, nil
}

// selectOutgoing picks the variants to send and the incumbents to retain.
// Retention always drops the worst VariantsExchanged variants.
func (c *Coordinator) selectOutgoing(pop []search.Scored, eval fitness.Evaluator) (outgoing, retained []search.Scored) {
	k := c.Params.VariantsExchanged
	if k > len(pop) {
		k = len(pop)
	}

	ranked := make([]search.Scored, len(pop))
	copy(ranked, pop)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Fitness != ranked[j].Fitness {
			return ranked[i].Fitness > ranked[j].Fitness
		}

		return ranked[i].Variant.Fingerprint() < ranked[j].Variant.Fingerprint()
	})

	retained = ranked[:len(ranked)-k]

	if len(pop) == k {
		return ranked, nil
	}

	if !c.Params.DiversitySelection {
		return ranked[:k], retained
	}

	pool := ranked
	if len(pop)/2 >= k && 2*k < len(ranked) {
		pool = ranked[:2*k]
	}

	baseline := func() search.Scored {
		return search.Scored{Variant: c.cloneOriginal(pop), Fitness: eval.MaxFitness()}
	}

	return DiversitySelect(pool, k, baseline), retained
}

// cloneOriginal rebuilds an edit-free variant from any population member.
func (c *Coordinator) cloneOriginal(pop []search.Scored) rep.Representation {
	v := pop[0].Variant.Clone()
	v.SetHistory(nil)

	return v
}

func (c *Coordinator) recordResult(r *search.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.best == nil || r.Solved && !c.best.Solved || r.Fitness > c.best.Fitness && r.Solved == c.best.Solved {
		c.best = r
	}
}
