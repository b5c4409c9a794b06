package montecarlo

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/hausdorff-ising/internal/energy"
	"github.com/nvandessel/hausdorff-ising/internal/lattice"
)

// blockTask asks a worker to decide whether to flip one block as a unit.
type blockTask struct {
	index int   // position of the block in the sweep plan
	spins []int // disjoint from every other block of the sweep
	seed  int64 // sweep seed; the block's stream is derived from it and index
}

// blockResult is a worker's decision for one block.
type blockResult struct {
	index    int
	delta    float64
	accepted bool
	err      error
}

// sweepInput is shared read-only by every task of one sweep, except next,
// where each task writes only the indices of its own block.
type sweepInput struct {
	eval     *energy.Evaluator
	snapshot []lattice.Spin // pre-sweep configuration
	next     []int          // post-sweep states
}

type job struct {
	task blockTask
	in   *sweepInput
	out  chan<- blockResult
}

// pool is a fixed set of workers fed through one task channel. Each sweep
// brings its own result channel, and runSweep returns only after every task
// of the sweep has reported, which is the barrier between sweeps.
type pool struct {
	jobs chan job
	g    errgroup.Group
}

func newPool(workers int) *pool {
	p := &pool{jobs: make(chan job)}
	for w := 0; w < workers; w++ {
		p.g.Go(func() error {
			for j := range p.jobs {
				j.out <- runBlock(j.task, j.in)
			}
			return nil
		})
	}
	return p
}

// runSweep dispatches tasks and waits for all of them. Results are ordered
// by task index; failed tasks are joined into one error.
func (p *pool) runSweep(in *sweepInput, tasks []blockTask) ([]blockResult, error) {
	out := make(chan blockResult, len(tasks))
	for _, t := range tasks {
		p.jobs <- job{task: t, in: in, out: out}
	}

	results := make([]blockResult, len(tasks))
	var errs []error
	for range tasks {
		r := <-out
		results[r.index] = r
		if r.err != nil {
			errs = append(errs, r.err)
		}
	}
	return results, errors.Join(errs...)
}

// close stops the workers once the task channel drains.
func (p *pool) close() error {
	close(p.jobs)
	return p.g.Wait()
}

// runBlock evaluates flipping the whole block against the pre-sweep snapshot
// and applies the Metropolis criterion with the block's own stream.
func runBlock(t blockTask, in *sweepInput) (r blockResult) {
	r.index = t.index
	defer func() {
		if v := recover(); v != nil {
			r = blockResult{index: t.index, err: fmt.Errorf("block %d: worker panic: %v", t.index, v)}
		}
	}()

	delta := in.eval.Delta(in.snapshot, t.spins)
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		r.err = fmt.Errorf("block %d: non-finite energy delta %v", t.index, delta)
		return r
	}

	r.delta = delta
	r.accepted = accept(delta, blockSource(t.seed, t.index))
	if r.accepted {
		for _, i := range t.spins {
			in.next[i] = -in.snapshot[i].S
		}
	}
	return r
}

// accept applies the Metropolis criterion: downhill moves always pass,
// uphill moves pass with probability exp(-delta). src is only consulted for
// uphill moves.
func accept(delta float64, src interface{ Float64() float64 }) bool {
	if delta < 0 {
		return true
	}
	return src.Float64() < math.Exp(-delta)
}
