package exec

import (
	"math/rand"

	"github.com/symexec/engine/path"
)

// Searcher is a pluggable strategy for choosing which pending context to
// explore next (spec.md SUPPLEMENTED FEATURES "multiple search
// strategies"), grounded verbatim on the teacher's Searcher interface and
// its DFS/BFS/Random/RandomPath implementations in executor.go.
type Searcher interface {
	// SelectState returns the next context to explore, or nil if none
	// remain.
	SelectState() *path.Context
	// AddState adds a context to the searcher's pending set.
	AddState(ctx *path.Context)
}

var _ Searcher = (*DFSSearcher)(nil)

// DFSSearcher explores the most recently added context first.
type DFSSearcher struct {
	states []*path.Context
}

// NewDFSSearcher returns a new DFSSearcher.
func NewDFSSearcher() *DFSSearcher { return &DFSSearcher{} }

// SelectState returns the next execution state to explore.
func (s *DFSSearcher) SelectState() *path.Context {
	if len(s.states) == 0 {
		return nil
	}
	ctx := s.states[len(s.states)-1]
	s.states = s.states[:len(s.states)-1]
	return ctx
}

// AddState adds a new state to the searcher.
func (s *DFSSearcher) AddState(ctx *path.Context) { s.states = append(s.states, ctx) }

var _ Searcher = (*BFSSearcher)(nil)

// BFSSearcher explores the oldest added context first.
type BFSSearcher struct {
	states []*path.Context
}

// NewBFSSearcher returns a new BFSSearcher.
func NewBFSSearcher() *BFSSearcher { return &BFSSearcher{} }

// SelectState returns the next execution state to explore.
func (s *BFSSearcher) SelectState() *path.Context {
	if len(s.states) == 0 {
		return nil
	}
	ctx := s.states[0]
	s.states = s.states[1:]
	return ctx
}

// AddState adds a new state to the searcher.
func (s *BFSSearcher) AddState(ctx *path.Context) { s.states = append(s.states, ctx) }

var _ Searcher = (*RandomSearcher)(nil)

// RandomSearcher explores a uniformly random pending context.
type RandomSearcher struct {
	states []*path.Context
	rand   *rand.Rand
}

// NewRandomSearcher returns a new RandomSearcher using rand.
func NewRandomSearcher(rand *rand.Rand) *RandomSearcher { return &RandomSearcher{rand: rand} }

// SelectState returns a random pending context.
func (s *RandomSearcher) SelectState() *path.Context {
	if len(s.states) == 0 {
		return nil
	}
	i := s.rand.Intn(len(s.states))
	ctx := s.states[i]
	s.states = append(s.states[:i], s.states[i+1:]...)
	return ctx
}

// AddState adds a new state to the searcher.
func (s *RandomSearcher) AddState(ctx *path.Context) { s.states = append(s.states, ctx) }

var _ Searcher = (*RandomPathSearcher)(nil)

// RandomPathSearcher randomly descends the fork tree maintained by the
// Loop, so earlier forks don't dominate exploration the way a flat
// RandomSearcher would (teacher's RandomPathSearcher walks
// Executor.root/children the same way).
type RandomPathSearcher struct {
	loop *Loop
	rand *rand.Rand
}

// NewRandomPathSearcher returns a new RandomPathSearcher over loop's fork
// tree.
func NewRandomPathSearcher(loop *Loop, rand *rand.Rand) *RandomPathSearcher {
	return &RandomPathSearcher{loop: loop, rand: rand}
}

// SelectState returns a random leaf context from the loop's fork tree.
func (s *RandomPathSearcher) SelectState() *path.Context {
	ctx := s.loop.root
	if ctx == nil {
		return nil
	}
	for {
		children := s.loop.children[ctx]
		if len(children) == 0 {
			return ctx
		}
		ctx = children[s.rand.Intn(len(children))]
	}
}

// AddState is a no-op: the loop's fork tree is populated by Loop's fork
// sites (execCondBr and runBuilder) directly, the same division of responsibility as the teacher's
// RandomPathSearcher.
func (s *RandomPathSearcher) AddState(ctx *path.Context) {}
