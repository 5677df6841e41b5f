// Package stagegate provides the ordered-stage machinery shared by the
// training, visa, departure, complaint and candidate lifecycles.
//
// A Pipeline is an immutable ordered list of stages. Callers supply the
// per-stage completion predicate; the pipeline answers positional questions
// (earliest incomplete stage, immediate successor, whether every stage is
// done) so the same ordering rules hold for every domain.
package stagegate

import "fmt"

// Pipeline is an ordered, duplicate-free list of stages.
type Pipeline[S comparable] struct {
	order []S
	index map[S]int
}

// New builds a pipeline. It panics on an empty or duplicated stage list,
// which is a programming error in a package-level declaration.
func New[S comparable](stages ...S) *Pipeline[S] {
	if len(stages) == 0 {
		panic("stagegate: pipeline needs at least one stage")
	}
	p := &Pipeline[S]{
		order: make([]S, len(stages)),
		index: make(map[S]int, len(stages)),
	}
	for i, s := range stages {
		if _, dup := p.index[s]; dup {
			panic(fmt.Sprintf("stagegate: duplicate stage %v", s))
		}
		p.order[i] = s
		p.index[s] = i
	}
	return p
}

// Stages returns a copy of the ordered stage list.
func (p *Pipeline[S]) Stages() []S {
	out := make([]S, len(p.order))
	copy(out, p.order)
	return out
}

// Len returns the number of stages.
func (p *Pipeline[S]) Len() int { return len(p.order) }

// Contains reports whether s is a member of the pipeline.
func (p *Pipeline[S]) Contains(s S) bool {
	_, ok := p.index[s]
	return ok
}

// Index returns the position of s, or -1 if s is not a member.
func (p *Pipeline[S]) Index(s S) int {
	if i, ok := p.index[s]; ok {
		return i
	}
	return -1
}

// First returns the first stage.
func (p *Pipeline[S]) First() S { return p.order[0] }

// Last returns the last stage.
func (p *Pipeline[S]) Last() S { return p.order[len(p.order)-1] }

// Next returns the stage immediately after s.
func (p *Pipeline[S]) Next(s S) (S, bool) {
	var zero S
	i, ok := p.index[s]
	if !ok || i+1 >= len(p.order) {
		return zero, false
	}
	return p.order[i+1], true
}

// IsImmediateNext reports whether to directly follows from.
func (p *Pipeline[S]) IsImmediateNext(from, to S) bool {
	next, ok := p.Next(from)
	return ok && next == to
}

// Before reports whether a is strictly earlier than b. Unknown stages are
// never before anything.
func (p *Pipeline[S]) Before(a, b S) bool {
	ia, okA := p.index[a]
	ib, okB := p.index[b]
	return okA && okB && ia < ib
}

// Between returns the stages strictly after from up to and including to.
// It returns nil when to is not after from.
func (p *Pipeline[S]) Between(from, to S) []S {
	ia, okA := p.index[from]
	ib, okB := p.index[to]
	if !okA || !okB || ib <= ia {
		return nil
	}
	out := make([]S, ib-ia)
	copy(out, p.order[ia+1:ib+1])
	return out
}

// FirstIncomplete returns the earliest stage for which done is false.
// ok is false when every stage is done.
func (p *Pipeline[S]) FirstIncomplete(done func(S) bool) (stage S, ok bool) {
	for _, s := range p.order {
		if !done(s) {
			return s, true
		}
	}
	var zero S
	return zero, false
}

// AllComplete reports whether done holds for every stage.
func (p *Pipeline[S]) AllComplete(done func(S) bool) bool {
	_, incomplete := p.FirstIncomplete(done)
	return !incomplete
}

// CountComplete returns how many stages satisfy done.
func (p *Pipeline[S]) CountComplete(done func(S) bool) int {
	n := 0
	for _, s := range p.order {
		if done(s) {
			n++
		}
	}
	return n
}

// Find returns the first stage, in order, matching pred.
func (p *Pipeline[S]) Find(pred func(S) bool) (S, bool) {
	for _, s := range p.order {
		if pred(s) {
			return s, true
		}
	}
	var zero S
	return zero, false
}

// ContiguousPrefix returns the last stage of the longest run of done stages
// starting at the first stage. ok is false when the first stage is not done.
// This is the furthest stage that can be reported as reached when stages may
// be recorded out of order.
func (p *Pipeline[S]) ContiguousPrefix(done func(S) bool) (stage S, ok bool) {
	var last S
	for _, s := range p.order {
		if !done(s) {
			return last, ok
		}
		last, ok = s, true
	}
	return last, ok
}

// Any reports whether pred holds for at least one stage.
func (p *Pipeline[S]) Any(pred func(S) bool) bool {
	_, ok := p.Find(pred)
	return ok
}
