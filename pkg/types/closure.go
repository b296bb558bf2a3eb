package types

// closureCache materializes a class's upward-reachable ancestors and
// downward-reachable descendants (§4.2). Invalidated by any structural
// change to the inheritance DAG and recomputed lazily.
type closureCache struct {
	valid     bool
	ancestors map[*Type]bool
	descendants map[*Type]bool
}

// InvalidateClosure drops t's own cache after a structural edit to the
// Super/Sub arrays. Cached closures of other classes are not
// invalidated.
func (t *Type) InvalidateClosure() {
	t.closure = nil
}

// ensureClosure computes t's closure with a two-pass walk: first visit
// all subtypes (descendants), then all supertypes (ancestors), each with
// its own visited set so that a cycle transiently present during
// construction is not walked twice.
func (t *Type) ensureClosure() *closureCache {
	if t.closure != nil && t.closure.valid {
		return t.closure
	}
	c := &closureCache{
		ancestors:   make(map[*Type]bool),
		descendants: make(map[*Type]bool),
	}
	visitedDown := make(map[*Type]bool)
	var walkDown func(*Type)
	walkDown = func(cur *Type) {
		if visitedDown[cur] {
			return
		}
		visitedDown[cur] = true
		for _, sub := range cur.Sub {
			c.descendants[sub] = true
			walkDown(sub)
		}
	}
	walkDown(t)

	visitedUp := make(map[*Type]bool)
	var walkUp func(*Type)
	walkUp = func(cur *Type) {
		if visitedUp[cur] {
			return
		}
		visitedUp[cur] = true
		for _, super := range cur.Super {
			c.ancestors[super] = true
			walkUp(super)
		}
	}
	walkUp(t)

	c.valid = true
	t.closure = c
	return c
}

// IsSubClassOf is a membership test in high's down-set when the closure
// cache is valid; otherwise a recursive descent (§4.2).
func IsSubClassOf(low, high *Type) bool {
	if low == high {
		return true
	}
	c := high.ensureClosure()
	return c.descendants[low]
}

// ResolveEntPolymorphy returns the most specific override of staticEnt
// whose owner lies on the path from dynamicClass up to staticEnt's owner.
// It descends the overwritten-by tree and stops when the owner no longer
// dominates dynamicClass, per original_source/ir/tr/tr_inheritance.c.
func ResolveEntPolymorphy(dynamicClass *Type, staticEnt *Entity) *Entity {
	best := staticEnt
	var descend func(e *Entity)
	descend = func(e *Entity) {
		for _, over := range e.OverwrittenBy {
			if over.Owner != nil && IsSubClassOf(dynamicClass, over.Owner) {
				best = over
				descend(over)
			}
		}
	}
	descend(staticEnt)
	return best
}
