package thought

// VisitorDirection is the traversal direction of a Visitor step.
type VisitorDirection int

const (
	// Down follows input links towards the origin's inputs.
	Down VisitorDirection = iota
	// Up follows output links.
	Up
)

func (d VisitorDirection) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// Visitor is one step of a loop-closure traversal. A traversal first walks
// down input links and may then turn and walk up output links; it never
// turns back down. Each step keeps a pointer to the step it came from.
type Visitor struct {
	origin    *Activation
	current   *Activation
	dir       VisitorDirection
	downSteps int
	upSteps   int
	scopes    map[int]bool
	previous  *Visitor
}

// NewVisitor starts a traversal at origin. The scope set is the set of
// origins of the binding signals origin carries.
func NewVisitor(origin *Activation) *Visitor {
	scopes := make(map[int]bool, len(origin.signals))
	for _, bs := range origin.signals {
		scopes[bs.origin.id] = true
	}
	return &Visitor{origin: origin, current: origin, dir: Down, scopes: scopes}
}

func (v *Visitor) Origin() *Activation         { return v.origin }
func (v *Visitor) Current() *Activation        { return v.current }
func (v *Visitor) Direction() VisitorDirection { return v.dir }
func (v *Visitor) DownSteps() int              { return v.downSteps }
func (v *Visitor) UpSteps() int                { return v.upSteps }
func (v *Visitor) Previous() *Visitor          { return v.previous }

// Depth is the total number of steps taken.
func (v *Visitor) Depth() int { return v.downSteps + v.upSteps }

// Next returns the visitor after stepping to act in direction dir.
func (v *Visitor) Next(act *Activation, dir VisitorDirection) *Visitor {
	n := &Visitor{
		origin:    v.origin,
		current:   act,
		dir:       dir,
		downSteps: v.downSteps,
		upSteps:   v.upSteps,
		scopes:    v.scopes,
		previous:  v,
	}
	if dir == Down {
		n.downSteps++
	} else {
		n.upSteps++
	}
	return n
}

// IsClosedCycle reports whether the current activation shares a binding
// signal origin with the traversal origin.
func (v *Visitor) IsClosedCycle() bool {
	for _, bs := range v.current.signals {
		if v.scopes[bs.origin.id] {
			return true
		}
	}
	return false
}

// Path returns the activations from origin to current.
func (v *Visitor) Path() []*Activation {
	var path []*Activation
	for s := v; s != nil; s = s.previous {
		path = append(path, s.current)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func (v *Visitor) onPath(act *Activation) bool {
	for s := v; s != nil; s = s.previous {
		if s.current == act {
			return true
		}
	}
	return false
}

// Walk visits the activations reachable from v within maxDepth steps in
// breadth-first order and calls fn for each visitor step, the start
// included. Each activation is entered at most once per direction, at its
// shallowest depth, and never when it is already on the current path.
func (v *Visitor) Walk(maxDepth int, fn func(*Visitor)) {
	type visit struct {
		id  int
		dir VisitorDirection
	}
	seen := map[visit]bool{{v.current.id, v.dir}: true}
	frontier := []*Visitor{v}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		fn(cur)
		if cur.Depth() >= maxDepth {
			continue
		}
		step := func(act *Activation, dir VisitorDirection) {
			k := visit{act.id, dir}
			if seen[k] || cur.onPath(act) {
				return
			}
			seen[k] = true
			frontier = append(frontier, cur.Next(act, dir))
		}
		if cur.dir == Down {
			for _, l := range cur.current.inputs {
				step(l.in, Down)
			}
		}
		for _, l := range cur.current.outputs {
			step(l.output, Up)
		}
	}
}

// closingCandidates walks from act and returns the distinct activations
// accepted by match that close a cycle with act, in discovery order.
func closingCandidates(act *Activation, maxDepth int, match func(*Activation) bool) []*Activation {
	seen := make(map[int]bool)
	var out []*Activation
	NewVisitor(act).Walk(maxDepth, func(v *Visitor) {
		c := v.current
		if c == act || seen[c.id] || !match(c) || !v.IsClosedCycle() {
			return
		}
		seen[c.id] = true
		out = append(out, c)
	})
	return out
}
