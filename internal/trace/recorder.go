// Package trace records queue and element events of a thought as Mangle
// facts and derives reachability and double-processing facts from them.
package trace

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"spreadnet/internal/logging"
	"spreadnet/internal/queue"
	"spreadnet/internal/thought"
)

const schema = `
Decl step_added(Step, Element, Phase, Timestamp).
Decl step_processed(Step, Element, Seq).
Decl element_created(Element, Kind, Label).
Decl element_fired(Element, Timestamp).
Decl linked(From, To, Synapse).
Decl reaches(From, To).
Decl reprocessed(Step).

reaches(X, Y) :- linked(X, Y, _).
reaches(X, Z) :- linked(X, Y, _), reaches(Y, Z).

reprocessed(S) :- step_processed(S, _, N), step_processed(S, _, M), N != M.
`

// Fact is a decoded atom.
type Fact struct {
	Predicate string
	Args      []string
}

func (f Fact) String() string {
	return fmt.Sprintf("%s(%s)", f.Predicate, strings.Join(f.Args, ", "))
}

// Recorder implements queue.Listener.
type Recorder struct {
	mu      sync.Mutex
	store   factstore.FactStoreWithRemove
	program *analysis.ProgramInfo
	preds   map[string]ast.PredicateSym
	serials map[queue.Step]int64
	seq     int64
	err     error
}

var _ queue.Listener = (*Recorder)(nil)

// NewRecorder compiles the trace program and returns an empty recorder.
func NewRecorder() (*Recorder, error) {
	unit, err := parse.Unit(bytes.NewReader([]byte(schema)))
	if err != nil {
		return nil, fmt.Errorf("trace: parse schema: %w", err)
	}
	program, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("trace: analyze schema: %w", err)
	}
	preds := make(map[string]ast.PredicateSym, len(program.Decls))
	for sym := range program.Decls {
		preds[sym.Symbol] = sym
	}
	return &Recorder{
		store:   factstore.NewSimpleInMemoryStore(),
		program: program,
		preds:   preds,
		serials: make(map[queue.Step]int64),
	}, nil
}

// OnQueueEvent records step_added and step_processed facts. Each step
// object gets its own serial so reprocessing the same object is visible.
func (r *Recorder) OnQueueEvent(t queue.EventType, s queue.Step) {
	r.mu.Lock()
	defer r.mu.Unlock()

	serial, ok := r.serials[s]
	if !ok {
		serial = int64(len(r.serials) + 1)
		r.serials[s] = serial
	}
	elem := s.Element().ElementID()

	switch t {
	case queue.EventStepAdded:
		ts := int64(0)
		if kb, ok := s.(interface{ Key() (queue.Key, bool) }); ok {
			if k, queued := kb.Key(); queued {
				ts = int64(k.Timestamp)
			}
		}
		r.add("step_added", ast.Number(serial), ast.String(elem), ast.String(s.Phase().String()), ast.Number(ts))
	case queue.EventStepProcessed:
		r.seq++
		r.add("step_processed", ast.Number(serial), ast.String(elem), ast.Number(r.seq))
	}
}

// OnElementEvent records element_created, element_fired and linked facts.
func (r *Recorder) OnElementEvent(t queue.EventType, e queue.Element) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := e.ElementID()
	switch t {
	case queue.EventElementCreated:
		switch v := e.(type) {
		case *thought.Activation:
			r.add("element_created", ast.String(id), ast.String("activation"), ast.String(v.Neuron().Label()))
		case *thought.Link:
			r.add("element_created", ast.String(id), ast.String("link"), ast.String(v.Synapse().Kind().String()))
			r.add("linked", ast.String(v.Input().ElementID()), ast.String(v.Output().ElementID()), ast.Number(v.Synapse().ID()))
		default:
			r.add("element_created", ast.String(id), ast.String("element"), ast.String(""))
		}
	case queue.EventElementFired:
		r.add("element_fired", ast.String(id), ast.Number(int64(e.Fired())))
	}
}

func (r *Recorder) add(pred string, args ...ast.BaseTerm) {
	if r.store.Add(ast.NewAtom(pred, args...)) {
		logging.TraceDebug("fact %s/%d", pred, len(args))
	}
}

// Evaluate derives the rule facts from everything recorded so far.
func (r *Recorder) Evaluate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats, err := mengine.EvalProgramWithStats(r.program, r.store)
	if err != nil {
		return fmt.Errorf("trace: evaluate: %w", err)
	}
	logging.TraceDebug("evaluated trace program: %+v", stats)
	return nil
}

// Facts returns the facts of predicate sorted by their string form.
func (r *Recorder) Facts(predicate string) ([]Fact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sym, ok := r.preds[predicate]
	if !ok {
		return nil, fmt.Errorf("trace: predicate %s is not declared", predicate)
	}
	var out []Fact
	err := r.store.GetFacts(ast.NewQuery(sym), func(a ast.Atom) error {
		f := Fact{Predicate: predicate, Args: make([]string, len(a.Args))}
		for i, arg := range a.Args {
			f.Args[i] = termString(arg)
		}
		out = append(out, f)
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, err
}

// Reaches reports whether a derived reaches(from, to) fact exists. Call
// Evaluate first.
func (r *Recorder) Reaches(from, to string) (bool, error) {
	facts, err := r.Facts("reaches")
	if err != nil {
		return false, err
	}
	for _, f := range facts {
		if f.Args[0] == from && f.Args[1] == to {
			return true, nil
		}
	}
	return false, nil
}

// Reprocessed returns the serials of step objects processed more than once.
// Call Evaluate first.
func (r *Recorder) Reprocessed() ([]int64, error) {
	facts, err := r.Facts("reprocessed")
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(facts))
	for _, f := range facts {
		n, err := strconv.ParseInt(f.Args[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("trace: bad step serial %q: %w", f.Args[0], err)
		}
		out = append(out, n)
	}
	return out, nil
}

func termString(t ast.BaseTerm) string {
	c, ok := t.(ast.Constant)
	if !ok {
		return t.String()
	}
	switch c.Type {
	case ast.StringType, ast.NameType:
		return c.Symbol
	case ast.NumberType:
		return strconv.FormatInt(c.NumValue, 10)
	default:
		return c.String()
	}
}
