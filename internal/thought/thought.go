// Package thought processes one document against a model. A Thought owns a
// queue, the activations and links created while draining it, and the
// binding-signal indexes the linkers search.
package thought

import (
	"errors"
	"fmt"
	"sort"

	"spreadnet/internal/config"
	"spreadnet/internal/logging"
	"spreadnet/internal/network"
	"spreadnet/internal/queue"
)

// ErrNotToken is returned by AddToken for neurons that are not token neurons.
var ErrNotToken = errors.New("thought: neuron is not a token neuron")

type linkKey struct {
	input   int
	output  int
	synapse int64
}

// Thought is the per-document owner of the queue, activations and links.
// It is not safe for concurrent use.
type Thought struct {
	id    string
	model *network.Model
	cfg   config.EngineConfig
	queue *queue.Queue
	log   *logging.Logger

	activations []*Activation
	byNeuron    map[int64][]*Activation
	links       []*Link
	linkIndex   map[linkKey]*Link
	signals     map[int][]*BindingSignal
	tokens      map[int]*Activation

	instantiator network.Instantiator
	inducer      network.Inducer
	linking      *LinkingTask
	templates    *TemplateTask
}

// Option configures a Thought.
type Option func(*Thought)

// WithListener registers a queue and element listener.
func WithListener(l queue.Listener) Option {
	return func(t *Thought) { t.queue.AddListener(l) }
}

// WithInstantiator replaces the model as template instantiator.
func WithInstantiator(i network.Instantiator) Option {
	return func(t *Thought) { t.instantiator = i }
}

// WithInducer replaces the model as neuron inducer.
func WithInducer(i network.Inducer) Option {
	return func(t *Thought) { t.inducer = i }
}

// New creates an empty thought.
func New(id string, m *network.Model, cfg config.EngineConfig, opts ...Option) *Thought {
	t := &Thought{
		id:           id,
		model:        m,
		cfg:          cfg,
		queue:        queue.New(id),
		log:          logging.Get(logging.CategoryLinking).With("thought", id),
		byNeuron:     make(map[int64][]*Activation),
		linkIndex:    make(map[linkKey]*Link),
		signals:      make(map[int][]*BindingSignal),
		tokens:       make(map[int]*Activation),
		instantiator: m,
		inducer:      m,
	}
	t.linking = &LinkingTask{t: t}
	t.templates = &TemplateTask{t: t}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Thought) ID() string                  { return t.id }
func (t *Thought) Model() *network.Model       { return t.model }
func (t *Thought) Queue() *queue.Queue         { return t.queue }
func (t *Thought) Config() config.EngineConfig { return t.cfg }
func (t *Thought) LinkingTask() *LinkingTask   { return t.linking }
func (t *Thought) TemplateTask() *TemplateTask { return t.templates }

// AddToken creates a token activation at position pos covering the
// character range [begin, end) and seeds it with an external input of 1.
func (t *Thought) AddToken(n *network.Neuron, pos, begin, end int) (*Activation, error) {
	return t.AddInput(n, pos, begin, end, 1)
}

// AddInput is AddToken with an explicit input value.
func (t *Thought) AddInput(n *network.Neuron, pos, begin, end int, input float64) (*Activation, error) {
	if n.Kind() != network.KindToken {
		return nil, fmt.Errorf("%w: %s", ErrNotToken, n)
	}
	if prev, ok := t.tokens[pos]; ok {
		return nil, fmt.Errorf("thought: position %d already holds %s", pos, prev)
	}
	act := t.newActivation(n)
	act.position = pos
	act.begin, act.end = begin, end
	t.tokens[pos] = act
	act.bias.ReceiveUpdate(input)
	t.log.Debug("token %s at %d [%d,%d)", n.Label(), pos, begin, end)
	return act, nil
}

// Process drains the queue. Step failures do not stop the drain and are
// returned together.
func (t *Thought) Process() error {
	return t.queue.Process()
}

// Close tears the thought down. Steps already running finish; nothing new
// is scheduled.
func (t *Thought) Close() {
	t.queue.Close()
}

// Activations returns all activations in creation order.
func (t *Thought) Activations() []*Activation {
	return append([]*Activation(nil), t.activations...)
}

// ActivationsOf returns the activations of neuron id in creation order.
func (t *Thought) ActivationsOf(id int64) []*Activation {
	return append([]*Activation(nil), t.byNeuron[id]...)
}

// Activation returns the activation with the given id.
func (t *Thought) Activation(id int) (*Activation, bool) {
	if id < 0 || id >= len(t.activations) {
		return nil, false
	}
	return t.activations[id], true
}

// Links returns all links in creation order.
func (t *Thought) Links() []*Link {
	return append([]*Link(nil), t.links...)
}

// LinkBetween returns the link from in to out over syn, if any.
func (t *Thought) LinkBetween(in, out *Activation, syn *network.Synapse) (*Link, bool) {
	l, ok := t.linkIndex[linkKey{in.id, out.id, syn.ID()}]
	return l, ok
}

// Token returns the token activation at pos.
func (t *Thought) Token(pos int) (*Activation, bool) {
	a, ok := t.tokens[pos]
	return a, ok
}

// SignalsOf returns every binding signal whose origin is act, in the order
// they were attached.
func (t *Thought) SignalsOf(origin *Activation) []*BindingSignal {
	return append([]*BindingSignal(nil), t.signals[origin.id]...)
}

func (t *Thought) newActivation(n *network.Neuron) *Activation {
	act := newActivation(t, len(t.activations), n)
	t.activations = append(t.activations, act)
	t.byNeuron[n.ID()] = append(t.byNeuron[n.ID()], act)
	n.CountActivation()
	t.queue.EmitElementEvent(queue.EventElementCreated, act)
	logging.LinkingDebug("[%s] created %s", t.id, act)
	return act
}

// checkLinkingPreConditions rejects self links, links from activations that
// have not fired, endpoint neurons that do not match the synapse, positional
// offsets outside the synapse range and links that already exist.
func (t *Thought) checkLinkingPreConditions(in, out *Activation, syn *network.Synapse) (bool, string) {
	switch {
	case in == out:
		return false, "self link"
	case !in.IsFired():
		return false, "input not fired"
	case in.neuron.ID() != syn.InputID() || out.neuron.ID() != syn.OutputID():
		return false, "neuron mismatch"
	}
	if syn.Kind().Positional() {
		if in.position < 0 || out.position < 0 || !syn.AllowsOffset(out.position-in.position) {
			return false, "position out of range"
		}
	}
	if _, ok := t.linkIndex[linkKey{in.id, out.id, syn.ID()}]; ok {
		return false, "exists"
	}
	return true, ""
}

// tryLink creates the link from in to out over syn if the preconditions hold.
func (t *Thought) tryLink(in, out *Activation, syn *network.Synapse) *Link {
	if ok, reason := t.checkLinkingPreConditions(in, out, syn); !ok {
		logging.LinkingDebug("[%s] rejected %s -> %s over %d: %s", t.id, in, out, syn.ID(), reason)
		return nil
	}
	return t.createLink(in, out, syn)
}

func (t *Thought) createLink(in, out *Activation, syn *network.Synapse) *Link {
	l := newLink(t, in, out, syn)
	t.links = append(t.links, l)
	t.linkIndex[linkKey{in.id, out.id, syn.ID()}] = l
	in.outputs = append(in.outputs, l)
	out.inputs = append(out.inputs, l)
	t.queue.EmitElementEvent(queue.EventElementCreated, l)
	logging.Linking("[%s] linked %s", t.id, l)

	in.value.Connect(l.input, l.weight)
	l.input.Connect(out.net, 1)

	for _, bs := range l.TransitionBindingSignals(in.Signals()) {
		out.addBindingSignal(bs)
	}
	return l
}

// relatedSignals returns the signals sharing bs's origin, extended for
// positional synapses by the signals of tokens within the loosely related
// range of the origin's position.
func (t *Thought) relatedSignals(bs *BindingSignal, syn *network.Synapse) []*BindingSignal {
	out := append([]*BindingSignal(nil), t.signals[bs.origin.id]...)
	if !syn.Kind().Positional() || bs.origin.position < 0 {
		return out
	}

	r := t.cfg.LooselyRelatedRange
	var positions []int
	for p := bs.origin.position - r; p <= bs.origin.position+r; p++ {
		if p != bs.origin.position {
			positions = append(positions, p)
		}
	}
	sort.Ints(positions)
	for _, p := range positions {
		if tok, ok := t.tokens[p]; ok {
			out = append(out, t.signals[tok.id]...)
		}
	}
	return out
}

// latentActivationExists returns an activation of neuron n that already
// carries one of signals with the same origin and scope.
func (t *Thought) latentActivationExists(n *network.Neuron, signals []*BindingSignal) (*Activation, bool) {
	for _, act := range t.byNeuron[n.ID()] {
		for _, bs := range signals {
			if held, ok := act.signalIndex[bs.origin.id]; ok && held.scope == bs.scope {
				return act, true
			}
		}
	}
	return nil, false
}

// orient returns (input, output) for a candidate found while searching in
// direction dir from act.
func orient(act, cand *Activation, dir network.Direction) (in, out *Activation) {
	if dir == network.Input {
		return cand, act
	}
	return act, cand
}

// matchesScopes reports whether some origin carried by both in and out has
// scopes accepted by a match transition of kind.
func matchesScopes(kind network.SynapseKind, in, out *Activation) bool {
	for _, ibs := range in.signals {
		obs, ok := out.signalIndex[ibs.origin.id]
		if !ok {
			continue
		}
		if _, ok := kind.MatchTransition(ibs.scope, obs.scope); ok {
			return true
		}
	}
	return false
}
