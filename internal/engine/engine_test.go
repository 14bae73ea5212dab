package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"spreadnet/internal/config"
	"spreadnet/internal/network"
	"spreadnet/internal/thought"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func demoProcessor(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	m := network.NewModel(nil)
	require.NoError(t, BuildDemoModel(m))
	return NewProcessor(m, nil, opts...)
}

func activationOf(t *testing.T, p *Processor, th *thought.Thought, label string) *thought.Activation {
	t.Helper()
	n, err := p.Model().NeuronByLabel(label)
	require.NoError(t, err)
	acts := th.ActivationsOf(n.ID())
	require.Len(t, acts, 1, "activations of %s", label)
	return acts[0]
}

func relationLinks(th *thought.Thought) []*thought.Link {
	var out []*thought.Link
	for _, l := range th.Links() {
		if l.Synapse().Kind() == network.KindRelation {
			out = append(out, l)
		}
	}
	return out
}

func TestProcessor_DemoPhrase(t *testing.T) {
	p := demoProcessor(t)
	res, err := p.Process(context.Background(), Document{Name: "d", Text: "New York"})
	require.NoError(t, err)
	require.NoError(t, res.StepErr)

	assert.NotEmpty(t, res.ThoughtID)
	require.Len(t, res.Tokens, 2)
	assert.Equal(t, "new", res.Tokens[0].Norm)
	assert.Equal(t, "york", res.Tokens[1].Norm)

	newAct := activationOf(t, p, res.Thought, "token:new")
	yorkAct := activationOf(t, p, res.Thought, "token:york")
	assert.True(t, newAct.IsFired())
	assert.True(t, yorkAct.IsFired())

	rel := relationLinks(res.Thought)
	require.Len(t, rel, 1)
	assert.Same(t, newAct, rel[0].Input())
	assert.Same(t, yorkAct, rel[0].Output())

	bind := activationOf(t, p, res.Thought, "binding:new@new_york")
	assert.True(t, bind.IsFired())

	assert.Equal(t, len(res.Thought.Activations()), res.Activations)
	assert.Equal(t, len(res.Thought.Links()), res.Links)
	assert.Greater(t, res.Steps, 0)
	assert.Equal(t, 0, res.Thought.Queue().Len())
}

func patternInputs(act *thought.Activation) []*thought.Link {
	var out []*thought.Link
	for _, l := range act.Inputs() {
		if l.Synapse().Kind() == network.KindPatternInput {
			out = append(out, l)
		}
	}
	return out
}

func TestProcessor_PhraseJoinsOnePattern(t *testing.T) {
	p := demoProcessor(t)
	res, err := p.Process(context.Background(), Document{Name: "d", Text: "New York"})
	require.NoError(t, err)
	require.NoError(t, res.StepErr)

	pat := activationOf(t, p, res.Thought, "pattern:new_york")
	assert.True(t, pat.IsFired())
	in := patternInputs(pat)
	require.Len(t, in, 2)
	assert.ElementsMatch(t,
		[]string{"binding:new@new_york", "binding:york@new_york"},
		[]string{in[0].Input().Neuron().Label(), in[1].Input().Neuron().Label()})

	newAct := activationOf(t, p, res.Thought, "token:new")
	yorkAct := activationOf(t, p, res.Thought, "token:york")
	for _, origin := range []*thought.Activation{newAct, yorkAct} {
		bs, ok := pat.Signal(origin)
		require.True(t, ok)
		assert.Equal(t, network.ScopeSame, bs.Scope())
	}

	cat := activationOf(t, p, res.Thought, "category:phrase")
	assert.Len(t, cat.Inputs(), 1)
	assert.Equal(t, 0, res.Thought.Queue().Len())
}

func TestProcessor_RelationNeedsOrder(t *testing.T) {
	p := demoProcessor(t)
	res, err := p.Process(context.Background(), Document{Name: "d", Text: "york new"})
	require.NoError(t, err)
	assert.Empty(t, relationLinks(res.Thought))

	// Without the relation each binding opens its own pattern activation.
	n, err := p.Model().NeuronByLabel("pattern:new_york")
	require.NoError(t, err)
	pats := res.Thought.ActivationsOf(n.ID())
	require.Len(t, pats, 2)
	for _, pat := range pats {
		assert.Len(t, patternInputs(pat), 1)
	}
}

func TestProcessor_Inhibition(t *testing.T) {
	p := demoProcessor(t)
	res, err := p.Process(context.Background(), Document{Name: "d", Text: "bank"})
	require.NoError(t, err)
	require.NoError(t, res.StepErr)

	inh := activationOf(t, p, res.Thought, "inhibitory:bank")
	assert.Len(t, inh.Inputs(), 2)
	for _, l := range inh.Outputs() {
		assert.True(t, l.IsNegative())
	}
}

func TestProcessor_UnknownWords(t *testing.T) {
	p := demoProcessor(t)
	before := p.Model().NeuronCount()

	res, err := p.Process(context.Background(), Document{Name: "d", Text: "hello world hello"})
	require.NoError(t, err)
	assert.Equal(t, before+2, p.Model().NeuronCount())
	assert.Equal(t, 3, res.Activations)
	assert.Equal(t, 3, res.Fired)
	assert.Equal(t, 0, res.Links)

	_, err = p.Model().NeuronByLabel("token:hello")
	assert.NoError(t, err)
}

func TestProcessor_ProcessAll(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Processor.Workers = 3
	m := network.NewModel(nil)
	require.NoError(t, BuildDemoModel(m))
	p := NewProcessor(m, cfg)
	before := m.NeuronCount()

	var docs []Document
	for i := 0; i < 8; i++ {
		docs = append(docs, Document{
			Name: fmt.Sprintf("doc-%d", i),
			Text: fmt.Sprintf("new york shared word%d", i%2),
		})
	}
	batch, err := p.ProcessAll(context.Background(), docs)
	require.NoError(t, err)
	assert.NotEmpty(t, batch.ID)
	require.Len(t, batch.Results, len(docs))

	ids := make(map[string]bool)
	for i, res := range batch.Results {
		require.NotNil(t, res)
		assert.Equal(t, docs[i].Name, res.Document)
		assert.NoError(t, res.StepErr)
		assert.Len(t, relationLinks(res.Thought), 1)
		ids[res.ThoughtID] = true
	}
	assert.Len(t, ids, len(docs))

	// shared, word0 and word1 are created exactly once.
	assert.Equal(t, before+3, m.NeuronCount())
}

func TestProcessor_ProcessAllCancelled(t *testing.T) {
	p := demoProcessor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ProcessAll(ctx, []Document{{Name: "a", Text: "new"}, {Name: "b", Text: "york"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestProcessor_Tracing(t *testing.T) {
	p := demoProcessor(t, WithTracing())
	res, err := p.Process(context.Background(), Document{Name: "d", Text: "new york"})
	require.NoError(t, err)
	require.NotNil(t, res.Trace)

	newAct := activationOf(t, p, res.Thought, "token:new")
	yorkAct := activationOf(t, p, res.Thought, "token:york")
	ok, err := res.Trace.Reaches(newAct.ElementID(), yorkAct.ElementID())
	require.NoError(t, err)
	assert.True(t, ok)

	again, err := res.Trace.Reprocessed()
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestReadDocuments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("new york"), 0644))

	docs, err := ReadDocuments([]string{path})
	require.NoError(t, err)
	assert.Equal(t, []Document{{Name: "a.txt", Text: "new york"}}, docs)

	_, err = ReadDocuments([]string{filepath.Join(dir, "missing.txt")})
	assert.Error(t, err)
}

type outcome struct {
	path string
	res  *Result
	err  error
}

func TestWatcher_ProcessesNewFiles(t *testing.T) {
	dir := t.TempDir()
	p := demoProcessor(t)
	got := make(chan outcome, 16)
	w, err := NewWatcher(dir, p, func(path string, res *Result, err error) {
		select {
		case got <- outcome{path, res, err}:
		default:
		}
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	tmp := filepath.Join(dir, "doc.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("San Francisco"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.md"), []byte("new york"), 0644))
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, "doc.txt")))

	select {
	case o := <-got:
		require.NoError(t, o.err)
		assert.Equal(t, "doc.txt", filepath.Base(o.path))
		assert.Len(t, o.res.Tokens, 2)
		assert.Len(t, relationLinks(o.res.Thought), 1)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not process the document")
	}

	w.Stop()
	stats := w.Stats()
	assert.GreaterOrEqual(t, stats.Processed, 1)
	assert.Equal(t, 0, stats.Errors)
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), demoProcessor(t), nil)
	require.NoError(t, err)
	w.Stop()
	assert.ErrorIs(t, w.Start(context.Background()), ErrWatcherStopped)
}
