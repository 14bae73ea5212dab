// Package engine turns documents into processed thoughts over a shared model.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sync/errgroup"

	"spreadnet/internal/config"
	"spreadnet/internal/logging"
	"spreadnet/internal/network"
	"spreadnet/internal/thought"
	"spreadnet/internal/tokenizer"
	"spreadnet/internal/trace"
)

// TokenLabelPrefix prefixes the label of every token neuron.
const TokenLabelPrefix = "token:"

// TokenLabel returns the neuron label for a normalized token.
func TokenLabel(norm string) string { return TokenLabelPrefix + norm }

// Document is one unit of input text.
type Document struct {
	Name string
	Text string
}

// ReadDocuments loads every path as a document named after its base name.
func ReadDocuments(paths []string) ([]Document, error) {
	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("engine: read %s: %w", p, err)
		}
		docs = append(docs, Document{Name: filepath.Base(p), Text: string(data)})
	}
	return docs, nil
}

// Result summarizes one processed document.
type Result struct {
	Document    string
	ThoughtID   string
	Tokens      []tokenizer.Token
	Activations int
	Fired       int
	Links       int
	Steps       int
	Duration    time.Duration

	// StepErr aggregates the failures of individual steps. The thought is
	// still drained when it is set.
	StepErr error

	Thought *thought.Thought
	Trace   *trace.Recorder
}

// Batch is the outcome of ProcessAll.
type Batch struct {
	ID       string
	Results  []*Result
	Duration time.Duration
	RSSBytes uint64
}

// Processor feeds documents through thoughts of one shared model.
type Processor struct {
	model   *network.Model
	cfg     *config.Config
	tok     *tokenizer.Tokenizer
	tracing bool
	log     *logging.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithTracing attaches a trace recorder to every thought and evaluates it
// after the drain.
func WithTracing() Option {
	return func(p *Processor) { p.tracing = true }
}

// WithTokenizer replaces the default tokenizer.
func WithTokenizer(t *tokenizer.Tokenizer) Option {
	return func(p *Processor) { p.tok = t }
}

// NewProcessor returns a processor over m. A nil cfg means defaults.
func NewProcessor(m *network.Model, cfg *config.Config, opts ...Option) *Processor {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	p := &Processor{
		model: m,
		cfg:   cfg,
		tok:   tokenizer.New(),
		log:   logging.Get(logging.CategoryEngine),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Model returns the shared model.
func (p *Processor) Model() *network.Model { return p.model }

// Process tokenizes doc, adds one token activation per token and drains the
// thought. Token neurons missing from the model are created.
func (p *Processor) Process(ctx context.Context, doc Document) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	res := &Result{
		Document:  doc.Name,
		ThoughtID: uuid.NewString(),
		Tokens:    p.tok.Tokenize(doc.Text),
	}

	var opts []thought.Option
	if p.tracing {
		rec, err := trace.NewRecorder()
		if err != nil {
			return nil, err
		}
		res.Trace = rec
		opts = append(opts, thought.WithListener(rec))
	}
	th := thought.New(res.ThoughtID, p.model, p.cfg.Engine, opts...)
	res.Thought = th

	for _, tok := range res.Tokens {
		n, created, err := p.model.GetOrCreateNeuron(TokenLabel(tok.Norm), network.KindToken, 0)
		if err != nil {
			return nil, fmt.Errorf("engine: token %q: %w", tok.Norm, err)
		}
		if created {
			p.log.Debug("created token neuron %s", n.Label())
		}
		if _, err := th.AddToken(n, tok.Position, tok.Begin, tok.End); err != nil {
			return nil, fmt.Errorf("engine: add token %q: %w", tok.Norm, err)
		}
	}

	res.StepErr = th.Process()
	if res.StepErr != nil {
		p.log.Warn("document %s: step failures: %v", doc.Name, res.StepErr)
	}
	if res.Trace != nil {
		if err := res.Trace.Evaluate(); err != nil {
			return nil, err
		}
	}

	for _, a := range th.Activations() {
		res.Activations++
		if a.IsFired() {
			res.Fired++
		}
	}
	res.Links = len(th.Links())
	res.Steps = th.Queue().ProcessedCount()
	res.Duration = time.Since(start)

	p.log.Info("processed %s (%s): %d tokens, %d activations, %d links, %d steps in %v",
		doc.Name, res.ThoughtID, len(res.Tokens), res.Activations, res.Links, res.Steps, res.Duration)
	return res, nil
}

// ProcessAll processes docs with at most cfg.Processor.Workers running at
// once. Results keep the order of docs. The first hard error cancels the
// remaining documents.
func (p *Processor) ProcessAll(ctx context.Context, docs []Document) (*Batch, error) {
	timer := logging.StartTimer(logging.CategoryEngine, fmt.Sprintf("batch of %d documents", len(docs)))
	defer timer.Stop()

	batch := &Batch{
		ID:      uuid.NewString(),
		Results: make([]*Result, len(docs)),
	}
	start := time.Now()

	workers := p.cfg.Processor.Workers
	if workers < 1 {
		workers = 1
	}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, doc := range docs {
		i, doc := i, doc
		eg.Go(func() error {
			res, err := p.Process(egCtx, doc)
			if err != nil {
				return fmt.Errorf("document %s: %w", doc.Name, err)
			}
			batch.Results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	batch.Duration = time.Since(start)
	batch.RSSBytes = residentBytes()
	return batch, nil
}

func residentBytes() uint64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0
	}
	return info.RSS
}
