package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-product-parser/models"
)

var (
	// ErrPipelineClosed is returned when Process is called after Close.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(products []models.Product) error
	Close() error
	Validate() error
}

// Options tunes how a Pipeline batches and filters records.
type Options struct {
	BatchSize     int
	Dedupe        bool
	DedupeMaxSize int
}

// DefaultOptions writes in batches of 64 and keeps every record.
func DefaultOptions() Options {
	return Options{
		BatchSize:     64,
		Dedupe:        false,
		DedupeMaxSize: 100000,
	}
}

// Pipeline feeds products to an OutputWriter in arrival order, flushing in
// batches. With Dedupe enabled, records whose URL was already written are
// skipped; the cache is bounded so very long runs may let old URLs through.
type Pipeline struct {
	writer    OutputWriter
	batchSize int
	batch     []models.Product
	seen      *lru.Cache[string, struct{}]

	written int
	skipped map[string]int

	closed bool
	err    error
}

// NewPipeline builds a pipeline writing to writer.
func NewPipeline(writer OutputWriter, opts Options) (*Pipeline, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}

	p := &Pipeline{
		writer:    writer,
		batchSize: opts.BatchSize,
		batch:     make([]models.Product, 0, opts.BatchSize),
		skipped:   make(map[string]int),
	}

	if opts.Dedupe {
		cache, err := lru.New[string, struct{}](opts.DedupeMaxSize)
		if err != nil {
			return nil, fmt.Errorf("create dedupe cache: %w", err)
		}
		p.seen = cache
	}
	return p, nil
}

// Process queues products for writing, flushing every full batch.
func (p *Pipeline) Process(products ...models.Product) error {
	if p.err != nil {
		return p.err
	}
	if p.closed {
		return ErrPipelineClosed
	}

	for _, product := range products {
		if p.duplicate(product) {
			p.skipped["duplicate_url"]++
			continue
		}
		p.batch = append(p.batch, product)
		if len(p.batch) >= p.batchSize {
			if err := p.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close flushes the pending batch and prevents more submissions. The
// underlying writer stays open; its owner closes it.
func (p *Pipeline) Close() error {
	if p.closed {
		return p.err
	}
	p.closed = true
	if p.err != nil {
		return p.err
	}
	return p.flush()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	return p.err
}

// Written returns the number of records handed to the writer so far.
func (p *Pipeline) Written() int {
	return p.written
}

// Skipped returns a copy of the per-reason skip counters.
func (p *Pipeline) Skipped() map[string]int {
	out := make(map[string]int, len(p.skipped))
	for reason, n := range p.skipped {
		out[reason] = n
	}
	return out
}

func (p *Pipeline) duplicate(product models.Product) bool {
	if p.seen == nil || product.URL == "" {
		return false
	}
	found, _ := p.seen.ContainsOrAdd(product.URL, struct{}{})
	return found
}

func (p *Pipeline) flush() error {
	if len(p.batch) == 0 {
		return nil
	}
	if err := p.writer.Write(p.batch); err != nil {
		p.err = fmt.Errorf("write batch: %w", err)
		return p.err
	}
	p.written += len(p.batch)
	slog.Debug("batch written", slog.Int("size", len(p.batch)))
	p.batch = p.batch[:0]
	return nil
}
