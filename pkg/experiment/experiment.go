// Package experiment records sampling results. An Experiment is a named
// output destination created on first use; its rows go to one or more
// sinks (CSV files, a SQLite database).
package experiment

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrInvalidName is returned for experiment names that are empty or would
// escape the output directory.
var ErrInvalidName = errors.New("experiment: invalid name")

// Sink receives experiment rows.
type Sink interface {
	AppendPerformance(PerformanceRow) error
	AppendData(DataRow) error
	Close() error
}

// Experiment is a named stream of performance and data rows.
type Experiment struct {
	ID   uuid.UUID
	Name string

	mu   sync.Mutex
	sink Sink
	perf int
	data int
}

func (e *Experiment) AppendPerformance(r PerformanceRow) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.sink.AppendPerformance(r); err != nil {
		return fmt.Errorf("experiment %s: %w", e.Name, err)
	}
	e.perf++
	return nil
}

func (e *Experiment) AppendData(r DataRow) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.sink.AppendData(r); err != nil {
		return fmt.Errorf("experiment %s: %w", e.Name, err)
	}
	e.data++
	return nil
}

// Counts returns how many performance and data rows were written.
func (e *Experiment) Counts() (perf, data int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.perf, e.data
}

// SinkFactory opens the sink for a new experiment.
type SinkFactory func(id uuid.UUID, name string) (Sink, error)

// Registry creates experiments lazily and closes them together.
type Registry struct {
	mu          sync.Mutex
	factory     SinkFactory
	experiments map[string]*Experiment
	order       []string
	log         *slog.Logger
}

// NewRegistry returns a registry that opens sinks with factory.
func NewRegistry(factory SinkFactory, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		factory:     factory,
		experiments: make(map[string]*Experiment),
		log:         logger,
	}
}

// ValidateName rejects names that cannot be used as a directory name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Get returns the experiment called name, opening it on first reference.
func (r *Registry) Get(name string) (*Experiment, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.experiments[name]; ok {
		return e, nil
	}
	id := uuid.New()
	sink, err := r.factory(id, name)
	if err != nil {
		return nil, fmt.Errorf("experiment %s: open: %w", name, err)
	}
	e := &Experiment{ID: id, Name: name, sink: sink}
	r.experiments[name] = e
	r.order = append(r.order, name)
	r.log.Info("experiment opened", "name", name, "id", id)
	return e, nil
}

// Names lists experiments in the order they were opened.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Close closes every experiment's sink. The registry is empty afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, name := range r.order {
		e := r.experiments[name]
		e.mu.Lock()
		if err := e.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("experiment %s: close: %w", name, err))
		}
		e.mu.Unlock()
	}
	r.experiments = make(map[string]*Experiment)
	r.order = nil
	return errors.Join(errs...)
}

// MultiSink writes every row to all of its sinks.
type MultiSink []Sink

var _ Sink = MultiSink(nil)

func (m MultiSink) AppendPerformance(r PerformanceRow) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.AppendPerformance(r))
	}
	return errors.Join(errs...)
}

func (m MultiSink) AppendData(r DataRow) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.AppendData(r))
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
