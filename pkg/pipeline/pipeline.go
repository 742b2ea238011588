package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Errors returned by pipeline operations.
var (
	// ErrDuplicateStage indicates a stage with the same name is already present.
	ErrDuplicateStage = errors.New("duplicate stage name")

	// ErrStageNotFound indicates the named stage is not in the pipeline.
	ErrStageNotFound = errors.New("stage not found")

	// ErrPipelineSealed indicates a mutation or rebuild was attempted after Build.
	ErrPipelineSealed = errors.New("pipeline sealed")

	// ErrNotBuilt indicates an operation that requires a built pipeline.
	ErrNotBuilt = errors.New("pipeline not built")
)

// Stage wraps a connection with one protocol layer.
//
// A stage sees the connection produced by the stage below it (closer to
// the network) and produces the connection consumed by the stage above it.
type Stage interface {
	// Name identifies the stage within a pipeline. Names are unique per chain.
	Name() string

	// Wrap layers the stage over conn. All reads and writes of the layers
	// above this stage pass through the returned connection.
	Wrap(conn net.Conn) (net.Conn, error)
}

// handshaker is implemented by stage connections that perform an explicit
// handshake before application data can flow (e.g. *tls.Conn).
type handshaker interface {
	HandshakeContext(ctx context.Context) error
}

// Pipeline is an ordered chain of stages applied to a raw connection.
// Index 0 is closest to the network. After Build the pipeline is sealed
// and the stage set can no longer change.
type Pipeline struct {
	stages []Stage
	built  []net.Conn // per-stage connections, filled by Build
	sealed bool
}

// New returns a pipeline over the given stages, network side first.
func New(stages ...Stage) (*Pipeline, error) {
	p := &Pipeline{}
	for _, s := range stages {
		if err := p.Append(s); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Append adds a stage at the application end of the chain.
func (p *Pipeline) Append(s Stage) error {
	return p.insert(len(p.stages), s)
}

// PushFront adds a stage at the network end of the chain.
func (p *Pipeline) PushFront(s Stage) error {
	return p.insert(0, s)
}

// InsertBefore adds a stage immediately on the network side of the named
// stage, so the new stage processes inbound bytes first.
func (p *Pipeline) InsertBefore(name string, s Stage) error {
	i := p.indexOf(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrStageNotFound, name)
	}
	return p.insert(i, s)
}

func (p *Pipeline) insert(i int, s Stage) error {
	if p.sealed {
		return ErrPipelineSealed
	}
	if p.indexOf(s.Name()) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateStage, s.Name())
	}
	p.stages = append(p.stages, nil)
	copy(p.stages[i+1:], p.stages[i:])
	p.stages[i] = s
	return nil
}

func (p *Pipeline) indexOf(name string) int {
	for i, s := range p.stages {
		if s.Name() == name {
			return i
		}
	}
	return -1
}

// Contains reports whether the named stage is in the chain.
func (p *Pipeline) Contains(name string) bool {
	return p.indexOf(name) >= 0
}

// Names returns the stage names in order, network side first.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Sealed reports whether Build has run.
func (p *Pipeline) Sealed() bool {
	return p.sealed
}

// Build wraps raw with every stage in order and seals the pipeline.
// The returned connection is the application end of the chain. A failing
// stage aborts the build; the caller still owns raw and must close it.
func (p *Pipeline) Build(raw net.Conn) (net.Conn, error) {
	if p.sealed {
		return nil, ErrPipelineSealed
	}
	conn := raw
	built := make([]net.Conn, 0, len(p.stages))
	for _, s := range p.stages {
		c, err := s.Wrap(conn)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", s.Name(), err)
		}
		built = append(built, c)
		conn = c
	}
	p.built = built
	p.sealed = true
	return conn, nil
}

// Handshake drives the explicit handshake of every built stage that has
// one, network side first. Build must have been called.
func (p *Pipeline) Handshake(ctx context.Context) error {
	if !p.sealed {
		return ErrNotBuilt
	}
	for i, c := range p.built {
		h, ok := c.(handshaker)
		if !ok {
			continue
		}
		if err := h.HandshakeContext(ctx); err != nil {
			return fmt.Errorf("stage %q handshake: %w", p.stages[i].Name(), err)
		}
	}
	return nil
}

// Conn returns the connection produced by the named stage, if built.
func (p *Pipeline) Conn(name string) (net.Conn, bool) {
	i := p.indexOf(name)
	if i < 0 || i >= len(p.built) {
		return nil, false
	}
	return p.built[i], true
}
