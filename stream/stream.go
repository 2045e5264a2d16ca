// Package stream carries exchange snapshots as a sequence of full-state and diff events and
// rebuilds the latest state on the consuming side.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/defistate/defistate-amm-go/differ"
	"github.com/defistate/defistate-amm-go/engine"
)

const (
	EventFull = "full"
	EventDiff = "diff"
)

var ErrDiffBeforeState = errors.New("stream: diff received before a full state")

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Event is the envelope of every message on a stream.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	SentAt  int64           `json:"sentAt"`
}

// NewFullEvent wraps a complete snapshot.
func NewFullEvent(state *engine.State) (Event, error) {
	return newEvent(EventFull, state)
}

// NewDiffEvent wraps the delta between two consecutive snapshots.
func NewDiffEvent(diff *differ.StateDiff) (Event, error) {
	return newEvent(EventDiff, diff)
}

func newEvent(kind string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return Event{Type: kind, Payload: data, SentAt: time.Now().UnixNano()}, nil
}

// StatePatcherFunc applies a diff to the previous state.
type StatePatcherFunc func(prevState *engine.State, diff *differ.StateDiff) (*engine.State, error)

type StateDecoderFunc func(data []byte) (*engine.State, error)

type DiffDecoderFunc func(data []byte) (*differ.StateDiff, error)

// Config holds the processor's dependencies. A zero BufferSize disables the State channel;
// Latest still tracks every update.
type Config struct {
	Logger       Logger
	BufferSize   uint
	StatePatcher StatePatcherFunc
	StateDecoder StateDecoderFunc
	DiffDecoder  DiffDecoderFunc
}

func (c *Config) validate() error {
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.StatePatcher == nil {
		return errors.New("config: StatePatcher is required")
	}
	if c.StateDecoder == nil {
		return errors.New("config: StateDecoder is required")
	}
	if c.DiffDecoder == nil {
		return errors.New("config: DiffDecoder is required")
	}
	return nil
}

// Processor parses events, keeps the latest state and broadcasts each update.
// It is independent of how events are transported. It is not safe for concurrent use.
type Processor struct {
	lastState    *engine.State
	statePatcher StatePatcherFunc
	stateDecoder StateDecoderFunc
	diffDecoder  DiffDecoderFunc
	stateCh      chan *engine.State
	logger       Logger
}

func NewProcessor(cfg Config) (*Processor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	p := &Processor{
		statePatcher: cfg.StatePatcher,
		stateDecoder: cfg.StateDecoder,
		diffDecoder:  cfg.DiffDecoder,
		logger:       cfg.Logger,
	}
	if cfg.BufferSize > 0 {
		p.stateCh = make(chan *engine.State, cfg.BufferSize)
	}
	return p, nil
}

// State returns the channel updates are published on, nil when BufferSize was zero.
// Publishing blocks while the channel is full.
func (p *Processor) State() <-chan *engine.State {
	return p.stateCh
}

// Latest returns the most recent state, or nil before the first full event.
func (p *Processor) Latest() *engine.State {
	return p.lastState
}

// ProcessMessage decodes one raw event and applies it.
func (p *Processor) ProcessMessage(raw json.RawMessage) error {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return fmt.Errorf("failed to unmarshal stream event: %w", err)
	}
	return p.Process(event)
}

// Process applies an already decoded envelope.
func (p *Processor) Process(event Event) error {
	start := time.Now()
	switch event.Type {
	case EventFull:
		return p.handleFullState(event, start)
	case EventDiff:
		return p.handleDiff(event, start)
	default:
		return fmt.Errorf("stream: unknown event type %q", event.Type)
	}
}

func (p *Processor) handleFullState(event Event, start time.Time) error {
	state, err := p.stateDecoder(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to decode full state: %w", err)
	}
	p.publish(state, event, start)
	return nil
}

func (p *Processor) handleDiff(event Event, start time.Time) error {
	diff, err := p.diffDecoder(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to decode diff: %w", err)
	}
	if p.lastState == nil {
		return fmt.Errorf("%w: from_block %d, to_block %d", ErrDiffBeforeState, diff.FromBlock, diff.ToBlock.Number)
	}

	if last := p.lastState.Block.Number; diff.FromBlock != last {
		p.logger.Warn("Received out-of-order diff; discarding",
			"last_known_block", last,
			"diff_from_block", diff.FromBlock,
			"diff_to_block", diff.ToBlock.Number,
		)
		return nil
	}

	state, err := p.statePatcher(p.lastState, diff)
	if err != nil {
		return fmt.Errorf("failed to patch state: %w", err)
	}
	p.publish(state, event, start)
	return nil
}

func (p *Processor) publish(state *engine.State, event Event, start time.Time) {
	p.lastState = state
	p.logUpdate(state, event, time.Since(start))
	if p.stateCh != nil {
		p.stateCh <- state
	}
}

func (p *Processor) logUpdate(state *engine.State, event Event, processing time.Duration) {
	errorCount := 0
	for _, ps := range state.Protocols {
		if ps.Error != "" {
			errorCount++
		}
	}
	p.logger.Debug("State processed",
		"block", state.Block.Number,
		"type", event.Type,
		"protocols", len(state.Protocols),
		"errors", errorCount,
		"latency_transport_ms", time.Since(time.Unix(0, event.SentAt)).Milliseconds()-processing.Milliseconds(),
		"latency_proc_ms", processing.Milliseconds(),
	)
}
