package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/defistate/defistate-amm-go/chain"
	"github.com/defistate/defistate-amm-go/cmd/ammsim/config"
	"github.com/defistate/defistate-amm-go/differ"
	"github.com/defistate/defistate-amm-go/stream"
	"github.com/ethereum/go-ethereum/common"
)

// Result is the outcome of one step, printed as a JSON line.
type Result struct {
	Step        int               `json:"step"`
	Description string            `json:"description,omitempty"`
	Action      config.Action     `json:"action"`
	Height      uint64            `json:"height"`
	Timestamp   uint64            `json:"timestamp"`
	Output      map[string]string `json:"output,omitempty"`
	Error       string            `json:"error,omitempty"`
	// Expected is set when the step failed as its expect_error asked.
	Expected bool `json:"expected,omitempty"`
	// Logs are the contract events the step committed, in emission order.
	Logs []LogEntry        `json:"logs,omitempty"`
	Diff *differ.StateDiff `json:"diff,omitempty"`
}

// LogEntry is one committed contract event.
type LogEntry struct {
	Address  common.Address `json:"address"`
	Contract string         `json:"contract,omitempty"`
	Event    string         `json:"event"`
	Data     chain.Event    `json:"data"`
}

// Run executes every step in order, writing one Result per line to out. A failing step is
// reported and logged but does not stop the run. It returns the number of steps whose outcome
// did not match the scenario.
func (w *World) Run(ctx context.Context, out io.Writer) (failed int, err error) {
	enc := json.NewEncoder(out)
	w.logger.Info("scenario started", "name", w.scenario.Name, "steps", len(w.scenario.Steps))

	for i, step := range w.scenario.Steps {
		if err := ctx.Err(); err != nil {
			return failed, err
		}
		res := w.step(i, step)
		res.Logs = w.committedLogs()
		if res.Error != "" && !res.Expected {
			failed++
			w.logger.Warn("step failed", "step", i, "action", step.Action, "error", res.Error)
		}
		diff, err := w.advanceReplica()
		if err != nil {
			w.logger.Error("failed to follow state", "step", i, "error", err)
		} else if w.diffs {
			res.Diff = diff
		}
		if err := enc.Encode(res); err != nil {
			return failed, fmt.Errorf("failed to write step %d result: %w", i, err)
		}
	}

	w.logger.Info("scenario finished", "name", w.scenario.Name, "failed", failed, "height", w.host.Height())
	return failed, nil
}

func (w *World) step(i int, step config.Step) Result {
	res := Result{Step: i, Description: step.Description, Action: step.Action}
	output, err := w.Execute(step)
	res.Output = output
	res.Height = w.host.Height()
	res.Timestamp = w.host.Now()

	switch {
	case err != nil:
		res.Error = err.Error()
		res.Expected = step.ExpectError != "" && strings.Contains(res.Error, step.ExpectError)
	case step.ExpectError != "":
		res.Error = fmt.Sprintf("expected an error containing %q, step succeeded", step.ExpectError)
	}
	w.logger.Debug("step executed", "step", i, "action", step.Action, "error", res.Error)
	return res
}

// committedLogs drains the batches the host published since the last call.
func (w *World) committedLogs() []LogEntry {
	var out []LogEntry
	for {
		select {
		case batch := <-w.logs:
			for _, l := range batch {
				out = append(out, LogEntry{
					Address:  l.Address,
					Contract: w.contractLabel(l.Address),
					Event:    l.Event.EventName(),
					Data:     l.Event,
				})
			}
		default:
			return out
		}
	}
}

func (w *World) contractLabel(addr common.Address) string {
	if addr == w.factory.Address() {
		return "factory"
	}
	if c, ok := w.host.Contract(addr); ok {
		if named, ok := c.(interface{ Symbol() string }); ok {
			return named.Symbol()
		}
	}
	return ""
}

// advanceReplica diffs the live snapshot against the previous one and publishes the diff as a
// stream event, the way a downstream consumer would follow the exchange.
func (w *World) advanceReplica() (*differ.StateDiff, error) {
	next := w.factory.Snapshot()
	diff, err := w.ops.Diff(w.last, next)
	if err != nil {
		return nil, err
	}
	event, err := stream.NewDiffEvent(diff)
	if err != nil {
		return nil, err
	}
	if err := w.publish(event); err != nil {
		return nil, fmt.Errorf("failed to patch replica: %w", err)
	}
	w.last = next
	return diff, nil
}
