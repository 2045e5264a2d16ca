package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/factory"
	"github.com/defistate/defistate-amm-go/protocols/pairs"
	"github.com/defistate/defistate-amm-go/protocols/tokens"
	"github.com/defistate/defistate-amm-go/routing"
	"github.com/defistate/defistate-amm-go/stateops"
	"github.com/defistate/defistate-amm-go/stream"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// maxEventSize bounds a single line of the event log.
const maxEventSize = 64 << 20

type replaySummary struct {
	Events    int           `json:"events"`
	Block     uint64        `json:"block"`
	Timestamp uint64        `json:"timestamp"`
	Tokens    []replayToken `json:"tokens"`
	Pairs     []replayPair  `json:"pairs"`
}

// replayToken reports how many pairs route through the token in the replayed graph.
type replayToken struct {
	ID      uint64         `json:"id"`
	Symbol  string         `json:"symbol"`
	Address common.Address `json:"address"`
	Pairs   int            `json:"pairs"`
}

type replayPair struct {
	Address  common.Address `json:"address"`
	Token0   string         `json:"token0"`
	Token1   string         `json:"token1"`
	Stable   bool           `json:"stable"`
	Reserve0 *big.Int       `json:"reserve0"`
	Reserve1 *big.Int       `json:"reserve1"`
}

func newReplayCmd() *cobra.Command {
	var eventsPath, logLevel string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild the exchange state from a recorded event log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), logLevel)
			if err != nil {
				return err
			}
			ops, err := stateops.NewStateOps(logger.With("component", "stateops"), prometheus.NewRegistry())
			if err != nil {
				return err
			}
			processor, err := stream.NewProcessor(stream.Config{
				Logger:       logger.With("component", "stream"),
				StatePatcher: ops.Patch,
				StateDecoder: ops.DecodeState,
				DiffDecoder:  ops.DecodeStateDiff,
			})
			if err != nil {
				return err
			}

			f, err := os.Open(eventsPath)
			if err != nil {
				return fmt.Errorf("failed to open events file: %w", err)
			}
			defer f.Close()

			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 1<<20), maxEventSize)
			events := 0
			for scanner.Scan() {
				line := scanner.Bytes()
				if len(line) == 0 {
					continue
				}
				events++
				if err := processor.ProcessMessage(line); err != nil {
					return fmt.Errorf("event %d: %w", events, err)
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read events file: %w", err)
			}

			state := processor.Latest()
			if state == nil {
				return fmt.Errorf("no full state found in %s", eventsPath)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summarize(state, events))
		},
	}
	cmd.Flags().StringVar(&eventsPath, "events", "events.jsonl", "Path to the event log written by run.")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error.")
	return cmd
}

func summarize(state *engine.State, events int) replaySummary {
	out := replaySummary{
		Events:    events,
		Block:     state.Block.Number,
		Timestamp: state.Block.Timestamp,
		Tokens:    []replayToken{},
		Pairs:     []replayPair{},
	}
	toks, _ := engine.Protocol[[]tokens.Token](state, factory.TokensProtocolID)
	ps, _ := engine.Protocol[[]pairs.Pair](state, factory.PairsProtocolID)
	view, _ := engine.Protocol[*routing.View](state, factory.GraphProtocolID)
	graph := routing.NewSystemFromView(view, 0)

	symbols := make(map[uint64]string, len(toks))
	for _, t := range toks {
		symbols[t.ID] = t.Symbol
		out.Tokens = append(out.Tokens, replayToken{
			ID:      t.ID,
			Symbol:  t.Symbol,
			Address: t.Address,
			Pairs:   len(graph.PairsForToken(t.ID)),
		})
	}
	for _, p := range ps {
		out.Pairs = append(out.Pairs, replayPair{
			Address:  p.Address,
			Token0:   symbols[p.Token0],
			Token1:   symbols[p.Token1],
			Stable:   p.Stable,
			Reserve0: p.Reserve0,
			Reserve1: p.Reserve1,
		})
	}
	return out
}
