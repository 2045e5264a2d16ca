package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

var ErrInvalidScenario = errors.New("scenario: invalid")

// Action names a scenario step.
type Action string

const (
	ActionMint                  Action = "mint"
	ActionApprove               Action = "approve"
	ActionAdvanceTime           Action = "advance_time"
	ActionCreatePair            Action = "create_pair"
	ActionAddLiquidity          Action = "add_liquidity"
	ActionAddLiquidityNative    Action = "add_liquidity_native"
	ActionRemoveLiquidity       Action = "remove_liquidity"
	ActionRemoveLiquidityNative Action = "remove_liquidity_native"
	ActionSwap                  Action = "swap"
	ActionSwapNativeForTokens   Action = "swap_native_for_tokens"
	ActionSwapTokensForNative   Action = "swap_tokens_for_native"
	ActionQuote                 Action = "quote"
	ActionClaimFees             Action = "claim_fees"
	ActionSetFeeTo              Action = "set_fee_to"
	ActionSync                  Action = "sync"
)

// NativeSymbol refers to the wrapped native token in token fields and paths.
const NativeSymbol = "NATIVE"

type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	Tokens        []TokenSpec   `yaml:"tokens"`
	WrappedNative TokenSpec     `yaml:"wrapped_native"`
	Accounts      []AccountSpec `yaml:"accounts"`
	Steps         []Step        `yaml:"steps"`
}

type TokenSpec struct {
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	Address  string `yaml:"address"`
	Decimals uint8  `yaml:"decimals"`
}

// AccountSpec is a named externally owned account with its genesis balances, keyed by symbol.
// Every account approves the router for its full token balances at genesis.
type AccountSpec struct {
	Name     string            `yaml:"name"`
	Address  string            `yaml:"address"`
	Native   string            `yaml:"native"`
	Balances map[string]string `yaml:"balances"`
}

// Step is one transaction of a scenario. Which fields apply depends on Action; amounts are
// human decimals in the units of the token they refer to.
type Step struct {
	Description string `yaml:"description"`
	Action      Action `yaml:"action"`
	Account     string `yaml:"account"`
	// To names the recipient account and defaults to Account.
	To string `yaml:"to"`

	TokenA string `yaml:"token_a"`
	TokenB string `yaml:"token_b"`
	Stable bool   `yaml:"stable"`

	AmountA string `yaml:"amount_a"`
	AmountB string `yaml:"amount_b"`
	Amount  string `yaml:"amount"`
	MinOut  string `yaml:"min_out"`
	Value   string `yaml:"value"`

	// Path lists token symbols from input to output. An empty path lets the router search for
	// the best route of at most MaxHops hops.
	Path    []string `yaml:"path"`
	MaxHops int      `yaml:"max_hops"`

	Seconds uint64 `yaml:"seconds"`

	// ExpectError marks a step that must fail with an error containing this text.
	ExpectError string `yaml:"expect_error"`
}

// Recipient returns To, falling back to the sending account.
func (s Step) Recipient() string {
	if s.To != "" {
		return s.To
	}
	return s.Account
}

// LoadScenario reads and validates the scenario at path.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Decimals returns the precision of the token with the given symbol.
func (sc *Scenario) Decimals(symbol string) (uint8, bool) {
	if symbol == NativeSymbol {
		return 18, true
	}
	for _, t := range sc.Tokens {
		if t.Symbol == symbol {
			return t.Decimals, true
		}
	}
	return 0, false
}

func (sc *Scenario) validate() error {
	addresses := make(map[common.Address]string)
	claim := func(owner, addr string) error {
		if !common.IsHexAddress(addr) || common.HexToAddress(addr) == (common.Address{}) {
			return fmt.Errorf("%w: %s address %q is not a non-zero address", ErrInvalidScenario, owner, addr)
		}
		a := common.HexToAddress(addr)
		if prev, ok := addresses[a]; ok {
			return fmt.Errorf("%w: %s and %s share address %s", ErrInvalidScenario, prev, owner, a.Hex())
		}
		addresses[a] = owner
		return nil
	}

	if len(sc.Tokens) == 0 {
		return fmt.Errorf("%w: no tokens", ErrInvalidScenario)
	}
	symbols := make(map[string]bool, len(sc.Tokens))
	for _, t := range sc.Tokens {
		if t.Symbol == "" || t.Symbol == NativeSymbol {
			return fmt.Errorf("%w: token symbol %q is reserved or empty", ErrInvalidScenario, t.Symbol)
		}
		if t.Decimals > 77 {
			return fmt.Errorf("%w: token %s has %d decimals", ErrInvalidScenario, t.Symbol, t.Decimals)
		}
		if symbols[t.Symbol] {
			return fmt.Errorf("%w: duplicate token %s", ErrInvalidScenario, t.Symbol)
		}
		symbols[t.Symbol] = true
		if err := claim("token "+t.Symbol, t.Address); err != nil {
			return err
		}
	}
	if sc.WrappedNative.Address != "" {
		if err := claim("wrapped native", sc.WrappedNative.Address); err != nil {
			return err
		}
	}

	accounts := make(map[string]bool, len(sc.Accounts))
	for _, a := range sc.Accounts {
		if a.Name == "" || accounts[a.Name] {
			return fmt.Errorf("%w: account name %q is empty or duplicated", ErrInvalidScenario, a.Name)
		}
		accounts[a.Name] = true
		if err := claim("account "+a.Name, a.Address); err != nil {
			return err
		}
		if a.Native != "" {
			if _, err := ParseAmount(a.Native, 18); err != nil {
				return fmt.Errorf("%w: account %s native: %v", ErrInvalidScenario, a.Name, err)
			}
		}
		for symbol, amount := range a.Balances {
			decimals, ok := sc.Decimals(symbol)
			if !ok || symbol == NativeSymbol {
				return fmt.Errorf("%w: account %s holds unknown token %s", ErrInvalidScenario, a.Name, symbol)
			}
			if _, err := ParseAmount(amount, decimals); err != nil {
				return fmt.Errorf("%w: account %s balance of %s: %v", ErrInvalidScenario, a.Name, symbol, err)
			}
		}
	}

	for i, step := range sc.Steps {
		if err := sc.validateStep(step, accounts); err != nil {
			return fmt.Errorf("%w: step %d (%s): %v", ErrInvalidScenario, i, step.Action, err)
		}
	}
	return nil
}

// stepFields lists the fields each action requires.
var stepFields = map[Action][]string{
	ActionMint:                  {"account", "token_a", "amount"},
	ActionApprove:               {"account", "token_a", "amount"},
	ActionAdvanceTime:           {"seconds"},
	ActionCreatePair:            {"account", "token_a", "token_b"},
	ActionAddLiquidity:          {"account", "token_a", "token_b", "amount_a", "amount_b"},
	ActionAddLiquidityNative:    {"account", "token_a", "amount_a", "value"},
	ActionRemoveLiquidity:       {"account", "token_a", "token_b", "amount"},
	ActionRemoveLiquidityNative: {"account", "token_a", "amount"},
	ActionSwap:                  {"account", "amount"},
	ActionSwapNativeForTokens:   {"account", "value"},
	ActionSwapTokensForNative:   {"account", "amount"},
	ActionQuote:                 {"amount"},
	ActionClaimFees:             {"account", "token_a", "token_b"},
	ActionSetFeeTo:              {"account", "to"},
	ActionSync:                  {"account", "token_a", "token_b"},
}

func (sc *Scenario) validateStep(step Step, accounts map[string]bool) error {
	required, ok := stepFields[step.Action]
	if !ok {
		return fmt.Errorf("unknown action %q", step.Action)
	}
	values := map[string]bool{
		"account":  step.Account != "",
		"to":       step.To != "",
		"token_a":  step.TokenA != "",
		"token_b":  step.TokenB != "",
		"amount_a": step.AmountA != "",
		"amount_b": step.AmountB != "",
		"amount":   step.Amount != "",
		"value":    step.Value != "",
		"seconds":  step.Seconds > 0,
	}
	for _, field := range required {
		if !values[field] {
			return fmt.Errorf("%s is required", field)
		}
	}

	for _, name := range []string{step.Account, step.To} {
		if name != "" && !accounts[name] {
			return fmt.Errorf("unknown account %q", name)
		}
	}
	for _, symbol := range append([]string{step.TokenA, step.TokenB}, step.Path...) {
		if symbol == "" {
			continue
		}
		if _, ok := sc.Decimals(symbol); !ok {
			return fmt.Errorf("unknown token %q", symbol)
		}
	}

	switch step.Action {
	case ActionSwap, ActionQuote:
		if len(step.Path) == 0 && (step.TokenA == "" || step.TokenB == "") {
			return errors.New("either path or token_a and token_b are required")
		}
		if len(step.Path) == 1 {
			return errors.New("path needs at least two tokens")
		}
	case ActionSwapNativeForTokens, ActionSwapTokensForNative:
		if len(step.Path) < 2 && step.TokenA == "" {
			return errors.New("either path or token_a is required")
		}
	}
	if step.MaxHops < 0 {
		return errors.New("max_hops must not be negative")
	}
	return nil
}
