package token

import (
	"github.com/defistate/defistate-amm-go/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// DepositEvent is emitted when native value is wrapped.
type DepositEvent struct {
	Account common.Address
	Value   *uint256.Int
}

func (DepositEvent) EventName() string { return "Deposit" }

// WithdrawalEvent is emitted when wrapped tokens are redeemed for native value.
type WithdrawalEvent struct {
	Account common.Address
	Value   *uint256.Int
}

func (WithdrawalEvent) EventName() string { return "Withdrawal" }

// WrappedNative is an 18-decimal ERC20 backed 1:1 by the native asset it holds.
type WrappedNative struct {
	*ERC20
}

// NewWrappedNative deploys the wrapper at addr.
func NewWrappedNative(host *chain.Host, addr common.Address, name, symbol string) *WrappedNative {
	w := &WrappedNative{ERC20: NewERC20(host, addr, name, symbol, 18)}
	host.Register(addr, w)
	return w
}

// Deposit wraps value attached by sender.
func (w *WrappedNative) Deposit(sender common.Address, value *uint256.Int) error {
	if err := w.host.TransferValue(sender, w.address, value); err != nil {
		return err
	}
	if err := w.Mint(sender, value); err != nil {
		return err
	}
	w.host.Emit(w.address, DepositEvent{Account: sender, Value: new(uint256.Int).Set(value)})
	return nil
}

// Withdraw burns amount of the sender's wrapped balance and sends the native value back.
func (w *WrappedNative) Withdraw(sender common.Address, amount *uint256.Int) error {
	if err := w.Burn(sender, amount); err != nil {
		return err
	}
	if err := w.host.SendNative(w.address, sender, amount); err != nil {
		return err
	}
	w.host.Emit(w.address, WithdrawalEvent{Account: sender, Value: new(uint256.Int).Set(amount)})
	return nil
}

// ReceiveNative treats a plain native send as a deposit.
func (w *WrappedNative) ReceiveNative(from common.Address, amount *uint256.Int) error {
	if err := w.Mint(from, amount); err != nil {
		return err
	}
	w.host.Emit(w.address, DepositEvent{Account: from, Value: new(uint256.Int).Set(amount)})
	return nil
}
