package domain

import (
	"math/big"

	"gmx_go/pkg/quant"
)

// OrderKind is the operation a descriptor executes.
type OrderKind string

const (
	OrderKindSwap     OrderKind = "SWAP"
	OrderKindIncrease OrderKind = "INCREASE"
	OrderKindDecrease OrderKind = "DECREASE"
	OrderKindDeposit  OrderKind = "DEPOSIT"
	OrderKindWithdraw OrderKind = "WITHDRAW"
)

// OrderDescriptor is the canonical, chain-agnostic order representation,
// ready for signing. All token amounts are in the asset's smallest
// indivisible unit (base units), never display floats; the builder converts
// exactly once.
type OrderDescriptor struct {
	ID     string    `json:"id"`
	Kind   OrderKind `json:"kind"`
	Chain  Chain     `json:"chain"`
	Symbol string    `json:"symbol"`
	Mode   Mode      `json:"mode"`

	// Token legs. TokenIn is what the caller spends (swap input, collateral
	// deposit, pool shares on withdraw); TokenOut is what the order yields.
	TokenIn  string   `json:"token_in,omitempty"`
	TokenOut string   `json:"token_out,omitempty"`
	AmountIn *big.Int `json:"amount_in,omitempty"`

	// MinAmountOut is the slippage-derived output floor in TokenOut base
	// units. Never looser than the caller's tolerance.
	MinAmountOut *big.Int `json:"min_amount_out,omitempty"`

	// Secondary legs: the short-side input of a deposit and the
	// short-side output of a withdraw.
	SecondaryTokenIn  string   `json:"secondary_token_in,omitempty"`
	SecondaryAmountIn *big.Int `json:"secondary_amount_in,omitempty"`
	SecondaryTokenOut string   `json:"secondary_token_out,omitempty"`
	MinSecondaryOut   *big.Int `json:"min_secondary_out,omitempty"`

	// Position fields (increase/decrease only).
	Direction       Direction         `json:"direction,omitempty"`
	SizeDeltaUsd    quant.UsdMicros   `json:"size_delta_usd,omitempty"`
	AcceptablePrice quant.PriceMicros `json:"acceptable_price,omitempty"`

	DeadlineUnix int64           `json:"deadline_unix"`
	Risk         RiskProfile     `json:"risk"`
	CreatedUnixM quant.TimeStamp `json:"created_unix_micro"`
}

// ExecutionResult is the signer's report for a committed descriptor.
type ExecutionResult struct {
	Success bool   `json:"success"`
	TxRef   string `json:"tx_ref,omitempty"`
	Detail  string `json:"detail,omitempty"`
}
