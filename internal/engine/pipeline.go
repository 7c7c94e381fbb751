// Package engine orchestrates validation: market data -> risk calculator ->
// order builder -> mode controller. Each call is an independent computation
// over its own intent and a freshly fetched snapshot; the engine holds no
// mutable state and is safe for concurrent use.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gmx_go/internal/domain"
	"gmx_go/internal/infra/metrics"
	"gmx_go/internal/order"
	"gmx_go/internal/risk"
	"gmx_go/pkg/quant"
	"gmx_go/pkg/safe"
)

// Config carries every tunable the pipeline needs. Injected, never global.
type Config struct {
	// MaintenanceMargin is the per-chain maintenance margin rate.
	MaintenanceMargin map[domain.Chain]quant.FracMicros

	// PriceImpactCap saturates impact estimates for thin pools.
	PriceImpactCap quant.FracMicros

	// DefaultSlippage applies when an intent leaves slippage unset.
	DefaultSlippage quant.FracMicros

	Builder order.Config
}

// Recorder persists terminal plan outcomes. A nil recorder disables
// journaling; recording failures are logged, never surfaced to the caller.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Record is one journaled pipeline outcome.
type Record struct {
	ID           string
	Chain        string
	Symbol       string
	Kind         string
	Mode         string
	Outcome      string
	Reason       string
	Payload      []byte
	CreatedUnixM int64
}

// Result is the tagged outcome of one pipeline call. Exactly one of the
// accepted descriptor or the rejection is set, except for a failed commit,
// where the constructed descriptor is returned alongside an
// EXECUTION_FAILURE rejection so the caller can inspect what was attempted.
type Result struct {
	State     PlanState               `json:"state"`
	Order     *domain.OrderDescriptor `json:"order,omitempty"`
	Execution *domain.ExecutionResult `json:"execution,omitempty"`
	Rejection *domain.Rejection       `json:"rejection,omitempty"`
}

// Accepted reports whether the plan passed every validation stage and, if
// committed, executed successfully.
func (r Result) Accepted() bool {
	return r.Rejection == nil
}

// Engine is the validation pipeline entry point.
type Engine struct {
	cfg      Config
	market   domain.MarketData
	signer   domain.Signer
	recorder Recorder
	builder  *order.Builder
}

// New assembles an engine. signer may be nil when commits are not expected;
// recorder may be nil to disable journaling.
func New(cfg Config, market domain.MarketData, signer domain.Signer, recorder Recorder) *Engine {
	return &Engine{
		cfg:      cfg,
		market:   market,
		signer:   signer,
		recorder: recorder,
		builder:  order.NewBuilder(cfg.Builder),
	}
}

func (e *Engine) riskParams(chain domain.Chain) risk.Params {
	return risk.Params{
		MaintenanceMarginRate: e.cfg.MaintenanceMargin[chain],
		PriceImpactCap:        e.cfg.PriceImpactCap,
	}
}

// slippageOr returns the intent's tolerance, falling back to the configured
// default when unset. Zero means unset; callers wanting a genuine zero
// tolerance configure a zero default.
func (e *Engine) slippageOr(s quant.FracMicros) quant.FracMicros {
	if s == 0 {
		return e.cfg.DefaultSlippage
	}
	return s
}

func (e *Engine) fetch(ctx context.Context, chain domain.Chain, symbol string) (*domain.MarketSnapshot, error) {
	snap, err := e.market.GetSnapshot(ctx, chain, symbol)
	if err != nil {
		metrics.ProviderErrorsTotal.WithLabelValues(string(chain)).Inc()
		return nil, domain.Reasonf(domain.ReasonDataUnavailable,
			"no snapshot for %s on %s: %v", symbol, chain, err)
	}
	return snap, nil
}

// PlanSwap validates and constructs a swap order.
func (e *Engine) PlanSwap(ctx context.Context, intent domain.SwapIntent) Result {
	fsm := newPlanFSM()
	intent.Slippage = e.slippageOr(intent.Slippage)

	if err := intent.Validate(); err != nil {
		return e.reject(ctx, fsm, domain.OrderKindSwap, string(intent.Chain), intent.TokenOut, err)
	}

	snapIn, err := e.fetch(ctx, intent.Chain, intent.TokenIn)
	if err != nil {
		return e.reject(ctx, fsm, domain.OrderKindSwap, string(intent.Chain), intent.TokenOut, err)
	}
	snapOut, err := e.fetch(ctx, intent.Chain, intent.TokenOut)
	if err != nil {
		return e.reject(ctx, fsm, domain.OrderKindSwap, string(intent.Chain), intent.TokenOut, err)
	}

	valueUsd := quant.UsdMicros(safe.MulDiv(int64(intent.AmountIn), int64(snapIn.PriceMicros), quant.Scale))
	profile := domain.RiskProfile{
		PriceImpact: risk.PriceImpact(valueUsd, snapOut.PoolLiquidityUsd(), e.cfg.PriceImpactCap),
	}

	desc, err := e.builder.Swap(intent, snapIn, snapOut, profile)
	if err != nil {
		return e.reject(ctx, fsm, domain.OrderKindSwap, string(intent.Chain), intent.TokenOut, err)
	}
	return e.finalize(ctx, fsm, desc)
}

// PlanIncrease validates and constructs a position-increase order.
// Explicit collateral wins over explicit leverage; when only leverage is
// given the collateral requirement is derived from it.
func (e *Engine) PlanIncrease(ctx context.Context, intent domain.IncreaseIntent) Result {
	fsm := newPlanFSM()
	intent.Slippage = e.slippageOr(intent.Slippage)

	if err := intent.Validate(); err != nil {
		return e.reject(ctx, fsm, domain.OrderKindIncrease, string(intent.Chain), intent.Symbol, err)
	}

	snap, err := e.fetch(ctx, intent.Chain, intent.Symbol)
	if err != nil {
		return e.reject(ctx, fsm, domain.OrderKindIncrease, string(intent.Chain), intent.Symbol, err)
	}

	collateralUsd := intent.CollateralUsd
	var leverage quant.LeverageMicros
	if collateralUsd > 0 {
		leverage, err = risk.DeriveLeverage(intent.SizeUsd, collateralUsd)
	} else {
		leverage = intent.Leverage
		collateralUsd, err = risk.RequiredCollateral(intent.SizeUsd, leverage)
	}
	if err != nil {
		return e.reject(ctx, fsm, domain.OrderKindIncrease, string(intent.Chain), intent.Symbol, err)
	}

	if !risk.ValidateBounds(leverage, snap.MinLeverage, snap.MaxLeverage) {
		return e.reject(ctx, fsm, domain.OrderKindIncrease, string(intent.Chain), intent.Symbol,
			domain.Reasonf(domain.ReasonOutOfLeverageBounds,
				"requested leverage %s outside market bounds [%s, %s]",
				leverage, snap.MinLeverage, snap.MaxLeverage))
	}

	params := e.riskParams(intent.Chain)
	liq, err := risk.LiquidationPrice(snap.PriceMicros, leverage, intent.Direction, params.MaintenanceMarginRate)
	if err != nil {
		return e.reject(ctx, fsm, domain.OrderKindIncrease, string(intent.Chain), intent.Symbol, err)
	}
	margin, err := risk.MarginRatio(intent.SizeUsd, collateralUsd)
	if err != nil {
		return e.reject(ctx, fsm, domain.OrderKindIncrease, string(intent.Chain), intent.Symbol, err)
	}

	impact := risk.PriceImpact(intent.SizeUsd, snap.PoolLiquidityUsd(), params.PriceImpactCap)
	cost := risk.EstimateOpenCost(intent.SizeUsd, snap.OpenFeeBps, impact, intent.Chain)
	profile := domain.RiskProfile{
		Leverage:         leverage,
		LiquidationPrice: liq,
		MarginRatio:      margin,
		PriceImpact:      impact,
		OpenCostUsd:      cost.TotalUsd,
	}

	desc, err := e.builder.Increase(intent, snap, collateralUsd, profile)
	if err != nil {
		return e.reject(ctx, fsm, domain.OrderKindIncrease, string(intent.Chain), intent.Symbol, err)
	}
	return e.finalize(ctx, fsm, desc)
}

// PlanDecrease validates and constructs a partial or full close.
func (e *Engine) PlanDecrease(ctx context.Context, intent domain.DecreaseIntent) Result {
	fsm := newPlanFSM()
	intent.Slippage = e.slippageOr(intent.Slippage)

	if err := intent.Validate(); err != nil {
		return e.reject(ctx, fsm, domain.OrderKindDecrease, string(intent.Chain), intent.Symbol, err)
	}

	snap, err := e.fetch(ctx, intent.Chain, intent.Symbol)
	if err != nil {
		return e.reject(ctx, fsm, domain.OrderKindDecrease, string(intent.Chain), intent.Symbol, err)
	}

	// Risk is reported for the position that remains after the close.
	// A full close carries an empty profile.
	params := e.riskParams(intent.Chain)
	var profile domain.RiskProfile
	overWithdraw := intent.CollateralWithdrawUsd > intent.PositionCollateralUsd
	if !overWithdraw && intent.CloseFraction > 0 && intent.CloseFraction < quant.Scale {
		remainFrac := quant.Scale - int64(intent.CloseFraction)
		remainSize := quant.UsdMicros(safe.MulDiv(int64(intent.PositionSizeUsd), remainFrac, quant.Scale))
		remainCollateral := quant.UsdMicros(safe.MulDiv(int64(intent.PositionCollateralUsd), remainFrac, quant.Scale))
		if intent.CollateralWithdrawUsd > 0 {
			remainCollateral = intent.PositionCollateralUsd - intent.CollateralWithdrawUsd
		}

		leverage, err := risk.DeriveLeverage(remainSize, remainCollateral)
		if err != nil {
			return e.reject(ctx, fsm, domain.OrderKindDecrease, string(intent.Chain), intent.Symbol,
				domain.Reasonf(domain.ReasonInvalidCollateral,
					"close leaves %s USD position with %s USD collateral", remainSize, remainCollateral))
		}
		// The remaining position must respect the market's leverage cap:
		// withdrawing collateral during a partial close is a leverage
		// increase in disguise. Only the upper bound binds here; a close
		// may deleverage below the market minimum on its way out.
		if !risk.ValidateBounds(leverage, 0, snap.MaxLeverage) {
			return e.reject(ctx, fsm, domain.OrderKindDecrease, string(intent.Chain), intent.Symbol,
				domain.Reasonf(domain.ReasonOutOfLeverageBounds,
					"close leaves remaining leverage %s above market max %s", leverage, snap.MaxLeverage))
		}
		liq, err := risk.LiquidationPrice(snap.PriceMicros, leverage, intent.Direction, params.MaintenanceMarginRate)
		if err != nil {
			return e.reject(ctx, fsm, domain.OrderKindDecrease, string(intent.Chain), intent.Symbol, err)
		}
		margin, err := risk.MarginRatio(remainSize, remainCollateral)
		if err != nil {
			return e.reject(ctx, fsm, domain.OrderKindDecrease, string(intent.Chain), intent.Symbol, err)
		}
		profile = domain.RiskProfile{Leverage: leverage, LiquidationPrice: liq, MarginRatio: margin}
	}

	desc, err := e.builder.Decrease(intent, snap, profile)
	if err != nil {
		return e.reject(ctx, fsm, domain.OrderKindDecrease, string(intent.Chain), intent.Symbol, err)
	}
	return e.finalize(ctx, fsm, desc)
}

// PlanDeposit validates and constructs a liquidity deposit.
func (e *Engine) PlanDeposit(ctx context.Context, intent domain.DepositIntent) Result {
	fsm := newPlanFSM()
	intent.Slippage = e.slippageOr(intent.Slippage)

	if err := intent.Validate(); err != nil {
		return e.reject(ctx, fsm, domain.OrderKindDeposit, string(intent.Chain), intent.Symbol, err)
	}

	snap, err := e.fetch(ctx, intent.Chain, intent.Symbol)
	if err != nil {
		return e.reject(ctx, fsm, domain.OrderKindDeposit, string(intent.Chain), intent.Symbol, err)
	}

	profile := domain.RiskProfile{
		PriceImpact: risk.PriceImpact(intent.LongUsd+intent.ShortUsd, snap.PoolLiquidityUsd(), e.cfg.PriceImpactCap),
	}

	desc, err := e.builder.Deposit(intent, snap, profile)
	if err != nil {
		return e.reject(ctx, fsm, domain.OrderKindDeposit, string(intent.Chain), intent.Symbol, err)
	}
	return e.finalize(ctx, fsm, desc)
}

// PlanWithdraw validates and constructs a liquidity withdrawal.
func (e *Engine) PlanWithdraw(ctx context.Context, intent domain.WithdrawIntent) Result {
	fsm := newPlanFSM()
	intent.Slippage = e.slippageOr(intent.Slippage)

	if err := intent.Validate(); err != nil {
		return e.reject(ctx, fsm, domain.OrderKindWithdraw, string(intent.Chain), intent.Symbol, err)
	}

	snap, err := e.fetch(ctx, intent.Chain, intent.Symbol)
	if err != nil {
		return e.reject(ctx, fsm, domain.OrderKindWithdraw, string(intent.Chain), intent.Symbol, err)
	}

	desc, err := e.builder.Withdraw(intent, snap, domain.RiskProfile{})
	if err != nil {
		return e.reject(ctx, fsm, domain.OrderKindWithdraw, string(intent.Chain), intent.Symbol, err)
	}
	return e.finalize(ctx, fsm, desc)
}

// finalize runs the mode controller over a fully constructed descriptor.
func (e *Engine) finalize(ctx context.Context, fsm *planFSM, desc *domain.OrderDescriptor) Result {
	if err := fsm.to(StateValidated); err != nil {
		// Programmer error: finalize is only reachable from Draft.
		panic(err)
	}

	if !desc.Mode.IsCommit() {
		if err := fsm.to(StateSimulated); err != nil {
			panic(err)
		}
		slog.Info("plan simulated",
			slog.String("id", desc.ID),
			slog.String("kind", string(desc.Kind)),
			slog.String("symbol", desc.Symbol))
		res := Result{State: StateSimulated, Order: desc}
		e.record(ctx, res, desc, "SIMULATED", "")
		metrics.PlansTotal.WithLabelValues(string(desc.Kind), "simulated").Inc()
		return res
	}

	if err := fsm.to(StateCommitted); err != nil {
		panic(err)
	}

	if e.signer == nil {
		rej := &domain.Rejection{
			Code:   domain.ReasonExecutionFailure,
			Detail: "commit requested but no signer is configured",
		}
		res := Result{State: StateCommitted, Order: desc, Rejection: rej}
		e.record(ctx, res, desc, "EXECUTION_FAILED", rej.Detail)
		metrics.PlansTotal.WithLabelValues(string(desc.Kind), "execution_failed").Inc()
		metrics.CommitsTotal.WithLabelValues("no_signer").Inc()
		return res
	}

	// Terminal regardless of outcome; a failed commit is not retried here.
	exec, err := e.signer.Submit(ctx, desc)
	if err != nil || !exec.Success {
		detail := "signer reported failure"
		if err != nil {
			detail = err.Error()
		} else if exec.Detail != "" {
			detail = exec.Detail
		}
		slog.Warn("commit failed",
			slog.String("id", desc.ID),
			slog.String("detail", detail))
		res := Result{
			State:     StateCommitted,
			Order:     desc,
			Execution: exec,
			Rejection: &domain.Rejection{Code: domain.ReasonExecutionFailure, Detail: detail},
		}
		e.record(ctx, res, desc, "EXECUTION_FAILED", detail)
		metrics.PlansTotal.WithLabelValues(string(desc.Kind), "execution_failed").Inc()
		metrics.CommitsTotal.WithLabelValues("failure").Inc()
		return res
	}

	slog.Info("plan committed",
		slog.String("id", desc.ID),
		slog.String("kind", string(desc.Kind)),
		slog.String("tx", exec.TxRef))
	res := Result{State: StateCommitted, Order: desc, Execution: exec}
	e.record(ctx, res, desc, "COMMITTED", "")
	metrics.PlansTotal.WithLabelValues(string(desc.Kind), "committed").Inc()
	metrics.CommitsTotal.WithLabelValues("success").Inc()
	return res
}

// reject halts the pipeline at the current stage. The plan never leaves
// Draft and no descriptor is exposed.
func (e *Engine) reject(ctx context.Context, fsm *planFSM, kind domain.OrderKind, chain, symbol string, err error) Result {
	rej := domain.RejectionFromError(err)
	slog.Info("plan rejected",
		slog.String("kind", string(kind)),
		slog.String("symbol", symbol),
		slog.String("reason", string(rej.Code)),
		slog.String("detail", rej.Detail))

	res := Result{State: fsm.current(), Rejection: rej}
	e.recordRejection(ctx, kind, chain, symbol, rej)
	metrics.PlansTotal.WithLabelValues(string(kind), "rejected").Inc()
	metrics.RejectionsTotal.WithLabelValues(string(rej.Code)).Inc()
	return res
}

func (e *Engine) record(ctx context.Context, res Result, desc *domain.OrderDescriptor, outcome, reason string) {
	if e.recorder == nil {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		slog.Error("journal marshal failed", slog.Any("error", err))
		return
	}
	rec := Record{
		ID:           desc.ID,
		Chain:        string(desc.Chain),
		Symbol:       desc.Symbol,
		Kind:         string(desc.Kind),
		Mode:         string(desc.Mode),
		Outcome:      outcome,
		Reason:       reason,
		Payload:      payload,
		CreatedUnixM: int64(desc.CreatedUnixM),
	}
	if err := e.recorder.Record(ctx, rec); err != nil {
		slog.Error("journal write failed", slog.Any("error", err))
	}
}

func (e *Engine) recordRejection(ctx context.Context, kind domain.OrderKind, chain, symbol string, rej *domain.Rejection) {
	if e.recorder == nil {
		return
	}
	payload, _ := json.Marshal(rej)
	rec := Record{
		ID:      fmt.Sprintf("rejected-%s-%s", kind, symbol),
		Chain:   chain,
		Symbol:  symbol,
		Kind:    string(kind),
		Outcome: "REJECTED",
		Reason:  string(rej.Code),
		Payload: payload,
	}
	if err := e.recorder.Record(ctx, rec); err != nil {
		slog.Error("journal write failed", slog.Any("error", err))
	}
}
