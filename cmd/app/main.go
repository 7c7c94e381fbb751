package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gmx_go/internal/app"
	"gmx_go/internal/domain"
	"gmx_go/internal/engine"
	"gmx_go/internal/infra/tickerstream"
	"gmx_go/pkg/quant"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "plan":
		err = runPlan(ctx, bootstrap, os.Args[2:])
	case "watch":
		err = runWatch(ctx, bootstrap, os.Args[2:])
	case "recent":
		err = runRecent(ctx, bootstrap, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: app <command> [flags]

commands:
  plan    run one trade intent through the validation pipeline
  watch   stream live oracle prices for a set of symbols
  recent  show recent journal entries`)
}

func runPlan(ctx context.Context, b *app.Bootstrap, args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	kind := fs.String("kind", "", "swap | increase | decrease | deposit | withdraw")
	chainName := fs.String("chain", "arbitrum", "arbitrum | avalanche")
	symbol := fs.String("symbol", "", "market index symbol, e.g. ETH")
	tokenIn := fs.String("in", "", "swap input token")
	tokenOut := fs.String("out", "", "swap output token")
	amount := fs.String("amount", "", "swap input amount, display units")
	direction := fs.String("direction", "long", "long | short")
	size := fs.String("size", "", "position size, USD")
	collateral := fs.String("collateral", "", "collateral, USD")
	leverage := fs.String("leverage", "", "target leverage, e.g. 2.5")
	positionSize := fs.String("position-size", "", "existing position size, USD")
	positionCollateral := fs.String("position-collateral", "", "existing collateral, USD")
	fraction := fs.String("fraction", "1", "close fraction in (0,1]")
	withdrawUsd := fs.String("withdraw", "", "explicit collateral withdrawal, USD")
	longUsd := fs.String("long", "", "deposit long leg, USD")
	shortUsd := fs.String("short", "", "deposit short leg, USD")
	shares := fs.String("shares", "", "pool shares to redeem, display units")
	slippageBps := fs.Int64("slippage-bps", 0, "slippage tolerance in bps (0 = config default)")
	commit := fs.Bool("commit", false, "execute instead of simulate")
	fs.Parse(args)

	chain, err := domain.ParseChain(*chainName)
	if err != nil {
		return err
	}
	mode := domain.ModeSimulate
	if *commit {
		mode = domain.ModeCommit
	}
	slippage := quant.ToFracMicros(*slippageBps)
	dir := domain.DirectionLong
	if strings.EqualFold(*direction, "short") {
		dir = domain.DirectionShort
	}

	var res engine.Result
	switch *kind {
	case "swap":
		amountIn, err := quant.ParseQtyMicros(*amount)
		if err != nil {
			return fmt.Errorf("bad -amount: %w", err)
		}
		res = b.Engine.PlanSwap(ctx, domain.SwapIntent{
			Chain: chain, TokenIn: *tokenIn, TokenOut: *tokenOut,
			AmountIn: amountIn, Slippage: slippage, Mode: mode,
		})

	case "increase":
		sizeUsd, err := quant.ParseUsdMicros(*size)
		if err != nil {
			return fmt.Errorf("bad -size: %w", err)
		}
		intent := domain.IncreaseIntent{
			Chain: chain, Symbol: *symbol, Direction: dir,
			SizeUsd: sizeUsd, Slippage: slippage, Mode: mode,
		}
		if *collateral != "" {
			if intent.CollateralUsd, err = quant.ParseUsdMicros(*collateral); err != nil {
				return fmt.Errorf("bad -collateral: %w", err)
			}
		}
		if *leverage != "" {
			lev, err := quant.ParseQtyMicros(*leverage)
			if err != nil {
				return fmt.Errorf("bad -leverage: %w", err)
			}
			intent.Leverage = quant.LeverageMicros(lev)
		}
		res = b.Engine.PlanIncrease(ctx, intent)

	case "decrease":
		posSize, err := quant.ParseUsdMicros(*positionSize)
		if err != nil {
			return fmt.Errorf("bad -position-size: %w", err)
		}
		posCollateral, err := quant.ParseUsdMicros(*positionCollateral)
		if err != nil {
			return fmt.Errorf("bad -position-collateral: %w", err)
		}
		frac, err := quant.ParseQtyMicros(*fraction)
		if err != nil {
			return fmt.Errorf("bad -fraction: %w", err)
		}
		intent := domain.DecreaseIntent{
			Chain: chain, Symbol: *symbol, Direction: dir,
			PositionSizeUsd: posSize, PositionCollateralUsd: posCollateral,
			CloseFraction: quant.FracMicros(frac), Slippage: slippage, Mode: mode,
		}
		if *withdrawUsd != "" {
			if intent.CollateralWithdrawUsd, err = quant.ParseUsdMicros(*withdrawUsd); err != nil {
				return fmt.Errorf("bad -withdraw: %w", err)
			}
		}
		res = b.Engine.PlanDecrease(ctx, intent)

	case "deposit":
		long, err := quant.ParseUsdMicros(*longUsd)
		if err != nil {
			return fmt.Errorf("bad -long: %w", err)
		}
		short, err := quant.ParseUsdMicros(*shortUsd)
		if err != nil {
			return fmt.Errorf("bad -short: %w", err)
		}
		res = b.Engine.PlanDeposit(ctx, domain.DepositIntent{
			Chain: chain, Symbol: *symbol, LongUsd: long, ShortUsd: short,
			Slippage: slippage, Mode: mode,
		})

	case "withdraw":
		shareQty, err := quant.ParseQtyMicros(*shares)
		if err != nil {
			return fmt.Errorf("bad -shares: %w", err)
		}
		res = b.Engine.PlanWithdraw(ctx, domain.WithdrawIntent{
			Chain: chain, Symbol: *symbol, Shares: shareQty,
			Slippage: slippage, Mode: mode,
		})

	default:
		return fmt.Errorf("unknown -kind %q", *kind)
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if !res.Accepted() {
		os.Exit(1)
	}
	return nil
}

func runWatch(ctx context.Context, b *app.Bootstrap, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	chainName := fs.String("chain", "arbitrum", "arbitrum | avalanche")
	symbols := fs.String("symbols", "ETH,BTC", "comma-separated symbols")
	fs.Parse(args)

	chain, err := domain.ParseChain(*chainName)
	if err != nil {
		return err
	}
	wsURL := b.Config.WSURL(chain)
	if wsURL == "" {
		return fmt.Errorf("no ws_url configured for %s", chain)
	}

	monitor := tickerstream.NewMonitor(chain, wsURL, strings.Split(*symbols, ","))
	monitor.Start(ctx)
	defer monitor.Stop()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, q := range monitor.Quotes() {
				fmt.Printf("%-6s %s\n", q.Symbol, q.PriceMicros)
			}
			fmt.Println("---")
		}
	}
}

func runRecent(ctx context.Context, b *app.Bootstrap, args []string) error {
	fs := flag.NewFlagSet("recent", flag.ExitOnError)
	limit := fs.Int("n", 20, "number of entries")
	fs.Parse(args)

	records, err := b.Journal.Recent(ctx, *limit)
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Printf("%-38s %-9s %-6s %-9s %-16s %s\n",
			rec.ID, rec.Chain, rec.Symbol, rec.Kind, rec.Outcome, rec.Reason)
	}

	counts, err := b.Journal.CountByOutcome(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("totals: %v\n", counts)
	return nil
}
