// Package app wires configuration, provider, signer, journal, and engine
// into a running system.
package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"gmx_go/internal/engine"
	"gmx_go/internal/execution"
	"gmx_go/internal/infra"
	"gmx_go/internal/infra/gmx"
	"gmx_go/internal/infra/metrics"
	"gmx_go/internal/order"
	"gmx_go/internal/storage"
	"gmx_go/pkg/quant"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config   *infra.Config
	Journal  *storage.PlanJournal
	Provider *gmx.MultiChain
	Engine   *engine.Engine

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads config, prepares the workspace, and assembles the
// pipeline. Fail fast: any error here aborts startup.
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping gmx-go...")

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	slog.SetDefault(infra.NewLogger(cfg))

	// Data isolation per mode: _workspace/data/{paper|live}/plans.db.
	mode := strings.ToLower(cfg.Trading.Mode)
	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data", mode)
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	journalPath := cfg.Journal.Path
	if journalPath == "" {
		journalPath = filepath.Join(dataDir, "plans.db")
	}
	journal, err := storage.NewPlanJournal(journalPath)
	if err != nil {
		return err
	}
	b.Journal = journal
	slog.Info("✅ Plan journal initialized (WAL-mode)", "path", journalPath, "mode", mode)

	b.Provider = gmx.NewMultiChain(cfg)

	secret, err := infra.LoadSecretConfig(infra.ResolveSecretPath())
	if err != nil {
		return err
	}

	signer, err := execution.NewFactory(cfg, secret, nil).CreateSigner()
	if err != nil {
		return err
	}

	b.Engine = engine.New(engine.Config{
		MaintenanceMargin: cfg.MaintenanceMargin(),
		PriceImpactCap:    quant.ToFracMicros(cfg.Risk.PriceImpactCapBps),
		DefaultSlippage:   quant.ToFracMicros(cfg.Risk.DefaultSlippageBps),
		Builder: order.Config{
			DepositImbalanceTolerance: quant.ToFracMicros(cfg.Risk.DepositImbalanceBps),
			DeadlineSeconds:           cfg.Risk.DeadlineSeconds,
		},
	}, b.Provider, signer, journal)

	if cfg.Metrics.Addr != "" {
		reg := metrics.Init()
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler(reg))
			slog.Info("📈 Metrics exporter listening", "addr", cfg.Metrics.Addr)
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				slog.Error("Metrics exporter failed", slog.Any("error", err))
			}
		}()
	}

	return nil
}

// Shutdown releases the instance lock and closes the journal.
func (b *Bootstrap) Shutdown() {
	if b.Journal != nil {
		b.Journal.Close()
	}
	if b.unlock != nil {
		b.unlock()
	}
}
