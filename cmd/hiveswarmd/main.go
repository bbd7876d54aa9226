// Package main is the entry point for hiveswarmd, the coordination
// engine daemon. It wires the agent registry, swarm engine, hive
// engine, coordinator, and resilience layer together and exposes them
// either over a Unix domain control socket or as Model Context
// Protocol tools.
//
// Start the daemon:
//
//	hiveswarmd serve --config hiveswarm.yaml
//
// Serve the same coordinator as MCP tools on stdin/stdout:
//
//	hiveswarmd mcp --config hiveswarm.yaml
//
// Check the wiring without starting either front end:
//
//	hiveswarmd status --config hiveswarm.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haasonsaas/hiveswarm/internal/bridge"
	"github.com/haasonsaas/hiveswarm/internal/config"
	"github.com/haasonsaas/hiveswarm/internal/coordinator"
	"github.com/haasonsaas/hiveswarm/internal/hive"
	"github.com/haasonsaas/hiveswarm/internal/mcp"
	"github.com/haasonsaas/hiveswarm/internal/observability"
	"github.com/haasonsaas/hiveswarm/internal/registry"
	"github.com/haasonsaas/hiveswarm/internal/resilience"
	"github.com/haasonsaas/hiveswarm/internal/swarm"
	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during release builds.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	slog.SetDefault(observability.NewLogger(observability.LogConfig{Level: "info"}).Slog())

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "hiveswarmd",
		Short:        "hiveswarmd - agent swarm/hive coordination daemon",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.AddCommand(buildServeCmd(), buildStatusCmd(), buildMCPCmd())
	return rootCmd
}

func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the control socket and accept coordination commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func buildStatusCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Load configuration and the default registry, then print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			reg := registry.New(nil)
			if err := registry.LoadDefaults(reg); err != nil {
				return fmt.Errorf("load default registry: %w", err)
			}
			if cfg.Registry.OverlayPath != "" {
				if err := registry.LoadOverlay(reg, cfg.Registry.OverlayPath); err != nil {
					return fmt.Errorf("load registry overlay: %w", err)
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "socket: %s\n", cfg.Bridge.SocketPath)
			fmt.Fprintf(out, "agents: %d registered\n", len(reg.List()))
			fmt.Fprintf(out, "circuit defaults: failure_threshold=%d success_threshold=%d recovery_timeout=%ds timeout=%ds\n",
				cfg.Resilience.FailureThreshold, cfg.Resilience.SuccessThreshold,
				cfg.Resilience.RecoveryTimeoutSeconds, cfg.Resilience.TimeoutSeconds)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

func buildMCPCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the coordination engine as Model Context Protocol tools on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd.Context(), configPath, debug)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func configureLogging(cfg *config.Config, debug bool) {
	logLevel := cfg.Logging.Level
	if debug {
		logLevel = "debug"
	}
	slog.SetDefault(observability.NewLogger(observability.LogConfig{Level: logLevel, Format: cfg.Logging.Format}).Slog())
}

// wireCoordinator builds the registry, resilience engine, swarm
// engine, hive engine, and coordinator from cfg. Both the Unix-socket
// bridge (runServe) and the MCP tool server (runMCP) wrap the same
// coordinator in their own Handlers, so every action is implemented
// exactly once regardless of which front end a client uses.
func wireCoordinator(cfg *config.Config) (*coordinator.Coordinator, *resilience.Engine, func(context.Context) error, error) {
	reg := registry.New(func(agentID string, active bool) {
		slog.Info("agent status changed", "agent_id", agentID, "active", active)
	})
	if err := registry.LoadDefaults(reg); err != nil {
		return nil, nil, nil, fmt.Errorf("load default registry: %w", err)
	}
	if cfg.Registry.OverlayPath != "" {
		if err := registry.LoadOverlay(reg, cfg.Registry.OverlayPath); err != nil {
			return nil, nil, nil, fmt.Errorf("load registry overlay: %w", err)
		}
	}

	resEngine := resilience.NewEngine(
		resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.Resilience.FailureThreshold,
			SuccessThreshold: cfg.Resilience.SuccessThreshold,
			RecoveryTimeout:  time.Duration(cfg.Resilience.RecoveryTimeoutSeconds) * time.Second,
			Timeout:          time.Duration(cfg.Resilience.TimeoutSeconds) * time.Second,
			OnStateChange: func(name, from, to string) {
				slog.Warn("circuit breaker state change", "circuit", name, "from", from, "to", to)
			},
		},
		resilience.RetryConfig{
			MaxAttempts:  cfg.Resilience.RetryMaxAttempts,
			InitialDelay: time.Duration(cfg.Resilience.RetryInitialDelayMs) * time.Millisecond,
			Multiplier:   cfg.Resilience.RetryMultiplier,
			MaxDelay:     time.Duration(cfg.Resilience.RetryMaxDelaySeconds) * time.Second,
		},
	)

	tracer, shutdownTracer := observability.NewTracer(observability.TraceConfig{
		ServiceName:    "hiveswarmd",
		ServiceVersion: version,
	})

	proposer := swarm.ProposerFunc(func(ctx context.Context, agent *swarm.SwarmAgent, task swarm.CoordinationTask) (swarm.Proposal, error) {
		_, span := tracer.Start(ctx, "agent.propose")
		defer span.End()
		return swarm.Proposal{
			AgentID:    agent.AgentID,
			Confidence: 0.75,
			Content:    fmt.Sprintf("acknowledged: %s", task.Description),
		}, nil
	})

	swarms := swarm.NewEngine(reg, proposer, resEngine)
	if cfg.Resilience.MaxConcurrentTasks > 0 {
		swarms.SetConcurrencyLimit(int64(cfg.Resilience.MaxConcurrentTasks))
	}
	hiveEngine := hive.NewEngine(reg, resEngine)
	coord := coordinator.New(reg, swarms, hiveEngine, resEngine)

	return coord, resEngine, shutdownTracer, nil
}

func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	configureLogging(cfg, debug)

	slog.Info("starting hiveswarmd",
		"version", version, "commit", commit, "config", configPath, "socket", cfg.Bridge.SocketPath)

	coord, resEngine, shutdownTracer, err := wireCoordinator(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	metrics := observability.NewMetrics()
	tierCounts := map[registry.Tier]int{}
	for _, a := range coord.Registry().List() {
		tierCounts[a.Tier]++
	}
	for tier, count := range tierCounts {
		metrics.SetActiveAgents(string(tier), count)
	}

	handlers := bridge.NewHandlers(coord, resEngine)
	server := bridge.NewServer(cfg.Bridge.SocketPath, handlers)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("hiveswarmd listening", "socket", cfg.Bridge.SocketPath)
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	slog.Info("hiveswarmd stopped")
	return nil
}

// runMCP wires the same coordinator runServe does, then exposes it as
// Model Context Protocol tools over stdin/stdout instead of the
// control socket, so an MCP client can spawn hiveswarmd as a
// subprocess and drive swarm/hive coordination as tool calls.
func runMCP(ctx context.Context, configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	configureLogging(cfg, debug)

	slog.Info("starting hiveswarmd mcp server", "version", version, "commit", commit, "config", configPath)

	coord, resEngine, shutdownTracer, err := wireCoordinator(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	handlers := bridge.NewHandlers(coord, resEngine)
	server := mcp.NewServer(handlers, slog.Default())

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve mcp: %w", err)
	}

	slog.Info("hiveswarmd mcp server stopped")
	return nil
}
