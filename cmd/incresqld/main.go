// Package main is IncreSQL's server entry point: a cobra CLI wrapping
// internal/runtime, grounded on the teacher's cmd/smf/main.go cobra-root
// structure (one subcommand per verb, flags bound to a per-command struct).
// The MySQL wire-protocol front-end (framing, auth, result encoding) is an
// external collaborator spec.md §1 explicitly leaves out of scope; serve
// opens the runtime and blocks, ready for such a front-end to drive it.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"incresql/internal/ast"
	"incresql/internal/executor"
	"incresql/internal/planner"
	"incresql/internal/runtime"
)

// serverConfig is the on-disk [server] TOML config (§6's "exit codes /
// flags / env vars are out of scope, driven by the server wrapper" leaves
// the shape of this file to the implementer).
type serverConfig struct {
	Server struct {
		DataDir  string `toml:"data_dir"`
		LogLevel string `toml:"log_level"`
	} `toml:"server"`
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "incresqld",
		Short: "IncreSQL incremental SQL engine",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(explainCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var configPath, dataDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Open the storage/catalog layer and wait for a wire-protocol front-end to drive it",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadServerConfig(configPath, dataDir)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Server.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			rt, err := runtime.Open(cfg.Server.DataDir, logger)
			if err != nil {
				return fmt.Errorf("open runtime: %w", err)
			}
			defer func() { _ = rt.Close() }()

			logger.Info("runtime ready", zap.String("data_dir", cfg.Server.DataDir))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			logger.Info("shutting down")
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a TOML server config file")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Storage directory (overrides config file)")
	return cmd
}

func explainCmd() *cobra.Command {
	var dataDir, database string
	cmd := &cobra.Command{
		Use:   "explain <sql>",
		Short: "Print the physical plan tree for one statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			rt, err := runtime.Open(dataDir, zap.NewNop())
			if err != nil {
				return fmt.Errorf("open runtime: %w", err)
			}
			defer func() { _ = rt.Close() }()

			adapter := ast.NewAdapter(rt.Catalog)
			ops, err := adapter.ParseStatements(args[0], database)
			if err != nil {
				return err
			}
			pl := planner.New(rt.Catalog, rt.Registry)
			for _, op := range ops {
				explained, err := pl.Explain(op)
				if err != nil {
					return err
				}
				rows, err := renderExplain(pl, rt, explained)
				if err != nil {
					return err
				}
				for _, row := range rows {
					fmt.Println(row)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Storage directory")
	cmd.Flags().StringVar(&database, "database", "incresql", "Database to resolve unqualified names against")
	return cmd
}

// renderExplain plans and drains the LogicalValues tree Planner.Explain
// builds, turning its three text columns into one printable line per row.
func renderExplain(pl *planner.Planner, rt *runtime.Runtime, explained ast.LogicalOperator) ([]string, error) {
	physical, err := pl.Plan(explained, &planner.FoldingSession{})
	if err != nil {
		return nil, err
	}
	iter, err := executor.Build(&physical, rt.Store)
	if err != nil {
		return nil, err
	}
	var lines []string
	for {
		row, _, ok, err := executor.Next(iter)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		tree, idx, expression := row[0].AsText(), row[1].AsText(), row[2].AsText()
		line := tree
		if idx != "" {
			line += "  [" + idx + "]"
		}
		if expression != "" {
			line += "  " + expression
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func loadServerConfig(configPath, dataDirFlag string) (serverConfig, error) {
	var cfg serverConfig
	cfg.Server.LogLevel = "info"
	if configPath != "" {
		if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config: %w", err)
		}
	}
	if dataDirFlag != "" {
		cfg.Server.DataDir = dataDirFlag
	}
	if cfg.Server.DataDir == "" {
		return cfg, fmt.Errorf("no data directory given (set --data-dir or [server].data_dir)")
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	return cfg.Build()
}
