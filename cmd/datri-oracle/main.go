// Command datri-oracle inspects an Oracle schema, reads records, calls
// routines, generates DDL and serves the schema graph over HTTP.
//
//	datri-oracle --config datri-oracle.yaml describe EMP
//	datri-oracle --config datri-oracle.toml serve
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/koustreak/datri-oracle/internal/config"
	oradb "github.com/koustreak/datri-oracle/internal/database/oracle"
	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/logger"
	"github.com/koustreak/datri-oracle/internal/oracle"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "datri-oracle",
	Short:         "Oracle schema introspection and dialect toolkit",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "datri-oracle.yaml", "path to YAML or TOML config file")
	rootCmd.AddCommand(
		schemasCmd(),
		tablesCmd(),
		describeCmd(),
		routinesCmd(),
		queryCmd(),
		callCmd(),
		ddlCmd(),
		serveCmd(),
		snapshotCmd(),
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode gives scripts a coarse signal: 2 for bad input, 3 for missing
// objects, 1 otherwise.
func exitCode(err error) int {
	switch {
	case errs.IsInvalidInput(err):
		return 2
	case errs.IsNotFound(err):
		return 3
	default:
		return 1
	}
}

// session is everything a command needs once connected.
type session struct {
	cfg    *config.Config
	log    *logger.Logger
	driver *oradb.Driver
	eng    *oracle.Engine
}

func (s *session) Close() { s.driver.Close() }

func connect(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.New(&cfg.Log)
	logger.SetGlobal(log)

	drv, err := oradb.New(cmd.Context(), cfg.Oracle, log)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:    cfg,
		log:    log,
		driver: drv,
		eng:    oracle.New(drv, cfg.Engine, log),
	}, nil
}

// withSession connects, runs fn and disconnects.
func withSession(fn func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd, args, s)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
