package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srgg/rpcd/internal/worker"
	"github.com/srgg/rpcd/pkg/config"
)

var (
	version = "dev"

	flagPort       int
	flagOutputs    []string
	flagWorkerMode bool
	flagDirectMode bool
	flagVerbose    bool
	flagConfigPath string
)

var rootCmd = &cobra.Command{
	Use:     "rpcd",
	Short:   "remote execution and introspection daemon",
	Version: version,
	RunE:    run,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintln(os.Stderr, color.RedString("ERROR: %s", FormatUserError(err)))
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "listening port (default 5910)")
	rootCmd.Flags().StringArrayVarP(&flagOutputs, "output", "o", nil,
		"log sink: stdout, syslog, or file:<path> (repeatable)")
	rootCmd.Flags().BoolVarP(&flagWorkerMode, "worker", "w", false,
		"run as a re-exec'd worker handling the client socket duplicated onto fd 3")
	rootCmd.Flags().BoolVarP(&flagDirectMode, "direct", "d", false,
		"handle every connection in-process instead of re-execing a worker")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug-level logging")
	rootCmd.Flags().StringVarP(&flagConfigPath, "config", "c", "",
		"optional YAML file overriding the defaults (port, outputs, direct mode)")
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := buildLogger(flagOutputs, flagVerbose)
	if err != nil {
		return err
	}
	logrus.SetOutput(logger.Out)
	logrus.SetLevel(logger.GetLevel())
	logrus.SetFormatter(logger.Formatter)

	if flagWorkerMode {
		return worker.RunWorker()
	}

	cfg := config.DefaultConfig()
	if flagConfigPath != "" {
		loaded, err := config.LoadYAML(cfg, flagConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if len(flagOutputs) == 0 {
			logger, err = buildLogger(cfg.Outputs, flagVerbose)
			if err != nil {
				return err
			}
			logrus.SetOutput(logger.Out)
		}
	}
	if flagPort != 0 {
		cfg.Port = flagPort
	}
	if flagDirectMode {
		cfg.DirectMode = true
	}

	return startDaemon(cfg)
}

func startDaemon(cfg *config.Config) error {
	opts := worker.Options{Port: cfg.Port, DirectMode: cfg.DirectMode}
	if cfg.DirectMode {
		opts.HandleDirect = func(conn net.Conn) {
			worker.HandleClient(conn, os.Getpid())
		}
	}
	ln, err := worker.Listen(opts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrListenFailed, err)
	}
	logrus.WithField("port", cfg.Port).Info("rpcd listening")
	return ln.Serve()
}
