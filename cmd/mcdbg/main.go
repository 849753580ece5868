package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ctagard/mcdbg/internal/config"
	"github.com/ctagard/mcdbg/internal/debug"
	"github.com/ctagard/mcdbg/internal/version"
)

var (
	flagHost     string
	flagConfig   string
	flagTimeout  time.Duration
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "mcdbg [port]",
	Short: "Interactive debugger client for the Bedrock script debug listener",
	Long: `mcdbg connects to the script debug listener of a running host
(enable it with "script debugger listen <port>") and drives the script
engine interactively: breakpoints, stepping, expression evaluation, and
object-graph inspection.`,
	Version: version.Version,
	Args:    cobra.MaximumNArgs(1),
	RunE:    run,
}

func init() {
	rootCmd.Flags().StringVar(&flagHost, "host", "", "listener host (default from config)")
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "path to a JSON configuration file")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "per-request timeout (default from config)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.SilenceUsage = true
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(flagConfig)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(args) == 1 {
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("port must be numeric: %q", args[0])
		}
		cfg.Port = port
	}
	if flagHost != "" {
		cfg.Host = flagHost
	}
	if flagTimeout > 0 {
		cfg.RequestTimeout = flagTimeout
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	level, err := cfg.ParseLogLevel()
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	info, err := cfg.ProtocolInfo()
	if err != nil {
		return err
	}

	transport, err := debug.NewTCPTransport(cfg.Address())
	if err != nil {
		return err
	}
	conn := debug.NewConnection(transport, cfg.RequestTimeout)
	session := debug.NewMinecraftSession(conn, info)

	fmt.Printf("connected to %s\n", cfg.Address())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nshutting down...")
		_ = session.Close()
	}()

	repl := newRepl(session)
	repl.loop()

	_ = session.Close()
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
