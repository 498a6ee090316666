// Package main is the entry point for the agentyes binary, a wrapper that
// runs an interactive agent CLI and automatically answers its confirmation
// prompts while still forwarding real keystrokes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentyes/agentyes/internal/common/logger"
	"github.com/agentyes/agentyes/internal/config"
	"github.com/agentyes/agentyes/internal/wrapper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		flagAgent       string
		flagExitOnIdle  string
		flagContinue    bool
		flagLogFile     string
		flagVerbose     bool
		flagStripStdout bool
	)

	exitCode := 1

	root := &cobra.Command{
		Use:   "agentyes [flags] -- [agent args...]",
		Short: "Run an agent CLI and automatically answer its confirmation prompts",
		Long: "agentyes supervises an interactive agent CLI attached to a pseudo-terminal,\n" +
			"answers common yes/no and menu confirmation prompts on its behalf, restarts it\n" +
			"after crashes, and can end the run after a period of inactivity.",
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			// Flags override environment and defaults.
			if cmd.Flags().Changed("agent") {
				cfg.Agent = flagAgent
			}
			if cmd.Flags().Changed("continue-on-crash") {
				cfg.ContinueOnCrash = flagContinue
			}
			if cmd.Flags().Changed("log-file") {
				cfg.LogFile = flagLogFile
			}
			if cmd.Flags().Changed("remove-control-characters-from-stdout") {
				cfg.RemoveControlCharacters = flagStripStdout
			}
			if cmd.Flags().Changed("verbose") {
				cfg.Verbose = flagVerbose
				if flagVerbose {
					cfg.Logging.Level = "debug"
				}
			}
			if cmd.Flags().Changed("exit-on-idle") {
				idle, err := config.ParseIdleDuration(flagExitOnIdle)
				if err != nil {
					return err
				}
				cfg.ExitOnIdle = idle
			}
			cfg.AgentArgs = args
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, err := logger.NewLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			fmt.Printf("⭐ Starting %s, automatically responding to yes/no prompts...\n", cfg.Agent)
			fmt.Println("⚠️ Important Security Warning: Only run this on trusted repositories. " +
				"This tool automatically responds to prompts and can execute commands without " +
				"user confirmation. Be aware of potential prompt injection attacks where malicious " +
				"code or instructions could be embedded in files or user inputs to manipulate the " +
				"automated responses.")

			// Raw mode delivers keystrokes immediately and unechoed; the
			// child's PTY does its own echoing.
			restore := enableRawMode(log)
			defer restore()

			code, runErr := wrapper.New(cfg, log).Run(cmd.Context())
			restore()
			if runErr != nil {
				log.Error("run failed", zap.Error(runErr))
				return runErr
			}
			exitCode = code
			return nil
		},
	}

	root.Flags().StringVar(&flagAgent, "agent", "claude", "agent CLI command to wrap")
	root.Flags().StringVar(&flagExitOnIdle, "exit-on-idle", "60s",
		`exit after being idle for this duration (e.g. "90s", "5m"; "0" disables)`)
	root.Flags().BoolVar(&flagContinue, "continue-on-crash", true,
		"restart the agent with continuation arguments when it crashes")
	root.Flags().StringVar(&flagLogFile, "log-file", "", "write the rendered transcript to this file after the run")
	root.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	root.Flags().BoolVar(&flagStripStdout, "remove-control-characters-from-stdout", false,
		"strip ANSI control sequences from passthrough output")

	// Raw mode turns Ctrl+C into input for the child, so only an external
	// SIGTERM ends the wrapper early.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return exitCode
}

// enableRawMode switches the controlling terminal to raw mode and returns
// an idempotent restore function. A non-terminal stdin (pipes, CI) is left
// untouched.
func enableRawMode(log *logger.Logger) func() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return func() {}
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		log.Warn("failed to enable raw mode", zap.Error(err))
		return func() {}
	}

	var once bool
	return func() {
		if !once {
			once = true
			_ = term.Restore(fd, state)
		}
	}
}
