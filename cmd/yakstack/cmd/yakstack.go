// Package cmd implements the yakstack command tree.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"yakstack/internal/config"
	"yakstack/internal/notification"
	"yakstack/internal/reminder"
	"yakstack/internal/utils"
	"yakstack/store"
	"yakstack/store/sqlite"
)

// Version is set at build time.
var Version = "dev"

// Exit codes distinguish the failure kind for scripting.
const (
	ExitOK          = 0
	ExitFailure     = 1 // storage and other internal failures
	ExitStackError  = 2
	ExitTaskError   = 3
	ExitBadDelay    = 4
	ExitEnvironment = 5
)

// Config holds application configuration and the test seams.
type Config struct {
	DBPath     string // overrides config file and default path
	ConfigPath string
	Verbose    bool

	// Test seams; nil means the real implementation.
	Spawner              reminder.Spawner
	NotificationExecutor notification.CommandExecutor
	NotificationLogPath  string
	WorkerSleep          func(time.Duration)
}

// Execute runs the CLI with the given arguments and IO writers,
// returning the process exit code.
func Execute(args []string, stdout, stderr io.Writer, cfg *Config) int {
	rootCmd := NewYakstack(stdout, stderr, cfg)

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return ExitOK
}

// exitCode maps the error taxonomy to a distinguishing status.
func exitCode(err error) int {
	var badDelay *reminder.InvalidDelayError
	var envErr *reminder.EnvironmentError
	switch {
	case store.IsStackError(err):
		return ExitStackError
	case store.IsTaskError(err):
		return ExitTaskError
	case errors.As(err, &badDelay):
		return ExitBadDelay
	case errors.As(err, &envErr):
		return ExitEnvironment
	}
	return ExitFailure
}

// NewYakstack creates the root command with injectable IO.
func NewYakstack(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	if cfg == nil {
		cfg = &Config{}
	}

	cmd := &cobra.Command{
		Use:     "yakstack",
		Short:   "yak-shaving stack",
		Long:    "yakstack tracks short tasks on named stacks: push, pop, reorder, relocate, and schedule delayed reminders.",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if v, _ := cmd.Flags().GetBool("verbose"); v {
				cfg.Verbose = true
			}
			utils.SetVerboseMode(cfg.Verbose)
			if db, _ := cmd.Flags().GetString("db"); db != "" {
				cfg.DBPath = db
			}
			if cp, _ := cmd.Flags().GetString("config"); cp != "" {
				cfg.ConfigPath = cp
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("db", "", "Path to the stack database file")
	cmd.PersistentFlags().String("config", "", "Path to the config file")
	cmd.PersistentFlags().BoolP("verbose", "V", false, "Enable verbose/debug output")

	cmd.AddCommand(newPushCmd(stdout, cfg))
	cmd.AddCommand(newPushBackCmd(stdout, cfg))
	cmd.AddCommand(newPopCmd(stdout, cfg))
	cmd.AddCommand(newLsCmd(stdout, cfg))
	cmd.AddCommand(newInsertCmd(stdout, cfg))
	cmd.AddCommand(newSwapCmd(stdout, cfg))
	cmd.AddCommand(newClearCmd(stdout, cfg))
	cmd.AddCommand(newClearAllCmd(stdout, cfg))
	cmd.AddCommand(newNewStackCmd(stdout, cfg))
	cmd.AddCommand(newSwitchToCmd(stdout, cfg))
	cmd.AddCommand(newDropStackCmd(stdout, cfg))
	cmd.AddCommand(newListStacksCmd(stdout, cfg))
	cmd.AddCommand(newKillCmd(stdout, cfg))
	cmd.AddCommand(newRemindCmd(stdout, cfg))
	cmd.AddCommand(newFireReminderCmd(stdout, cfg))

	return cmd
}

// loadConfig reads the config file named by cfg or the default
// location. A missing file yields defaults.
func loadConfig(cfg *Config) (*config.Config, error) {
	path := cfg.ConfigPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			// No user config dir; run on defaults.
			return &config.Config{}, nil
		}
	}
	return config.Load(path)
}

// dbPath resolves the database location: --db flag, then config file,
// then the fixed name in the OS temp directory.
func dbPath(cfg *Config, fileCfg *config.Config) string {
	if cfg.DBPath != "" {
		return cfg.DBPath
	}
	if fileCfg.DBPath != "" {
		return fileCfg.DBPath
	}
	return sqlite.DefaultPath()
}

// openStore opens the store for one command invocation.
func openStore(cfg *Config) (*sqlite.Store, error) {
	fileCfg, err := loadConfig(cfg)
	if err != nil {
		return nil, err
	}
	return sqlite.Open(dbPath(cfg, fileCfg))
}

// parseIndex parses a 0-based task position argument.
func parseIndex(arg string) (int64, error) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s is not a valid task number", arg)
	}
	return n, nil
}

func newPushCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "push TASK",
		Short: "Push a task onto the top of the current stack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			return st.Push(context.Background(), args[0])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newPushBackCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:     "pushback TASK",
		Aliases: []string{"backpush"},
		Short:   "Push a task onto the bottom of the current stack",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			return st.PushBack(context.Background(), args[0])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newPopCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "pop [STACK]",
		Short: "Pop the top task, or move it to another stack",
		Long:  "Pop the top task off the current stack. With a stack name, move the top task to that stack instead of completing it.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			ctx := context.Background()

			if len(args) == 1 {
				return st.PopTo(ctx, args[0])
			}

			text, ok, err := st.Pop(ctx)
			if err != nil {
				return err
			}
			if !ok {
				// Empty stack is informational, not a failure.
				_, _ = fmt.Fprintln(stdout, "no tasks!")
				return nil
			}
			_, _ = fmt.Fprintf(stdout, "%s ✔️\n", text)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newLsCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List all tasks on the current stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			ctx := context.Background()

			name, err := st.CurrentStackName(ctx)
			if err != nil {
				return err
			}
			tasks, err := st.Tasks(ctx)
			if err != nil {
				return err
			}
			renderTasks(stdout, name, tasks)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newInsertCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "insert INDEX TASK",
		Short: "Insert a task after the INDEXth task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			return st.InsertAfter(context.Background(), index, args[1])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newSwapCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "swap TASK1 TASK2",
		Short: "Swap the positions of two tasks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			j, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			return st.Swap(context.Background(), i, j)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newClearCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all tasks on the current stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			return st.Clear(context.Background())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newClearAllCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "clearall",
		Short: "Clear all tasks from all stacks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			return st.ClearAll(context.Background())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newNewStackCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "newstack NAME",
		Short: "Create a new stack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			return st.NewStack(context.Background(), args[0])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newSwitchToCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "switchto NAME",
		Short: "Switch to another stack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			return st.SwitchTo(context.Background(), args[0])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newDropStackCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "dropstack NAME",
		Short: "Drop a stack and all tasks in it",
		Long:  "Drop a stack and every task it holds. The default stack and the current stack cannot be dropped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			return st.DropStack(context.Background(), args[0])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newListStacksCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "liststacks",
		Short: "List all stacks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			ctx := context.Background()

			currentID, err := st.CurrentStackID(ctx)
			if err != nil {
				return err
			}
			stacks, err := st.Stacks(ctx)
			if err != nil {
				return err
			}
			renderStacks(stdout, stacks, currentID)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newKillCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "kill INDEX",
		Short: "Delete the INDEXth task from the current stack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			text, err := st.Kill(context.Background(), index)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(stdout, text)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// stdoutIsTerminal reports whether w is a real terminal, gating the
// styled rendering.
func stdoutIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}
