// Package app implements the remotepid command line.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pranshuparmar/remotepid/internal/config"
	"github.com/pranshuparmar/remotepid/internal/logging"
	procpkg "github.com/pranshuparmar/remotepid/internal/proc"
	"github.com/pranshuparmar/remotepid/pkg/remotepid"
)

// Exit statuses.
const (
	ExitOK       = 0
	ExitNotLocal = 1
	ExitOther    = 2
)

var (
	version   = "dev"
	commit    = ""
	buildDate = ""
)

func SetVersionBuildCommitString(v, c, d string) {
	if v != "" {
		version = v
	}
	commit = c
	buildDate = d
}

func versionString() string {
	s := version
	if commit != "" {
		s += " (commit " + commit
		if buildDate != "" {
			s += ", built " + buildDate
		}
		s += ")"
	}
	return s
}

type globalFlags struct {
	config   string
	backend  string
	procRoot string
	lsofPath string
	logLevel string
	json     bool
	noColor  bool
}

type app struct {
	flags  globalFlags
	stdout io.Writer
	stderr io.Writer
	exit   int

	// table replaces the OS backend in tests.
	table procpkg.Table
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Run executes one command line and returns its exit status.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return (&app{stdout: stdout, stderr: stderr}).run(ctx, args)
}

func (a *app) run(ctx context.Context, args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(a.stderr, "Error:", err)
		return ExitOther
	}
	return a.exit
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "remotepid",
		Short: "Find the local process on the other end of a TCP connection",
		Long: `remotepid looks up the process that owns the remote side of an
established TCP connection, provided that side lives on this host.`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.flags.config, "config", "c", "", "config file path")
	f.StringVar(&a.flags.backend, "backend", "", "connection table backend (auto, procfs, gopsutil, lsof)")
	f.StringVar(&a.flags.procRoot, "proc-root", "", "proc filesystem mount point")
	f.StringVar(&a.flags.lsofPath, "lsof-path", "", "lsof binary to run")
	f.StringVar(&a.flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.BoolVar(&a.flags.json, "json", false, "print JSON")
	f.BoolVar(&a.flags.noColor, "no-color", false, "disable colored output")

	root.AddCommand(a.addrCmd(), a.fdCmd(), a.connsCmd(), a.versionCmd())
	return root
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.stdout, "remotepid", versionString())
		},
	}
}

// loadConfig applies flags that were set on top of the config file.
func (a *app) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if a.flags.config != "" {
		c, err := config.Load(a.flags.config)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = a.flags.backend
	}
	if flags.Changed("proc-root") {
		cfg.ProcRoot = a.flags.procRoot
	}
	if flags.Changed("lsof-path") {
		cfg.LsofPath = a.flags.lsofPath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (a *app) resolver(cmd *cobra.Command) (*remotepid.Resolver, *zap.Logger, error) {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log, a.stderr)
	if err != nil {
		return nil, nil, err
	}

	opts := []remotepid.Option{remotepid.WithConfig(cfg), remotepid.WithLogger(logger)}
	if a.table != nil {
		opts = append(opts, remotepid.WithTable(a.table))
	}
	r, err := remotepid.New(opts...)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("resolver ready", zap.String("backend", r.Backend()))
	return r, logger, nil
}

func (a *app) colorEnabled() bool {
	if a.flags.noColor {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return a.stdout == os.Stdout
}
