// Package main is the entry point for the graphsnap command.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const configDirEnv = "GRAPHSNAP_CONFIG_DIR"

var (
	errNoCommand      = errors.New("no command given")
	errUnknownCommand = errors.New("unknown command")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type command struct {
	help string
	run  func(ctx context.Context, out, errOut io.Writer, a *app, args []string) int
}

var commands = map[string]command{
	"show":    {showHelp, cmdShow},
	"get":     {getHelp, cmdGet},
	"set":     {setHelp, cmdSet},
	"track":   {trackHelp, cmdTrack},
	"untrack": {untrackHelp, cmdUntrack},
	"watch":   {watchHelp, cmdWatch},
}

var commandOrder = []string{"show", "get", "set", "track", "untrack", "watch"}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	flagSet := flag.NewFlagSet("graphsnap", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.SetInterspersed(false)

	configDir := flagSet.StringP("config-dir", "c", "", "Configuration directory (default $"+configDirEnv+" or the user config dir)")
	logLevel := flagSet.String("log-level", "warn", "Log level (debug, info, warn, error)")
	tolerant := flagSet.Bool("tolerant", false, "Overwrite configuration files that fail to parse")
	showVersion := flagSet.BoolP("version", "v", false, "Show version information")
	showUsage := flagSet.BoolP("help", "h", false, "Show help message")

	if err := flagSet.Parse(args); err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}

	if *showUsage {
		printUsage(out, flagSet)
		return 0
	}
	if *showVersion {
		fmt.Fprintf(out, "graphsnap %s\n", version)
		fmt.Fprintf(out, "Commit: %s\n", commit)
		fmt.Fprintf(out, "Built: %s\n", date)
		return 0
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(errOut, flagSet)
		fprintln(errOut, "error:", errNoCommand)
		return 1
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fprintln(errOut, "error:", fmt.Errorf("%w: %s", errUnknownCommand, rest[0]))
		return 1
	}
	if hasHelpFlag(rest[1:]) {
		fprintln(out, cmd.help)
		return 0
	}

	level, err := parseLevel(*logLevel)
	if err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	dir, err := resolveConfigDir(*configDir)
	if err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}

	a, err := open(dir, logger, *tolerant)
	if err != nil {
		// Documents that did load are still usable; writes report their own faults.
		fprintln(errOut, "warning:", err)
	}

	return cmd.run(ctx, out, errOut, a, rest[1:])
}

func printUsage(w io.Writer, flagSet *flag.FlagSet) {
	fprintln(w, "graphsnap - keep graph snapshot settings in sync")
	fprintln(w)
	fprintln(w, "Usage: graphsnap [options] <command> [args]")
	fprintln(w)
	fprintln(w, "Commands:")
	for _, name := range commandOrder {
		fprintln(w, commands[name].help)
	}
	fprintln(w)
	fprintln(w, "Options:")
	fprintln(w, strings.TrimRight(flagSet.FlagUsages(), "\n"))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", s)
	}
}

// resolveConfigDir picks the flag value, then the environment, then the
// platform config directory.
func resolveConfigDir(flagValue string) (string, error) {
	if flagValue != "" {
		return filepath.Abs(flagValue)
	}
	if env := os.Getenv(configDirEnv); env != "" {
		return filepath.Abs(env)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config directory: %w", err)
	}
	return filepath.Join(base, "graphsnap"), nil
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--" {
			return false
		}
		if arg == "-h" || arg == "--help" {
			return true
		}
	}
	return false
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}
