// Command chainsim runs the drivetrain simulation: two cogs, a crank drive and
// a chain that is rebuilt whenever the cogs change. Console commands are read
// from stdin, one per line.
//
//	chainsim [flags]          run the simulation
//	chainsim wrap [flags]     print the chain path for the configured cogs
//	chainsim version
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bikesim/drivetrain/internal/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BuildDate and Version can be set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"

	ServiceName = "chainsim"
)

type options struct {
	configDir string
	paused    bool
	ticks     uint64
	// configErr is set when no config file was found and defaults are in use
	configErr error
}

func newFlagSet() (*pflag.FlagSet, *options) {
	opts := &options{}
	fs := pflag.NewFlagSet(ServiceName, pflag.ContinueOnError)
	fs.StringVarP(&opts.configDir, "config", "c", ".", "directory containing "+config.FileName)
	fs.BoolVar(&opts.paused, "paused", false, "start paused; advance with :STEP: n")
	fs.Uint64Var(&opts.ticks, "ticks", 0, "stop after this many ticks (0 runs until interrupted)")
	fs.String("log-level", "", "override logLevel")
	fs.String("storage", "", "override storage.type")
	fs.String("physics", "", "override physics.backend")
	return fs, opts
}

// loadConfig reads the config file, falling back to defaults, then applies
// any flag overrides.
func loadConfig(fs *pflag.FlagSet, opts *options) error {
	if err := config.Load(opts.configDir); err != nil {
		opts.configErr = err
		config.SetDefaults()
	}
	overrides := map[string]string{
		"log-level": "logLevel",
		"storage":   "storage.type",
		"physics":   "physics.backend",
	}
	for flag, key := range overrides {
		f := fs.Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}
	return nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs, opts := newFlagSet()
	fs.SetOutput(stdout)
	if err := fs.Parse(args); err != nil {
		return err
	}

	command := "run"
	if rest := fs.Args(); len(rest) > 0 {
		command = strings.ToLower(rest[0])
	}
	if command == "version" {
		fmt.Fprintf(stdout, "%s %s (built %s)\n", ServiceName, Version, BuildDate)
		return nil
	}

	if err := loadConfig(fs, opts); err != nil {
		return err
	}

	switch command {
	case "run":
		return runSim(ctx, opts, stdin, stdout)
	case "wrap":
		return runWrap(stdout)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
