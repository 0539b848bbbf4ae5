// Command examctl signs in to the exam platform backend and keeps the session
// between runs.
//
// Usage:
//
//	examctl [-config path] [-v] <command> [flags] [args]
//
// The profile file is YAML; EXAMCLIENT_* environment variables override it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"

	"github.com/owlenglish/examclient"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Environ()); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("missing command")

type command struct {
	name        string
	usage       string
	description string
	run         func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{}

func register(c command) {
	commands[c.name] = c
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, environ []string) error {
	global := flag.NewFlagSet("examctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "profile file (default $XDG_CONFIG_HOME/examctl/config.yaml)")
	verbose := global.Bool("v", false, "log backend requests to stderr")
	global.Usage = func() { printUsage(stderr, global) }

	if err := global.Parse(args); err != nil {
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		printUsage(stderr, global)
		return errUsage
	}
	if rest[0] == "help" {
		printUsage(stdout, global)
		return nil
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", rest[0])
		_, _ = fmt.Fprintln(stderr, "Use 'examctl help' to see available commands.")
		return fmt.Errorf("unknown command %q", rest[0])
	}

	env := environMap(environ)
	path := *configPath
	if path == "" {
		path = defaultProfilePath(env)
	}
	prof, err := loadProfile(path, *configPath != "")
	if err != nil {
		return err
	}

	ctx = examclient.WithSource(ctx, "examctl")
	a, err := newApp(ctx, prof, env, stdin, stdout, stderr, *verbose)
	if err != nil {
		return err
	}
	defer a.Close()

	return cmd.run(ctx, a, rest[1:])
}

func printUsage(w io.Writer, global *flag.FlagSet) {
	_, _ = fmt.Fprintln(w, "Usage: examctl [global flags] <command> [flags] [args]")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %-13s %s\n", name, commands[name].description)
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Global flags:")
	global.SetOutput(w)
	global.PrintDefaults()
}

// newFlagSet returns a flag set for cmd whose usage goes to a.stderr.
func (a *app) newFlagSet(cmd string) *flag.FlagSet {
	c := commands[cmd]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(a.stderr, "Usage: examctl %s\n\n%s\n\n", c.usage, c.description)
		fs.PrintDefaults()
	}
	return fs
}
