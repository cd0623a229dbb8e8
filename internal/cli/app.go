// pattern: Functional Core

package cli

import (
	"fmt"
	"io"
	"os"
)

// Exit codes.
const (
	ExitOK    = 0 // the run completed, possibly with failed projects
	ExitFatal = 1 // a precondition failed or the run could not start
	ExitUsage = 2 // unknown command or bad arguments
)

// DefaultCommand runs when no command is given.
const DefaultCommand = "sync"

// Command represents a single CLI command with its metadata and handler.
type Command struct {
	Name    string
	Summary string
	Usage   string
	Run     func(args []string) int
}

// App represents the top-level CLI application.
type App struct {
	commands map[string]*Command
	order    []string
	version  string
	stderr   io.Writer
}

// NewApp creates a new CLI application with the given version.
func NewApp(version string) *App {
	return &App{
		commands: make(map[string]*Command),
		version:  version,
		stderr:   os.Stderr,
	}
}

// AddCommand registers a command. Help lists commands in registration order.
func (a *App) AddCommand(cmd *Command) {
	if _, ok := a.commands[cmd.Name]; !ok {
		a.order = append(a.order, cmd.Name)
	}
	a.commands[cmd.Name] = cmd
}

// Execute dispatches the CLI arguments and returns the process exit code.
func (a *App) Execute(args []string) int {
	if len(args) == 0 {
		args = []string{DefaultCommand}
	}

	cmdName := args[0]
	if cmdName == "help" || cmdName == "--help" || cmdName == "-h" {
		a.PrintHelp(a.stderr)
		return ExitOK
	}

	cmd, ok := a.commands[cmdName]
	if !ok {
		fmt.Fprintf(a.stderr, "unknown command %q\n\n", cmdName)
		a.PrintHelp(a.stderr)
		return ExitUsage
	}

	for _, arg := range args[1:] {
		if arg == "--help" || arg == "-h" {
			fmt.Fprintf(a.stderr, "%s\n", cmd.Usage)
			return ExitOK
		}
	}
	return cmd.Run(args[1:])
}

// PrintHelp prints the top-level help text.
func (a *App) PrintHelp(w io.Writer) {
	fmt.Fprintf(w, "Usage: reposync [options] [command]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, name := range a.order {
		cmd := a.commands[name]
		summary := cmd.Summary
		if name == DefaultCommand {
			summary += " (default)"
		}
		fmt.Fprintf(w, "  %-10s %s\n", cmd.Name, summary)
	}
	fmt.Fprintf(w, "\nOptions:\n")
}
