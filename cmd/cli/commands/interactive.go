package commands

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// InteractiveCmd creates the interactive command
func InteractiveCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Start a shift session (connect once, run many commands)",
		Long: `Start a session for the night shift where commands run against one open
database connection. The session keeps running until you type 'exit' or 'quit'.

Type 'help' to see available commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n%s night shift, night of %s (as %s)\n", app.Shift.Station, app.Shift.Night().NightDate, orDash(app.Shift.Actor))
			fmt.Fprintln(out, "Type 'help' for available commands, 'exit' or 'quit' to leave")

			commands := make(map[string]*cobra.Command)
			for _, sub := range cmd.Parent().Commands() {
				switch sub.Name() {
				case "interactive", "completion", "help":
				default:
					commands[sub.Name()] = sub
				}
			}

			return runSession(cmd.InOrStdin(), out, commands)
		},
	}
}

func runSession(in io.Reader, out io.Writer, commands map[string]*cobra.Command) error {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "> ")

		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts, err := parseCommandLine(line)
		if err != nil {
			fmt.Fprintf(out, "❌ Error parsing command: %v\n\n", err)
			continue
		}
		if len(parts) == 0 {
			continue
		}
		name, cmdArgs := parts[0], parts[1:]

		switch name {
		case "exit", "quit":
			fmt.Fprintln(out, "👋 Shift session closed")
			return nil
		case "help":
			printInteractiveHelp(out, commands)
			continue
		}

		target, ok := commands[name]
		if !ok {
			fmt.Fprintf(out, "❌ Unknown command: %s (type 'help' for available commands)\n\n", name)
			continue
		}

		if err := runInSession(target, cmdArgs, out); err != nil {
			fmt.Fprintf(out, "❌ Error: %v\n\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}
	return nil
}

// runInSession calls RunE directly so the root PersistentPreRunE does not
// reconnect for every line.
func runInSession(target *cobra.Command, args []string, out io.Writer) error {
	target.Flags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
		if sv, ok := flag.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
			return
		}
		_ = flag.Value.Set(flag.DefValue)
	})

	if err := target.ParseFlags(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	args = target.Flags().Args()

	if target.Args != nil {
		if err := target.Args(target, args); err != nil {
			return err
		}
	}

	target.SetOut(out)
	if target.RunE != nil {
		return target.RunE(target, args)
	}
	if target.Run != nil {
		target.Run(target, args)
	}
	return nil
}

func printInteractiveHelp(out io.Writer, commands map[string]*cobra.Command) {
	fmt.Fprintln(out, "\nAvailable commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(out, "  %-40s %s\n", commands[name].Use, commands[name].Short)
	}

	fmt.Fprintln(out, "\n  help                                     Show this help message")
	fmt.Fprintln(out, "  exit, quit                               Leave the session")
	fmt.Fprintln(out)
}

// parseCommandLine splits a line into arguments, keeping quoted text together
func parseCommandLine(line string) ([]string, error) {
	var args []string
	var current strings.Builder
	var quote rune
	inArg := false

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case unicode.IsSpace(r):
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(r)
			inArg = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unclosed quote: %c", quote)
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}
