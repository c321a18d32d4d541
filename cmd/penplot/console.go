package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"penplot/plotter"
	"penplot/plotter/sequencer"
)

func newConsoleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Jog the plotter interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			seq, err := openSequencer(cmd.Context(), cfg, opts)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, seq.Cleanup())
			}()

			return runConsole(cmd.Context(), seq, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

type consoleCommand struct {
	name  string
	point plotter.Point
}

func parseConsoleLine(line string) (consoleCommand, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return consoleCommand{}, err
	}
	if len(words) == 0 {
		return consoleCommand{}, nil
	}

	cmd := consoleCommand{name: strings.ToLower(words[0])}
	switch cmd.name {
	case "move", "m":
		cmd.name = "move"
		if len(words) != 3 {
			return consoleCommand{}, errors.New("usage: move X Y")
		}
		x, err := strconv.Atoi(words[1])
		if err != nil {
			return consoleCommand{}, fmt.Errorf("bad X %q", words[1])
		}
		y, err := strconv.Atoi(words[2])
		if err != nil {
			return consoleCommand{}, fmt.Errorf("bad Y %q", words[2])
		}
		cmd.point = plotter.Point{X: x, Y: y}
	case "lift", "up":
		cmd.name = "lift"
	case "lower", "down":
		cmd.name = "lower"
	case "quit", "exit", "q":
		cmd.name = "quit"
	case "help", "?":
		cmd.name = "help"
	case "home", "where":
	default:
		return consoleCommand{}, fmt.Errorf("unknown command %q (type 'help')", words[0])
	}
	return cmd, nil
}

// runConsole reads commands from in until quit or EOF. Input mistakes,
// including unreachable targets, are reported and skipped; a hardware error
// ends the session.
func runConsole(ctx context.Context, seq *sequencer.Sequencer, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		cmd, err := parseConsoleLine(scanner.Text())
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}

		switch cmd.name {
		case "":
		case "quit":
			return nil
		case "help":
			printConsoleHelp(out)
		case "where":
			c := seq.Cursor()
			fmt.Fprintf(out, "x=%d y=%d pen=%s\n", c.X, c.Y, seq.Pen())
		case "move":
			err = seq.MoveTo(ctx, cmd.point)
		case "lift":
			err = seq.Lift(ctx)
		case "lower":
			err = seq.Lower(ctx)
		case "home":
			err = seq.Home(ctx)
		}
		if errors.Is(err, plotter.ErrOutOfRange) {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if err != nil {
			return err
		}
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func printConsoleHelp(out io.Writer) {
	fmt.Fprintln(out, "commands:")
	fmt.Fprintln(out, "  move X Y   move to X,Y with the pen as it is")
	fmt.Fprintln(out, "  lift       raise the pen")
	fmt.Fprintln(out, "  lower      drop the pen")
	fmt.Fprintln(out, "  home       raise the pen and return to 0,0")
	fmt.Fprintln(out, "  where      print the cursor")
	fmt.Fprintln(out, "  quit")
}
