// Package cli provides the plain line-oriented REPL and the meta-command
// shell shared with the TUI.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

// CLI reads chat lines from In and writes replies to Out.
type CLI struct {
	*Shell
	In        io.Reader
	Out       io.Writer
	EchoInput bool // echo each input line after the prompt (for script playback)
	Log       *zap.Logger
}

// New creates a CLI on stdin/stdout around sh.
func New(sh *Shell) *CLI {
	return &CLI{
		Shell: sh,
		In:    os.Stdin,
		Out:   os.Stdout,
		Log:   zap.NewNop(),
	}
}

// Run loops prompt → input → Exec → output until /quit, EOF or ctx is
// cancelled.
func (c *CLI) Run(ctx context.Context) error {
	c.printSystem(fmt.Sprintf("Talking to %s. Type /help for commands.", c.botName()))

	lines := make(chan string)
	errc := make(chan error, 1)
	go readLines(c.In, lines, errc, ctx.Done())

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.print("you> ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			if err := <-errc; err != nil {
				c.Log.Error("reading input", zap.Error(err))
				return err
			}
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		// Comment lines in script files.
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		out := c.Exec(ctx, input)
		c.render(out)
		if out.Quit {
			return nil
		}
	}
}

// readLines scans r into lines until EOF or done, then closes lines and
// reports the scanner error on errc.
func readLines(r io.Reader, lines chan<- string, errc chan<- error, done <-chan struct{}) {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-done:
			errc <- nil
			return
		}
	}
	errc <- scanner.Err()
}

func (c *CLI) render(out Output) {
	if out.Reply != "" {
		c.printLine(fmt.Sprintf("%s> %s", DisplayName(out.Bot), out.Reply))
	}
	for _, line := range out.System {
		c.printSystem(line)
	}
	for _, line := range out.Trace {
		c.printLine(line)
	}
}

func (c *CLI) botName() string {
	return DisplayName(c.Engine.BotName(c.Session))
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	if text == "" {
		fmt.Fprintln(c.Out)
		return
	}
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
