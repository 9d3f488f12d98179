package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mmynk/notekeeper/internal/notesview"
)

const watchHelp = `Commands:
  a              open the add form
  a TEXT         add a note
  c              close the add form
  e ID TEXT      replace the text of a note
  d ID           delete a note
  x              dismiss the notice
  h              show this help
  q              quit
`

const watchHint = "Type `a TEXT` to add your first note."

// watchCommand is one parsed line of watch input.
type watchCommand struct {
	op   string
	id   string
	text string
}

var errEmptyLine = errors.New("empty line")

func parseWatchLine(line string) (watchCommand, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return watchCommand{}, errEmptyLine
	}
	op, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch op {
	case "a":
		return watchCommand{op: op, text: rest}, nil
	case "e":
		id, text, _ := strings.Cut(rest, " ")
		text = strings.TrimSpace(text)
		if id == "" || text == "" {
			return watchCommand{}, errors.New("usage: e ID TEXT")
		}
		return watchCommand{op: op, id: id, text: text}, nil
	case "d":
		if rest == "" || strings.Contains(rest, " ") {
			return watchCommand{}, errors.New("usage: d ID")
		}
		return watchCommand{op: op, id: rest}, nil
	case "c", "x", "h", "q":
		if rest != "" {
			return watchCommand{}, fmt.Errorf("%s takes no arguments", op)
		}
		return watchCommand{op: op}, nil
	default:
		return watchCommand{}, fmt.Errorf("unknown command %q (h for help)", op)
	}
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Interactive note list that follows the signed-in user",
		Long: `watch shows your notes and redraws after every change.

With the remote driver it follows the session file, so logging in or out
from another terminal switches the list. Type h for commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return runWatch(ctx, a, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

// runWatch mounts a list view and applies commands read from in until q,
// end of input, or ctx is done.
func runWatch(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	printf := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, format, args...)
	}

	if a.files != nil {
		go func() {
			if err := a.files.Watch(ctx); err != nil {
				slog.Warn("Session watcher stopped", "path", a.files.Path(), "error", err)
			}
		}()
	}

	view := notesview.New(a.repo, a.identity,
		notesview.WithLogger(slog.Default()),
		notesview.WithOnChange(func(s notesview.State) {
			screen := notesview.Render(s)
			screen.Hint = watchHint
			printf("\n%s", screen)
		}),
	)
	if err := view.Mount(ctx); err != nil {
		return err
	}
	defer view.Unmount()

	if _, ok := a.identity.Current(); !ok {
		printf("Not signed in; waiting for `notes login`.\n")
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}

		c, err := parseWatchLine(line)
		if errors.Is(err, errEmptyLine) {
			continue
		}
		if err != nil {
			printf("Error: %v\n", err)
			continue
		}

		switch c.op {
		case "q":
			return nil
		case "h":
			printf("%s", watchHelp)
		case "c":
			view.CloseAddForm()
		case "x":
			view.DismissNotice()
		case "a":
			view.OpenAddForm()
			if c.text != "" {
				err = view.Add(ctx, c.text)
			}
		case "e":
			err = view.Update(ctx, c.id, c.text)
		case "d":
			err = view.Delete(ctx, c.id)
		}
		if err != nil {
			printf("Error: %v\n", err)
		}
	}
}
