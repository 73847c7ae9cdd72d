package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/ardnew/orml/lang"
	"github.com/ardnew/orml/log"
)

const defaultEditor = "vi"

// ErrEditDeclined is returned when the user gives up on a transcript that
// fails to replay.
var ErrEditDeclined = errors.New("edit declined")

// editCommand implements [tea.ExecCommand]. It writes the session transcript
// to a temporary file, opens $EDITOR on it, and replays the edited lines into
// a fresh session. When a line fails the user may edit again; declining
// returns [ErrEditDeclined].
type editCommand struct {
	ctx        context.Context
	evaluator  *lang.Evaluator
	logger     log.Logger
	transcript []string

	// Set by Run on success.
	session *lang.Session
	lines   []string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (c *editCommand) SetStdin(r io.Reader)  { c.stdin = r }
func (c *editCommand) SetStdout(w io.Writer) { c.stdout = w }
func (c *editCommand) SetStderr(w io.Writer) { c.stderr = w }

func (c *editCommand) Run() error {
	f, err := os.CreateTemp("", "orml-repl-*.orml")
	if err != nil {
		return err
	}

	path := f.Name()
	defer os.Remove(path)

	content := strings.Join(c.transcript, "\n")
	if content != "" {
		content += "\n"
	}

	_, err = f.WriteString(content)
	f.Close()

	if err != nil {
		return err
	}

	for {
		if err := runEditor(c.ctx, c.stdin, c.stdout, c.stderr, path); err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		lines, err := lang.ReadLines(strings.NewReader(string(data)))
		if err != nil {
			return err
		}

		if strings.TrimSpace(string(data)) == "" {
			// Cleared content cancels the edit.
			return nil
		}

		session, failed, err := replay(c.ctx, c.evaluator, lines)

		c.logger.TraceContext(c.ctx, "repl edit replay",
			slog.Int("lines", len(lines)),
			slog.Bool("success", err == nil))

		if err == nil {
			c.session = session
			c.lines = lines

			return nil
		}

		fmt.Fprintf(c.stderr, "\nline %d: %v\n%s", failed+1, err, lang.Snippet(lines[failed], err))
		fmt.Fprint(c.stdout, "Re-edit? [Y/n] ")

		sc := bufio.NewScanner(c.stdin)
		if !sc.Scan() {
			return ErrEditDeclined
		}

		switch strings.ToLower(strings.TrimSpace(sc.Text())) {
		case "n", "no":
			return ErrEditDeclined
		}
	}
}

// replay evaluates lines in order in a new session. The first failure stops
// the replay and reports the index of the failed line.
func replay(
	ctx context.Context,
	ev *lang.Evaluator,
	lines []string,
) (*lang.Session, int, error) {
	s := ev.NewSession()

	for i, line := range lines {
		if _, err := s.Eval(ctx, line); err != nil {
			return nil, i, err
		}
	}

	return s, len(lines), nil
}

// runEditor opens path in $EDITOR, or vi when unset.
func runEditor(
	ctx context.Context,
	stdin io.Reader,
	stdout, stderr io.Writer,
	path string,
) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = defaultEditor
	}

	cmd := exec.CommandContext(ctx, editor, path)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	return cmd.Run()
}
