package order

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/runger/taller/internal/form"
)

// settlePoll is how often wait checks whether the selectors are idle.
const settlePoll = 10 * time.Millisecond

// DefaultSettleTimeout bounds a wait command.
const DefaultSettleTimeout = 15 * time.Second

// ScriptError reports the failing line of a script.
type ScriptError struct {
	Line int
	Text string
	Err  error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.Text, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// Script drives a mounted form from a line-oriented session description.
// Each line is split shell-style; '#' starts a comment.
//
//	type <field> <text>      replace the field's input value (one keystroke)
//	clear <field>            empty the field's input
//	wait [timeout]           block until every selector is idle
//	pick <field> <n>         click the n-th result row (0-based)
//	click <element-id>       pointer press on any element
//	set <element-id> <text>  write an input value without searching
//	add                      press the add-item trigger
//	show <field>             print the field's results
//	expect <element-id> <v>  fail unless the value (or text) equals v
//	visible <field> <bool>   fail unless results visibility matches
//	values                   print every non-empty input and hidden value
//	order                    print the order payload as JSON
type Script struct {
	form *Form
	out  io.Writer
}

// NewScript returns a script runner writing its output to out.
func NewScript(f *Form, out io.Writer) *Script {
	return &Script{form: f, out: out}
}

// Run executes every line of r, stopping at the first failure.
func (s *Script) Run(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		args, err := shlex.Split(line)
		if err != nil {
			return &ScriptError{Line: lineNo, Text: line, Err: err}
		}
		if len(args) == 0 {
			continue
		}
		if err := s.Exec(ctx, args); err != nil {
			return &ScriptError{Line: lineNo, Text: line, Err: err}
		}
	}
	return sc.Err()
}

// Exec runs one already-split command.
func (s *Script) Exec(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "type":
		field, err := fieldArg(rest, 2)
		if err != nil {
			return err
		}
		return s.form.Type(field, strings.Join(rest[1:], " "))

	case "clear":
		field, err := fieldArg(rest, 1)
		if err != nil {
			return err
		}
		return s.form.Type(field, "")

	case "wait":
		timeout := DefaultSettleTimeout
		if len(rest) > 0 {
			d, err := time.ParseDuration(rest[0])
			if err != nil {
				return fmt.Errorf("wait: %w", err)
			}
			timeout = d
		}
		return s.form.Settle(ctx, timeout)

	case "pick":
		field, err := fieldArg(rest, 2)
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(rest[1])
		if err != nil {
			return fmt.Errorf("pick: row must be a number: %w", err)
		}
		return s.form.Pick(field, n)

	case "click":
		if len(rest) != 1 {
			return fmt.Errorf("usage: click <element-id>")
		}
		return s.form.Click(rest[0])

	case "set":
		if len(rest) < 1 {
			return fmt.Errorf("usage: set <element-id> <text>")
		}
		return s.form.Document().SetValue(rest[0], strings.Join(rest[1:], " "))

	case "add":
		return s.form.Click(AddItemButton)

	case "show":
		field, err := fieldArg(rest, 1)
		if err != nil {
			return err
		}
		s.show(field)
		return nil

	case "expect":
		if len(rest) < 1 {
			return fmt.Errorf("usage: expect <element-id> <value>")
		}
		return s.expect(rest[0], strings.Join(rest[1:], " "))

	case "visible":
		field, err := fieldArg(rest, 2)
		if err != nil {
			return err
		}
		want, err := strconv.ParseBool(rest[1])
		if err != nil {
			return fmt.Errorf("visible: %w", err)
		}
		if got := s.form.Document().Visible(field.ResultsID()); got != want {
			return fmt.Errorf("%s results visible = %t, want %t", field, got, want)
		}
		return nil

	case "values":
		s.values()
		return nil

	case "order":
		enc := json.NewEncoder(s.out)
		enc.SetIndent("", "  ")
		return enc.Encode(s.form.Order())

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (s *Script) show(field Field) {
	doc := s.form.Document()
	state := "hidden"
	if doc.Visible(field.ResultsID()) {
		state = "visible"
	}
	fmt.Fprintf(s.out, "%s (%s):\n", field, state)
	for _, row := range doc.Children(field.ResultsID()) {
		fmt.Fprintf(s.out, "  %s\n", FormatRow(row))
	}
}

func (s *Script) values() {
	for _, el := range s.form.Document().Elements() {
		if el.Kind != form.KindInput && el.Kind != form.KindHidden {
			continue
		}
		if el.Value != "" {
			fmt.Fprintf(s.out, "%s=%s\n", el.ID, el.Value)
		}
	}
}

func (s *Script) expect(id, want string) error {
	el, err := s.form.Document().Lookup(id)
	if err != nil {
		return err
	}
	got := el.Value
	if el.Kind == form.KindText || el.Kind == form.KindButton || el.Kind == form.KindRow {
		got = el.Text
	}
	if got != want {
		return fmt.Errorf("%s = %q, want %q", id, got, want)
	}
	return nil
}

// FormatRow renders a results row as plain text.
func FormatRow(row form.Element) string {
	switch row.Class {
	case form.ClassOption:
		label := row.Text
		if row.Detail != "" {
			label += " (" + row.Detail + ")"
		}
		return "[" + strings.TrimPrefix(row.ID, row.Parent+"/") + "] " + label
	case form.ClassOptionError:
		return "! " + row.Text
	default:
		return "- " + row.Text
	}
}

func fieldArg(rest []string, minArgs int) (Field, error) {
	if len(rest) < minArgs {
		return "", fmt.Errorf("expected %d argument(s)", minArgs)
	}
	f, ok := ParseField(rest[0])
	if !ok {
		return "", fmt.Errorf("unknown field %q", rest[0])
	}
	return f, nil
}
