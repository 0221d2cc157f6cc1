// Package repl implements the interactive calculator loop. Lines starting
// with a command name run that command; anything else is evaluated as an
// expression.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"

	"github.com/lemonberrylabs/unitcalc/pkg/store"
)

// Prompt is printed before each line when the REPL is interactive.
const Prompt = "> "

// Examples are shown by the help command.
var Examples = []string{
	"100 kg * 9.8 m/s^2 : N",
	"500 N / 12 mm^2 : kPa",
	"123.4 lb / (5 ft + 6 in)^2 : BMI",
}

// command is one REPL command. Commands receive the arguments after the
// command name.
type command struct {
	usage   string
	help    string
	minArgs int
	maxArgs int // -1 for unbounded
	run     func(r *REPL, args []string) error
}

var commands map[string]command

// Set up in init because help reads the table.
func init() {
	commands = map[string]command{
		"exit":      {"exit", "Exit the program", 0, 0, nil},
		"help":      {"help", "Print this text", 0, 0, (*REPL).help},
		"load":      {"load <file>", "Unload current definitions and load definitions from file", 1, 1, (*REPL).load},
		"merge":     {"merge <file>", "Load definitions from file over the current ones", 1, 1, (*REPL).merge},
		"save":      {"save <file>", "Save currently-loaded definitions to file", 1, 1, (*REPL).save},
		"units":     {"units", "List the defined units", 0, 0, (*REPL).units},
		"prefixes":  {"prefixes", "List the defined prefixes", 0, 0, (*REPL).prefixes},
		"def":       {"def <symbol>", "Show the definition of a unit or prefix", 1, 1, (*REPL).def},
		"add":       {"add <symbol> [scale] [unit...]", "Define a unit as scale times a unit expression", 1, -1, (*REPL).add},
		"addprefix": {"addprefix <symbol> <base> <exponent>", "Define a prefix as base^exponent", 3, 3, (*REPL).addPrefix},
		"del":       {"del <symbol>", "Delete a unit and every unit that depends on it", 1, 1, (*REPL).del},
		"delprefix": {"delprefix <symbol>", "Delete a prefix and every unit that uses it", 1, 1, (*REPL).delPrefix},
		"history":   {"history", "Show previously evaluated expressions", 0, 0, (*REPL).history},
	}
}

// REPL reads lines from an input and writes results to an output.
type REPL struct {
	session     *store.Session
	in          io.Reader
	out         io.Writer
	logger      *log.Logger
	styles      styles
	interactive bool
}

// Option configures a REPL.
type Option func(*REPL)

// WithLogger sets the logger used for command failures.
func WithLogger(l *log.Logger) Option {
	return func(r *REPL) { r.logger = l }
}

// WithInteractive prints the banner and a prompt before each line.
func WithInteractive(on bool) Option {
	return func(r *REPL) { r.interactive = on }
}

// New creates a REPL over s.
func New(s *store.Session, in io.Reader, out io.Writer, opts ...Option) *REPL {
	r := &REPL{
		session: s,
		in:      in,
		out:     out,
		logger:  log.Default(),
		styles:  newStyles(out),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes lines until exit, end of input, or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	if r.interactive {
		r.printf("Type '%s' for a list of commands\n", r.styles.cmd.Render("help"))
	}

	scanner := bufio.NewScanner(r.in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.interactive {
			r.printf("%s", Prompt)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if r.Execute(scanner.Text()) {
			return nil
		}
	}
}

// Execute runs one line and reports whether the REPL should exit.
func (r *REPL) Execute(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	cmd, ok := commands[fields[0]]
	if !ok {
		r.evaluate(line)
		return false
	}
	if fields[0] == "exit" {
		return true
	}

	args := fields[1:]
	if len(args) < cmd.minArgs || (cmd.maxArgs >= 0 && len(args) > cmd.maxArgs) {
		r.printf("Usage: %s\n", cmd.usage)
		return false
	}
	if err := cmd.run(r, args); err != nil {
		r.logger.Debug("command failed", "command", fields[0], "err", err)
		r.printError(err)
	}
	return false
}

func (r *REPL) evaluate(line string) {
	res, err := r.session.Evaluate(line)
	if res.Canonical != "" {
		r.printf("%s\n", r.styles.muted.Render(fmt.Sprintf("Interpreting input as: '%s'", res.Canonical)))
	}
	if err != nil {
		r.printError(err)
		return
	}
	r.printf("%s\n", r.styles.result.Render(res.Quantity.String()))
}

// --- Commands ---

func (r *REPL) help(_ []string) error {
	r.printf("%s\n", r.styles.title.Render("Available commands:"))
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		c := commands[name]
		r.printf("   %s: %s\n", r.styles.cmd.Render(c.usage), c.help)
	}
	r.printf("%s\n", r.styles.title.Render("Example input:"))
	for _, ex := range Examples {
		r.printf("   %s\n", ex)
	}
	return nil
}

func (r *REPL) load(args []string) error {
	if err := r.session.Load(args[0]); err != nil {
		return err
	}
	r.printf("Loaded %d units and %d prefixes from %s\n", len(r.session.Units()), len(r.session.Prefixes()), args[0])
	return nil
}

func (r *REPL) merge(args []string) error {
	if err := r.session.Merge(args[0]); err != nil {
		return err
	}
	r.printf("Merged %s: %d units and %d prefixes defined\n", args[0], len(r.session.Units()), len(r.session.Prefixes()))
	return nil
}

func (r *REPL) save(args []string) error {
	if err := r.session.Save(args[0]); err != nil {
		return err
	}
	r.printf("Saved definitions to %s\n", args[0])
	return nil
}

func (r *REPL) units(_ []string) error {
	syms := r.session.Units()
	if len(syms) == 0 {
		r.printf("%s\n", r.styles.muted.Render("No units defined"))
		return nil
	}
	rows := make([][]string, 0, len(syms))
	for _, sym := range syms {
		def, err := r.session.UnitDefinition(sym)
		if err != nil {
			return err
		}
		rows = append(rows, []string{sym, def})
	}
	r.printf("%s\n", r.table(rows, "Unit", "Definition"))
	return nil
}

func (r *REPL) prefixes(_ []string) error {
	syms := r.session.Prefixes()
	if len(syms) == 0 {
		r.printf("%s\n", r.styles.muted.Render("No prefixes defined"))
		return nil
	}
	rows := make([][]string, 0, len(syms))
	for _, sym := range syms {
		def, err := r.session.PrefixDefinition(sym)
		if err != nil {
			return err
		}
		rows = append(rows, []string{sym, def})
	}
	r.printf("%s\n", r.table(rows, "Prefix", "Definition"))
	return nil
}

func (r *REPL) def(args []string) error {
	def, err := r.session.UnitDefinition(args[0])
	if err != nil {
		var perr error
		if def, perr = r.session.PrefixDefinition(args[0]); perr != nil {
			return err
		}
	}
	r.printf("%s\n", def)
	return nil
}

func (r *REPL) add(args []string) error {
	sym, scale, rest := args[0], 1.0, args[1:]
	if len(rest) > 0 {
		if v, err := strconv.ParseFloat(rest[0], 64); err == nil {
			scale, rest = v, rest[1:]
		}
	}
	if err := r.session.AddUnit(sym, scale, strings.Join(rest, " ")); err != nil {
		return err
	}
	def, err := r.session.UnitDefinition(sym)
	if err != nil {
		return err
	}
	r.printf("Defined %s\n", def)
	return nil
}

func (r *REPL) addPrefix(args []string) error {
	base, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid base %q", args[1])
	}
	exponent, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid exponent %q", args[2])
	}
	if err := r.session.AddPrefix(args[0], base, exponent); err != nil {
		return err
	}
	def, err := r.session.PrefixDefinition(args[0])
	if err != nil {
		return err
	}
	r.printf("Defined %s\n", def)
	return nil
}

func (r *REPL) del(args []string) error {
	removed, err := r.session.DelUnit(args[0])
	if err != nil {
		return err
	}
	r.printf("Deleted %s\n", strings.Join(removed, ", "))
	return nil
}

func (r *REPL) delPrefix(args []string) error {
	removed, err := r.session.DelPrefix(args[0])
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		r.printf("Deleted prefix %s\n", args[0])
		return nil
	}
	r.printf("Deleted prefix %s and units %s\n", args[0], strings.Join(removed, ", "))
	return nil
}

func (r *REPL) history(_ []string) error {
	entries := r.session.History()
	if len(entries) == 0 {
		r.printf("%s\n", r.styles.muted.Render("No history"))
		return nil
	}
	for i, e := range entries {
		result := e.Result
		if e.Error != "" {
			result = r.styles.err.Render(e.Error)
		}
		r.printf("%3d  %s = %s\n", i+1, e.Input, result)
	}
	return nil
}

// --- Output ---

func (r *REPL) table(rows [][]string, headers ...string) string {
	cell := r.styles.renderer.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.styles.border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.styles.header
			}
			return cell
		}).
		Headers(headers...).
		Rows(rows...).
		Render()
}

func (r *REPL) printError(err error) {
	r.printf("%s\n", r.styles.err.Render(err.Error()))
}

func (r *REPL) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}
