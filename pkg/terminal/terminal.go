package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-delve/liner"
	"github.com/mattn/go-isatty"

	"github.com/dwarfsym/dwarfsym/pkg/config"
	"github.com/dwarfsym/dwarfsym/pkg/logflags"
	"github.com/dwarfsym/dwarfsym/pkg/symbols"
)

const (
	historyFile                 string = ".dwarfsym_history"
	terminalHighlightEscapeCode string = "\033[%2dm"
	terminalResetEscapeCode     string = "\033[0m"
)

const (
	ansiBlack   = 30
	ansiBlue    = 34
	ansiWhite   = 37
	ansiBrBlack = 90
	ansiBrWhite = 97
)

// Term is the interactive query shell over a loaded symbol model.
type Term struct {
	model  *symbols.Model
	conf   *config.Config
	prompt string
	line   *liner.State
	cmds   *Commands
	dumb   bool
	stdout io.Writer
}

// New returns a new Term querying model.
func New(model *symbols.Model, conf *config.Config) *Term {
	t := newTerm(model, conf, nil)
	t.line = liner.NewLiner()
	return t
}

// NewBatch returns a Term that executes commands passed to Call, without
// prompting, and writes their output to w without colors.
func NewBatch(model *symbols.Model, conf *config.Config, w io.Writer) *Term {
	return newTerm(model, conf, w)
}

// Call executes a single command.
func (t *Term) Call(cmdstr string) error {
	return t.cmds.Call(cmdstr, t)
}

func newTerm(model *symbols.Model, conf *config.Config, w io.Writer) *Term {
	cmds := QueryCommands()
	if conf == nil {
		conf = &config.Config{}
	}
	if conf.Aliases != nil {
		cmds.Merge(conf.Aliases)
	}

	dumb := w != nil || strings.ToLower(os.Getenv("TERM")) == "dumb" || !isatty.IsTerminal(os.Stdout.Fd())
	if w == nil {
		if dumb {
			w = os.Stdout
		} else {
			w = getColorableWriter()
		}
	}

	if (conf.SourceListLineColor > ansiWhite &&
		conf.SourceListLineColor < ansiBrBlack) ||
		conf.SourceListLineColor < ansiBlack ||
		conf.SourceListLineColor > ansiBrWhite {
		conf.SourceListLineColor = ansiBlue
	}

	return &Term{
		model:  model,
		conf:   conf,
		prompt: "(dwarfsym) ",
		cmds:   cmds,
		dumb:   dumb,
		stdout: w,
	}
}

// Close returns the terminal to its previous mode.
func (t *Term) Close() {
	if t.line != nil {
		t.line.Close()
	}
}

// Run reads and executes commands until the user exits.
func (t *Term) Run() (int, error) {
	defer t.Close()
	logger := logflags.TerminalLogger()

	t.line.SetCompleter(t.complete)

	fullHistoryFile, err := config.GetConfigFilePath(historyFile)
	if err != nil {
		fmt.Printf("Unable to load history file: %v.", err)
	}
	if f, err := os.Open(fullHistoryFile); err == nil {
		t.line.ReadHistory(f)
		f.Close()
	}
	fmt.Fprintln(t.stdout, "Type 'help' for list of commands.")

	for {
		cmdstr, err := t.promptForInput()
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(t.stdout, "exit")
				return t.handleExit(fullHistoryFile)
			}
			return 1, fmt.Errorf("prompt for input failed: %w", err)
		}

		if err := t.cmds.Call(cmdstr, t); err != nil {
			if _, ok := err.(ExitRequestError); ok {
				return t.handleExit(fullHistoryFile)
			}
			logger.Debugf("command %q: %v", cmdstr, err)
			fmt.Fprintf(os.Stderr, "Command failed: %s\n", err)
		}
	}
}

// complete returns the completions of line: command names for the first
// word, function or global variable names for the argument of the commands
// that take one.
func (t *Term) complete(line string) (c []string) {
	if i := strings.Index(line, " "); i >= 0 {
		cmdname, arg := line[:i], strings.TrimLeft(line[i+1:], " ")
		var names []string
		switch t.cmds.canonical(cmdname) {
		case "addr", "funcs":
			names = t.model.CompleteFunction(arg)
		case "whatis", "globals":
			names = t.model.CompleteGlobal(arg)
		}
		for _, name := range names {
			c = append(c, cmdname+" "+name)
		}
		return c
	}
	for _, cmd := range t.cmds.cmds {
		for _, alias := range cmd.aliases {
			if strings.HasPrefix(alias, strings.ToLower(line)) {
				c = append(c, alias)
			}
		}
	}
	return c
}

// Println prints a line to the terminal, prefix is highlighted.
func (t *Term) Println(prefix, str string) {
	if !t.dumb {
		terminalColorEscapeCode := fmt.Sprintf(terminalHighlightEscapeCode, t.conf.SourceListLineColor)
		prefix = fmt.Sprintf("%s%s%s", terminalColorEscapeCode, prefix, terminalResetEscapeCode)
	}
	fmt.Fprintf(t.stdout, "%s%s\n", prefix, str)
}

func (t *Term) promptForInput() (string, error) {
	l, err := t.line.Prompt(t.prompt)
	if err != nil {
		return "", err
	}

	l = strings.TrimSuffix(l, "\n")
	if l != "" {
		t.line.AppendHistory(l)
	}

	return l, nil
}

func (t *Term) handleExit(fullHistoryFile string) (int, error) {
	if fullHistoryFile != "" {
		if f, err := os.Create(fullHistoryFile); err == nil {
			if _, err := t.line.WriteHistory(f); err != nil {
				fmt.Println("readline history error:", err)
			}
			f.Close()
		}
	}
	return 0, nil
}
