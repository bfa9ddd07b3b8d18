// Package terminal implements the interactive query shell: it reads
// commands from the user and answers them from a loaded symbol model.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cosiner/argv"

	"github.com/dwarfsym/dwarfsym/pkg/dwarf/op"
	"github.com/dwarfsym/dwarfsym/pkg/symbols"
)

type cmdfunc func(t *Term, args string) error

type command struct {
	aliases        []string
	builtinAliases []string
	group          commandGroup
	helpMsg        string
	cmdFn          cmdfunc
}

// Returns true if the command string matches one of the aliases for this command
func (c command) match(cmdstr string) bool {
	for _, v := range c.aliases {
		if v == cmdstr {
			return true
		}
	}
	return false
}

// Commands represents the commands of the query shell.
type Commands struct {
	cmds []command
}

// ExitRequestError is returned by the exit command to stop the shell.
type ExitRequestError struct{}

func (ere ExitRequestError) Error() string {
	return ""
}

// QueryCommands returns a Commands struct with default commands defined.
func QueryCommands() *Commands {
	c := &Commands{}

	c.cmds = []command{
		{aliases: []string{"help", "h"}, cmdFn: c.help, helpMsg: `Prints the help message.

	help [command]

Type "help" followed by the name of a command for more information about it.`},
		{aliases: []string{"units", "sources"}, group: sourceCmds, cmdFn: units, helpMsg: `Lists the compile units.

	units [<prefix>]

For each compile unit prints its index, address range, source status and
source file. If a prefix is given only units whose file name starts with it
are listed.`},
		{aliases: []string{"list", "ls", "l"}, group: sourceCmds, cmdFn: list, helpMsg: `Shows the source code of a compile unit.

	list <unit> [-used]

With -used only the lines referenced by the line table are shown.`},
		{aliases: []string{"line"}, group: sourceCmds, cmdFn: line, helpMsg: `Shows the source line of an address.

	line [-stmt] <address>

The entry address of a function maps to its declaration line, use -stmt to
look it up in the line table instead.`},
		{aliases: []string{"funcs"}, group: symbolCmds, cmdFn: funcs, helpMsg: `Prints the names and entry addresses of functions.

	funcs [<prefix>]`},
		{aliases: []string{"addr"}, group: symbolCmds, cmdFn: addr, helpMsg: `Prints the entry address of a function.

	addr <function>`},
		{aliases: []string{"globals", "vars"}, group: symbolCmds, cmdFn: globals, helpMsg: `Prints global variables.

	globals [<prefix>]`},
		{aliases: []string{"locals", "args"}, group: symbolCmds, cmdFn: locals, helpMsg: `Prints the parameters and local variables of a function.

	locals <address>

The function is the one containing address.`},
		{aliases: []string{"whatis"}, group: symbolCmds, cmdFn: whatis, helpMsg: `Prints the type of a global variable.

	whatis <name>

Members of structure and union variables are listed with their offsets.`},
		{aliases: []string{"config"}, cmdFn: configureCmd, helpMsg: `Changes configuration parameters.

	config -list

Show all configuration parameters.

	config -save

Saves the configuration file to disk, overwriting the current configuration file.

	config <parameter> <value>

Changes the value of a configuration parameter.

	config alias <command> <alias>
	config alias <alias>

Defines <alias> as an alias to <command> or removes an alias.`},
		{aliases: []string{"exit", "quit", "q"}, cmdFn: exitCommand, helpMsg: `Exit the shell.`},
	}

	return c
}

// Find will look up the command function for the given command input.
// If it cannot find the command it will default to noCmdAvailable().
func (c *Commands) Find(cmdstr string) cmdfunc {
	if cmdstr == "" {
		return nullCommand
	}

	for _, v := range c.cmds {
		if v.match(cmdstr) {
			return v.cmdFn
		}
	}

	return noCmdAvailable
}

// canonical returns the first alias of the command matching cmdstr.
func (c *Commands) canonical(cmdstr string) string {
	for _, v := range c.cmds {
		if v.match(cmdstr) {
			return v.aliases[0]
		}
	}
	return ""
}

// Call takes a command to execute.
func (c *Commands) Call(cmdstr string, t *Term) error {
	vals := strings.SplitN(strings.TrimSpace(cmdstr), " ", 2)
	cmdname := vals[0]
	var args string
	if len(vals) > 1 {
		args = strings.TrimSpace(vals[1])
	}
	return c.Find(cmdname)(t, args)
}

// Merge takes aliases defined in the config struct and merges them with the default aliases.
func (c *Commands) Merge(allAliases map[string][]string) {
	for i := range c.cmds {
		if c.cmds[i].builtinAliases != nil {
			c.cmds[i].aliases = append(c.cmds[i].aliases[:0], c.cmds[i].builtinAliases...)
		}
	}
	for i := range c.cmds {
		if aliases, ok := allAliases[c.cmds[i].aliases[0]]; ok {
			if c.cmds[i].builtinAliases == nil {
				c.cmds[i].builtinAliases = make([]string, len(c.cmds[i].aliases))
				copy(c.cmds[i].builtinAliases, c.cmds[i].aliases)
			}
			c.cmds[i].aliases = append(c.cmds[i].aliases, aliases...)
		}
	}
}

var errNoCmd = errors.New("command not available")

func noCmdAvailable(t *Term, args string) error {
	return errNoCmd
}

func nullCommand(t *Term, args string) error {
	return nil
}

func exitCommand(t *Term, args string) error {
	return ExitRequestError{}
}

func (c *Commands) help(t *Term, args string) error {
	if args != "" {
		for _, cmd := range c.cmds {
			for _, alias := range cmd.aliases {
				if alias == args {
					fmt.Fprintln(t.stdout, cmd.helpMsg)
					return nil
				}
			}
		}
		return errNoCmd
	}

	fmt.Fprintln(t.stdout, "The following commands are available:")

	for _, cgd := range commandGroupDescriptions {
		fmt.Fprintf(t.stdout, "\n%s:\n", cgd.description)
		w := new(tabwriter.Writer)
		w.Init(t.stdout, 0, 8, 0, '-', 0)
		for _, cmd := range c.cmds {
			if cmd.group != cgd.group {
				continue
			}
			h := cmd.helpMsg
			if idx := strings.Index(h, "\n"); idx >= 0 {
				h = h[:idx]
			}
			if len(cmd.aliases) > 1 {
				fmt.Fprintf(w, "    %s (alias: %s) \t %s\n", cmd.aliases[0], strings.Join(cmd.aliases[1:], " | "), h)
			} else {
				fmt.Fprintf(w, "    %s \t %s\n", cmd.aliases[0], h)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(t.stdout)
	fmt.Fprintln(t.stdout, "Type help followed by a command for full documentation.")
	return nil
}

// splitArgs splits args the way a shell would, without pipes or command
// substitution.
func splitArgs(args string) ([]string, error) {
	if args == "" {
		return nil, nil
	}
	v, err := argv.Argv(args,
		func(s string) (string, error) {
			return "", fmt.Errorf("backtick not supported in '%s'", s)
		},
		nil)
	if err != nil {
		return nil, err
	}
	if len(v) != 1 {
		return nil, fmt.Errorf("illegal command line '%s'", args)
	}
	return v[0], nil
}

func parseAddress(s string) (uint64, error) {
	addr, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return addr, nil
}

func parseUnit(t *Term, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n >= t.model.NumSources() {
		return 0, fmt.Errorf("invalid compile unit %q", s)
	}
	return n, nil
}

func units(t *Term, args string) error {
	w := tabwriter.NewWriter(t.stdout, 0, 8, 1, ' ', 0)
	for i := 0; i < t.model.NumSources(); i++ {
		cu, _ := t.model.Unit(i)
		if !strings.HasPrefix(cu.SourceFilename, args) {
			continue
		}
		path := cu.FullFilename
		if path == "" {
			path = cu.SourceFilename
		}
		fmt.Fprintf(w, "%d\t%#x-%#x\t%s\t%s\n", i, cu.LowPC, cu.HighPC, cu.Status, path)
	}
	return w.Flush()
}

func list(t *Term, args string) error {
	v, err := splitArgs(args)
	if err != nil {
		return err
	}
	used := false
	if len(v) == 2 && v[1] == "-used" {
		used = true
		v = v[:1]
	}
	if len(v) != 1 {
		return errors.New("wrong number of arguments to list")
	}
	i, err := parseUnit(t, v[0])
	if err != nil {
		return err
	}
	cu, _ := t.model.Unit(i)
	if len(cu.Source) == 0 {
		return fmt.Errorf("source of %s not available: %s", cu.SourceFilename, cu.Status)
	}

	lines := t.model.SourceLines(i, used)
	if used {
		for j, n := range t.model.UsedLineNumbers(i) {
			t.Println(fmt.Sprintf("%5d:\t", n+1), lines[j])
		}
		return nil
	}
	for j := range lines {
		t.Println(fmt.Sprintf("%5d:\t", j+1), lines[j])
	}
	return nil
}

func line(t *Term, args string) error {
	v, err := splitArgs(args)
	if err != nil {
		return err
	}
	stmt := false
	if len(v) == 2 && v[0] == "-stmt" {
		stmt = true
		v = v[1:]
	}
	if len(v) != 1 {
		return errors.New("wrong number of arguments to line")
	}
	pc, err := parseAddress(v[0])
	if err != nil {
		return err
	}

	var n int
	if stmt {
		n = t.model.StatementLineFromAddr(pc)
	} else {
		n = t.model.LineFromAddr(pc)
	}
	if n == 0 {
		return fmt.Errorf("no line information for %#x", pc)
	}
	file, _ := t.model.FullSourceFilenameFromAddr(pc)
	fmt.Fprintf(t.stdout, "%s:%d", file, n)
	if fn := t.model.FunctionName(pc); fn != "" {
		fmt.Fprintf(t.stdout, " (%s)", fn)
	}
	fmt.Fprintln(t.stdout)
	if text := t.model.LineSrcFromNumLineBaseAddr(pc, n); text != "" {
		t.Println(fmt.Sprintf("%5d:\t", n), text)
	}
	return nil
}

func funcs(t *Term, args string) error {
	w := tabwriter.NewWriter(t.stdout, 0, 8, 1, ' ', 0)
	for _, name := range t.model.CompleteFunction(args) {
		pc, _ := t.model.FunctionAddr(name)
		fmt.Fprintf(w, "%#x\t%s\n", pc, name)
	}
	return w.Flush()
}

func addr(t *Term, args string) error {
	if args == "" {
		return errors.New("wrong number of arguments to addr")
	}
	pc, ok := t.model.FunctionAddr(args)
	if !ok {
		return fmt.Errorf("function %q not found", args)
	}
	fmt.Fprintf(t.stdout, "%#x\n", pc)
	return nil
}

func globals(t *Term, args string) error {
	w := tabwriter.NewWriter(t.stdout, 0, 8, 1, ' ', 0)
	for i := 1; i <= t.model.NumVariables(0); i++ {
		v, _ := t.model.GlobalVariable(i)
		if !strings.HasPrefix(v.Name, args) {
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, formatLocation(v), typeName(v), v.Name)
	}
	return w.Flush()
}

func locals(t *Term, args string) error {
	if args == "" {
		return errors.New("wrong number of arguments to locals")
	}
	pc, err := parseAddress(args)
	if err != nil {
		return err
	}
	fn := t.model.FunctionName(pc)
	if fn == "" {
		return fmt.Errorf("no function at %#x", pc)
	}
	n := t.model.NumVariables(pc)
	if n == 0 {
		fmt.Fprintf(t.stdout, "(no locals in %s)\n", fn)
		return nil
	}
	w := tabwriter.NewWriter(t.stdout, 0, 8, 1, ' ', 0)
	for i := 1; i <= n; i++ {
		v, _ := t.model.Variable(pc, i)
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, formatLocation(v), typeName(v), v.Name)
	}
	return w.Flush()
}

func whatis(t *Term, args string) error {
	if args == "" {
		return errors.New("wrong number of arguments to whatis")
	}
	for i := 1; i <= t.model.NumVariables(0); i++ {
		v, _ := t.model.GlobalVariable(i)
		if v.Name == args {
			printVariable(t.stdout, v, "")
			if len(v.Location) > 0 {
				fmt.Fprintf(t.stdout, "location: %s\n", op.PrettyPrint(v.Location))
			}
			return nil
		}
	}
	return fmt.Errorf("global variable %q not found", args)
}

func typeName(v symbols.Variable) string {
	if !v.Resolved() {
		return "<unresolved>"
	}
	return strings.TrimSpace(v.TypeName)
}

func formatLocation(v symbols.Variable) string {
	switch v.Op {
	case 0:
		return "-"
	case op.DW_OP_addr:
		return fmt.Sprintf("%#x", v.Addr)
	}
	return fmt.Sprintf("%s%+d", v.Op, v.Offset)
}

func printVariable(w io.Writer, v symbols.Variable, indent string) {
	fmt.Fprintf(w, "%s%s %s", indent, typeName(v), v.Name)
	if v.Resolved() {
		fmt.Fprintf(w, " [%v size=%d encoding=%#x]", v.TypeTag, v.TypeByteSize, v.TypeEncoding)
	}
	if indent == "" {
		fmt.Fprintf(w, " at %s\n", formatLocation(v))
	} else {
		fmt.Fprintf(w, " +%d\n", v.Offset)
	}
	for _, m := range v.Members {
		printVariable(w, m, indent+"\t")
	}
}
