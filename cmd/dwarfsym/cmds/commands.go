package cmds

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dwarfsym/dwarfsym/cmd/dwarfsym/cmds/helphelpers"
	"github.com/dwarfsym/dwarfsym/pkg/config"
	"github.com/dwarfsym/dwarfsym/pkg/dwarf/reader"
	"github.com/dwarfsym/dwarfsym/pkg/logflags"
	"github.com/dwarfsym/dwarfsym/pkg/symbols"
	"github.com/dwarfsym/dwarfsym/pkg/terminal"
	"github.com/dwarfsym/dwarfsym/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string
	// searchPaths are directories searched for source files, after the
	// ones in the configuration file.
	searchPaths []string

	// stmtLine selects the line table for function entry addresses.
	stmtLine bool
	// usedLines restricts listings to the lines of the line table.
	usedLines bool

	// rootCommand is the root of the command tree.
	rootCommand *cobra.Command

	conf *config.Config
)

const dwarfsymCommandLongDesc = `dwarfsym reads the DWARF debug information of an executable and answers
source level questions about it.

It maps addresses to functions and source lines, lists compile units,
functions and global variables, describes the types of variables and shows
the source code the executable was built from.

Every command takes the path of the executable as its first argument, the
repl command starts an interactive shell over it.`

// New returns an initialized command tree.
func New(docCall bool) *cobra.Command {
	// Config setup and load.
	conf = config.LoadConfig()

	// Main dwarfsym root command.
	rootCommand = &cobra.Command{
		Use:   "dwarfsym",
		Short: "dwarfsym is a DWARF symbol browser.",
		Long:  dwarfsymCommandLongDesc,
	}

	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", `Comma separated list of components that should produce debug output (see 'dwarfsym help log')`)
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor (see 'dwarfsym help log').")
	rootCommand.PersistentFlags().StringArrayVarP(&searchPaths, "search-path", "s", nil, "Directory searched for source files, can be repeated.")

	rootCommand.AddCommand(&cobra.Command{
		Use:   "units <executable> [prefix]",
		Short: "Lists the compile units of an executable.",
		Args:  cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(execute(args[0], "units", args[1:]...))
		},
	})

	rootCommand.AddCommand(&cobra.Command{
		Use:   "funcs <executable> [prefix]",
		Short: "Lists the functions of an executable.",
		Args:  cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(execute(args[0], "funcs", args[1:]...))
		},
	})

	rootCommand.AddCommand(&cobra.Command{
		Use:   "globals <executable> [prefix]",
		Short: "Lists the global variables of an executable.",
		Args:  cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(execute(args[0], "globals", args[1:]...))
		},
	})

	rootCommand.AddCommand(&cobra.Command{
		Use:   "whatis <executable> <variable>",
		Short: "Describes the type of a global variable.",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(execute(args[0], "whatis", args[1]))
		},
	})

	lineCommand := &cobra.Command{
		Use:   "line <executable> <address>",
		Short: "Shows the source line of an address.",
		Long: `Shows the source file, line and function of an address.

The entry address of a function maps to its declaration line unless --stmt
is given.`,
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			if stmtLine {
				os.Exit(execute(args[0], "line", "-stmt", args[1]))
			}
			os.Exit(execute(args[0], "line", args[1]))
		},
	}
	lineCommand.Flags().BoolVar(&stmtLine, "stmt", false, "Use the line table for function entry addresses.")
	rootCommand.AddCommand(lineCommand)

	listCommand := &cobra.Command{
		Use:   "list <executable> <unit>",
		Short: "Shows the source code of a compile unit.",
		Long: `Shows the source code of a compile unit.

Compile units are numbered from 0, in the order listed by the units command.`,
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			if usedLines {
				os.Exit(execute(args[0], "list", args[1], "-used"))
			}
			os.Exit(execute(args[0], "list", args[1]))
		},
	}
	listCommand.Flags().BoolVar(&usedLines, "used", false, "Only show the lines referenced by the line table.")
	rootCommand.AddCommand(listCommand)

	rootCommand.AddCommand(&cobra.Command{
		Use:   "repl <executable>",
		Short: "Starts an interactive query shell.",
		Args:  cobra.ExactArgs(1),
		Run:   replCmd,
	})

	// 'version' subcommand.
	rootCommand.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dwarfsym\n%s\n", version.DwarfsymVersion)
			if log {
				fmt.Fprintln(cmd.OutOrStdout(), version.BuildInfo())
			}
		},
	})

	rootCommand.AddCommand(&cobra.Command{
		Use:    "docs",
		Short:  "Prints the documentation of the repl commands in markdown.",
		Hidden: !docCall,
		Run: func(cmd *cobra.Command, args []string) {
			terminal.QueryCommands().WriteMarkdown(cmd.OutOrStdout())
		},
	})

	rootCommand.AddCommand(&cobra.Command{
		Use:   "log",
		Short: "Help about logging flags.",
		Long: `Logging can be enabled by specifying the --log flag and using the
--log-output flag to select which components should produce logs.

The argument of --log-output must be a comma separated list of component
names selected from this list:


	loader		Log the loading of compile units
	source		Log source file resolution and loading
	types		Log type resolution
	terminal	Log repl commands

Additionally --log-dest can be used to specify where the logs should be
written.
If the argument is a number it will be interpreted as a file descriptor,
otherwise as a file path.
`,
	})

	defaultHelp := rootCommand.HelpFunc()
	rootCommand.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helphelpers.Prepare(cmd)
		defaultHelp(cmd, args)
	})

	rootCommand.DisableAutoGenTag = true

	return rootCommand
}

// loadModel reads the debug information of the executable at path.
func loadModel(path string) (*symbols.Model, error) {
	s, modTime, err := reader.Open(path)
	if err != nil {
		return nil, err
	}
	m := symbols.New()
	m.SetSearchPaths(append(append([]string(nil), conf.SearchPaths...), searchPaths...))
	m.SetSubstitutePathRules(conf.SubstitutePath)
	m.SetSourceCacheSize(conf.CacheSize())
	if err := m.Load(s, modTime); err != nil {
		s.Close()
		return nil, err
	}
	if err := m.LoadErrors(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	return m, nil
}

// execute runs the repl command cmdname with args on the executable at
// path and returns the exit status.
func execute(path, cmdname string, args ...string) int {
	return executeTo(os.Stdout, path, cmdname, args...)
}

func executeTo(w io.Writer, path, cmdname string, args ...string) int {
	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer logflags.Close()

	m, err := loadModel(path)
	if err != nil {
		if errors.Is(err, reader.ErrUnsupportedFormat) || errors.Is(err, reader.ErrNoDebugInfo) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
	defer m.Close()

	cmdstr := strings.Join(append([]string{cmdname}, args...), " ")
	if err := terminal.NewBatch(m, conf, w).Call(cmdstr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func replCmd(cmd *cobra.Command, args []string) {
	os.Exit(func() int {
		if err := logflags.Setup(log, logOutput, logDest); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		defer logflags.Close()

		m, err := loadModel(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer m.Close()

		status, err := terminal.New(m, conf).Run()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		return status
	}())
}
