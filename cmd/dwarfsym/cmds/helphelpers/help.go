package helphelpers

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Prepare prepares cmd flag set for the invocation of its usage function by
// hiding flags that we want cobra to parse but we don't want to show to the
// user.
// The persistent flags of the root command are accepted by every
// subcommand, even those that ignore them, so that
//
//	dwarfsym --search-path /src version
//
// still parses.
//
// Prepare is a destructive command, cmd can not be reused after it has been
// called.
func Prepare(cmd *cobra.Command) {
	switch cmd.Name() {
	case "dwarfsym", "help", "version", "log", "docs":
		hideAllFlags(cmd)
	case "funcs", "globals":
		hideFlag(cmd, "search-path")
	case "line", "list", "repl", "units", "whatis":
		// All flags apply
	}
}

func hideAllFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
		flag.Hidden = true
	})
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		flag.Hidden = true
	})
	if cmd.Parent() != nil {
		cmd.Parent().PersistentFlags().VisitAll(func(flag *pflag.Flag) {
			flag.Hidden = true
		})
	}
}

func hideFlag(cmd *cobra.Command, name string) {
	if cmd == nil {
		return
	}
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		flag = cmd.PersistentFlags().Lookup(name)
	}
	if flag != nil {
		flag.Hidden = true
		return
	}
	hideFlag(cmd.Parent(), name)
}
