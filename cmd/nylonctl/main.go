// Command nylonctl is the CLI/configuration bootstrap spec.md §1 names
// as out-of-scope-but-needed ("CLI/configuration bootstrap, file-format
// manifest parsing... backends"). It reads a TOML host config, builds a
// module subsystem over the native (plugin.Open-based) loader backend,
// and exposes three subcommands: discover-and-load a plugin directory,
// inspect a loaded module's metadata, and run a small demo command
// buffer against the task subsystem. Grounded on ja7ad-consumption's
// and saferwall-pe's cobra-rooted, single-binary CLI shape.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "nylonctl",
		Short: "Host CLI for the nylonring module runtime",
		Long: `nylonctl discovers and loads plugin modules from a directory of
module.json manifests, prints a loaded module's metadata, and runs a
demo command buffer on the task scheduler.`,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML host config file (defaults built in if omitted)")

	root.AddCommand(newLoadCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newRunTasksCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
