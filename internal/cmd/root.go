// Package cmd implements the jscan CLI: cobra commands wrapping the
// scan driver (internal/scan) and query engine (internal/query). Both of
// those are library entry points; this package is the one place a CLI
// surface exists.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use:   "jscan",
	Short: "Scan a Java classpath and query its type hierarchy without a JVM",
	Long: `jscan parses compiled classfiles directly off a classpath (directories,
jar/zip archives, or in-memory buffers) and builds a queryable model of the
type hierarchy: subclasses, interface implementors, annotation bearers, and
resource-path matches. It never invokes a class loader, so static
initializers never run.`,
}

// outputFormat is the global --format flag ("yaml" or "json"), shared by
// every query subcommand.
var outputFormat string

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "yaml", "output format: yaml or json")
	// Accept the config file's snake_case key names as flag spellings too.
	rootCmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

// Execute runs the root command; cmd/jscan/main.go's only job is to call
// this and set the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "jscan:", err)
		return 1
	}
	return 0
}
