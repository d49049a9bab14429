// Command reportctl runs report configurations from the command line,
// against a fixtures file or a PostgreSQL database.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("REPORTCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "reportctl",
		Short: "Ad-hoc report runner",
		Long: `reportctl validates and executes report configurations.
- entities: list reportable entities, or the fields of one entity.
- run: execute a YAML or JSON configuration and print or export the result.
Records come from a fixtures file (--fixtures) or PostgreSQL (--dsn).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("timezone", "UTC", "timezone for date buckets and presets")
	root.PersistentFlags().String("log-level", "error", "log level (debug, info, warn, error)")
	_ = v.BindPFlag("timezone", root.PersistentFlags().Lookup("timezone"))
	_ = v.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(entitiesCmd())
	root.AddCommand(runCmd(v))
	return root
}
