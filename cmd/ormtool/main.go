// Command ormtool validates mapping documents, prints the DDL they describe
// and runs SQL scripts, printing every statement output.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	store "github.com/likearthian/ormstore"
)

var (
	configPath string
	verbose    bool

	cfg    *store.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "ormtool",
	Short:         "Mapping and statement tooling for ormstore",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = store.LoadConfig(configPath)
		if err != nil {
			return err
		}

		if verbose {
			cfg.LogLevel = "debug"
		}

		logger, err = cfg.Logger(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()})
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "ormtool.yaml", "Config file (ORM_* env vars override it)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(ddlCmd)
	rootCmd.AddCommand(execCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
