package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hassio-addons/build-env/src/config"
	"github.com/hassio-addons/build-env/src/output"
)

var (
	cfgFile      string
	verbose      bool
	fileDefaults *config.FileDefaults
)

var rootCmd = &cobra.Command{
	Use:   "build-env",
	Short: "Multi-architecture container image builder",
	Long:  "build-env — build, tag, and publish container images for every supported architecture in one run.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it.
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		fileDefaults, err = config.LoadDefaults(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .build-env.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// Execute runs the root command. Fatal errors carry a distinguishable
// marker on the error stream before the process exits.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		output.Fatal(os.Stderr, output.UseColor(), "%s", err)
		return err
	}
	return nil
}
