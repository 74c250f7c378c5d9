package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/psantana5/execreaper/internal/config"
)

var (
	cfgFile      string
	outputFormat string

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "execreaper",
	Short: "Terminate dangling workflow executions",
	Long: `execreaper compares every execution on the workflow backend with the
scheduler's active-state registry and terminates executions the scheduler no
longer owns: runs of inactive instances, superseded retries and executions
that lost their ownership annotations.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./execreaper.yaml or $HOME/.execreaper/execreaper.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
	rootCmd.PersistentFlags().String("backend-url", "", "execution backend admin API URL")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
}

// loadConfig resolves flags, EXECREAPER_* environment variables and the config file
func loadConfig(cmd *cobra.Command, args []string) error {
	switch strings.ToLower(outputFormat) {
	case "table", "json":
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}

	loader := config.NewLoader(nil).WithConfigFile(cfgFile)
	v := loader.Viper()
	flags := cmd.Root().PersistentFlags()
	if err := v.BindPFlag("backend.url", flags.Lookup("backend-url")); err != nil {
		return err
	}
	if err := v.BindPFlag("log.level", flags.Lookup("log-level")); err != nil {
		return err
	}

	loaded, err := loader.Load()
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return strings.EqualFold(outputFormat, "json")
}
