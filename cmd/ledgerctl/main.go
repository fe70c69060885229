// Command ledgerctl creates and lists ledger expenses over the HTTP API,
// retrying transient failures.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"ledger/internal/client"
)

const (
	keyServer  = "server"
	keyRetries = "retries"
	keyTimeout = "timeout"
	keyVerbose = "verbose"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Create and list ledger expenses",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(v, cmd.Flags())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "Config file (YAML)")
	flags.String(keyServer, "http://localhost:3000", "Ledger API base URL")
	flags.Int(keyRetries, client.DefaultMaxRetries, "Retries on network errors and 5xx answers")
	flags.Duration(keyTimeout, client.DefaultTimeout, "Per-request timeout")
	flags.BoolP(keyVerbose, "v", false, "Debug logging")

	root.AddCommand(newCreateCmd(v), newListCmd(v))
	return root
}

// loadConfig layers flags over LEDGER_* environment variables over the
// config file.
func loadConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	v.SetEnvPrefix("ledger")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}
	return nil
}

func newLogger(v *viper.Viper) *log.Logger {
	level := log.InfoLevel
	if v.GetBool(keyVerbose) {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "ledgerctl",
		Level:           level,
	})
}

func newClient(v *viper.Viper, logger *log.Logger) (*client.Client, error) {
	retries := v.GetInt(keyRetries)
	if retries == 0 {
		retries = -1
	}
	return client.New(client.Config{
		BaseURL:    v.GetString(keyServer),
		MaxRetries: retries,
		Timeout:    v.GetDuration(keyTimeout),
		OnRetry: func(n int, delay time.Duration, err error) {
			logger.Warn("retrying request", "attempt", n, "delay", delay, "error", err)
		},
	})
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
