// Command poolctl is the operator CLI for the cluster pool control plane.
package main

import (
	"fmt"
	"os"

	"github.com/cuemby/clusterpool/pkg/config"
	"github.com/cuemby/clusterpool/pkg/log"
	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	logLevel string
	jsonLog  bool
	cfg      config.Config
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "poolctl",
		Short: "Operate the cluster pool control plane",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "/etc/clusterpool/config.yaml", "path to config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "emit logs as JSON")

	cobra.OnInitialize(func() {
		log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: jsonLog})

		loaded, err := config.Load(cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	})

	root.AddCommand(
		newCreateCmd(),
		newDeleteCmd(),
		newApplyCmd(),
		newReleaseCmd(),
		newStartCmd(),
		newStopCmd(),
		newRestartCmd(),
		newListCmd(),
		newGetCmd(),
		newServeCmd(),
	)
	return root
}
