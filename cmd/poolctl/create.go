package main

import (
	"context"
	"fmt"

	"github.com/cuemby/clusterpool/pkg/engine"
	"github.com/cuemby/clusterpool/pkg/types"
	"github.com/spf13/cobra"
)

func newCreateCmd() *cobra.Command {
	var hostID, consensusPlugin, consensusMode, userID string
	var size, apiPort int

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Provision a new cluster on a host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closeFn, err := openEngine()
			if err != nil {
				return err
			}
			defer closeFn()

			if !cfg.ValidPlugin(consensusPlugin) {
				return fmt.Errorf("unknown consensus plugin: %s", consensusPlugin)
			}
			if !cfg.ValidMode(consensusMode) {
				return fmt.Errorf("unknown consensus mode: %s", consensusMode)
			}
			if !cfg.ValidSize(size) {
				return fmt.Errorf("unsupported cluster size: %d", size)
			}

			var opts []engine.CreateOption
			if apiPort != 0 {
				opts = append(opts, engine.WithAPIPort(apiPort))
			}
			if userID != "" {
				opts = append(opts, engine.WithUserID(userID))
			}

			id, err := eng.Create(context.Background(), args[0], hostID, types.ClusterShape{
				ConsensusPlugin: consensusPlugin,
				ConsensusMode:   consensusMode,
				Size:            size,
			}, opts...)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}

	cmd.Flags().StringVar(&hostID, "host", "", "host to create the cluster on (required)")
	cmd.Flags().StringVar(&consensusPlugin, "consensus-plugin", "solo", "consensus plugin")
	cmd.Flags().StringVar(&consensusMode, "consensus-mode", "batch", "consensus mode")
	cmd.Flags().IntVar(&size, "size", 1, "cluster size")
	cmd.Flags().IntVar(&apiPort, "api-port", 0, "pin the API port instead of allocating one")
	cmd.Flags().StringVar(&userID, "user", "", "pre-assign the cluster to this user")
	cmd.MarkFlagRequired("host")

	return cmd
}
