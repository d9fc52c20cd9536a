package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/cuemby/clusterpool/pkg/engine"
	"github.com/cuemby/clusterpool/pkg/store"
	"github.com/cuemby/clusterpool/pkg/types"
	"github.com/spf13/cobra"
)

func newApplyCmd() *cobra.Command {
	var userID, consensusPlugin, consensusMode string
	var size int
	var allowMultiple bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Claim an idle cluster for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closeFn, err := openEngine()
			if err != nil {
				return err
			}
			defer closeFn()

			cond := store.Predicate{}
			if consensusPlugin != "" {
				cond.ConsensusPlugin = consensusPlugin
			}
			if consensusMode != "" {
				cond.ConsensusMode = consensusMode
			}
			if size != 0 {
				cond.Size = size
				cond.SizeSet = true
			}

			rec, daemonURL, err := eng.Apply(context.Background(), userID, cond, allowMultiple)
			if err != nil {
				return err
			}
			proj := engine.Project(rec)
			proj.DaemonURL = daemonURL
			return printJSON(proj)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "lease holder (required)")
	cmd.Flags().StringVar(&consensusPlugin, "consensus-plugin", "", "require this consensus plugin")
	cmd.Flags().StringVar(&consensusMode, "consensus-mode", "", "require this consensus mode")
	cmd.Flags().IntVar(&size, "size", 0, "require this cluster size")
	cmd.Flags().BoolVar(&allowMultiple, "allow-multiple", false, "claim a new cluster even if the user already holds one")
	cmd.MarkFlagRequired("user")

	return cmd
}

func printProjection(c *types.Cluster) error {
	return printJSON(engine.Project(c))
}

func printProjections(cs []*types.Cluster) error {
	return printJSON(engine.ProjectAll(cs))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
