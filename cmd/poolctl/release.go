package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newReleaseCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "release [CLUSTER_ID]",
		Short: "Release a leased cluster back to the pool",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closeFn, err := openEngine()
			if err != nil {
				return err
			}
			defer closeFn()

			if len(args) == 1 {
				return eng.ReleaseByClusterID(context.Background(), args[0])
			}
			return eng.ReleaseByUserID(context.Background(), userID)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "release the cluster leased to this user instead of naming a cluster id")

	return cmd
}
