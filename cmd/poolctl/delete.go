package main

import (
	"context"

	"github.com/cuemby/clusterpool/pkg/store"
	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	var released, archive, forced bool

	cmd := &cobra.Command{
		Use:   "delete CLUSTER_ID",
		Short: "Delete a cluster record and tear down its containers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closeFn, err := openEngine()
			if err != nil {
				return err
			}
			defer closeFn()

			col := store.Active
			if released {
				col = store.Released
			}
			return eng.Delete(context.Background(), args[0], col, archive, forced)
		},
	}

	cmd.Flags().BoolVar(&released, "released", false, "look up the cluster in the released collection")
	cmd.Flags().BoolVar(&archive, "archive", false, "archive the record into the released collection before deleting")
	cmd.Flags().BoolVar(&forced, "force", false, "delete even if the cluster is leased")

	return cmd
}
