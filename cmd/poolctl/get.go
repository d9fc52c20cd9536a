package main

import (
	"github.com/cuemby/clusterpool/pkg/store"
	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	var released bool

	cmd := &cobra.Command{
		Use:   "get CLUSTER_ID",
		Short: "Get a single cluster's canonical projection",
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
			rec, err := eng.Get(args[0], col)
			if err != nil {
				return err
			}
			return printProjection(rec)
		},
	}

	cmd.Flags().BoolVar(&released, "released", false, "look up the cluster in the released collection")

	return cmd
}
