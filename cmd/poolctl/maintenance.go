package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start CLUSTER_ID",
		Short: "Start a stopped cluster's composition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closeFn, err := openEngine()
			if err != nil {
				return err
			}
			defer closeFn()
			return eng.Start(context.Background(), args[0])
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop CLUSTER_ID",
		Short: "Stop an idle cluster's composition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closeFn, err := openEngine()
			if err != nil {
				return err
			}
			defer closeFn()
			return eng.Stop(context.Background(), args[0])
		},
	}
}

func newRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart CLUSTER_ID",
		Short: "Stop then start an idle cluster's composition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closeFn, err := openEngine()
			if err != nil {
				return err
			}
			defer closeFn()
			return eng.Restart(context.Background(), args[0])
		},
	}
}
