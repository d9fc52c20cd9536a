package main

import (
	"github.com/cuemby/clusterpool/pkg/store"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var released bool
	var userID, hostID string
	var leasedOnly, idleOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clusters matching a filter",
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

			pred := store.Predicate{HostID: hostID}
			if userID != "" {
				pred.UserID = userID
				pred.UserIDSet = true
			}
			if leasedOnly {
				pred.UserIDNotEmpty = true
			}
			if idleOnly {
				pred.UserID = ""
				pred.UserIDSet = true
			}

			recs, err := eng.List(pred, col)
			if err != nil {
				return err
			}
			return printProjections(recs)
		},
	}

	cmd.Flags().BoolVar(&released, "released", false, "list the released collection instead of active")
	cmd.Flags().StringVar(&userID, "user", "", "only clusters leased to this user")
	cmd.Flags().StringVar(&hostID, "host", "", "only clusters on this host")
	cmd.Flags().BoolVar(&leasedOnly, "leased", false, "only clusters with a non-empty user_id")
	cmd.Flags().BoolVar(&idleOnly, "idle", false, "only clusters with an empty user_id")

	return cmd
}
