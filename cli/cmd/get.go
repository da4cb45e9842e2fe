package cmd

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/wkalt/lazytree/nodestore"
	"github.com/wkalt/lazytree/treemgr"
)

var getCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Print a node's payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		id, err := nodestore.ParseNodeID(args[0])
		if err != nil {
			return err
		}
		return withTreeManager(ctx, func(tmgr *treemgr.TreeManager) error {
			value, err := tmgr.GetNodeData(ctx, id)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(value, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format value: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
