package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wkalt/lazytree/codec"
	"github.com/wkalt/lazytree/treemgr"
)

var (
	addData   string
	addParent string
)

var addCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		var value any
		if addData != "" {
			var err error
			value, err = codec.NewJSON().Decode([]byte(addData))
			if err != nil {
				return fmt.Errorf("invalid --data: %w", err)
			}
		}
		parent, err := parseParent(addParent)
		if err != nil {
			return err
		}
		return withTreeManager(ctx, func(tmgr *treemgr.TreeManager) error {
			id, err := tmgr.AddNode(ctx, args[0], value, parent)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addData, "data", "d", "", "node payload as JSON (default null)")
	addCmd.Flags().StringVarP(&addParent, "parent", "p", "", "parent node id (default: create a root)")
}
