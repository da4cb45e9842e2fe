package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wkalt/lazytree/nodestore"
	"github.com/wkalt/lazytree/treemgr"
	"github.com/wkalt/lazytree/util"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the stored forest",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return withTreeManager(ctx, func(tmgr *treemgr.TreeManager) error {
			var nodes, roots, depth int
			err := tmgr.Walk(ctx, nil, 0, func(level int, _ nodestore.Record) error {
				nodes++
				roots += util.When(level == 0, 1, 0)
				depth = max(depth, level+1)
				return nil
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backend: %s (%s)\n", cfg.Backend, cfg.StorageLocation)
			fmt.Fprintf(out, "nodes: %d\nroots: %d\ndepth: %d\n", nodes, roots, depth)
			fmt.Fprintf(out, "cache capacity: %d\n", tmgr.Stats().Capacity)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
