package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/wkalt/lazytree/nodestore"
	"github.com/wkalt/lazytree/treemgr"
)

var (
	treeRoot  string
	treePlain bool
)

var levelColors = []*color.Color{
	color.New(color.FgBlue, color.Bold),
	color.New(color.FgCyan),
	color.New(color.FgGreen),
	color.New(color.FgYellow),
	color.New(color.FgMagenta),
}

var idColor = color.New(color.Faint)

func printColorTree(ctx context.Context, w io.Writer, tmgr *treemgr.TreeManager, root *nodestore.NodeID) error {
	return tmgr.Walk(ctx, root, 0, func(level int, record nodestore.Record) error {
		name := levelColors[level%len(levelColors)].Sprint(record.Name)
		_, err := fmt.Fprintf(w, "%s- %s %s\n", strings.Repeat("  ", level), name, idColor.Sprintf("(id: %d)", record.ID))
		return err
	})
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the forest, or the subtree under --root",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		root, err := parseParent(treeRoot)
		if err != nil {
			return err
		}
		return withTreeManager(ctx, func(tmgr *treemgr.TreeManager) error {
			if root != nil {
				if _, err := tmgr.Node(ctx, *root); err != nil {
					return err
				}
			}
			if treePlain || color.NoColor {
				return tmgr.PrintTree(ctx, cmd.OutOrStdout(), root, 0)
			}
			return printColorTree(ctx, color.Output, tmgr, root)
		})
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().StringVarP(&treeRoot, "root", "r", "", "print only the subtree under this node")
	treeCmd.Flags().BoolVarP(&treePlain, "plain", "", false, "disable colors")
}
