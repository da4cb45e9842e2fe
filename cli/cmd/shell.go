package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/wkalt/lazytree/shell"
	"github.com/wkalt/lazytree/treemgr"
)

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".lazytree_history")
}

func runShell(ctx context.Context) error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          shell.Prompt,
		HistoryFile:     historyFile(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to start readline: %w", err)
	}
	defer l.Close()
	l.CaptureExitSignal()
	log.SetOutput(l.Stderr())

	return withTreeManager(ctx, func(tmgr *treemgr.TreeManager) error {
		fmt.Fprintf(l.Stdout(), "Connected to %s store at %s with cache capacity %d.\n",
			cfg.Backend, cfg.StorageLocation, cfg.CacheCapacity)
		fmt.Fprintln(l.Stdout(), `Type "help" for help.`)
		return shell.New(tmgr, l.Stdout()).Run(ctx, l)
	})
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive shell over a single warm tree manager",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runShell(context.Background()); err != nil {
			return fmt.Errorf("error running shell: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
