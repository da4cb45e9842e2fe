package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wkalt/lazytree/config"
	"github.com/wkalt/lazytree/service"
)

var (
	servePort      int
	allowedOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tree over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		svc := service.NewLazyTreeService()
		if err := svc.Start(ctx, service.WithConfig(cfg)); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	},
}

func applyServeFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		c.Port = servePort
	}
	if flags.Changed("allowed-origins") {
		c.AllowedOrigins = allowedOrigins
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8089, "Port to listen on")
	serveCmd.Flags().StringSliceVarP(&allowedOrigins, "allowed-origins", "o", []string{}, "Allowed origins")
}
