package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"
	"github.com/wkalt/lazytree/config"
	"github.com/wkalt/lazytree/storage"
	"github.com/wkalt/lazytree/treemgr"
)

var (
	snapshotDir  string
	importParent string
	s3Endpoint   string
	s3AccessKey  string
	s3SecretKey  string
	s3Bucket     string
	s3Prefix     string
	s3Region     string
	s3UseTLS     bool
)

func applySnapshotFlags(cmd *cobra.Command, c *config.Config) {
	changed := cmd.Flags().Changed
	if changed("s3-endpoint") {
		c.S3.Endpoint = s3Endpoint
	}
	if changed("s3-access-key-id") {
		c.S3.AccessKey = s3AccessKey
	}
	if changed("s3-secret-key") {
		c.S3.SecretKey = s3SecretKey
	}
	if changed("s3-bucket") {
		c.S3.Bucket = s3Bucket
	}
	if changed("s3-prefix") {
		c.S3.Prefix = s3Prefix
	}
	if changed("s3-region") {
		c.S3.Region = s3Region
	}
	if changed("s3-tls") {
		c.S3.UseTLS = s3UseTLS
	}
}

func snapshotProvider() (storage.Provider, error) {
	s3requested := cfg.S3.Bucket != ""
	if snapshotDir != "" && s3requested {
		return nil, errors.New("cannot specify both --dir and S3 options")
	}
	if snapshotDir != "" {
		return storage.NewDirectoryStore(snapshotDir)
	}
	if !s3requested {
		return nil, errors.New("must specify either --dir or S3 options")
	}
	mc, err := minio.New(cfg.S3.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
		Secure: cfg.S3.UseTLS,
		Region: cfg.S3.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating S3 client: %w", err)
	}
	return storage.NewS3Store(mc, cfg.S3.Bucket, cfg.S3.Prefix), nil
}

var exportCmd = &cobra.Command{
	Use:   "export KEY",
	Short: "Write every node to a snapshot object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		provider, err := snapshotProvider()
		if err != nil {
			return err
		}
		return withTreeManager(ctx, func(tmgr *treemgr.TreeManager) error {
			n, err := tmgr.Export(ctx, provider, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d nodes to %s\n", n, args[0])
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import KEY",
	Short: "Insert the nodes of a snapshot object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		provider, err := snapshotProvider()
		if err != nil {
			return err
		}
		parent, err := parseParent(importParent)
		if err != nil {
			return err
		}
		return withTreeManager(ctx, func(tmgr *treemgr.TreeManager) error {
			n, err := tmgr.Import(ctx, provider, args[0], parent)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d nodes from %s\n", n, args[0])
			return nil
		})
	},
}

var deleteSnapshotCmd = &cobra.Command{
	Use:   "delete-snapshot KEY",
	Short: "Remove a snapshot object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := snapshotProvider()
		if err != nil {
			return err
		}
		if err := provider.Delete(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{exportCmd, importCmd, deleteSnapshotCmd} {
		rootCmd.AddCommand(c)
		flags := c.Flags()
		flags.StringVarP(&snapshotDir, "dir", "d", "", "snapshot directory")
		flags.StringVar(&s3Endpoint, "s3-endpoint", "", "S3 endpoint")
		flags.StringVar(&s3AccessKey, "s3-access-key-id", "", "S3 access key ID")
		flags.StringVar(&s3SecretKey, "s3-secret-key", "", "S3 secret key")
		flags.StringVar(&s3Bucket, "s3-bucket", "", "S3 bucket")
		flags.StringVar(&s3Prefix, "s3-prefix", "", "key prefix within the bucket")
		flags.StringVar(&s3Region, "s3-region", "", "S3 region")
		flags.BoolVarP(&s3UseTLS, "s3-tls", "t", true, "use TLS for S3")
	}
	importCmd.Flags().StringVarP(&importParent, "parent", "p", "", "attach imported roots under this node")
}
