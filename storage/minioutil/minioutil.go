package minioutil

import (
	"context"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/minio/madmin-go"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	minio "github.com/minio/minio/cmd"
	"github.com/stretchr/testify/require"
)

/*
minioutil runs an in-process minio server for tests of the S3 snapshot
provider.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	testBucket      = "snapshots"
	accessKeyID     = "minioadmin"
	secretAccessKey = "minioadmin"
)

func openPort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, fmt.Errorf("failed to get open port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// NewServer starts a minio server on a random port, and returns a client and
// bucket name to use in tests. The third return value is a function that will
// tear the server down.
func NewServer(t *testing.T) (*mclient.Client, string, func()) {
	t.Helper()
	ctx := context.Background()
	port, err := openPort()
	require.NoError(t, err)
	addr := fmt.Sprintf("localhost:%d", port)

	madm, err := madmin.New(addr, accessKeyID, secretAccessKey, false)
	require.NoError(t, err)

	tmpdir, err := os.MkdirTemp("", "lazytree-minio")
	require.NoError(t, err)

	go func() {
		minio.Main([]string{"minio", "server", "--quiet", "--address", addr, tmpdir})
	}()
	start := time.Now()
	for {
		if _, err := madm.ServerInfo(ctx); err == nil {
			break
		}
		if time.Since(start) > 10*time.Second {
			t.Fatal("timeout waiting for minio server to start")
		}
		time.Sleep(100 * time.Millisecond)
	}
	mc, err := mclient.New(addr, &mclient.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: false,
	})
	require.NoError(t, err)
	require.NoError(t, mc.MakeBucket(ctx, testBucket, mclient.MakeBucketOptions{}))
	return mc, testBucket, func() {
		require.NoError(t, os.RemoveAll(tmpdir))
		// minio calls os.Exit when it stops, so it must outlive the test
		// binary's remaining work. Stop it after a delay.
		go func() {
			time.Sleep(5 * time.Second)
			if err := madm.ServiceStop(ctx); err != nil {
				t.Log(err)
			}
		}()
	}
}
