package routes

import (
	"net/http/httptest"
	"testing"

	"github.com/wkalt/lazytree/treemgr"
)

// MakeTestRoutes serves tmgr on a local test server and returns its URL. The
// server is shut down when the test completes.
func MakeTestRoutes(t *testing.T, tmgr *treemgr.TreeManager) string {
	t.Helper()
	srv := httptest.NewServer(MakeRoutes(tmgr, nil))
	t.Cleanup(srv.Close)
	return srv.URL
}
