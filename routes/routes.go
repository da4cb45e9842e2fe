package routes

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/wkalt/lazytree/codec"
	"github.com/wkalt/lazytree/nodestore"
	"github.com/wkalt/lazytree/treemgr"
	"github.com/wkalt/lazytree/util/httputil"
	"github.com/wkalt/lazytree/util/mw"
)

/*
routes exposes a tree manager over HTTP. Handlers are thin: they parse the
request, call one manager method, and map the manager's errors onto status
codes.
*/

////////////////////////////////////////////////////////////////////////////////

// MakeRoutes builds the HTTP handler for tmgr. Requests from allowedOrigins
// receive CORS headers.
func MakeRoutes(tmgr *treemgr.TreeManager, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.Use(mw.WithRequestID)
	r.HandleFunc("/nodes", newCreateNodeHandler(tmgr)).Methods(http.MethodPost)
	r.HandleFunc("/nodes/{id}", newNodeHandler(tmgr)).Methods(http.MethodGet)
	r.HandleFunc("/nodes/{id}/data", newNodeDataHandler(tmgr)).Methods(http.MethodGet)
	r.HandleFunc("/nodes/{id}/children", newChildrenHandler(tmgr)).Methods(http.MethodGet)
	r.HandleFunc("/roots", newRootsHandler(tmgr)).Methods(http.MethodGet)
	r.HandleFunc("/tree", newTreeHandler(tmgr)).Methods(http.MethodGet)
	r.HandleFunc("/stats", newStatsHandler(tmgr)).Methods(http.MethodGet)
	return mw.WithCORSAllowedOrigins(allowedOrigins)(r)
}

// NodeResponse is the JSON form of a node's metadata.
type NodeResponse struct {
	ID       nodestore.NodeID  `json:"id"`
	Name     string            `json:"name"`
	ParentID *nodestore.NodeID `json:"parentId"`
}

func newNodeResponse(record nodestore.Record) NodeResponse {
	return NodeResponse{
		ID:       record.ID,
		Name:     record.Name,
		ParentID: record.Parent,
	}
}

func nodeID(r *http.Request) (nodestore.NodeID, error) {
	return nodestore.ParseNodeID(mux.Vars(r)["id"])
}

// writeError maps manager errors onto responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	var encodeErr *codec.EncodeError
	switch {
	case errors.Is(err, nodestore.ErrNodeNotFound):
		httputil.NotFound(ctx, w, "%s", err)
	case errors.Is(err, nodestore.ErrIntegrity), errors.As(err, &encodeErr):
		httputil.BadRequest(ctx, w, "%s", err)
	default:
		httputil.InternalServerError(ctx, w, "%s %s: %s", r.Method, r.URL.Path, err)
	}
}
