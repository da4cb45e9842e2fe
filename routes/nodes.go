package routes

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/wkalt/lazytree/codec"
	"github.com/wkalt/lazytree/nodestore"
	"github.com/wkalt/lazytree/treemgr"
	"github.com/wkalt/lazytree/util"
	"github.com/wkalt/lazytree/util/httputil"
	"github.com/wkalt/lazytree/util/log"
)

// CreateNodeRequest is the body of POST /nodes. Name may be any string,
// including empty. Data may be any JSON value.
type CreateNodeRequest struct {
	Name     string            `json:"name"`
	ParentID *nodestore.NodeID `json:"parentId"`
	Data     json.RawMessage   `json:"data"`
}

func (req CreateNodeRequest) validate() error {
	if req.ParentID != nil && *req.ParentID < 1 {
		return errors.New("parentId must be positive")
	}
	return nil
}

// CreateNodeResponse is the body returned by POST /nodes.
type CreateNodeResponse struct {
	ID nodestore.NodeID `json:"id"`
}

func newCreateNodeHandler(tmgr *treemgr.TreeManager) http.HandlerFunc {
	// request bodies are always JSON, whatever codec the manager stores with.
	parser := codec.NewJSON()
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req := CreateNodeRequest{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(ctx, w, "failed to decode request: %s", err)
			return
		}
		if err := req.validate(); err != nil {
			httputil.BadRequest(ctx, w, "invalid request: %s", err)
			return
		}
		var value any
		if len(req.Data) > 0 {
			v, err := parser.Decode(req.Data)
			if err != nil {
				httputil.BadRequest(ctx, w, "invalid data: %s", err)
				return
			}
			value = v
		}
		log.Infow(ctx, "create node request", "name", req.Name, "parent", req.ParentID)
		id, err := tmgr.AddNode(ctx, req.Name, value, req.ParentID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		httputil.JSON(ctx, w, http.StatusCreated, CreateNodeResponse{ID: id})
	}
}

func newNodeHandler(tmgr *treemgr.TreeManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := nodeID(r)
		if err != nil {
			httputil.BadRequest(ctx, w, "%s", err)
			return
		}
		record, err := tmgr.Node(ctx, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		httputil.JSON(ctx, w, http.StatusOK, newNodeResponse(*record))
	}
}

func newNodeDataHandler(tmgr *treemgr.TreeManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := nodeID(r)
		if err != nil {
			httputil.BadRequest(ctx, w, "%s", err)
			return
		}
		value, err := tmgr.GetNodeData(ctx, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		httputil.JSON(ctx, w, http.StatusOK, value)
	}
}

func writeChildren(w http.ResponseWriter, r *http.Request, tmgr *treemgr.TreeManager, parent *nodestore.NodeID) {
	ctx := r.Context()
	children, err := tmgr.Children(ctx, parent)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.JSON(ctx, w, http.StatusOK, util.Map(newNodeResponse, children))
}

func newChildrenHandler(tmgr *treemgr.TreeManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := nodeID(r)
		if err != nil {
			httputil.BadRequest(ctx, w, "%s", err)
			return
		}
		if _, err := tmgr.Node(ctx, id); err != nil {
			writeError(w, r, err)
			return
		}
		writeChildren(w, r, tmgr, id.Ptr())
	}
}

func newRootsHandler(tmgr *treemgr.TreeManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeChildren(w, r, tmgr, nil)
	}
}
