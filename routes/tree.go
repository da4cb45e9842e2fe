package routes

import (
	"bytes"
	"net/http"

	"github.com/wkalt/lazytree/nodestore"
	"github.com/wkalt/lazytree/treemgr"
	"github.com/wkalt/lazytree/util/httputil"
	"github.com/wkalt/lazytree/util/log"
)

func newTreeHandler(tmgr *treemgr.TreeManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var root *nodestore.NodeID
		if s := r.URL.Query().Get("root"); s != "" {
			id, err := nodestore.ParseNodeID(s)
			if err != nil {
				httputil.BadRequest(ctx, w, "invalid root: %s", err)
				return
			}
			if _, err := tmgr.Node(ctx, id); err != nil {
				writeError(w, r, err)
				return
			}
			root = id.Ptr()
		}
		buf := &bytes.Buffer{}
		if err := tmgr.PrintTree(ctx, buf, root, 0); err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := w.Write(buf.Bytes()); err != nil {
			log.Errorw(ctx, "error writing response", "error", err)
		}
	}
}

func newStatsHandler(tmgr *treemgr.TreeManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(r.Context(), w, http.StatusOK, tmgr.Stats())
	}
}
