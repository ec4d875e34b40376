package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/dlgedit/internal/config"
	"github.com/gyaneshwarpardhi/dlgedit/internal/metrics"
	"github.com/gyaneshwarpardhi/dlgedit/internal/workspace"
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	ws     *workspace.Workspace
	loader *config.Loader
	root   dialogRoot
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes. loader may be nil
// when the server runs without a config file. Dialog files named in
// requests must lie under root.
func New(ws *workspace.Workspace, loader *config.Loader, root string) (http.Handler, error) {
	dr, err := newDialogRoot(root)
	if err != nil {
		return nil, err
	}
	h := &Handler{ws: ws, loader: loader, root: dr, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /v1/dialogs", h.listDialogs)
	h.mux.HandleFunc("POST /v1/dialogs", h.openDialog)
	h.mux.HandleFunc("DELETE /v1/dialogs/{id}", h.closeDialog)

	h.mux.HandleFunc("GET /v1/dialogs/{id}/nodes", h.getNode)
	h.mux.HandleFunc("POST /v1/dialogs/{id}/nodes", h.addNode)
	h.mux.HandleFunc("PUT /v1/dialogs/{id}/nodes/text", h.setText)
	h.mux.HandleFunc("DELETE /v1/dialogs/{id}/nodes", h.deleteNode)
	h.mux.HandleFunc("GET /v1/dialogs/{id}/nodes/impact", h.deleteImpact)
	h.mux.HandleFunc("POST /v1/dialogs/{id}/move", h.moveNode)
	h.mux.HandleFunc("POST /v1/dialogs/{id}/copy", h.copyNode)
	h.mux.HandleFunc("POST /v1/dialogs/{id}/cut", h.cutNode)
	h.mux.HandleFunc("POST /v1/dialogs/{id}/paste", h.paste)
	h.mux.HandleFunc("POST /v1/dialogs/{id}/undo", h.undo)
	h.mux.HandleFunc("POST /v1/dialogs/{id}/redo", h.redo)
	h.mux.HandleFunc("GET /v1/dialogs/{id}/history", h.history)

	h.mux.HandleFunc("GET /v1/dialogs/{id}/structure", h.structure)
	h.mux.HandleFunc("GET /v1/dialogs/{id}/validate", h.validate)
	h.mux.HandleFunc("POST /v1/dialogs/{id}/repair", h.repair)
	h.mux.HandleFunc("POST /v1/dialogs/{id}/save", h.save)

	h.mux.HandleFunc("POST /v1/validate", h.validateFiles)
	h.mux.HandleFunc("GET /v1/trash", h.listTrash)
	h.mux.HandleFunc("POST /v1/dialogs/{id}/trash/{entry}/restore", h.restore)

	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux), nil
}

// POST /v1/config/reload — re-read the config file and apply editor settings.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	if h.loader == nil {
		writeError(w, http.StatusNotFound, "server was started without a config file")
		return
	}
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := config.Validate(cfg); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.ws.SetConfig(cfg.Editor)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded": true,
		"version":  cfg.Version,
	})
}

// GET /healthz — always 200 (liveness).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 if the validation queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.ws.QueueUtilization()
	metrics.BatchQueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
		"open_dialogs":      len(h.ws.List()),
	})
}
