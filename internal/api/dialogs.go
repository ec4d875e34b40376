package api

import (
	"fmt"
	"net/http"

	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
	"github.com/gyaneshwarpardhi/dlgedit/internal/editor"
)

const maxValidateBatch = 500

type openRequest struct {
	Path   string `json:"path"`
	Create bool   `json:"create"`
}

type nodeRequest struct {
	Parent  string `json:"parent"`
	Text    string `json:"text"`
	Speaker string `json:"speaker"`
}

type textRequest struct {
	Path string `json:"path"`
	Text string `json:"text"`
}

type pathRequest struct {
	Path string `json:"path"`
}

type moveRequest struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Position string `json:"position"`
}

type pasteRequest struct {
	Parent string `json:"parent"`
	AsLink bool   `json:"as_link"`
}

type restoreRequest struct {
	Parent string `json:"parent"`
}

type validateRequest struct {
	Paths []string `json:"paths"`
}

// do runs fn on the dialog named in the URL and writes its error, if any.
func (h *Handler) do(w http.ResponseWriter, r *http.Request, fn func(*editor.Session) error) bool {
	if err := h.ws.Do(r.PathValue("id"), fn); err != nil {
		writeEditError(w, err)
		return false
	}
	return true
}

// GET /v1/dialogs — list open dialogs.
func (h *Handler) listDialogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"dialogs": h.ws.List()})
}

// POST /v1/dialogs — open a dialog file, or start an empty one.
func (h *Handler) openDialog(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	file, err := h.root.resolve(req.Path)
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}
	if req.Create {
		writeJSON(w, http.StatusCreated, map[string]string{"id": h.ws.Create(file)})
		return
	}
	id, err := h.ws.Open(file)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// DELETE /v1/dialogs/{id} — close without saving.
func (h *Handler) closeDialog(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.Close(r.PathValue("id")); err != nil {
		writeEditError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /v1/dialogs/{id}/nodes?path=0.1 — node view; no path lists the starts.
func (h *Handler) getNode(w http.ResponseWriter, r *http.Request) {
	p, err := parsePath(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var v editor.NodeView
	if h.do(w, r, func(s *editor.Session) (err error) {
		v, err = s.View(p)
		return err
	}) {
		writeJSON(w, http.StatusOK, v)
	}
}

// POST /v1/dialogs/{id}/nodes — add a line under parent (a start when empty).
func (h *Handler) addNode(w http.ResponseWriter, r *http.Request) {
	var req nodeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	parent, err := parsePath(req.Parent)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var p dialog.Path
	if h.do(w, r, func(s *editor.Session) (err error) {
		p, err = s.AddNode(parent, req.Text, req.Speaker)
		return err
	}) {
		writeJSON(w, http.StatusCreated, map[string]string{"path": p.String()})
	}
}

// PUT /v1/dialogs/{id}/nodes/text — replace a line's text.
func (h *Handler) setText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := parsePath(req.Path)
	if err != nil || len(p) == 0 {
		writeError(w, http.StatusBadRequest, "a node path is required")
		return
	}
	if h.do(w, r, func(s *editor.Session) error { return s.SetText(p, req.Text) }) {
		writeJSON(w, http.StatusOK, map[string]string{"path": p.String()})
	}
}

func nodePath(w http.ResponseWriter, r *http.Request) (dialog.Path, bool) {
	p, err := parsePath(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if len(p) == 0 {
		writeError(w, http.StatusBadRequest, "path query parameter is required")
		return nil, false
	}
	return p, true
}

// DELETE /v1/dialogs/{id}/nodes?path=0.1 — delete an edge and sweep orphans.
func (h *Handler) deleteNode(w http.ResponseWriter, r *http.Request) {
	p, ok := nodePath(w, r)
	if !ok {
		return
	}
	var res editor.DeleteResult
	if h.do(w, r, func(s *editor.Session) (err error) {
		res, err = s.Delete(r.Context(), p)
		return err
	}) {
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /v1/dialogs/{id}/nodes/impact?path=0.1 — nodes a delete would take
// down through their links.
func (h *Handler) deleteImpact(w http.ResponseWriter, r *http.Request) {
	p, ok := nodePath(w, r)
	if !ok {
		return
	}
	ids := []string{}
	if h.do(w, r, func(s *editor.Session) error {
		slots, err := s.DeleteImpact(p)
		for _, sl := range slots {
			ids = append(ids, dialog.NodeID(sl))
		}
		return err
	}) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"link_orphans": ids})
	}
}

// POST /v1/dialogs/{id}/move — drag and drop.
func (h *Handler) moveNode(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	src, err := parsePath(req.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tgt, err := parsePath(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pos, err := dialog.ParsePosition(req.Position)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.do(w, r, func(s *editor.Session) error {
		_, err := s.Move(src, tgt, pos)
		return err
	}) {
		writeJSON(w, http.StatusOK, map[string]bool{"moved": true})
	}
}

// POST /v1/dialogs/{id}/copy — put a subtree on the clipboard.
func (h *Handler) copyNode(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := parsePath(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var info editor.ClipboardInfo
	if h.do(w, r, func(s *editor.Session) error {
		if err := s.Copy(p); err != nil {
			return err
		}
		info, _ = s.Clipboard()
		return nil
	}) {
		writeJSON(w, http.StatusOK, info)
	}
}

// POST /v1/dialogs/{id}/cut — copy, then delete.
func (h *Handler) cutNode(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := parsePath(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var res editor.DeleteResult
	if h.do(w, r, func(s *editor.Session) (err error) {
		res, err = s.Cut(r.Context(), p)
		return err
	}) {
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /v1/dialogs/{id}/paste — paste a copy, or a link to the original.
func (h *Handler) paste(w http.ResponseWriter, r *http.Request) {
	var req pasteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	parent, err := parsePath(req.Parent)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var p dialog.Path
	if h.do(w, r, func(s *editor.Session) (err error) {
		if req.AsLink {
			p, err = s.PasteAsLink(parent)
		} else {
			p, err = s.Paste(parent)
		}
		return err
	}) {
		writeJSON(w, http.StatusCreated, map[string]string{"path": p.String()})
	}
}

func (h *Handler) step(w http.ResponseWriter, r *http.Request, undo bool) {
	var applied bool
	var canUndo, canRedo bool
	if h.do(w, r, func(s *editor.Session) error {
		if undo {
			applied = s.Undo()
		} else {
			applied = s.Redo()
		}
		canUndo, canRedo = s.History().CanUndo(), s.History().CanRedo()
		return nil
	}) {
		writeJSON(w, http.StatusOK, map[string]bool{
			"applied":  applied,
			"can_undo": canUndo,
			"can_redo": canRedo,
		})
	}
}

// POST /v1/dialogs/{id}/undo
func (h *Handler) undo(w http.ResponseWriter, r *http.Request) { h.step(w, r, true) }

// POST /v1/dialogs/{id}/redo
func (h *Handler) redo(w http.ResponseWriter, r *http.Request) { h.step(w, r, false) }

// GET /v1/dialogs/{id}/history — undo labels, oldest first.
func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	var labels []string
	var redo int
	if h.do(w, r, func(s *editor.Session) error {
		labels = s.History().Labels()
		_, redo = s.History().Len()
		return nil
	}) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"undo": labels, "redo_depth": redo})
	}
}

// GET /v1/dialogs/{id}/structure — flowchart export with its hash.
func (h *Handler) structure(w http.ResponseWriter, r *http.Request) {
	var st *dialog.Structure
	var hash string
	var colors map[string]string
	if h.do(w, r, func(s *editor.Session) (err error) {
		st, hash, err = s.Structure()
		colors = s.Colors()
		return err
	}) {
		if r.Header.Get("If-None-Match") == hash {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", hash)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"nodes":  st.Nodes,
			"links":  st.Links,
			"colors": colors,
			"hash":   hash,
		})
	}
}

// GET /v1/dialogs/{id}/validate — index violations and link-only orphans.
func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{}
	if h.do(w, r, func(s *editor.Session) error {
		msgs := []string{}
		for _, e := range s.Validate() {
			msgs = append(msgs, e.Error())
		}
		orphans := []string{}
		for _, sl := range dialog.OrphanedLinkChildren(s.Dialog(), nil) {
			orphans = append(orphans, dialog.NodeID(sl))
		}
		resp["valid"] = len(msgs) == 0
		resp["violations"] = msgs
		resp["link_orphans"] = orphans
		return nil
	}) {
		writeJSON(w, http.StatusOK, resp)
	}
}

// POST /v1/dialogs/{id}/repair — rebuild links and recalculate indices.
func (h *Handler) repair(w http.ResponseWriter, r *http.Request) {
	remaining := []string{}
	if h.do(w, r, func(s *editor.Session) error {
		for _, e := range s.Repair() {
			remaining = append(remaining, e.Error())
		}
		return nil
	}) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"remaining": remaining})
	}
}

// POST /v1/dialogs/{id}/save — validate, repair once if configured, write.
func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	file := ""
	if req.Path != "" {
		var err error
		if file, err = h.root.resolve(req.Path); err != nil {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
	}
	var saved string
	if h.do(w, r, func(s *editor.Session) error {
		if err := s.Save(file); err != nil {
			return err
		}
		saved = s.Path()
		return nil
	}) {
		writeJSON(w, http.StatusOK, map[string]string{"path": saved})
	}
}

// GET /v1/trash?file=... — trashed nodes, newest first.
func (h *Handler) listTrash(w http.ResponseWriter, r *http.Request) {
	store := h.ws.Trash()
	if store == nil {
		writeError(w, http.StatusNotFound, "trash is disabled")
		return
	}
	entries, err := store.List(r.Context(), r.URL.Query().Get("file"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// POST /v1/dialogs/{id}/trash/{entry}/restore — bring a trashed node back
// under parent.
func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	parent, err := parsePath(req.Parent)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var p dialog.Path
	if h.do(w, r, func(s *editor.Session) (err error) {
		p, err = s.RestoreFromTrash(r.Context(), r.PathValue("entry"), parent)
		return err
	}) {
		writeJSON(w, http.StatusCreated, map[string]string{"path": p.String()})
	}
}

// POST /v1/validate — check dialog files on disk without opening them.
func (h *Handler) validateFiles(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Paths) == 0 {
		writeError(w, http.StatusBadRequest, "paths must contain at least one file")
		return
	}
	if len(req.Paths) > maxValidateBatch {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch size %d exceeds max %d", len(req.Paths), maxValidateBatch))
		return
	}
	files, err := h.root.resolveAll(req.Paths)
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}
	reports, err := h.ws.ValidateFiles(r.Context(), files)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	failed := 0
	for _, rep := range reports {
		if !rep.OK() {
			failed++
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"total":   len(reports),
		"failed":  failed,
	})
}
