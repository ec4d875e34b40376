package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/dlgedit/internal/api"
	"github.com/gyaneshwarpardhi/dlgedit/internal/config"
	"github.com/gyaneshwarpardhi/dlgedit/internal/container"
	"github.com/gyaneshwarpardhi/dlgedit/internal/trash"
	"github.com/gyaneshwarpardhi/dlgedit/internal/workspace"
)

func loc(text string) container.LocRecord {
	return container.LocRecord{StrRef: -1, Strings: []container.LangString{{Language: 0, Text: text}}}
}

// guardFile: E0 "Hello" -> R0 "Greetings" -> E1 "Quest" -> R1 "Tell me more" -> (link E1)
func guardFile(t *testing.T, dir string) string {
	t.Helper()
	f := &container.File{
		Entries: []container.NodeRecord{
			{Text: loc("Hello"), Speaker: "Guard", Edges: []container.EdgeRecord{{Index: 0}}},
			{Text: loc("Quest"), Speaker: "Guard", Edges: []container.EdgeRecord{{Index: 1}}},
		},
		Replies: []container.NodeRecord{
			{Text: loc("Greetings"), Edges: []container.EdgeRecord{{Index: 1}}},
			{Text: loc("Tell me more"), Edges: []container.EdgeRecord{{Index: 1, IsLink: true}}},
		},
		Starts: []container.EdgeRecord{{Index: 0}},
	}
	p := filepath.Join(dir, "guard.json")
	require.NoError(t, container.WriteFile(p, f))
	return p
}

type fixture struct {
	srv  *httptest.Server
	dir  string
	file string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	ws := workspace.New(ctx, config.Default().Editor, trash.NewMemoryStore(), nil, nil)
	h, err := api.New(ws, nil, dir)
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		ws.Shutdown()
		cancel()
	})
	return &fixture{srv: srv, dir: dir, file: guardFile(t, dir)}
}

func (f *fixture) call(t *testing.T, method, path string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotModified {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *fixture) open(t *testing.T) string {
	t.Helper()
	var resp struct{ ID string }
	code := f.call(t, http.MethodPost, "/v1/dialogs", map[string]string{"path": f.file}, &resp)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

type nodeView struct {
	ID       string
	Kind     string
	Text     string
	IsLink   bool `json:"is_link"`
	Children []struct {
		Path   string
		Text   string
		IsLink bool `json:"is_link"`
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	var body map[string]interface{}
	assert.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/healthz", nil, &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/readyz", nil, &body))
	assert.Equal(t, "ready", body["status"])
}

func TestOpenAndView(t *testing.T) {
	f := newFixture(t)
	id := f.open(t)

	var root nodeView
	require.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/v1/dialogs/"+id+"/nodes", nil, &root))
	require.Len(t, root.Children, 1)
	assert.Equal(t, "Hello", root.Children[0].Text)

	var v nodeView
	require.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/v1/dialogs/"+id+"/nodes?path=0.0.0.0.0", nil, &v))
	assert.True(t, v.IsLink)
	assert.Equal(t, "npc_1", v.ID)
	assert.Empty(t, v.Children)

	var list struct{ Dialogs []workspace.Summary }
	require.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/v1/dialogs", nil, &list))
	require.Len(t, list.Dialogs, 1)
	assert.Equal(t, 4, list.Dialogs[0].Nodes)
}

func TestErrors(t *testing.T) {
	f := newFixture(t)
	id := f.open(t)

	assert.Equal(t, http.StatusNotFound, f.call(t, http.MethodGet, "/v1/dialogs/nope/nodes", nil, nil))
	assert.Equal(t, http.StatusBadRequest, f.call(t, http.MethodGet, "/v1/dialogs/"+id+"/nodes?path=a.b", nil, nil))
	assert.Equal(t, http.StatusNotFound, f.call(t, http.MethodGet, "/v1/dialogs/"+id+"/nodes?path=9", nil, nil))
	assert.Equal(t, http.StatusConflict, f.call(t, http.MethodPost, "/v1/dialogs/"+id+"/paste", map[string]string{"parent": "0.0"}, nil))
	assert.Equal(t, http.StatusBadRequest, f.call(t, http.MethodPost, "/v1/dialogs", map[string]string{}, nil))
}

func TestEditUndoRedo(t *testing.T) {
	f := newFixture(t)
	id := f.open(t)
	base := "/v1/dialogs/" + id

	var added struct{ Path string }
	require.Equal(t, http.StatusCreated, f.call(t, http.MethodPost, base+"/nodes",
		map[string]string{"parent": "0", "text": "Goodbye"}, &added))
	assert.Equal(t, "0.1", added.Path)

	var step map[string]bool
	require.Equal(t, http.StatusOK, f.call(t, http.MethodPost, base+"/undo", nil, &step))
	assert.True(t, step["applied"])
	assert.True(t, step["can_redo"])
	assert.Equal(t, http.StatusNotFound, f.call(t, http.MethodGet, base+"/nodes?path=0.1", nil, nil))

	require.Equal(t, http.StatusOK, f.call(t, http.MethodPost, base+"/redo", nil, &step))
	var v nodeView
	require.Equal(t, http.StatusOK, f.call(t, http.MethodGet, base+"/nodes?path=0.1", nil, &v))
	assert.Equal(t, "Goodbye", v.Text)
	assert.Equal(t, "response", v.Kind)
}

func TestMoveRejected(t *testing.T) {
	f := newFixture(t)
	id := f.open(t)

	var body map[string]interface{}
	code := f.call(t, http.MethodPost, "/v1/dialogs/"+id+"/move",
		map[string]string{"source": "0.0.0", "target": "0", "position": "into"}, &body)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, body["error"], "move rejected")
}

func TestDeleteTrashRestore(t *testing.T) {
	f := newFixture(t)
	id := f.open(t)
	base := "/v1/dialogs/" + id

	var impact struct {
		LinkOrphans []string `json:"link_orphans"`
	}
	require.Equal(t, http.StatusOK, f.call(t, http.MethodGet, base+"/nodes/impact?path=0.0.0", nil, &impact))
	assert.Empty(t, impact.LinkOrphans)

	var res struct {
		Removed  int
		TrashIDs []string `json:"trash_ids"`
	}
	require.Equal(t, http.StatusOK, f.call(t, http.MethodDelete, base+"/nodes?path=0.0.0", nil, &res))
	assert.Equal(t, 2, res.Removed)
	require.Len(t, res.TrashIDs, 2)

	var listing struct{ Entries []trash.Entry }
	require.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/v1/trash", nil, &listing))
	assert.Len(t, listing.Entries, 2)

	var restored struct{ Path string }
	require.Equal(t, http.StatusCreated, f.call(t, http.MethodPost, base+"/trash/"+res.TrashIDs[0]+"/restore",
		map[string]string{"parent": "0.0"}, &restored))
	assert.Equal(t, "0.0.0", restored.Path)

	assert.Equal(t, http.StatusNotFound, f.call(t, http.MethodPost, base+"/trash/"+res.TrashIDs[0]+"/restore",
		map[string]string{"parent": "0.0"}, nil))
}

func TestCopyPaste(t *testing.T) {
	f := newFixture(t)
	id := f.open(t)
	base := "/v1/dialogs/" + id

	var info map[string]interface{}
	require.Equal(t, http.StatusOK, f.call(t, http.MethodPost, base+"/copy", map[string]string{"path": "0.0.0"}, &info))
	assert.Equal(t, float64(3), info["nodes"])

	var pasted struct{ Path string }
	require.Equal(t, http.StatusCreated, f.call(t, http.MethodPost, base+"/paste",
		map[string]interface{}{"parent": "0.0", "as_link": true}, &pasted))
	assert.Equal(t, "0.0.1", pasted.Path)

	var valid map[string]interface{}
	require.Equal(t, http.StatusOK, f.call(t, http.MethodGet, base+"/validate", nil, &valid))
	assert.Equal(t, true, valid["valid"])
}

func TestStructureETag(t *testing.T) {
	f := newFixture(t)
	id := f.open(t)

	resp, err := http.Get(f.srv.URL + "/v1/dialogs/" + id + "/structure")
	require.NoError(t, err)
	var st struct {
		Nodes  []map[string]interface{}
		Links  []map[string]interface{}
		Colors map[string]string
		Hash   string
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	assert.Equal(t, st.Hash, resp.Header.Get("ETag"))
	assert.Len(t, st.Nodes, 6) // root, 4 lines, 1 link vertex
	assert.Equal(t, "#BA68C8", st.Colors["Guard"])

	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/v1/dialogs/"+id+"/structure", nil)
	req.Header.Set("If-None-Match", st.Hash)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
}

func TestSaveAbortReportsViolations(t *testing.T) {
	f := newFixture(t)
	bad := &container.File{
		Entries: []container.NodeRecord{{Text: loc("Hello"), Edges: []container.EdgeRecord{{Index: 4}}}},
		Starts:  []container.EdgeRecord{{Index: 0}},
	}
	src := filepath.Join(f.dir, "bad.json")
	require.NoError(t, container.WriteFile(src, bad))

	var opened struct{ ID string }
	require.Equal(t, http.StatusCreated, f.call(t, http.MethodPost, "/v1/dialogs", map[string]string{"path": src}, &opened))

	out := filepath.Join(f.dir, "out.json")
	var body struct {
		Error      string
		Violations []string
	}
	code := f.call(t, http.MethodPost, "/v1/dialogs/"+opened.ID+"/save", map[string]string{"path": out}, &body)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "save aborted", body.Error)
	assert.Len(t, body.Violations, 1)
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestValidateFiles(t *testing.T) {
	f := newFixture(t)
	var body struct {
		Total, Failed int
	}
	code := f.call(t, http.MethodPost, "/v1/validate",
		map[string][]string{"paths": {f.file, filepath.Join(f.dir, "missing.json")}}, &body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, 1, body.Failed)
}

func TestFilePathsConfinedToDialogRoot(t *testing.T) {
	f := newFixture(t)
	outside := filepath.Join(filepath.Dir(f.dir), "elsewhere.json")

	assert.Equal(t, http.StatusForbidden,
		f.call(t, http.MethodPost, "/v1/dialogs", map[string]string{"path": "../guard.json"}, nil))
	assert.Equal(t, http.StatusForbidden,
		f.call(t, http.MethodPost, "/v1/dialogs", map[string]interface{}{"path": outside, "create": true}, nil))
	assert.Equal(t, http.StatusForbidden,
		f.call(t, http.MethodPost, "/v1/validate", map[string][]string{"paths": {f.file, outside}}, nil))

	// Relative paths resolve under the root.
	var opened struct{ ID string }
	require.Equal(t, http.StatusCreated,
		f.call(t, http.MethodPost, "/v1/dialogs", map[string]string{"path": "guard.json"}, &opened))
	assert.Equal(t, http.StatusForbidden,
		f.call(t, http.MethodPost, "/v1/dialogs/"+opened.ID+"/save", map[string]string{"path": outside}, nil))
	_, err := os.Stat(outside)
	assert.True(t, os.IsNotExist(err))

	var saved struct{ Path string }
	require.Equal(t, http.StatusOK,
		f.call(t, http.MethodPost, "/v1/dialogs/"+opened.ID+"/save", map[string]string{"path": "copy.json"}, &saved))
	assert.Equal(t, filepath.Join(f.dir, "copy.json"), saved.Path)
}

func TestConfigReload_WithoutLoader(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.call(t, http.MethodPost, "/v1/config/reload", nil, nil))
}
