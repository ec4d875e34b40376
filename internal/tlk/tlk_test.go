package tlk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
	"github.com/gyaneshwarpardhi/dlgedit/internal/tlk"
)

func openTable(t *testing.T) *tlk.Table {
	t.Helper()
	tb, err := tlk.Open(tlk.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { tb.Close() })
	return tb
}

func TestPutGet(t *testing.T) {
	tb := openTable(t)
	require.NoError(t, tb.Put(42, "Well met, traveller."))

	text, ok, err := tb.Get(42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Well met, traveller.", text)

	_, ok, err = tb.Get(7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPut_RejectsNegativeRef(t *testing.T) {
	tb := openTable(t)
	assert.Error(t, tb.Put(dialog.NoStrRef, "x"))
}

func TestImportAndLen(t *testing.T) {
	tb := openTable(t)
	n, err := tb.Import(map[int64]string{1: "one", 2: "two", 3: "three", -1: "skipped"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	count, err := tb.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := tlk.Open(tlk.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestOpen_Persists(t *testing.T) {
	dir := t.TempDir()
	tb, err := tlk.Open(tlk.DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, tb.Put(9, "persisted"))
	require.NoError(t, tb.Close())

	tb, err = tlk.Open(tlk.DefaultConfig(dir))
	require.NoError(t, err)
	defer tb.Close()
	text, ok := tb.Resolve(9)
	assert.True(t, ok)
	assert.Equal(t, "persisted", text)
}

func TestTable_AsTextResolver(t *testing.T) {
	tb := openTable(t)
	require.NoError(t, tb.Put(100, "From the table"))

	n := &dialog.Node{Text: dialog.LocString{StrRef: 100}}
	assert.Equal(t, "From the table", dialog.DisplayText(n, 0, tb))

	missing := &dialog.Node{Text: dialog.LocString{StrRef: 101}}
	assert.Equal(t, "<StrRef:101>", dialog.DisplayText(missing, 0, tb))
}

func TestMap_Resolve(t *testing.T) {
	var r dialog.TextResolver = tlk.Map{5: "five"}
	s, ok := r.Resolve(5)
	assert.True(t, ok)
	assert.Equal(t, "five", s)
}
