package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/npillmayer/sctree"
	"github.com/npillmayer/sctree/dom/schema"
	"github.com/npillmayer/sctree/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><head><style>p { x: 1 } div > p { x: 2 }</style></head>
<body><div><p>a</p></div><p>b</p></body></html>`

func TestHTMLDocumentWithStyles(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "sctree.dom")
	defer teardown()
	//
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o644))
	sch := schema.New()
	for _, c := range []string{"html", "head", "body", "div", "p"} {
		sch.DeclareClass(c, "")
	}
	sch.DeclareField("x", sparse.Float32)
	sess := sctree.NewSession(sch)
	l, sheets, err := readDocument(sess, path)
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	idx, err := sess.CompileSheet(sheets[0])
	require.NoError(t, err)
	m, err := sess.Style(context.Background(), idx, l)
	require.NoError(t, err)
	var out strings.Builder
	require.NoError(t, printStyles(&out, l, m.Selectors(), []string{"x"}))
	t.Logf("\n%s", out.String())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "node\tselectors\tx", lines[0])
	assert.Len(t, lines, l.Size+1)
	assert.Contains(t, out.String(), "\t2\t2\n")
}

func TestList(t *testing.T) {
	assert.Nil(t, list(""))
	assert.Equal(t, []string{"a", "b"}, list("a, b"))
}
