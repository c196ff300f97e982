/*
Package flatdbg implements helpers to debug a flattened tree.

______________________________________________________________________

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>


*/
package flatdbg

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"testing"
	"text/template"

	"github.com/npillmayer/sctree/flat"
	"github.com/npillmayer/sctree/tokens"
	"github.com/xlab/treeprint"
)

// Parameters for GraphViz drawing.
type graphParamsType struct {
	Fontname  string
	NodeTmpl  *template.Template
	EdgeTmpl  *template.Template
	SibTmpl   *template.Template
	FieldTmpl *template.Template
}

// ToGraphViz outputs a diagram for a flattened tree. The diagram is in
// GraphViz (DOT) format. Nodes are ranked by level; every node shows its
// index, class and id. Clients may provide a list of buffer names, the
// values of which will be shown in a record attached to each node.
func ToGraphViz(l *flat.Layout, w io.Writer, fields []string) error {
	tmpl, err := template.New("layout").Parse(graphHeadTmpl)
	if err != nil {
		return err
	}
	gparams := graphParamsType{Fontname: "Helvetica"}
	gparams.NodeTmpl = template.Must(template.New("node").Parse(nodeTmpl))
	gparams.EdgeTmpl = template.Must(template.New("edge").Parse(edgeTmpl))
	gparams.SibTmpl = template.Must(template.New("sibling").Parse(siblingTmpl))
	gparams.FieldTmpl = template.Must(template.New("fields").Parse(fieldsTmpl))
	if err = tmpl.Execute(w, gparams); err != nil {
		return err
	}
	parent, right := l.Parent(), l.RightSiblings()
	for k, lv := range l.Levels {
		fmt.Fprintf(w, "{ rank=same; /* level %d */\n", k)
		for i := lv.Start; i < lv.End(); i++ {
			n := describe(l, i, fields)
			if err = gparams.NodeTmpl.Execute(w, n); err != nil {
				return err
			}
		}
		io.WriteString(w, "}\n")
	}
	for i := 0; i < l.Size; i++ {
		if len(fields) > 0 {
			if err = gparams.FieldTmpl.Execute(w, describe(l, i, fields)); err != nil {
				return err
			}
		}
		if i > 0 {
			if err = gparams.EdgeTmpl.Execute(w, []int{int(parent[i]), i}); err != nil {
				return err
			}
		}
		if right[i] != 0 {
			if err = gparams.SibTmpl.Execute(w, []int{i, i + int(right[i])}); err != nil {
				return err
			}
		}
	}
	_, err = io.WriteString(w, "}\n")
	return err
}

// Dotty is a helper for testing. Given a layout and a testing.T, it will
// create a Graphviz image of the tree and write it to a file in the
// current folder, choosing a unique file name. The image is in SVG format.
//
// If an error occurs, t.Error(…) will be set, causing the test to fail.
//
func Dotty(l *flat.Layout, fields []string, t *testing.T) {
	tmpfile, err := os.CreateTemp(".", "layout.*.dot")
	if err != nil {
		t.Error(err)
		return
	}
	defer func() {
		tmpfile.Close()
		os.Remove(tmpfile.Name()) // clean up
	}()
	t.Logf("writing layout digraph to %s\n", tmpfile.Name())
	if err = ToGraphViz(l, tmpfile, fields); err != nil {
		t.Error(err)
		return
	}
	outOption := fmt.Sprintf("-o%s.svg", tmpfile.Name())
	cmd := exec.Command("dot", "-Tsvg", outOption, tmpfile.Name())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		t.Error(err.Error())
	}
}

// TreePrint renders a flattened tree as indented text.
func TreePrint(l *flat.Layout) string {
	if l.Size == 0 {
		return ""
	}
	parent := l.Parent()
	branches := make([]treeprint.Tree, l.Size)
	root := treeprint.NewWithRoot(label(l, 0))
	branches[0] = root
	for i := 1; i < l.Size; i++ {
		branches[i] = branches[parent[i]].AddBranch(label(l, i))
	}
	return root.String()
}

type field struct {
	Name  string
	Value string
}

type node struct {
	Index  int
	Label  string
	Fields []field
}

func describe(l *flat.Layout, i int, fields []string) node {
	n := node{Index: i, Label: label(l, i)}
	for _, f := range fields {
		if b, ok := l.Buffer(f); ok {
			n.Fields = append(n.Fields, field{f, strconv.FormatFloat(b.At(i), 'g', -1, 64)})
		}
	}
	return n
}

// label is "index: CLASS#id".
func label(l *flat.Layout, i int) string {
	class := strconv.Itoa(int(l.Tags()[i]))
	if l.Schema != nil {
		if s, ok := l.Schema.Tags().String(tokens.Token(l.Tags()[i])); ok {
			class = s
		}
	}
	s := fmt.Sprintf("%d: %s", i, class)
	if l.IDs != nil {
		if id, ok := l.IDs.String(tokens.Token(l.IDTokens()[i])); ok && id != "" {
			s += "#" + id
		}
	}
	return s
}

// --- Templates --------------------------------------------------------

const graphHeadTmpl = `digraph g {
  graph [labelloc="t" label="" splines=true overlap=false rankdir = "TB"];
  graph [fontname = "{{ .Fontname }}" fontsize=14] ;
   node [fontname = "{{ .Fontname }}" fontsize=14] ;
   edge [fontname = "{{ .Fontname }}" fontsize=14] ;
`

const nodeTmpl = `node{{ .Index }}	[ label={{ printf "%q" .Label }} shape=ellipse style=filled fillcolor=lightblue3 ] ;
`

const fieldsTmpl = `fields{{ .Index }} [ style="filled" penwidth=1 fillcolor="ivory3" shape="Mrecord" fontsize=12
    label=<<table border="0" cellborder="0" cellpadding="2" cellspacing="0" bgcolor="ivory3">
      {{ range .Fields }}
      <tr><td align="right">{{ .Name }}:</td><td>{{ .Value }}</td></tr>
      {{ else }}
      <tr><td colspan="2">no fields</td></tr>
      {{ end }}
    </table>> ] ;
node{{ .Index }} -> fields{{ .Index }} [dir=none weight=1 style="dashed"] ;
`

const edgeTmpl = `node{{ index . 0 }} -> node{{ index . 1 }} [weight=1] ;
`

const siblingTmpl = `node{{ index . 0 }} -> node{{ index . 1 }} [weight=0 style="dotted" constraint=false] ;
`
