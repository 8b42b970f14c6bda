package render

import (
	"bytes"
	"fmt"

	"github.com/kmoselund/qpermute/pkg/topo"
)

// ToDOT converts a topology to Graphviz DOT format. Population leaves are
// drawn as rounded boxes and synthesized nodes as points. The two ingress
// nodes of an admixture merge share a tag and therefore collapse into a
// single DOT node with one dashed 50% edge from each parent.
func ToDOT(g *topo.Topology) []byte {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=point];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for id := topo.NodeID(1); int(id) < g.NodeCount(); id++ {
		n := g.Node(id)
		if n.Internal {
			continue
		}
		fmt.Fprintf(&buf, "  %q [shape=box, style=\"rounded,filled\", fillcolor=white, label=%q];\n",
			n.Tag, n.Tag)
	}

	buf.WriteString("\n")
	for id := topo.NodeID(0); int(id) < g.NodeCount(); id++ {
		n := g.Node(id)
		for _, childID := range n.Children {
			child := g.Node(childID)
			if child.Admix {
				fmt.Fprintf(&buf, "  %q -> %q [style=dashed, label=\"50%%\"];\n", n.Tag, child.Tag)
				continue
			}
			fmt.Fprintf(&buf, "  %q -> %q;\n", n.Tag, child.Tag)
		}
	}

	buf.WriteString("}\n")
	return buf.Bytes()
}
