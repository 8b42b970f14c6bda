package topo

import (
	"fmt"
	"strings"
)

// QPGraph renders the topology in the tab-separated exchange format consumed
// by the oracle:
//
//	root    <rootLabel>
//	label   <leaf>  <leaf>                       one per population leaf
//	edge    <edgeId>  <parent>  <child>          one per regular branch
//	admix   <child>  <childA>  <childB>  50  50  one per admixture merge
//
// Edge IDs are short hashes of the child label. An admixture merge exports as
// two edge lines connecting each real parent to a synthesized intermediate
// (<tag>a, <tag>b) followed by the admix line, so the oracle can fit drift on
// both incoming lineages.
func (t *Topology) QPGraph() []byte {
	var sb strings.Builder

	fmt.Fprintf(&sb, "root\t%s\n", t.RootTag())

	for _, id := range t.walkOrder() {
		if id == 0 {
			continue
		}
		n := &t.nodes[id]
		if len(n.Children) == 0 && !n.Admix {
			fmt.Fprintf(&sb, "label\t%s\t%s\n", n.Tag, n.Tag)
		}
	}

	printed := make(map[NodeID]bool)
	t.exportEdges(&sb, t.Root(), printed)

	return []byte(sb.String())
}

// exportEdges walks the tree in document order emitting edge and admix lines.
// Both copies of an admixture ingress pair are flagged in printed when first
// encountered so the pair exports exactly once.
func (t *Topology) exportEdges(sb *strings.Builder, parent NodeID, printed map[NodeID]bool) {
	for _, child := range t.nodes[parent].Children {
		if !printed[child] {
			tag := t.nodes[child].Tag
			parents := t.parentsOf(tag)

			if len(parents) > 1 {
				middle1 := tag + "a"
				middle2 := tag + "b"
				fmt.Fprintf(sb, "edge\t%s\t%s\t%s\n", Hash(middle1), t.nodes[parents[0]].Tag, middle1)
				fmt.Fprintf(sb, "edge\t%s\t%s\t%s\n", Hash(middle2), t.nodes[parents[1]].Tag, middle2)
				fmt.Fprintf(sb, "admix\t%s\t%s\t%s\t50\t50\n", tag, middle1, middle2)

				for _, p := range parents {
					for _, c := range t.nodes[p].Children {
						if t.nodes[c].Tag == tag {
							printed[c] = true
						}
					}
				}
			} else {
				fmt.Fprintf(sb, "edge\t%s\t%s\t%s\n", Hash(tag), t.nodes[parent].Tag, tag)
			}
		}

		if len(t.nodes[child].Children) > 0 {
			t.exportEdges(sb, child, printed)
		}
	}
}
