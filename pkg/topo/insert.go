package topo

// InsertSibling attaches a new population leaf on the branch leading to the
// target node. If the target already has a sibling, a fresh internal node
// (sequential n<k> label) is synthesized to adopt the target first, so that
// single-parent structure is preserved everywhere else.
//
// The receiver is mutated; callers clone the parent topology per candidate.
func (t *Topology) InsertSibling(target Ref, tag string) error {
	targetID, err := t.Find(target)
	if err != nil {
		return err
	}
	_, err = t.insertBeside(targetID, Node{Tag: tag})
	return err
}

// InsertAdmixture attaches a new population leaf as a two-parent admixture
// between the branches leading to the two targets. One merge label is
// synthesized and a pair of ingress nodes carrying it is inserted, the left
// one beside target1 and the right one beside target2. The new leaf attaches
// under the ingress node belonging to the lexicographically smaller original
// target tag, which keeps canonical hashing independent of argument order.
//
// Returns ErrSameTarget when the targets share a tag.
func (t *Topology) InsertAdmixture(target1, target2 Ref, tag string) error {
	if target1.Tag == target2.Tag {
		return ErrSameTarget
	}
	id1, err := t.Find(target1)
	if err != nil {
		return err
	}

	merge := t.NewLabel(true)
	in1, err := t.insertBeside(id1, Node{Tag: merge, Internal: true, Admix: true, Side: SideLeft})
	if err != nil {
		return err
	}

	// The first insertion may have restructured branches, so resolve the
	// second target afterwards.
	id2, err := t.Find(target2)
	if err != nil {
		return err
	}
	in2, err := t.insertBeside(id2, Node{Tag: merge, Internal: true, Admix: true, Side: SideRight})
	if err != nil {
		return err
	}

	chosen := in1
	if target2.Tag < target1.Tag {
		chosen = in2
	}
	_, err = t.add(chosen, Node{Tag: tag})
	return err
}

// insertBeside places n on the branch leading to the target. When the
// target's parent has more than one child the branch is split with a fresh
// internal node that adopts the target, and n attaches beside it; otherwise
// n attaches directly under the parent.
func (t *Topology) insertBeside(target NodeID, n Node) (NodeID, error) {
	parent := t.nodes[target].Parent
	if parent == NoNode {
		return NoNode, ErrRootTarget
	}

	if len(t.nodes[parent].Children) > 1 {
		label := t.NewLabel(false)
		mid, err := t.add(parent, Node{Tag: label, Internal: true})
		if err != nil {
			return NoNode, err
		}
		t.move(target, mid)
		parent = mid
	}

	return t.add(parent, n)
}

// move reparents a node, preserving child-list order under the new parent.
func (t *Topology) move(id, newParent NodeID) {
	old := t.nodes[id].Parent
	children := t.nodes[old].Children
	for i, c := range children {
		if c == id {
			t.nodes[old].Children = append(children[:i], children[i+1:]...)
			break
		}
	}
	t.nodes[id].Parent = newParent
	t.nodes[newParent].Children = append(t.nodes[newParent].Children, id)
}
