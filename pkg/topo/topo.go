package topo

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrEmptyTag is returned by [Topology.AddLeaf] and the insertion methods
	// when the new node's tag is empty. All nodes must have non-empty tags.
	ErrEmptyTag = errors.New("node tag must not be empty")

	// ErrLabelCollision is returned when a tag is already present in the
	// topology. Generated labels must never collide; a collision indicates a
	// programming defect or an input population named like a generated label.
	ErrLabelCollision = errors.New("label already present in topology")

	// ErrNodeNotFound is returned by [Topology.Find] and the insertion methods
	// when no node matches the given reference.
	ErrNodeNotFound = errors.New("no node matches the given reference")

	// ErrAmbiguousRef is returned by [Topology.Find] when a tag matches both
	// ingress nodes of an admixture merge and the reference carries no side.
	ErrAmbiguousRef = errors.New("tag matches both admixture ingress nodes; side required")

	// ErrRootTarget is returned by the insertion methods when the target is
	// the root node. The root and the outgroup are never insertion targets.
	ErrRootTarget = errors.New("cannot insert beside the root node")

	// ErrSameTarget is returned by [Topology.InsertAdmixture] when both
	// targets carry the same tag. Admixture requires two distinct lineages.
	ErrSameTarget = errors.New("admixture targets must have distinct tags")
)

// DefaultRootTag is the label of the synthetic root node.
const DefaultRootTag = "R"

// Side distinguishes the two ingress nodes feeding an admixture merge.
// The two nodes share one merge tag; Side is the only attribute telling
// them apart.
type Side uint8

const (
	// SideNone marks ordinary nodes that are not admixture ingress nodes.
	SideNone Side = iota
	// SideLeft marks the ingress node inserted under the first target.
	SideLeft
	// SideRight marks the ingress node inserted under the second target.
	SideRight
)

// String returns "left", "right" or "" for SideNone.
func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return ""
	}
}

// NodeID addresses a node within a topology's arena. IDs are stable for the
// lifetime of a topology and survive [Topology.Clone] (clones use the same
// IDs for the same nodes).
type NodeID int

// NoNode is the null NodeID, used as the root's parent.
const NoNode NodeID = -1

// Node is a single vertex in the topology arena.
//
// The zero value is not usable directly; nodes are created through
// [Topology.AddLeaf] and the insertion methods.
type Node struct {
	Tag      string   // Label, unique except for admixture ingress pairs
	Parent   NodeID   // NoNode for the root
	Children []NodeID // Document order (insertion order)
	Internal bool     // Synthesized internal node (n<k>) or admixture ingress
	Admix    bool     // Admixture ingress node
	Side     Side     // Meaningful only when Admix is set
}

// Ref addresses a node by tag, with an optional side to disambiguate the two
// ingress nodes of an admixture merge (which deliberately share a tag).
type Ref struct {
	Tag  string
	Side Side
}

// String renders the reference for logs and error messages.
func (r Ref) String() string {
	if r.Side == SideNone {
		return r.Tag
	}
	return r.Tag + "/" + r.Side.String()
}

// Topology is a rooted, ordered, labeled tree stored as an arena of nodes.
// Index 0 is always the synthetic root.
//
// The zero value is not usable - use [New] to create a valid instance.
// Topology is not safe for concurrent use; clone per goroutine instead.
type Topology struct {
	nodes []Node
}

// New creates a topology holding only the root node. An empty rootTag
// defaults to [DefaultRootTag].
func New(rootTag string) *Topology {
	if rootTag == "" {
		rootTag = DefaultRootTag
	}
	return &Topology{
		nodes: []Node{{Tag: rootTag, Parent: NoNode}},
	}
}

// Root returns the root's NodeID, which is always 0.
func (t *Topology) Root() NodeID { return 0 }

// RootTag returns the root node's label.
func (t *Topology) RootTag() string { return t.nodes[0].Tag }

// Node returns a copy of the node with the given ID.
func (t *Topology) Node(id NodeID) Node { return t.nodes[id] }

// NodeCount returns the total number of nodes including the root.
func (t *Topology) NodeCount() int { return len(t.nodes) }

// LeafCount returns the number of population leaves: nodes below the root
// that are not synthesized internal or ingress nodes.
func (t *Topology) LeafCount() int {
	count := 0
	for id := 1; id < len(t.nodes); id++ {
		if !t.nodes[id].Internal {
			count++
		}
	}
	return count
}

// AdmixCount returns the number of admixture merges, counting each ingress
// pair once.
func (t *Topology) AdmixCount() int {
	count := 0
	for id := range t.nodes {
		if t.nodes[id].Admix {
			count++
		}
	}
	return count / 2
}

// Clone returns a structurally independent deep copy. The clone shares no
// mutable state with the receiver, so sibling candidates built from the same
// parent can be evaluated concurrently.
func (t *Topology) Clone() *Topology {
	nodes := make([]Node, len(t.nodes))
	copy(nodes, t.nodes)
	for i := range nodes {
		nodes[i].Children = slices.Clone(nodes[i].Children)
	}
	return &Topology{nodes: nodes}
}

// NewLabel returns the next sequential generated label: a<k+1> where k is the
// current number of admixture merges if admix is set, otherwise n<k+1> where
// k is the current number of non-admixture internal nodes.
func (t *Topology) NewLabel(admix bool) string {
	count := 0
	for id := range t.nodes {
		switch {
		case admix && t.nodes[id].Admix:
			count++
		case !admix && t.nodes[id].Internal && !t.nodes[id].Admix:
			count++
		}
	}
	if admix {
		return fmt.Sprintf("a%d", count/2+1)
	}
	return fmt.Sprintf("n%d", count+1)
}

// AddLeaf attaches a new population leaf under the given parent.
// Returns ErrEmptyTag or ErrLabelCollision on invalid tags.
func (t *Topology) AddLeaf(parent NodeID, tag string) (NodeID, error) {
	return t.add(parent, Node{Tag: tag})
}

// add appends a node under parent after checking the collision invariant:
// a tag may appear at most twice, and only as the two sides of one
// admixture merge.
func (t *Topology) add(parent NodeID, n Node) (NodeID, error) {
	if n.Tag == "" {
		return NoNode, ErrEmptyTag
	}
	if parent < 0 || int(parent) >= len(t.nodes) {
		return NoNode, fmt.Errorf("parent %d: %w", parent, ErrNodeNotFound)
	}
	for id := range t.nodes {
		if t.nodes[id].Tag != n.Tag {
			continue
		}
		// The paired ingress node shares its merge tag on the other side.
		if n.Admix && t.nodes[id].Admix && t.nodes[id].Side != n.Side {
			continue
		}
		return NoNode, fmt.Errorf("%q: %w", n.Tag, ErrLabelCollision)
	}

	n.Parent = parent
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, n)
	t.nodes[parent].Children = append(t.nodes[parent].Children, id)
	return id, nil
}

// Find resolves a reference to a NodeID. Returns ErrNodeNotFound if no node
// matches, or ErrAmbiguousRef if the tag belongs to an admixture ingress pair
// and the reference carries no side.
func (t *Topology) Find(ref Ref) (NodeID, error) {
	found := NoNode
	for _, id := range t.walkOrder() {
		if t.nodes[id].Tag != ref.Tag {
			continue
		}
		if ref.Side != SideNone && t.nodes[id].Side != ref.Side {
			continue
		}
		if found != NoNode {
			return NoNode, fmt.Errorf("%q: %w", ref.Tag, ErrAmbiguousRef)
		}
		found = NodeID(id)
	}
	if found == NoNode {
		return NoNode, fmt.Errorf("%s: %w", ref, ErrNodeNotFound)
	}
	return found, nil
}

// RefOf returns the reference that uniquely addresses the given node.
func (t *Topology) RefOf(id NodeID) Ref {
	return Ref{Tag: t.nodes[id].Tag, Side: t.nodes[id].Side}
}

// Targets returns references for every insertion target: all nodes in
// document order except the root and the outgroup.
func (t *Topology) Targets(outgroup string) []Ref {
	var refs []Ref
	for _, id := range t.walkOrder() {
		if id == 0 || t.nodes[id].Tag == outgroup {
			continue
		}
		refs = append(refs, t.RefOf(NodeID(id)))
	}
	return refs
}

// walkOrder returns all node IDs in document order (pre-order traversal
// following each node's child list).
func (t *Topology) walkOrder() []int {
	order := make([]int, 0, len(t.nodes))
	var visit func(id NodeID)
	visit = func(id NodeID) {
		order = append(order, int(id))
		for _, c := range t.nodes[id].Children {
			visit(c)
		}
	}
	visit(t.Root())
	return order
}

// parentsOf returns the nodes that have a child with the given tag, in
// document order. An admixture merge tag yields two parents.
func (t *Topology) parentsOf(tag string) []NodeID {
	var parents []NodeID
	for _, id := range t.walkOrder() {
		for _, c := range t.nodes[id].Children {
			if t.nodes[c].Tag == tag {
				parents = append(parents, NodeID(id))
				break
			}
		}
	}
	return parents
}
