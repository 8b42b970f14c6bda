package topo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Snapshot - Topology Serialization
// =============================================================================

// Snapshot is the JSON serialization format for topologies. It is written as
// the per-hash artifact beside oracle runs and embedded in run-history
// records, and is designed for round-trip fidelity: Snapshot → topology →
// Snapshot produces identical results.
type Snapshot struct {
	Root  string         `json:"root" bson:"root"`
	Nodes []SnapshotNode `json:"nodes" bson:"nodes"`
}

// SnapshotNode is one arena entry in a serialized topology. Parent indices
// refer to positions in the Nodes slice; the root is implicit and has no
// entry, so index -1 means the root.
type SnapshotNode struct {
	Tag      string `json:"tag" bson:"tag"`
	Parent   int    `json:"parent" bson:"parent"`
	Internal bool   `json:"internal,omitempty" bson:"internal,omitempty"`
	Admix    bool   `json:"admix,omitempty" bson:"admix,omitempty"`
	Side     string `json:"side,omitempty" bson:"side,omitempty"`
}

// Snapshot returns the serialization form of the topology.
func (t *Topology) Snapshot() Snapshot {
	s := Snapshot{
		Root:  t.RootTag(),
		Nodes: make([]SnapshotNode, 0, len(t.nodes)-1),
	}
	for id := 1; id < len(t.nodes); id++ {
		n := &t.nodes[id]
		s.Nodes = append(s.Nodes, SnapshotNode{
			Tag:      n.Tag,
			Parent:   int(n.Parent) - 1,
			Internal: n.Internal,
			Admix:    n.Admix,
			Side:     n.Side.String(),
		})
	}
	return s
}

// FromSnapshot reconstructs a topology from its serialization form.
// Returns an error when parent indices are out of range, when parent links do
// not form a tree rooted at the root, or when the node set violates the label
// collision invariant. Note that a parent index may exceed its child's own
// index: branch splitting reparents existing nodes under later-created ones.
func FromSnapshot(s Snapshot) (*Topology, error) {
	t := New(s.Root)
	for i, sn := range s.Nodes {
		if sn.Parent < -1 || sn.Parent >= len(s.Nodes) || sn.Parent == i {
			return nil, fmt.Errorf("node %d: parent index %d out of range", i, sn.Parent)
		}
		if sn.Tag == "" {
			return nil, fmt.Errorf("node %d: %w", i, ErrEmptyTag)
		}
		side := SideNone
		switch sn.Side {
		case "left":
			side = SideLeft
		case "right":
			side = SideRight
		case "":
		default:
			return nil, fmt.Errorf("node %d: unknown side %q", i, sn.Side)
		}
		t.nodes = append(t.nodes, Node{
			Tag:      sn.Tag,
			Parent:   NodeID(sn.Parent + 1),
			Internal: sn.Internal,
			Admix:    sn.Admix,
			Side:     side,
		})
	}

	// Each child list ends up ascending by node ID, matching insertion order.
	for id := 1; id < len(t.nodes); id++ {
		p := t.nodes[id].Parent
		t.nodes[p].Children = append(t.nodes[p].Children, NodeID(id))
	}

	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// validate checks reachability from the root and the label uniqueness
// invariant (a tag may appear at most twice, only as an ingress pair).
func (t *Topology) validate() error {
	if len(t.walkOrder()) != len(t.nodes) {
		return fmt.Errorf("parent links do not form a tree rooted at %s", t.RootTag())
	}

	byTag := make(map[string][]NodeID, len(t.nodes))
	for id := range t.nodes {
		tag := t.nodes[id].Tag
		byTag[tag] = append(byTag[tag], NodeID(id))
	}
	for tag, ids := range byTag {
		switch {
		case len(ids) == 1:
		case len(ids) == 2:
			a, b := &t.nodes[ids[0]], &t.nodes[ids[1]]
			if !a.Admix || !b.Admix || a.Side == b.Side {
				return fmt.Errorf("%q: %w", tag, ErrLabelCollision)
			}
		default:
			return fmt.Errorf("%q occurs %d times: %w", tag, len(ids), ErrLabelCollision)
		}
	}
	return nil
}

// MarshalSnapshot converts a topology to indented JSON bytes.
func MarshalSnapshot(t *Topology) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeSnapshotTo(t, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalSnapshot deserializes JSON bytes to a topology.
func UnmarshalSnapshot(data []byte) (*Topology, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return FromSnapshot(s)
}

// WriteSnapshotFile writes a topology to a JSON file.
// The file is created with 0644 permissions.
func WriteSnapshotFile(t *Topology, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeSnapshotTo(t, f)
}

// ReadSnapshotFile reads a JSON file and returns the decoded topology.
func ReadSnapshotFile(path string) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	var s Snapshot
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return FromSnapshot(s)
}

func writeSnapshotTo(t *Topology, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t.Snapshot()); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
