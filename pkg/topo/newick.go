package topo

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ErrMalformedNewick is returned by [ParseNewick] for strings that do not
// parse as a newick tree or that violate topology invariants (for example a
// tag occurring more than twice).
var ErrMalformedNewick = errors.New("malformed newick string")

// internalLabelRegex matches generated internal labels, which are suppressed
// from the canonical rendering. Admixture merge labels stay visible because
// they carry structural meaning.
var internalLabelRegex = regexp.MustCompile(`^n[0-9]+$`)

// Newick renders the topology in canonical newick form: a leaf renders as its
// tag, an internal node as "(c1,c2,...)label" with children sorted by the
// pair (child tag, child rendering). The sort makes the string independent of
// insertion history, so structurally identical topologies built in different
// orders render identically. Generated internal labels and the root label are
// suppressed from the suffix.
//
// The returned string is the unique key hashed for deduplication.
func (t *Topology) Newick() string {
	return t.render(t.Root())
}

func (t *Topology) render(id NodeID) string {
	n := &t.nodes[id]
	if len(n.Children) == 0 {
		return n.Tag
	}

	type rendered struct {
		tag  string
		form string
	}
	kids := make([]rendered, len(n.Children))
	for i, c := range n.Children {
		kids[i] = rendered{tag: t.nodes[c].Tag, form: t.render(c)}
	}
	slices.SortFunc(kids, func(a, b rendered) int {
		if c := strings.Compare(a.tag, b.tag); c != 0 {
			return c
		}
		return strings.Compare(a.form, b.form)
	})

	var sb strings.Builder
	sb.WriteByte('(')
	for i, k := range kids {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k.form)
	}
	sb.WriteByte(')')
	if n.Tag != t.RootTag() && !internalLabelRegex.MatchString(n.Tag) {
		sb.WriteString(n.Tag)
	}
	return sb.String()
}

// Hash returns the 7-character content key for a canonical string, used to
// name cached artifacts and deduplicate the tested-graph set. Truncation
// makes collisions a theoretical possibility; at the scale of this search
// (tens of thousands of topologies) they are not handled.
func Hash(text string) string {
	return HashN(text, 7)
}

// HashN returns the first length hex characters of the SHA-1 digest of text.
// A non-positive or oversized length returns the full digest.
func HashN(text string, length int) string {
	sum := sha1.Sum([]byte(text))
	digest := hex.EncodeToString(sum[:])
	if length <= 0 || length > len(digest) {
		return digest
	}
	return digest[:length]
}

// ParseNewick parses a newick string into a topology. It accepts the
// canonical form produced by [Topology.Newick] and tolerates zero-length
// branch annotations (":0.00000") and a trailing semicolon, which appear in
// newick emitted by phylogenetics tools.
//
// Unlabeled internal nodes receive sequential generated labels. A tag that
// occurs exactly twice is reconstructed as an admixture ingress pair, sides
// assigned in document order.
func ParseNewick(s string) (*Topology, error) {
	p := &newickParser{s: s}
	p.skipSpace()
	ast, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	p.skipBranchLength()
	if p.pos < len(p.s) && p.s[p.pos] == ';' {
		p.pos++
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, fmt.Errorf("trailing input at offset %d: %w", p.pos, ErrMalformedNewick)
	}

	counts := make(map[string]int)
	countTags(ast, counts)
	for tag, n := range counts {
		if tag != "" && n > 2 {
			return nil, fmt.Errorf("tag %q occurs %d times: %w", tag, n, ErrMalformedNewick)
		}
	}

	rootTag := ast.label
	if rootTag == "" {
		rootTag = DefaultRootTag
	}
	t := New(rootTag)
	sides := make(map[string]Side)
	for _, child := range ast.children {
		if err := buildNode(t, t.Root(), child, counts, sides); err != nil {
			return nil, err
		}
	}
	if len(ast.children) == 0 && ast.label != "" {
		// A bare label parses as a single leaf under a default root.
		t = New(DefaultRootTag)
		if _, err := t.AddLeaf(t.Root(), ast.label); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// newickNode is the transient parse tree built by newickParser.
type newickNode struct {
	label    string
	children []*newickNode
}

func countTags(n *newickNode, counts map[string]int) {
	if n.label != "" {
		counts[n.label]++
	}
	for _, c := range n.children {
		countTags(c, counts)
	}
}

func buildNode(t *Topology, parent NodeID, n *newickNode, counts map[string]int, sides map[string]Side) error {
	node := Node{Tag: n.label}
	if len(n.children) > 0 {
		node.Internal = true
	}
	if node.Tag == "" {
		if len(n.children) == 0 {
			return fmt.Errorf("leaf without a label: %w", ErrMalformedNewick)
		}
		node.Tag = t.NewLabel(false)
	} else if counts[node.Tag] == 2 {
		// Shared tags are admixture ingress pairs: left first in document order.
		node.Internal = true
		node.Admix = true
		if sides[node.Tag] == SideNone {
			node.Side = SideLeft
			sides[node.Tag] = SideLeft
		} else {
			node.Side = SideRight
		}
	}

	id, err := t.add(parent, node)
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrMalformedNewick)
	}
	for _, child := range n.children {
		if err := buildNode(t, id, child, counts, sides); err != nil {
			return err
		}
	}
	return nil
}

// newickParser is a recursive-descent parser over the input string.
type newickParser struct {
	s   string
	pos int
}

func (p *newickParser) parseNode() (*newickNode, error) {
	if p.pos >= len(p.s) {
		return nil, fmt.Errorf("unexpected end of input: %w", ErrMalformedNewick)
	}

	n := &newickNode{}
	if p.s[p.pos] == '(' {
		p.pos++
		for {
			p.skipSpace()
			child, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, child)
			p.skipSpace()
			if p.pos >= len(p.s) {
				return nil, fmt.Errorf("unterminated group: %w", ErrMalformedNewick)
			}
			if p.s[p.pos] == ',' {
				p.pos++
				continue
			}
			if p.s[p.pos] == ')' {
				p.pos++
				break
			}
			return nil, fmt.Errorf("unexpected %q at offset %d: %w", p.s[p.pos], p.pos, ErrMalformedNewick)
		}
	}

	n.label = p.readLabel()
	p.skipBranchLength()
	if len(n.children) == 0 && n.label == "" {
		return nil, fmt.Errorf("empty node at offset %d: %w", p.pos, ErrMalformedNewick)
	}
	return n, nil
}

func (p *newickParser) readLabel() string {
	start := p.pos
	for p.pos < len(p.s) && isLabelByte(p.s[p.pos]) {
		p.pos++
	}
	return p.s[start:p.pos]
}

func isLabelByte(c byte) bool {
	switch c {
	case '(', ')', ',', ':', ';', ' ', '\t', '\n', '\r':
		return false
	}
	return true
}

// skipBranchLength consumes a ":<number>" branch annotation if present.
func (p *newickParser) skipBranchLength() {
	if p.pos >= len(p.s) || p.s[p.pos] != ':' {
		return
	}
	p.pos++
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		break
	}
}

func (p *newickParser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t' || p.s[p.pos] == '\n' || p.s[p.pos] == '\r') {
		p.pos++
	}
}
