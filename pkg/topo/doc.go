// Package topo provides the admixture-graph topology model for qpermute.
//
// A topology is a rooted, ordered, labeled tree. Most nodes have exactly one
// parent; admixture nodes conceptually have two parent edges carrying fixed
// 50/50 mixture weights, modeled as a pair of ingress nodes that share one
// merge label and are told apart by their Side.
//
// # Architecture
//
// The package sits at the center of the search engine:
//
//   - [Topology], [Node]: arena-backed tree representation
//   - [Topology.InsertSibling], [Topology.InsertAdmixture]: the two insertion
//     moves the search engine permutes over
//   - [Topology.Newick], [Hash]: canonical rendering and content keys used to
//     deduplicate topologies across insertion orders
//   - [Topology.QPGraph]: the tab-separated exchange format fed to the oracle
//   - [Snapshot]: JSON serialization for artifacts and run history
//
// # Canonical Form
//
// Two differently-constructed insertion sequences can produce the identical
// topology. [Topology.Newick] renders a deterministic sorted form so that
// such duplicates collapse to the same string and the same [Hash]:
//
//	t := topo.New("R")
//	...
//	key := topo.Hash(t.Newick())
//
// # Ownership
//
// Topologies are mutable and not safe for concurrent use. The search engine
// clones before every insertion, so sibling candidates never share structure:
//
//	candidate := t.Clone()
//	if err := candidate.InsertSibling(target, "Pop7"); err != nil { ... }
package topo
