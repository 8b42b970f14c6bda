// Package render turns admixture graph topologies into diagrams.
//
// # Overview
//
// Passing graphs are drawn as directed diagrams: populations appear as
// labeled boxes, synthesized split points as dots, and admixture merges as
// a pair of dashed edges carrying the 50% mixing weights. The DOT source is
// either generated from the topology with [ToDOT] or read from the artifact
// the external qpGraph binary writes beside its log, and encoded via the
// embedded Graphviz engine.
//
// # Usage
//
// Create a Renderer and hand it to the search as its Diagrammer:
//
//	renderer, err := render.New(render.Options{
//	    Prefix: "out/zebra",
//	    Format: render.FormatSVG,
//	})
//	if err != nil {
//	    return err
//	}
//	driver, err := search.New(search.Options{
//	    Diagrammer: renderer,
//	    // ...
//	})
//
// Diagram file names embed the graph's shape so a directory listing reads
// as a result table: <prefix>-n<leaves>-o<outliers>-a<admixtures>-<hash>.<ext>.
package render
