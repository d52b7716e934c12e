// Package pipeline describes texture generators as trees of image nodes and
// renders them.
//
// # Nodes
//
// A Node is one of a closed set of types, each carrying its own immutable
// parameters: leaves that read a texture or lay out colors, geometric and
// mask operations, compositing, animation splitting, and the two palette
// operations, PaletteCombined and ForegroundTransfer. Nodes are read from
// and written to JSON with a "type" tag:
//
//	{"type": "foreground_transfer",
//	 "background": {"type": "texture", "path": "minecraft:block/stone"},
//	 "full": {"type": "texture", "path": "minecraft:block/iron_ore"},
//	 "new_background": {"type": "texture", "path": "minecraft:block/deepslate"}}
//
// # Evaluation
//
// An Evaluator renders nodes. Every node with a stable cache key is
// memoized per scope, so shared subtrees render once per generation cycle,
// and ForegroundTransfer additionally memoizes its extraction so transfers
// of one foreground onto many backgrounds extract it once.
//
// A node that cannot produce an image logs why, naming itself, and fails
// with ErrNoImage. Composite nodes fail the same way when a child does;
// nothing panics and one bad output never stops the others.
//
// # Generators
//
// A Generator maps output locations to nodes, loaded from definition files
// of the form {"outputs": {"namespace:path": node}}, and renders them to PNG,
// optionally through a persistent Store.
package pipeline
