// Package builders implements the node visitors that lower graph nodes onto
// accelerator handles.
//
// Each visitor handles one or more operator targets (e.g. "aten.arange.start_step").
// Visitors whose result is fully known at compile time fold it into a static
// tensor; the others emit an OpWrapper for the accelerator. The Registry maps
// targets to visitors and is built explicitly by NewRegistry.
package builders
