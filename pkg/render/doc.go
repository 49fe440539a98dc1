// Package render turns workspaces into visual outputs.
//
// # Overview
//
// [ToDOT] converts a workspace to Graphviz DOT format: one node per block,
// one cluster per top-level tree, solid edges for real bonds and dashed
// edges for shadow bonds. [RenderSVG] and [RenderPNG] rasterize a DOT
// string with Graphviz.
//
//	dot := render.ToDOT(ws, render.Options{Detailed: true})
//	svg, err := render.RenderSVG(dot)
//	png, err := render.RenderPNG(dot)
//
// The node-per-block view is a debugging aid: it shows bond structure and
// shadow coverage, not the geometric block layout the layout engine
// computes.
package render
