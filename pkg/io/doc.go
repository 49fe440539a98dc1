// Package io provides XML import and export for workspaces, block trees,
// and toolboxes.
//
// # Overview
//
// This package implements the wire format shared with the web Blockly
// ecosystem. It covers three document kinds:
//
//   - Workspace documents: every top-level block tree of a workspace
//   - Single-tree documents: one block tree, used for snapshots
//   - Toolbox documents: categorized palettes of template blocks
//
// # XML Format
//
// A workspace document is an <xml> element holding <block> children:
//
//	<xml xmlns="https://developers.google.com/blockly/xml">
//	  <block type="controls_if" id="uuid" x="10" y="20" inline="false">
//	    <mutation elseif="1" else="1"></mutation>
//	    <field name="NAME">value</field>
//	    <value name="IF">
//	      <shadow type="logic_boolean" id="..."></shadow>
//	      <block type="logic_compare" id="...">...</block>
//	    </value>
//	    <statement name="DO">...</statement>
//	    <next>...</next>
//	  </block>
//	</xml>
//
// A <value>, <statement>, or <next> slot may carry a <shadow> child and a
// <block> child at the same time: the shadow is the slot's fallback content
// and the block is what is actually connected. Whether a nested element is
// written as <block> or <shadow> follows the child block's own shadow flag,
// so the shadow subtrees of a shadow block serialize as <shadow> even though
// they are ordinary target connections in the model.
//
// The <mutation> element is decoded before any field or child so that
// mutator-created inputs (else-if branches, procedure parameters) exist by
// the time the document references them.
//
// # Import
//
// Use [ImportWorkspace] to read a workspace from a file path, or
// [ReadWorkspace] to read from any io.Reader. [ReadBlocks] builds the trees
// without adding them to a workspace, and [UnmarshalBlockTree] decodes a
// single-tree document.
//
// All importers need a [block.BlockFactory] holding the definitions the
// document references. Block UUIDs present in the document are preserved;
// omitted ids get fresh UUIDs.
//
// # Export
//
// Use [ExportWorkspace] to write a workspace to a file, or [WriteWorkspace]
// and [MarshalWorkspace] for io.Writer and byte output. [MarshalBlockTree]
// serializes a single tree. Trees are written in block-UUID order, so equal
// workspaces produce identical bytes and exports are diffable.
//
// # Toolbox
//
// [ReadToolbox] and [ImportToolbox] decode toolbox documents. A toolbox
// either lists <category> elements or lists loose <block> elements that get
// grouped into one synthesized default category; mixing both forms is
// malformed. Categories cannot nest. Each parsed [Category] keeps its block
// trees in a dedicated read-only workspace.
//
// # Concurrency
//
// All functions in this package are safe to call concurrently with other
// readers of the same workspace, but not with concurrent modifications.
// Importers return independent object graphs that can be used freely after
// the call returns.
package io
