// Package server implements the MCP (Model Context Protocol) server for the
// annotation engine.
//
// This package provides a JSON-RPC 2.0 server that exposes annotation
// workspaces through the MCP protocol: an MCP client opens a workspace for an
// image, drives the draw session with pointer events in canvas pixels, edits
// and selects shapes, and reads back the canonical shape list or a rendered
// overlay.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Stateless helpers:
//   - annotation_normalize: Convert any stored layout into canonical shapes
//   - canvas_fit: Fit an image into a container
//
// Workspaces:
//   - workspace_open, workspace_close, workspace_resize, workspace_export
//
// Drawing:
//   - draw_select_label, draw_deselect_label, draw_set_tool, draw_switch_task
//   - draw_pointer, draw_complete, draw_reset, draw_attach_mask
//
// Shape editing:
//   - shape_get, shape_update, shape_move_vertex, shape_remove, shape_crop
//
// Overlay:
//   - overlay_select, overlay_select_at, overlay_plan, overlay_render
//
// Every tool's arguments are validated against its inputSchema before the
// handler runs.
//
// # Error Handling
//
// Errors are returned as JSON-RPC error responses with:
//   - code: -32602 (arguments rejected by the schema), -32000 (tool
//     execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// No tool error stops the request loop; a tool that panics is reported as a
// -32000 error.
//
// # Usage
//
//	srv, err := server.New(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx, os.Stdin, os.Stdout)
package server
