package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/ironsheep/annotation-mcp/internal/draw"
	"github.com/ironsheep/annotation-mcp/internal/legacy"
	"github.com/ironsheep/annotation-mcp/internal/overlay"
	"github.com/ironsheep/annotation-mcp/internal/shape"
	"github.com/ironsheep/annotation-mcp/internal/transform"
	"github.com/ironsheep/annotation-mcp/internal/workspace"
)

// errInvalidArguments marks arguments rejected by a tool's input schema.
var errInvalidArguments = errors.New("invalid arguments")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "workspace_open", "draw_pointer").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Arguments that fail the tool's input schema return code -32602; tool
// execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}
	if len(params.Arguments) == 0 || string(params.Arguments) == "null" {
		params.Arguments = json.RawMessage("{}")
	}

	result, err := s.safeExecuteTool(ctx, params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, errInvalidArguments) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// safeExecuteTool runs executeTool and turns a panic into an error so a
// single bad call cannot end the request loop.
func (s *Server) safeExecuteTool(ctx context.Context, name string, args json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tool panicked", "tool", name, "panic", r, "stack", string(debug.Stack()))
			result, err = nil, fmt.Errorf("%s: internal error: %v", name, r)
		}
	}()
	return s.executeTool(ctx, name, args)
}

// executeTool validates the arguments against the tool's schema and
// dispatches to the handler.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	schema, ok := s.schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	var doc interface{}
	if err := json.Unmarshal(args, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidArguments, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidArguments, err)
	}

	switch name {
	// Stateless helpers
	case "annotation_normalize":
		return s.handleAnnotationNormalize(args)
	case "canvas_fit":
		return s.handleCanvasFit(args)

	// Workspaces
	case "workspace_open":
		return s.handleWorkspaceOpen(ctx, args)
	case "workspace_close":
		return s.handleWorkspaceClose(args)
	case "workspace_resize":
		return s.handleWorkspaceResize(args)
	case "workspace_export":
		return s.handleWorkspaceExport(args)

	// Drawing
	case "draw_select_label":
		return s.handleDrawSelectLabel(args)
	case "draw_deselect_label":
		return s.withWorkspace(args, func(ws *workspace.Workspace) (interface{}, error) {
			return sessionView(ws, ws.Session.DeselectLabel()), nil
		})
	case "draw_set_tool":
		return s.handleDrawSetTool(args)
	case "draw_switch_task":
		return s.handleDrawSwitchTask(args)
	case "draw_pointer":
		return s.handleDrawPointer(args)
	case "draw_complete":
		return s.withWorkspace(args, func(ws *workspace.Workspace) (interface{}, error) {
			return sessionView(ws, ws.Session.Complete()), nil
		})
	case "draw_reset":
		return s.withWorkspace(args, func(ws *workspace.Workspace) (interface{}, error) {
			return sessionView(ws, ws.Session.Reset()), nil
		})
	case "draw_attach_mask":
		return s.handleDrawAttachMask(args)

	// Shape editing
	case "shape_get":
		return s.handleShapeGet(args)
	case "shape_update":
		return s.handleShapeUpdate(args)
	case "shape_move_vertex":
		return s.handleShapeMoveVertex(args)
	case "shape_remove":
		return s.handleShapeRemove(args)
	case "shape_crop":
		return s.handleShapeCrop(args)

	// Overlay
	case "overlay_select":
		return s.handleOverlaySelect(args)
	case "overlay_select_at":
		return s.handleOverlaySelectAt(args)
	case "overlay_plan":
		return s.handleOverlayPlan(args)
	case "overlay_render":
		return s.withWorkspace(args, func(ws *workspace.Workspace) (interface{}, error) {
			renderer, _, _ := s.current()
			return ws.Render(renderer)
		})

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	resp := &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
		},
	}
	if data != "" {
		resp.Error.Data = data
	}
	return resp
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// workspaceArgs is embedded by every workspace-scoped tool.
type workspaceArgs struct {
	WorkspaceID string `json:"workspace_id"`
}

// containerArgs are the optional container overrides.
type containerArgs struct {
	ContainerWidth *float64 `json:"container_width"`
	MaxHeight      *float64 `json:"max_height"`
	Padding        *float64 `json:"padding"`
}

// apply overlays the set fields on base.
func (c containerArgs) apply(base transform.Container) transform.Container {
	if c.ContainerWidth != nil {
		base.Width = *c.ContainerWidth
	}
	if c.MaxHeight != nil {
		base.MaxHeight = *c.MaxHeight
	}
	if c.Padding != nil {
		base.Padding = *c.Padding
	}
	return base
}

func (c containerArgs) set() bool {
	return c.ContainerWidth != nil || c.MaxHeight != nil || c.Padding != nil
}

// withWorkspace resolves the workspace named in args and runs fn on it.
func (s *Server) withWorkspace(args json.RawMessage, fn func(*workspace.Workspace) (interface{}, error)) (interface{}, error) {
	var p workspaceArgs
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	ws, err := s.registry.Get(p.WorkspaceID)
	if err != nil {
		return nil, err
	}
	return fn(ws)
}

// SessionResult reports the draw session after a call.
type SessionResult struct {
	WorkspaceID string       `json:"workspace_id"`
	State       string       `json:"state"`
	Label       string       `json:"label,omitempty"`
	Tool        shape.Kind   `json:"tool"`
	Committed   *shape.Shape `json:"committed,omitempty"`
	Discarded   bool         `json:"discarded"`
	Changed     bool         `json:"changed"`
	ShapeCount  int          `json:"shape_count"`
	Draft       *shape.Shape `json:"draft,omitempty"`
}

func sessionView(ws *workspace.Workspace, o draw.Outcome) *SessionResult {
	return &SessionResult{
		WorkspaceID: ws.ID,
		State:       o.State.String(),
		Label:       ws.Session.Label(),
		Tool:        ws.Session.Tool(),
		Committed:   o.Committed,
		Discarded:   o.Discarded,
		Changed:     o.Changed,
		ShapeCount:  len(ws.Session.Shapes()),
		Draft:       ws.DraftShape(),
	}
}

// SkippedEntry describes one payload entry that was dropped.
type SkippedEntry struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

func skippedEntries(r legacy.Report) []SkippedEntry {
	out := make([]SkippedEntry, 0, len(r.Skipped))
	for _, sk := range r.Skipped {
		out = append(out, SkippedEntry{Index: sk.Index, Reason: sk.Reason()})
	}
	return out
}

// === Stateless Handlers ===

// NormalizeResult is the canonical form of a payload.
type NormalizeResult struct {
	Format  legacy.Format  `json:"format"`
	Shapes  []shape.Shape  `json:"shapes"`
	Skipped []SkippedEntry `json:"skipped"`
}

func (s *Server) handleAnnotationNormalize(args json.RawMessage) (interface{}, error) {
	var p struct {
		Payload json.RawMessage `json:"payload"`
		Width   float64         `json:"width"`
		Height  float64         `json:"height"`
		Scale   string          `json:"scale"`
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	_, opts, _ := s.current()
	if p.Scale != "" {
		scale, err := transform.ParseScale(p.Scale)
		if err != nil {
			return nil, err
		}
		opts.Scale = scale
	}

	report := legacy.NormalizeReport(p.Payload, transform.Size{Width: p.Width, Height: p.Height}, opts)
	return &NormalizeResult{
		Format:  report.Format,
		Shapes:  report.Shapes,
		Skipped: skippedEntries(report),
	}, nil
}

func (s *Server) handleCanvasFit(args json.RawMessage) (interface{}, error) {
	var p struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
		containerArgs
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	c := p.containerArgs.apply(s.registry.Settings().Container)
	size, err := transform.Fit(transform.Size{Width: p.Width, Height: p.Height}, c)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"width":     size.Width,
		"height":    size.Height,
		"container": c,
	}, nil
}

// === Workspace Handlers ===

// WorkspaceResult describes an open workspace.
type WorkspaceResult struct {
	WorkspaceID string          `json:"workspace_id"`
	ImageURL    string          `json:"image_url,omitempty"`
	ImageState  string          `json:"image_state"`
	ImageError  string          `json:"image_error,omitempty"`
	Natural     transform.Size  `json:"natural"`
	Canvas      *transform.Size `json:"canvas,omitempty"`
	Format      legacy.Format   `json:"format"`
	ShapeCount  int             `json:"shape_count"`
	Skipped     []SkippedEntry  `json:"skipped"`
	State       string          `json:"state"`
}

func (s *Server) handleWorkspaceOpen(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var p struct {
		ImageURL string          `json:"image_url"`
		Width    float64         `json:"width"`
		Height   float64         `json:"height"`
		Payload  json.RawMessage `json:"payload"`
		containerArgs
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	req := workspace.OpenRequest{
		ImageURL: p.ImageURL,
		Natural:  transform.Size{Width: p.Width, Height: p.Height},
		Payload:  p.Payload,
	}
	if p.containerArgs.set() {
		c := p.containerArgs.apply(s.registry.Settings().Container)
		req.Container = &c
	}

	ws, err := s.registry.Open(ctx, req)
	if err != nil {
		return nil, err
	}

	res := &WorkspaceResult{
		WorkspaceID: ws.ID,
		ImageURL:    ws.ImageURL,
		ImageState:  ws.Viewport.State().String(),
		Natural:     ws.Viewport.Natural(),
		Format:      ws.Report.Format,
		ShapeCount:  len(ws.Session.Shapes()),
		Skipped:     skippedEntries(ws.Report),
		State:       ws.Session.State().String(),
	}
	if err := ws.Viewport.Err(); err != nil {
		res.ImageError = err.Error()
	}
	if canvas, err := ws.Canvas(); err == nil {
		res.Canvas = &canvas
	}
	return res, nil
}

func (s *Server) handleWorkspaceClose(args json.RawMessage) (interface{}, error) {
	var p workspaceArgs
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if err := s.registry.Close(p.WorkspaceID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"workspace_id": p.WorkspaceID, "closed": true}, nil
}

func (s *Server) handleWorkspaceResize(args json.RawMessage) (interface{}, error) {
	var p struct {
		workspaceArgs
		containerArgs
		ImageWidth  *float64 `json:"image_width"`
		ImageHeight *float64 `json:"image_height"`
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if (p.ImageWidth == nil) != (p.ImageHeight == nil) {
		return nil, fmt.Errorf("%w: image_width and image_height must be given together", errInvalidArguments)
	}
	ws, err := s.registry.Get(p.WorkspaceID)
	if err != nil {
		return nil, err
	}

	if p.ImageWidth != nil {
		if _, err := ws.SetNatural(transform.Size{Width: *p.ImageWidth, Height: *p.ImageHeight}); err != nil &&
			!errors.Is(err, transform.ErrNoRoom) {
			return nil, err
		}
	}
	canvas, err := ws.Resize(p.containerArgs.apply(ws.Viewport.Container()))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"workspace_id": ws.ID,
		"canvas":       canvas,
		"container":    ws.Viewport.Container(),
	}, nil
}

func (s *Server) handleWorkspaceExport(args json.RawMessage) (interface{}, error) {
	return s.withWorkspace(args, func(ws *workspace.Workspace) (interface{}, error) {
		raw, err := ws.Export()
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"workspace_id": ws.ID,
			"shapes":       json.RawMessage(raw),
		}, nil
	})
}

// === Drawing Handlers ===

func (s *Server) handleDrawSelectLabel(args json.RawMessage) (interface{}, error) {
	var p struct {
		workspaceArgs
		Label string `json:"label"`
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	ws, err := s.registry.Get(p.WorkspaceID)
	if err != nil {
		return nil, err
	}
	return sessionView(ws, ws.Session.SelectLabel(p.Label)), nil
}

func (s *Server) handleDrawSetTool(args json.RawMessage) (interface{}, error) {
	var p struct {
		workspaceArgs
		Tool string `json:"tool"`
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	ws, err := s.registry.Get(p.WorkspaceID)
	if err != nil {
		return nil, err
	}
	o, err := ws.Session.SetTool(shape.Kind(p.Tool))
	if err != nil {
		return nil, err
	}
	return sessionView(ws, o), nil
}

func (s *Server) handleDrawSwitchTask(args json.RawMessage) (interface{}, error) {
	var p struct {
		workspaceArgs
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	ws, err := s.registry.Get(p.WorkspaceID)
	if err != nil {
		return nil, err
	}

	_, opts, _ := s.current()
	o, report := ws.SwitchTask(p.Payload, opts)
	return map[string]interface{}{
		"session": sessionView(ws, o),
		"format":  report.Format,
		"skipped": skippedEntries(report),
	}, nil
}

func (s *Server) handleDrawPointer(args json.RawMessage) (interface{}, error) {
	var p struct {
		workspaceArgs
		Action string  `json:"action"`
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	ws, err := s.registry.Get(p.WorkspaceID)
	if err != nil {
		return nil, err
	}

	o, err := ws.Pointer(workspace.PointerAction(p.Action), transform.PixelPoint{X: p.X, Y: p.Y})
	if err != nil {
		return nil, err
	}
	return sessionView(ws, o), nil
}

func (s *Server) handleDrawAttachMask(args json.RawMessage) (interface{}, error) {
	var p struct {
		workspaceArgs
		RLE    string      `json:"rle"`
		Bounds *shape.Rect `json:"bounds"`
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	ws, err := s.registry.Get(p.WorkspaceID)
	if err != nil {
		return nil, err
	}

	o, err := ws.Session.AttachMask(p.RLE, p.Bounds)
	if err != nil {
		return nil, err
	}
	return sessionView(ws, o), nil
}

// === Shape Handlers ===

type shapeArgs struct {
	workspaceArgs
	ID string `json:"id"`
}

func (s *Server) handleShapeGet(args json.RawMessage) (interface{}, error) {
	var p shapeArgs
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	ws, err := s.registry.Get(p.WorkspaceID)
	if err != nil {
		return nil, err
	}

	if p.ID == "" {
		return map[string]interface{}{"shapes": ws.Session.Shapes()}, nil
	}
	sh, ok := ws.Session.Shapes().Get(p.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", shape.ErrNotFound, p.ID)
	}
	return sh, nil
}

func (s *Server) handleShapeUpdate(args json.RawMessage) (interface{}, error) {
	var p struct {
		shapeArgs
		Label      *string  `json:"label"`
		Text       *string  `json:"text"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	ws, err := s.registry.Get(p.WorkspaceID)
	if err != nil {
		return nil, err
	}

	o, err := ws.Session.Update(p.ID, shape.Patch{Label: p.Label, Text: p.Text, Confidence: p.Confidence})
	if err != nil {
		return nil, err
	}
	return s.shapeResult(ws, p.ID, o)
}

func (s *Server) handleShapeMoveVertex(args json.RawMessage) (interface{}, error) {
	var p struct {
		shapeArgs
		Index int     `json:"index"`
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	ws, err := s.registry.Get(p.WorkspaceID)
	if err != nil {
		return nil, err
	}

	o, err := ws.Session.MoveVertex(p.ID, p.Index, shape.Point{X: p.X, Y: p.Y})
	if err != nil {
		return nil, err
	}
	return s.shapeResult(ws, p.ID, o)
}

func (s *Server) shapeResult(ws *workspace.Workspace, id string, o draw.Outcome) (interface{}, error) {
	sh, _ := ws.Session.Shapes().Get(id)
	return map[string]interface{}{
		"session": sessionView(ws, o),
		"shape":   sh,
	}, nil
}

func (s *Server) handleShapeRemove(args json.RawMessage) (interface{}, error) {
	var p shapeArgs
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	ws, err := s.registry.Get(p.WorkspaceID)
	if err != nil {
		return nil, err
	}

	o, err := ws.Remove(p.ID)
	if err != nil {
		return nil, err
	}
	return sessionView(ws, o), nil
}

func (s *Server) handleShapeCrop(args json.RawMessage) (interface{}, error) {
	var p struct {
		shapeArgs
		Padding float64 `json:"padding"`
		Scale   float64 `json:"scale"`
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	ws, err := s.registry.Get(p.WorkspaceID)
	if err != nil {
		return nil, err
	}

	// Apply default scale
	if p.Scale == 0 {
		p.Scale = 1.0
	}
	return ws.Crop(p.ID, p.Padding, p.Scale)
}

// === Overlay Handlers ===

// SelectionResult reports the selection after a select call.
type SelectionResult struct {
	WorkspaceID string `json:"workspace_id"`
	Selected    string `json:"selected,omitempty"`
	Hit         bool   `json:"hit"`
}

func (s *Server) handleOverlaySelect(args json.RawMessage) (interface{}, error) {
	var p shapeArgs
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	ws, err := s.registry.Get(p.WorkspaceID)
	if err != nil {
		return nil, err
	}

	if p.ID == "" {
		ws.Selection.Clear()
		return &SelectionResult{WorkspaceID: ws.ID}, nil
	}
	if err := ws.Select(p.ID); err != nil {
		return nil, err
	}
	return &SelectionResult{WorkspaceID: ws.ID, Selected: p.ID, Hit: true}, nil
}

func (s *Server) handleOverlaySelectAt(args json.RawMessage) (interface{}, error) {
	var p struct {
		workspaceArgs
		X         float64  `json:"x"`
		Y         float64  `json:"y"`
		Tolerance *float64 `json:"tolerance"`
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	ws, err := s.registry.Get(p.WorkspaceID)
	if err != nil {
		return nil, err
	}

	_, _, tolerance := s.current()
	if p.Tolerance != nil {
		tolerance = *p.Tolerance
	}
	id, hit, err := ws.SelectAt(transform.PixelPoint{X: p.X, Y: p.Y}, tolerance)
	if err != nil {
		return nil, err
	}
	return &SelectionResult{WorkspaceID: ws.ID, Selected: id, Hit: hit}, nil
}

// PlanResult is the draw list of a workspace.
type PlanResult struct {
	WorkspaceID string              `json:"workspace_id"`
	Canvas      transform.Size      `json:"canvas"`
	Primitives  []overlay.Primitive `json:"primitives"`
}

func (s *Server) handleOverlayPlan(args json.RawMessage) (interface{}, error) {
	return s.withWorkspace(args, func(ws *workspace.Workspace) (interface{}, error) {
		renderer, _, _ := s.current()
		plan, canvas, err := ws.Plan(renderer)
		if err != nil {
			return nil, err
		}
		return &PlanResult{WorkspaceID: ws.ID, Canvas: canvas, Primitives: plan}, nil
	})
}
