package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"testing"
)

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	tmpFile, err := os.CreateTemp("", "handler-test-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer tmpFile.Close()

	if err := png.Encode(tmpFile, img); err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to encode image: %v", err)
	}

	return tmpFile.Name()
}

// callTool runs a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// mustCall runs a tool that must succeed and decodes its text result.
func mustCall(t *testing.T, s *Server, name string, args map[string]interface{}) map[string]interface{} {
	t.Helper()

	resp := callTool(t, s, name, args)
	if resp.Error != nil {
		t.Fatalf("%s: unexpected error: %+v", name, resp.Error)
	}

	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), &out); err != nil {
		t.Fatalf("%s: result is not a JSON object: %v", name, err)
	}
	return out
}

// openWorkspace opens a 200x100 image shown in a 400x200 canvas.
func openWorkspace(t *testing.T, s *Server, payload interface{}) string {
	t.Helper()

	imgPath := createTestImageFile(t, 200, 100, color.RGBA{200, 200, 200, 255})
	t.Cleanup(func() { os.Remove(imgPath) })

	args := map[string]interface{}{
		"image_url":       imgPath,
		"container_width": 432.0,
		"padding":         32.0,
		"max_height":      600.0,
	}
	if payload != nil {
		args["payload"] = payload
	}
	res := mustCall(t, s, "workspace_open", args)
	return res["workspace_id"].(string)
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer(t)
	resp := callTool(t, s, "nonexistent_tool", map[string]interface{}{})

	if resp.Error == nil {
		t.Fatal("Expected error for unknown tool")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})

	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected -32602, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_SchemaRejection(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"missing workspace", "workspace_export", map[string]interface{}{}},
		{"bad action", "draw_pointer", map[string]interface{}{"workspace_id": "w", "action": "tap", "x": 0.0, "y": 0.0}},
		{"bad tool", "draw_set_tool", map[string]interface{}{"workspace_id": "w", "tool": "circle"}},
		{"bad scale", "annotation_normalize", map[string]interface{}{"payload": []interface{}{}, "scale": "permille"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil || resp.Error.Code != -32602 {
				t.Errorf("expected -32602, got %+v", resp.Error)
			}
		})
	}
}

func TestHandleAnnotationNormalize(t *testing.T) {
	s := newTestServer(t)

	res := mustCall(t, s, "annotation_normalize", map[string]interface{}{
		"payload": map[string]interface{}{
			"objects": []interface{}{
				map[string]interface{}{"class": "Car", "bbox": []interface{}{100, 50, 40, 30}, "confidence": 0.9},
				map[string]interface{}{"class": "Bad", "bbox": []interface{}{1, 2}},
			},
		},
		"width":  1000,
		"height": 500,
	})

	if res["format"] != "objects" {
		t.Errorf("format: got %v", res["format"])
	}
	shapes := res["shapes"].([]interface{})
	if len(shapes) != 1 {
		t.Fatalf("expected 1 shape, got %d", len(shapes))
	}
	box := shapes[0].(map[string]interface{})
	if box["id"] != "bbox_0" || box["type"] != "bbox" || box["label"] != "Car" {
		t.Errorf("unexpected shape: %v", box)
	}
	if math.Abs(box["x"].(float64)-0.1) > 1e-9 || math.Abs(box["width"].(float64)-0.04) > 1e-9 {
		t.Errorf("unexpected geometry: %v", box)
	}

	skipped := res["skipped"].([]interface{})
	if len(skipped) != 1 || skipped[0].(map[string]interface{})["reason"] == "" {
		t.Errorf("expected one skipped entry with a reason, got %v", skipped)
	}
}

func TestHandleAnnotationNormalize_Percent(t *testing.T) {
	s := newTestServer(t)

	res := mustCall(t, s, "annotation_normalize", map[string]interface{}{
		"payload": []interface{}{
			map[string]interface{}{"type": "point", "x": 50, "y": 25, "label": "eye"},
		},
		"scale": "percent",
	})

	pt := res["shapes"].([]interface{})[0].(map[string]interface{})
	if pt["x"] != 0.5 || pt["y"] != 0.25 {
		t.Errorf("point: got %v", pt)
	}
}

func TestHandleCanvasFit(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name         string
		args         map[string]interface{}
		wantW, wantH float64
	}{
		{"width bound", map[string]interface{}{"width": 1536.0, "height": 864.0}, 768, 432},
		{"height bound", map[string]interface{}{"width": 1000.0, "height": 2000.0}, 300, 600},
		{"custom container", map[string]interface{}{"width": 200.0, "height": 100.0, "container_width": 432.0, "padding": 32.0}, 400, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustCall(t, s, "canvas_fit", tt.args)
			if res["width"] != tt.wantW || res["height"] != tt.wantH {
				t.Errorf("got %vx%v, want %vx%v", res["width"], res["height"], tt.wantW, tt.wantH)
			}
		})
	}

	resp := callTool(t, s, "canvas_fit", map[string]interface{}{"width": 10.0, "height": 10.0, "container_width": 16.0})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("no room: expected -32000, got %+v", resp.Error)
	}
}

func TestHandleWorkspaceLifecycle(t *testing.T) {
	s := newTestServer(t)
	id := openWorkspace(t, s, []interface{}{
		map[string]interface{}{"type": "bbox", "x": 0.25, "y": 0.25, "width": 0.5, "height": 0.5, "label": "car"},
	})

	exported := mustCall(t, s, "workspace_export", map[string]interface{}{"workspace_id": id})
	if shapes := exported["shapes"].([]interface{}); len(shapes) != 1 {
		t.Errorf("expected 1 exported shape, got %d", len(shapes))
	}

	resized := mustCall(t, s, "workspace_resize", map[string]interface{}{"workspace_id": id, "container_width": 232.0})
	canvas := resized["canvas"].(map[string]interface{})
	if canvas["width"] != 200.0 || canvas["height"] != 100.0 {
		t.Errorf("resized canvas: got %v", canvas)
	}

	mustCall(t, s, "workspace_close", map[string]interface{}{"workspace_id": id})
	resp := callTool(t, s, "workspace_export", map[string]interface{}{"workspace_id": id})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("closed workspace: expected -32000, got %+v", resp.Error)
	}
}

func TestHandleWorkspaceOpen_FailedImage(t *testing.T) {
	s := newTestServer(t)

	res := mustCall(t, s, "workspace_open", map[string]interface{}{"image_url": "/nonexistent/image.png"})
	if res["image_state"] != "failed" || res["image_error"] == nil {
		t.Errorf("expected failed image state, got %v", res)
	}
	if _, ok := res["canvas"]; ok {
		t.Error("failed workspace should have no canvas")
	}

	rendered := mustCall(t, s, "overlay_render", map[string]interface{}{"workspace_id": res["workspace_id"]})
	if rendered["mime_type"] != "image/png" {
		t.Errorf("expected placeholder png, got %v", rendered["mime_type"])
	}
}

func TestHandleWorkspaceResize_NaturalSize(t *testing.T) {
	s := newTestServer(t)

	res := mustCall(t, s, "workspace_open", map[string]interface{}{
		"image_url":       "/nonexistent/image.png",
		"container_width": 432.0,
		"padding":         32.0,
	})
	id := res["workspace_id"]

	resp := callTool(t, s, "draw_pointer", map[string]interface{}{"workspace_id": id, "action": "down", "x": 1.0, "y": 1.0})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("pointer without canvas: expected -32000, got %+v", resp.Error)
	}

	resp = callTool(t, s, "workspace_resize", map[string]interface{}{"workspace_id": id, "image_width": 200.0})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("half a size: expected -32602, got %+v", resp.Error)
	}

	resized := mustCall(t, s, "workspace_resize", map[string]interface{}{
		"workspace_id": id, "image_width": 200.0, "image_height": 100.0,
	})
	canvas := resized["canvas"].(map[string]interface{})
	if canvas["width"] != 400.0 || canvas["height"] != 200.0 {
		t.Errorf("canvas after natural size: got %v", canvas)
	}

	mustCall(t, s, "draw_select_label", map[string]interface{}{"workspace_id": id, "label": "car"})
	mustCall(t, s, "draw_pointer", map[string]interface{}{"workspace_id": id, "action": "down", "x": 40.0, "y": 20.0})
	up := mustCall(t, s, "draw_pointer", map[string]interface{}{"workspace_id": id, "action": "up", "x": 200.0, "y": 100.0})
	if up["committed"] == nil {
		t.Errorf("expected a committed box, got %v", up)
	}
}

func TestHandleDrawBox(t *testing.T) {
	s := newTestServer(t)
	id := openWorkspace(t, s, nil)

	sel := mustCall(t, s, "draw_select_label", map[string]interface{}{"workspace_id": id, "label": "car"})
	if sel["state"] != "ready" || sel["tool"] != "bbox" {
		t.Errorf("select label: got %v", sel)
	}

	pointer := func(action string, x, y float64) map[string]interface{} {
		return mustCall(t, s, "draw_pointer", map[string]interface{}{
			"workspace_id": id, "action": action, "x": x, "y": y,
		})
	}

	pointer("down", 40, 20)
	moved := pointer("move", 120, 60)
	if moved["state"] != "drafting" || moved["draft"] == nil {
		t.Errorf("move: got %v", moved)
	}
	up := pointer("up", 200, 100)

	committed, ok := up["committed"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected committed shape, got %v", up)
	}
	if committed["id"] != "bbox_1" || committed["label"] != "car" || committed["confidence"] != 0.5 {
		t.Errorf("committed: got %v", committed)
	}
	if up["state"] != "ready" || up["changed"] != true {
		t.Errorf("after commit: got %v", up)
	}

	// A click without drag is too small and is discarded.
	pointer("down", 10, 10)
	tiny := pointer("up", 11, 11)
	if tiny["committed"] != nil || tiny["discarded"] != true {
		t.Errorf("tiny box: got %v", tiny)
	}
}

func TestHandleDrawPolygon(t *testing.T) {
	s := newTestServer(t)
	id := openWorkspace(t, s, nil)

	mustCall(t, s, "draw_select_label", map[string]interface{}{"workspace_id": id, "label": "road"})
	mustCall(t, s, "draw_set_tool", map[string]interface{}{"workspace_id": id, "tool": "polygon"})

	for _, p := range [][2]float64{{40, 20}, {360, 20}, {200, 180}} {
		mustCall(t, s, "draw_pointer", map[string]interface{}{"workspace_id": id, "action": "down", "x": p[0], "y": p[1]})
	}
	done := mustCall(t, s, "draw_complete", map[string]interface{}{"workspace_id": id})

	committed, ok := done["committed"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected committed polygon, got %v", done)
	}
	if committed["type"] != "polygon" || len(committed["points"].([]interface{})) != 3 {
		t.Errorf("polygon: got %v", committed)
	}

	reset := mustCall(t, s, "draw_reset", map[string]interface{}{"workspace_id": id})
	if reset["state"] != "ready" {
		t.Errorf("reset: got %v", reset)
	}
	deselected := mustCall(t, s, "draw_deselect_label", map[string]interface{}{"workspace_id": id})
	if deselected["state"] != "idle" {
		t.Errorf("deselect: got %v", deselected)
	}
}

func TestHandleDrawAttachMask(t *testing.T) {
	s := newTestServer(t)
	id := openWorkspace(t, s, nil)

	resp := callTool(t, s, "draw_attach_mask", map[string]interface{}{"workspace_id": id, "rle": "3 4 5"})
	if resp.Error == nil {
		t.Error("attaching a mask without a label should fail")
	}

	mustCall(t, s, "draw_select_label", map[string]interface{}{"workspace_id": id, "label": "sky"})
	res := mustCall(t, s, "draw_attach_mask", map[string]interface{}{
		"workspace_id": id,
		"rle":          "3 4 5",
		"bounds":       map[string]interface{}{"x": 0.0, "y": 0.0, "width": 1.0, "height": 0.5},
	})
	committed := res["committed"].(map[string]interface{})
	if committed["id"] != "mask_1" || committed["rle"] != "3 4 5" {
		t.Errorf("mask: got %v", committed)
	}
}

func TestHandleDrawSwitchTask(t *testing.T) {
	s := newTestServer(t)
	id := openWorkspace(t, s, []interface{}{
		map[string]interface{}{"type": "point", "x": 0.5, "y": 0.5, "label": "eye"},
	})

	res := mustCall(t, s, "draw_switch_task", map[string]interface{}{
		"workspace_id": id,
		"payload": map[string]interface{}{
			"bounding_boxes": []interface{}{
				map[string]interface{}{"x": 0.1, "y": 0.1, "width": 0.2, "height": 0.2, "label": "car"},
			},
		},
	})
	if res["format"] != "bounding_boxes" {
		t.Errorf("format: got %v", res["format"])
	}
	session := res["session"].(map[string]interface{})
	if session["state"] != "idle" || session["shape_count"] != 1.0 {
		t.Errorf("session: got %v", session)
	}
}

func TestHandleShapeEditing(t *testing.T) {
	s := newTestServer(t)
	id := openWorkspace(t, s, []interface{}{
		map[string]interface{}{"id": "line", "type": "polyline", "label": "lane",
			"points": []interface{}{map[string]interface{}{"x": 0.0, "y": 0.0}, map[string]interface{}{"x": 1.0, "y": 1.0}}},
		map[string]interface{}{"id": "box", "type": "bbox", "x": 0.1, "y": 0.1, "width": 0.2, "height": 0.2, "label": "car"},
	})

	got := mustCall(t, s, "shape_get", map[string]interface{}{"workspace_id": id, "id": "box"})
	if got["type"] != "bbox" {
		t.Errorf("shape_get: got %v", got)
	}
	all := mustCall(t, s, "shape_get", map[string]interface{}{"workspace_id": id})
	if len(all["shapes"].([]interface{})) != 2 {
		t.Errorf("shape_get all: got %v", all)
	}

	updated := mustCall(t, s, "shape_update", map[string]interface{}{
		"workspace_id": id, "id": "box", "label": "truck", "confidence": 0.75, "text": "ABC 123",
	})
	sh := updated["shape"].(map[string]interface{})
	if sh["label"] != "truck" || sh["confidence"] != 0.75 || sh["text"] != "ABC 123" {
		t.Errorf("shape_update: got %v", sh)
	}

	moved := mustCall(t, s, "shape_move_vertex", map[string]interface{}{
		"workspace_id": id, "id": "line", "index": 1, "x": 0.5, "y": 0.25,
	})
	pts := moved["shape"].(map[string]interface{})["points"].([]interface{})
	end := pts[1].(map[string]interface{})
	if end["x"] != 0.5 || end["y"] != 0.25 {
		t.Errorf("shape_move_vertex: got %v", end)
	}

	resp := callTool(t, s, "shape_move_vertex", map[string]interface{}{
		"workspace_id": id, "id": "line", "index": 7, "x": 0.5, "y": 0.5,
	})
	if resp.Error == nil {
		t.Error("out-of-range vertex should fail")
	}

	mustCall(t, s, "shape_remove", map[string]interface{}{"workspace_id": id, "id": "box"})
	resp = callTool(t, s, "shape_get", map[string]interface{}{"workspace_id": id, "id": "box"})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("removed shape: expected -32000, got %+v", resp.Error)
	}
}

func TestHandleShapeCrop(t *testing.T) {
	s := newTestServer(t)
	id := openWorkspace(t, s, []interface{}{
		map[string]interface{}{"type": "bbox", "x": 0.25, "y": 0.25, "width": 0.5, "height": 0.5, "label": "car"},
	})

	res := mustCall(t, s, "shape_crop", map[string]interface{}{"workspace_id": id, "id": "bbox_0", "scale": 2.0})
	if res["width"] != 200.0 || res["height"] != 100.0 {
		t.Errorf("crop size: got %vx%v, want 200x100", res["width"], res["height"])
	}
	if _, err := base64.StdEncoding.DecodeString(res["image_base64"].(string)); err != nil {
		t.Errorf("invalid base64: %v", err)
	}
}

func TestHandleOverlay(t *testing.T) {
	s := newTestServer(t)
	id := openWorkspace(t, s, []interface{}{
		map[string]interface{}{"id": "a", "type": "bbox", "x": 0.0, "y": 0.0, "width": 0.5, "height": 0.5, "label": "car"},
		map[string]interface{}{"id": "b", "type": "bbox", "x": 0.5, "y": 0.5, "width": 0.5, "height": 0.5, "label": "person"},
	})

	hit := mustCall(t, s, "overlay_select_at", map[string]interface{}{"workspace_id": id, "x": 50.0, "y": 50.0})
	if hit["selected"] != "a" || hit["hit"] != true {
		t.Errorf("select_at: got %v", hit)
	}

	plan := mustCall(t, s, "overlay_plan", map[string]interface{}{"workspace_id": id})
	prims := plan["primitives"].([]interface{})
	if len(prims) != 2 {
		t.Fatalf("expected 2 primitives, got %d", len(prims))
	}
	last := prims[1].(map[string]interface{})
	if last["id"] != "a" || last["selected"] != true {
		t.Errorf("selected shape should be drawn last, got %v", last)
	}

	miss := mustCall(t, s, "overlay_select", map[string]interface{}{"workspace_id": id})
	if miss["hit"] != false {
		t.Errorf("clear selection: got %v", miss)
	}
	resp := callTool(t, s, "overlay_select", map[string]interface{}{"workspace_id": id, "id": "zzz"})
	if resp.Error == nil {
		t.Error("selecting an unknown shape should fail")
	}

	rendered := mustCall(t, s, "overlay_render", map[string]interface{}{"workspace_id": id})
	raw, err := base64.StdEncoding.DecodeString(rendered["image_base64"].(string))
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("invalid png: %v", err)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 200 {
		t.Errorf("render size: got %v, want 400x200", img.Bounds())
	}
}
