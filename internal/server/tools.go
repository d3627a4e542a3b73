package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// maxContainerPixels bounds every container dimension a client may send.
const maxContainerPixels = 16384

var (
	workspaceIDProperty = map[string]interface{}{
		"type":        "string",
		"description": "Workspace id returned by workspace_open",
	}

	shapeIDProperty = map[string]interface{}{
		"type":        "string",
		"description": "Shape id, e.g. bbox_1",
	}

	payloadProperty = map[string]interface{}{
		"description": "Stored annotations: an array of shapes, or an object with an annotations, bounding_boxes or objects array",
	}

	rectProperty = map[string]interface{}{
		"type":        "object",
		"description": "Rectangle in image fractions (0.0 to 1.0)",
		"properties": map[string]interface{}{
			"x":      map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
			"y":      map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
			"width":  map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
			"height": map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
		},
		"required": []string{"x", "y", "width", "height"},
	}

	containerProperties = map[string]interface{}{
		"container_width": map[string]interface{}{
			"type":        "number",
			"description": "Available width in pixels. Defaults to the configured canvas width",
			"minimum":     0,
			"maximum":     maxContainerPixels,
		},
		"max_height": map[string]interface{}{
			"type":        "number",
			"description": "Maximum canvas height in pixels; 0 means unbounded",
			"minimum":     0,
			"maximum":     maxContainerPixels,
		},
		"padding": map[string]interface{}{
			"type":        "number",
			"description": "Total horizontal padding subtracted from the width",
			"minimum":     0,
			"maximum":     maxContainerPixels,
		},
	}
)

// withContainer adds the container properties to props.
func withContainer(props map[string]interface{}) map[string]interface{} {
	for k, v := range containerProperties {
		props[k] = v
	}
	return props
}

// workspaceOnly is the schema of tools that take nothing but a workspace id.
func workspaceOnly() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"workspace_id": workspaceIDProperty,
		},
		"required": []string{"workspace_id"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Stateless helpers
		{
			Name:        "annotation_normalize",
			Description: "Convert stored annotations in any accepted layout (typed list, untyped boxes, legacy pixel objects) into canonical shapes with coordinates as image fractions. Malformed entries are skipped and reported.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"payload": payloadProperty,
					"width": map[string]interface{}{
						"type":        "number",
						"description": "Natural image width in pixels; required for legacy pixel objects",
						"minimum":     0,
					},
					"height": map[string]interface{}{
						"type":        "number",
						"description": "Natural image height in pixels; required for legacy pixel objects",
						"minimum":     0,
					},
					"scale": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"fraction", "percent"},
						"description": "Unit of normalized coordinates in the payload. Default is the configured scale",
					},
				},
				"required": []string{"payload"},
			},
		},
		{
			Name:        "canvas_fit",
			Description: "Compute the canvas size for an image inside a container, preserving aspect ratio.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withContainer(map[string]interface{}{
					"width": map[string]interface{}{
						"type":             "number",
						"description":      "Natural image width in pixels",
						"exclusiveMinimum": 0,
					},
					"height": map[string]interface{}{
						"type":             "number",
						"description":      "Natural image height in pixels",
						"exclusiveMinimum": 0,
					},
				}),
				"required": []string{"width", "height"},
			},
		},

		// Workspaces
		{
			Name:        "workspace_open",
			Description: "Open an annotation workspace for an image. Loads the image (file path, URL or data URI), normalizes the stored annotations and returns the workspace id. A failed image load still opens the workspace with a placeholder.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withContainer(map[string]interface{}{
					"image_url": map[string]interface{}{
						"type":        "string",
						"description": "File path, http(s) URL or data URI of the image",
					},
					"width": map[string]interface{}{
						"type":        "number",
						"description": "Natural width override in pixels",
						"minimum":     0,
					},
					"height": map[string]interface{}{
						"type":        "number",
						"description": "Natural height override in pixels",
						"minimum":     0,
					},
					"payload": payloadProperty,
				}),
			},
		},
		{
			Name:        "workspace_close",
			Description: "Close a workspace and release its image.",
			InputSchema: workspaceOnly(),
		},
		{
			Name:        "workspace_resize",
			Description: "Change the container a workspace is displayed in and return the new canvas size. Shapes are unaffected. image_width and image_height supply the natural size of a workspace whose image failed to load.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withContainer(map[string]interface{}{
					"workspace_id": workspaceIDProperty,
					"image_width": map[string]interface{}{
						"type":             "number",
						"description":      "Natural image width in pixels",
						"exclusiveMinimum": 0,
					},
					"image_height": map[string]interface{}{
						"type":             "number",
						"description":      "Natural image height in pixels",
						"exclusiveMinimum": 0,
					},
				}),
				"required": []string{"workspace_id"},
			},
		},
		{
			Name:        "workspace_export",
			Description: "Return the committed shapes of a workspace in canonical JSON.",
			InputSchema: workspaceOnly(),
		},

		// Drawing
		{
			Name:        "draw_select_label",
			Description: "Make a label active so new shapes can be drawn with it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"workspace_id": workspaceIDProperty,
					"label": map[string]interface{}{
						"type":        "string",
						"description": "Label for new shapes; empty deselects",
					},
				},
				"required": []string{"workspace_id", "label"},
			},
		},
		{
			Name:        "draw_deselect_label",
			Description: "Clear the active label and discard any draft.",
			InputSchema: workspaceOnly(),
		},
		{
			Name:        "draw_set_tool",
			Description: "Choose the shape type drawn by pointer input. Any draft is discarded.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"workspace_id": workspaceIDProperty,
					"tool": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"bbox", "polygon", "polyline", "point", "mask"},
						"description": "Shape type",
					},
				},
				"required": []string{"workspace_id", "tool"},
			},
		},
		{
			Name:        "draw_switch_task",
			Description: "Replace the workspace's shapes with another task's annotations. The label, draft and selection are cleared.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"workspace_id": workspaceIDProperty,
					"payload":      payloadProperty,
				},
				"required": []string{"workspace_id"},
			},
		},
		{
			Name:        "draw_pointer",
			Description: "Send a pointer event at canvas pixel coordinates. Boxes are dragged (down, move, up); polygon and polyline vertices are placed with down; points commit on down.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"workspace_id": workspaceIDProperty,
					"action": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"down", "move", "up"},
						"description": "Pointer phase",
					},
					"x": map[string]interface{}{
						"type":        "number",
						"description": "Canvas X in pixels",
					},
					"y": map[string]interface{}{
						"type":        "number",
						"description": "Canvas Y in pixels",
					},
				},
				"required": []string{"workspace_id", "action", "x", "y"},
			},
		},
		{
			Name:        "draw_complete",
			Description: "Finish the open polygon or polyline draft.",
			InputSchema: workspaceOnly(),
		},
		{
			Name:        "draw_reset",
			Description: "Discard the open draft.",
			InputSchema: workspaceOnly(),
		},
		{
			Name:        "draw_attach_mask",
			Description: "Commit an externally encoded segmentation mask under the active label.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"workspace_id": workspaceIDProperty,
					"rle": map[string]interface{}{
						"type":        "string",
						"description": "Encoded mask payload; stored as is",
					},
					"bounds": rectProperty,
				},
				"required": []string{"workspace_id", "rle"},
			},
		},

		// Shape editing
		{
			Name:        "shape_get",
			Description: "Return one committed shape, or all of them when id is omitted.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"workspace_id": workspaceIDProperty,
					"id":           shapeIDProperty,
				},
				"required": []string{"workspace_id"},
			},
		},
		{
			Name:        "shape_update",
			Description: "Change the label, text or confidence of a committed shape.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"workspace_id": workspaceIDProperty,
					"id":           shapeIDProperty,
					"label": map[string]interface{}{
						"type":        "string",
						"description": "New label",
					},
					"text": map[string]interface{}{
						"type":        "string",
						"description": "New transcription",
					},
					"confidence": map[string]interface{}{
						"type":        "number",
						"minimum":     0,
						"maximum":     1,
						"description": "New confidence (0.0 to 1.0)",
					},
				},
				"required": []string{"workspace_id", "id"},
			},
		},
		{
			Name:        "shape_move_vertex",
			Description: "Move one vertex of a polygon or polyline, or the location of a point, in image fractions.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"workspace_id": workspaceIDProperty,
					"id":           shapeIDProperty,
					"index": map[string]interface{}{
						"type":        "integer",
						"minimum":     0,
						"description": "Vertex index; ignored for points",
					},
					"x": map[string]interface{}{
						"type":        "number",
						"description": "New X as a fraction of image width",
					},
					"y": map[string]interface{}{
						"type":        "number",
						"description": "New Y as a fraction of image height",
					},
				},
				"required": []string{"workspace_id", "id", "x", "y"},
			},
		},
		{
			Name:        "shape_remove",
			Description: "Delete a committed shape. Its id is never reused.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"workspace_id": workspaceIDProperty,
					"id":           shapeIDProperty,
				},
				"required": []string{"workspace_id", "id"},
			},
		},
		{
			Name:        "shape_crop",
			Description: "Crop the region covered by a shape from the full-resolution image and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"workspace_id": workspaceIDProperty,
					"id":           shapeIDProperty,
					"padding": map[string]interface{}{
						"type":        "number",
						"minimum":     0,
						"description": "Margin around the shape as an image fraction. Default 0",
						"default":     0.0,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"workspace_id", "id"},
			},
		},

		// Overlay
		{
			Name:        "overlay_select",
			Description: "Select a shape for highlighting, or clear the selection when id is omitted.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"workspace_id": workspaceIDProperty,
					"id":           shapeIDProperty,
				},
				"required": []string{"workspace_id"},
			},
		},
		{
			Name:        "overlay_select_at",
			Description: "Select the topmost shape under a canvas pixel. A miss clears the selection.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"workspace_id": workspaceIDProperty,
					"x": map[string]interface{}{
						"type":        "number",
						"description": "Canvas X in pixels",
					},
					"y": map[string]interface{}{
						"type":        "number",
						"description": "Canvas Y in pixels",
					},
					"tolerance": map[string]interface{}{
						"type":        "number",
						"minimum":     0,
						"description": "Hit distance for points and polylines as an image fraction. Default is the configured tolerance",
					},
				},
				"required": []string{"workspace_id", "x", "y"},
			},
		},
		{
			Name:        "overlay_plan",
			Description: "Return the draw list for the current canvas: one primitive per visible shape in canvas pixels, the selected shape last, then the draft.",
			InputSchema: workspaceOnly(),
		},
		{
			Name:        "overlay_render",
			Description: "Render the shapes over the image at canvas size and return a base64-encoded PNG. A workspace without an image renders a placeholder.",
			InputSchema: workspaceOnly(),
		},
	}
}
