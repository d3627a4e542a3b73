package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ironsheep/annotation-mcp/internal/draw"
	"github.com/ironsheep/annotation-mcp/internal/imaging"
	"github.com/ironsheep/annotation-mcp/internal/legacy"
	"github.com/ironsheep/annotation-mcp/internal/shape"
	"github.com/ironsheep/annotation-mcp/internal/transform"
)

// ErrUnknownWorkspace is returned for an id the registry does not hold.
var ErrUnknownWorkspace = errors.New("unknown workspace")

// Settings are the defaults applied to new workspaces.
type Settings struct {
	Container transform.Container
	Draw      draw.Options
	Normalize legacy.Options
}

// OpenRequest describes a workspace to create.
type OpenRequest struct {
	// ImageURL is a file path, URL or data URI. It may be empty when Natural
	// is given.
	ImageURL string

	// Natural overrides the loaded image size. When set, a failing image
	// load still leaves a usable workspace without a base image.
	Natural transform.Size

	// Payload is the stored annotation JSON in any accepted format.
	Payload []byte

	// Container replaces the registry's default container.
	Container *transform.Container
}

// Registry creates and tracks workspaces.
type Registry struct {
	mu         sync.RWMutex
	workspaces map[string]*Workspace
	images     *imaging.ImageCache
	settings   Settings
	logger     *slog.Logger
}

// NewRegistry returns an empty registry. A nil images cache gets a fresh one
// with default loader options.
func NewRegistry(images *imaging.ImageCache, settings Settings, logger *slog.Logger) *Registry {
	if images == nil {
		images = imaging.NewImageCache(imaging.DefaultLoaderOptions())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		workspaces: make(map[string]*Workspace),
		images:     images,
		settings:   settings,
		logger:     logger,
	}
}

// Images returns the image cache shared by the registry's workspaces.
func (r *Registry) Images() *imaging.ImageCache {
	return r.images
}

// SetSettings replaces the defaults for workspaces opened afterwards.
func (r *Registry) SetSettings(s Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = s
}

// Settings returns the current defaults.
func (r *Registry) Settings() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// Open creates a workspace.
//
// The image is loaded first. If it cannot be loaded and no natural size was
// supplied, the workspace is still created in the failed image state: it
// renders a placeholder and rejects pointer input until a natural size is
// supplied with Workspace.SetNatural. The payload is then normalized against the natural size and
// seeds the draw session; malformed entries are skipped and reported.
func (r *Registry) Open(ctx context.Context, req OpenRequest) (*Workspace, error) {
	if req.ImageURL == "" && !req.Natural.Valid() {
		return nil, fmt.Errorf("open workspace: an image url or natural size is required: %w", transform.ErrNoDimensions)
	}

	settings := r.Settings()
	container := settings.Container
	if req.Container != nil {
		container = *req.Container
	}

	ws := &Workspace{
		ID:       uuid.New().String(),
		ImageURL: req.ImageURL,
		Viewport: transform.NewViewport(container),
	}

	natural := req.Natural
	if req.ImageURL != "" {
		img, err := r.images.Load(ctx, req.ImageURL)
		switch {
		case err == nil:
			ws.Image = img
			if !natural.Valid() {
				b := img.Bounds()
				natural = transform.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
			}
		case natural.Valid():
			r.logger.Warn("image unavailable, continuing with supplied size",
				"workspace", ws.ID, "image", req.ImageURL, "error", err)
		default:
			r.logger.Warn("image unavailable", "workspace", ws.ID, "image", req.ImageURL, "error", err)
			ws.Viewport.FailImage(err)
		}
	}
	if natural.Valid() {
		if err := ws.Viewport.SetImage(natural); err != nil {
			return nil, err
		}
	}

	ws.Report = legacy.NormalizeReport(req.Payload, ws.Viewport.Natural(), settings.Normalize)
	for _, sk := range ws.Report.Skipped {
		r.logger.Debug("skipped payload entry", "workspace", ws.ID, "index", sk.Index, "reason", sk.Reason())
	}
	ws.Session = draw.NewSession(shape.List(ws.Report.Shapes), settings.Draw)

	r.mu.Lock()
	r.workspaces[ws.ID] = ws
	r.mu.Unlock()

	r.logger.Info("workspace opened", "workspace", ws.ID, "image", ws.ImageURL,
		"state", ws.Viewport.State().String(), "shapes", len(ws.Report.Shapes),
		"skipped", len(ws.Report.Skipped))
	return ws, nil
}

// Get returns the workspace with the given id.
func (r *Registry) Get(id string) (*Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ws, ok := r.workspaces[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWorkspace, id)
	}
	return ws, nil
}

// Close forgets a workspace. Its image is evicted from the cache unless
// another open workspace uses the same source.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	ws, ok := r.workspaces[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownWorkspace, id)
	}
	delete(r.workspaces, id)
	shared := false
	for _, other := range r.workspaces {
		if other.ImageURL == ws.ImageURL {
			shared = true
			break
		}
	}
	r.mu.Unlock()

	if ws.ImageURL != "" && !shared {
		r.images.Evict(ws.ImageURL)
	}
	r.logger.Info("workspace closed", "workspace", id)
	return nil
}

// IDs returns the open workspace ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.workspaces))
	for id := range r.workspaces {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of open workspaces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workspaces)
}
