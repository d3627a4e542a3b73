package draw

import (
	"fmt"
	"sync"

	"github.com/ironsheep/annotation-mcp/internal/shape"
)

// IDGenerator hands out ids of the form <kind>_<n>. It remembers every id it
// has issued or observed, so an id is never reused within a session even
// after its shape is removed.
type IDGenerator struct {
	mu   sync.Mutex
	next map[shape.Kind]int
	seen map[string]struct{}
}

// NewIDGenerator returns a generator that will not issue any of the given ids.
func NewIDGenerator(seen ...string) *IDGenerator {
	g := &IDGenerator{
		next: make(map[shape.Kind]int),
		seen: make(map[string]struct{}, len(seen)),
	}
	for _, id := range seen {
		g.seen[id] = struct{}{}
	}
	return g
}

// Observe marks id as taken.
func (g *IDGenerator) Observe(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen[id] = struct{}{}
}

// Next returns the next free id for kind.
func (g *IDGenerator) Next(kind shape.Kind) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		g.next[kind]++
		id := fmt.Sprintf("%s_%d", kind, g.next[kind])
		if _, taken := g.seen[id]; !taken {
			g.seen[id] = struct{}{}
			return id
		}
	}
}
