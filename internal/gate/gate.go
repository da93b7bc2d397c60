// ABOUTME: Append-only capability gate controlling which tool groups are advertised.
// ABOUTME: The default group is always on; enabling a group is a one-way latch.

package gate

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultGroup is always enabled and cannot be disabled.
const DefaultGroup = "essentials"

// ErrUnknownGroup indicates the group name is not statically known.
var ErrUnknownGroup = errors.New("unknown group")

// Gate tracks which operation groups are enabled for this process lifetime.
// Groups only ever grow; there is deliberately no disable path.
type Gate struct {
	mu      sync.RWMutex
	known   map[string]struct{}
	enabled map[string]struct{}
}

// New creates a Gate knowing the given groups. DefaultGroup and any listed
// defaults start enabled; the rest are hidden until enabled.
func New(known []string, defaults ...string) *Gate {
	g := &Gate{
		known:   make(map[string]struct{}, len(known)+1),
		enabled: make(map[string]struct{}, len(defaults)+1),
	}
	g.known[DefaultGroup] = struct{}{}
	g.enabled[DefaultGroup] = struct{}{}
	for _, name := range known {
		g.known[name] = struct{}{}
	}
	for _, name := range defaults {
		g.known[name] = struct{}{}
		g.enabled[name] = struct{}{}
	}
	return g
}

// IsEnabled reports whether the group is currently advertised. The default
// group is always enabled.
func (g *Gate) IsEnabled(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.enabled[name]
	return ok
}

// Enable turns a group on for the rest of the process lifetime. Enabling an
// already-enabled group is a no-op success; an unknown group is an error.
func (g *Gate) Enable(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.known[name]; !ok {
		return fmt.Errorf("%w: %q (known: %v)", ErrUnknownGroup, name, g.knownLocked())
	}
	g.enabled[name] = struct{}{}
	return nil
}

// Enabled returns the currently enabled group names, sorted.
func (g *Gate) Enabled() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.enabled))
	for name := range g.enabled {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known returns all statically known group names, sorted.
func (g *Gate) Known() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.knownLocked()
}

func (g *Gate) knownLocked() []string {
	names := make([]string, 0, len(g.known))
	for name := range g.known {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
