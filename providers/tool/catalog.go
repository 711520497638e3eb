package tool

import (
	"strings"
	"sync"

	"github.com/leofalp/aigo/providers/ai"
)

// Catalog manages a collection of tools with thread-safe operations.
// Lookup is case-insensitive: names are normalized to lowercase.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]GenericTool
	order []string
}

// NewCatalog creates an empty catalog, optionally pre-populated with tools.
// Tool names are taken from each tool's Info().Name.
func NewCatalog(tools ...GenericTool) *Catalog {
	catalog := &Catalog{tools: make(map[string]GenericTool)}
	catalog.Add(tools...)
	return catalog
}

// Add registers tools in the catalog. A tool with an already-registered name
// replaces the previous one.
func (c *Catalog) Add(tools ...GenericTool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tools {
		name := strings.ToLower(t.Info().Name)
		if _, exists := c.tools[name]; !exists {
			c.order = append(c.order, name)
		}
		c.tools[name] = t
	}
}

// Get retrieves a tool by name (case-insensitive).
func (c *Catalog) Get(name string) (GenericTool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, exists := c.tools[strings.ToLower(name)]
	return t, exists
}

// Has reports whether a tool with the given name exists (case-insensitive).
func (c *Catalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.tools[strings.ToLower(name)]
	return exists
}

// Remove deletes a tool by name (case-insensitive). Returns true when a tool
// was found and removed.
func (c *Catalog) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	lower := strings.ToLower(name)
	if _, exists := c.tools[lower]; !exists {
		return false
	}
	delete(c.tools, lower)
	for i, registered := range c.order {
		if registered == lower {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Size returns the number of registered tools.
func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tools)
}

// Descriptions returns the tool descriptions in registration order, ready to
// advertise to a provider.
func (c *Catalog) Descriptions() []ai.ToolDescription {
	c.mu.RLock()
	defer c.mu.RUnlock()

	descriptions := make([]ai.ToolDescription, 0, len(c.order))
	for _, name := range c.order {
		descriptions = append(descriptions, c.tools[name].Info())
	}
	return descriptions
}
