package cartridge

import "github.com/cartridgeio/cartridge/pkg/entryview"

// List returns the full paths of every entry under prefix.
func (c *Cartridge) List(prefix string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := c.cat.Scan(prefix)
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

// ListEntries returns rich entries (including synthesized directories)
// for every path under prefix, directories first then alphabetical.
func (c *Cartridge) ListEntries(prefix string) []entryview.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return entryview.List(c.cat, prefix)
}

// ListChildren returns only the immediate children of parent.
func (c *Cartridge) ListChildren(parent string) []entryview.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return entryview.Children(c.cat, parent)
}
