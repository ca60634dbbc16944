package service

import (
	"sort"
	"sync"
)

// HostRegistry remembers every workstation that asked for its configuration
// during the lifetime of the process. Entries are never removed.
type HostRegistry struct {
	mu    sync.RWMutex
	hosts map[string]struct{}
}

// NewHostRegistry returns an empty registry.
func NewHostRegistry() *HostRegistry {
	return &HostRegistry{hosts: make(map[string]struct{})}
}

// Add records hostname and reports whether it was new.
func (r *HostRegistry) Add(hostname string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hosts[hostname]; ok {
		return false
	}
	r.hosts[hostname] = struct{}{}
	return true
}

// List returns the registered hostnames in lexical order.
func (r *HostRegistry) List() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.hosts))
	for h := range r.hosts {
		out = append(out, h)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Len returns the number of registered hostnames.
func (r *HostRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hosts)
}
