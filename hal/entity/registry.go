package entity

import (
	"strings"
	"sync"

	"golang.org/x/exp/slices"
)

var (
	regMu   sync.RWMutex
	classes = map[string]Descriptor{}
)

// Register records a class under its name so tools can list what the build
// provides. Driver packages call it from init. Duplicate names panic.
func Register(d Descriptor) {
	regMu.Lock()
	defer regMu.Unlock()
	name := d.ClassName()
	if _, exists := classes[name]; exists {
		panic("entity: duplicate class " + name)
	}
	classes[name] = d
}

func Lookup(name string) (Descriptor, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	d, ok := classes[name]
	return d, ok
}

// Classes returns every registered class sorted by name.
func Classes() []Descriptor {
	regMu.RLock()
	out := make([]Descriptor, 0, len(classes))
	for _, d := range classes {
		out = append(out, d)
	}
	regMu.RUnlock()
	slices.SortFunc(out, func(a, b Descriptor) int { return strings.Compare(a.ClassName(), b.ClassName()) })
	return out
}
