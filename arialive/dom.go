package arialive

import (
	"github.com/a11ykit/announce"
)

// MemoryDocument is an in-process Document for tests and headless use. Its
// regions record every write so behaviour can be asserted without a real
// accessibility tree.
type MemoryDocument struct {
	Regions []*MemoryRegion
}

// NewMemoryDocument creates an empty document.
func NewMemoryDocument() *MemoryDocument {
	return &MemoryDocument{}
}

// CreateLiveRegion implements Document.
func (d *MemoryDocument) CreateLiveRegion(liveness announce.Liveness, id string) Element {
	r := &MemoryRegion{ID: id, Liveness: liveness}
	d.Regions = append(d.Regions, r)
	return r
}

// MemoryRegion is one recorded live-region node.
type MemoryRegion struct {
	ID       string
	Liveness announce.Liveness
	Text     string
	Hidden   bool

	// Writes records every non-empty text written to the node, in order.
	Writes []string
}

// SetTextContent implements Element.
func (r *MemoryRegion) SetTextContent(text string) {
	r.Text = text
	if text != "" {
		r.Writes = append(r.Writes, text)
	}
}

// SetHidden implements Element.
func (r *MemoryRegion) SetHidden(hidden bool) {
	r.Hidden = hidden
}
