// Package cells holds a planet's energy-cell bank: a fixed-size ordered
// sequence of cells, each either charged by a sunray or empty.
package cells

import "fmt"

type Cell struct {
	charged bool
}

func (c *Cell) Charged() bool { return c.charged }

// Discharge drains the cell. Draining an already-empty cell means the
// caller skipped the charge check, which is a bug, not a runtime
// condition.
func (c *Cell) Discharge() {
	if !c.charged {
		panic("cells: discharge of an empty cell")
	}
	c.charged = false
}

// Store is the planet's cell bank. It is not safe for concurrent use;
// the planet's single handler goroutine owns it.
type Store struct {
	cells []Cell
}

func NewStore(capacity int) (*Store, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cells: capacity must be positive, got %d", capacity)
	}
	return &Store{cells: make([]Cell, capacity)}, nil
}

func (s *Store) Count() int { return len(s.cells) }

func (s *Store) ChargedCount() int {
	n := 0
	for i := range s.cells {
		if s.cells[i].charged {
			n++
		}
	}
	return n
}

// Charge stores one sunray in the first empty cell, in store order.
// A sunray delivered to a full bank is lost; Charge reports whether
// the energy was kept.
func (s *Store) Charge() bool {
	for i := range s.cells {
		if !s.cells[i].charged {
			s.cells[i].charged = true
			return true
		}
	}
	return false
}

// FirstCharged returns the lowest-index charged cell.
func (s *Store) FirstCharged() (*Cell, bool) {
	for i := range s.cells {
		if s.cells[i].charged {
			return &s.cells[i], true
		}
	}
	return nil, false
}

// Snapshot reports the charge state of every cell in store order.
func (s *Store) Snapshot() []bool {
	out := make([]bool, len(s.cells))
	for i := range s.cells {
		out[i] = s.cells[i].charged
	}
	return out
}
