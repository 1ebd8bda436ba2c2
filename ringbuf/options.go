// SPDX-License-Identifier: EPL-2.0

package ringbuf

import "fmt"

// Placement is a hint describing where the arena should live. The default
// allocator ignores it; custom allocators may honour it.
type Placement int

const (
	PlacementDefault Placement = iota
	// PlacementDMA asks for memory a DMA engine can read directly.
	PlacementDMA
	// PlacementSPIRAM asks for slower, larger external memory.
	PlacementSPIRAM
)

func (p Placement) String() string {
	switch p {
	case PlacementDMA:
		return "dma"
	case PlacementSPIRAM:
		return "spiram"
	default:
		return "default"
	}
}

// ParsePlacement is the inverse of Placement.String. The empty string is
// PlacementDefault.
func ParsePlacement(s string) (Placement, error) {
	switch s {
	case "", "default":
		return PlacementDefault, nil
	case "dma":
		return PlacementDMA, nil
	case "spiram":
		return PlacementSPIRAM, nil
	}
	return PlacementDefault, fmt.Errorf("unknown placement %q", s)
}

type config struct {
	placement Placement
	alloc     func(size int) ([]byte, error)
}

// Option configures New.
type Option func(*config)

// WithPlacement records a memory placement hint.
func WithPlacement(p Placement) Option {
	return func(c *config) {
		c.placement = p
	}
}

// WithAllocator replaces the arena allocator. A failing allocator, or one
// returning fewer than size bytes, makes New return ErrAllocation.
func WithAllocator(alloc func(size int) ([]byte, error)) Option {
	return func(c *config) {
		if alloc != nil {
			c.alloc = alloc
		}
	}
}
