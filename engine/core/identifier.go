package core

import "fmt"

// IDPool hands out small integer identifiers and recycles released ones.
// Slot 0 is never handed out so that a zero ID can mean "unassigned".
type IDPool struct {
	owners []interface{}
}

func NewIDPool(capacity int) *IDPool {
	if capacity < 1 {
		capacity = 1
	}
	return &IDPool{
		owners: make([]interface{}, 1, capacity+1),
	}
}

// Acquire returns the first free identifier, growing the pool when none is free.
func (p *IDPool) Acquire(owner interface{}) uint32 {
	for i := 1; i < len(p.owners); i++ {
		// Existing free spot. Take it.
		if p.owners[i] == nil {
			p.owners[i] = owner
			return uint32(i)
		}
	}
	p.owners = append(p.owners, owner)
	return uint32(len(p.owners) - 1)
}

func (p *IDPool) Release(id uint32) error {
	if id == 0 || int(id) >= len(p.owners) {
		return fmt.Errorf("id '%d' out of range (max=%d). Nothing was done", id, len(p.owners)-1)
	}
	// Just zero out the entry, making it available for use.
	p.owners[id] = nil
	return nil
}

// Owner returns whatever was registered with the id, or nil.
func (p *IDPool) Owner(id uint32) interface{} {
	if int(id) >= len(p.owners) {
		return nil
	}
	return p.owners[id]
}

// Live returns the number of identifiers currently in use.
func (p *IDPool) Live() int {
	n := 0
	for _, o := range p.owners[1:] {
		if o != nil {
			n++
		}
	}
	return n
}

// Each calls fn for every live owner, in id order.
func (p *IDPool) Each(fn func(id uint32, owner interface{})) {
	for i := 1; i < len(p.owners); i++ {
		if p.owners[i] != nil {
			fn(uint32(i), p.owners[i])
		}
	}
}
