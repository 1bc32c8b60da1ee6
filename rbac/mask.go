package rbac

// rootBit is the reserved super-admin bit. A mask with the root bit set
// passes every Has check regardless of individual permission bits.
const rootBit = 63

// Mask64 is a 64-bit permission bitmask. Bit positions are assigned by a
// [Registry]; the highest bit is reserved for root.
type Mask64 uint64

// Has reports whether bit is set, or the root bit is set.
func (m Mask64) Has(bit int) bool {
	if bit < 0 || bit >= 64 {
		return false
	}
	if m&(1<<rootBit) != 0 {
		return true
	}
	return m&(1<<bit) != 0
}

// Set sets bit. Out-of-range bits are ignored.
func (m *Mask64) Set(bit int) {
	if bit < 0 || bit >= 64 {
		return
	}
	*m |= 1 << bit
}

// Clear unsets bit. Out-of-range bits are ignored.
func (m *Mask64) Clear(bit int) {
	if bit < 0 || bit >= 64 {
		return
	}
	*m &^= 1 << bit
}

// IsRoot reports whether the root bit is set.
func (m Mask64) IsRoot() bool {
	return m&(1<<rootBit) != 0
}

// Raw returns the underlying uint64.
func (m Mask64) Raw() uint64 {
	return uint64(m)
}
