package mathx

import "golang.org/x/exp/constraints"

// Register fields are packed little-end first: field idx of a given width
// occupies bits [idx*width, (idx+1)*width).

// FieldMask returns the bits covered by field idx.
func FieldMask[T constraints.Unsigned](idx, width uint) T {
	return (T(1)<<width - 1) << (idx * width)
}

// Field places v into field idx, truncating v to width bits.
func Field[T constraints.Unsigned](v T, idx, width uint) T {
	return (v & (T(1)<<width - 1)) << (idx * width)
}

// FieldGet extracts field idx from reg.
func FieldGet[T constraints.Unsigned](reg T, idx, width uint) T {
	return (reg >> (idx * width)) & (T(1)<<width - 1)
}
