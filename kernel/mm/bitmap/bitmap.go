// Package bitmap implements the bit vectors that track physical page
// presence and paged pool allocation state.
package bitmap

// Bitmap tracks the state of sizeBits boolean flags packed into 32-bit
// words.
type Bitmap struct {
	sizeBits uint32
	words    []uint32
}

// New creates a bitmap capable of tracking sizeBits flags, all initially
// clear.
func New(sizeBits uint32) *Bitmap {
	return &Bitmap{
		sizeBits: sizeBits,
		words:    make([]uint32, (sizeBits+31)>>5),
	}
}

// Size returns the number of bits tracked by the bitmap.
func (b *Bitmap) Size() uint32 {
	return b.sizeBits
}

// Set sets the bit at the supplied index.
func (b *Bitmap) Set(index uint32) {
	b.words[index>>5] |= 1 << (index & 31)
}

// Clear clears the bit at the supplied index.
func (b *Bitmap) Clear(index uint32) {
	b.words[index>>5] &^= 1 << (index & 31)
}

// Test returns true if the bit at the supplied index is set.
func (b *Bitmap) Test(index uint32) bool {
	return b.words[index>>5]&(1<<(index&31)) != 0
}

// SetAll sets every bit tracked by the bitmap.
func (b *Bitmap) SetAll() {
	for i := range b.words {
		b.words[i] = 0xffffffff
	}

	b.clearTail()
}

// ClearAll clears every bit tracked by the bitmap.
func (b *Bitmap) ClearAll() {
	for i := range b.words {
		b.words[i] = 0
	}
}

// SetRange sets count bits starting at the supplied index.
func (b *Bitmap) SetRange(index, count uint32) {
	for i := index; i < index+count; i++ {
		b.Set(i)
	}
}

// ClearRange clears count bits starting at the supplied index.
func (b *Bitmap) ClearRange(index, count uint32) {
	for i := index; i < index+count; i++ {
		b.Clear(i)
	}
}

// CountSet returns the number of set bits.
func (b *Bitmap) CountSet() uint32 {
	var count uint32
	for _, w := range b.words {
		for ; w != 0; w &= w - 1 {
			count++
		}
	}

	return count
}

// clearTail clears the unused bits of the last word so that CountSet never
// reports bits beyond sizeBits.
func (b *Bitmap) clearTail() {
	if tail := b.sizeBits & 31; tail != 0 {
		b.words[len(b.words)-1] &= (1 << tail) - 1
	}
}
