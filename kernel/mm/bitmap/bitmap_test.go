package bitmap

import "testing"

func TestBitmapSetClearTest(t *testing.T) {
	b := New(100)

	specs := []uint32{0, 1, 31, 32, 63, 64, 99}
	for specIndex, bit := range specs {
		if b.Test(bit) {
			t.Errorf("[spec %d] expected bit %d to start clear", specIndex, bit)
		}

		b.Set(bit)
		if !b.Test(bit) {
			t.Errorf("[spec %d] expected bit %d to be set", specIndex, bit)
		}

		b.Clear(bit)
		if b.Test(bit) {
			t.Errorf("[spec %d] expected bit %d to be clear", specIndex, bit)
		}
	}
}

func TestBitmapSetAllRespectsSize(t *testing.T) {
	b := New(100)
	b.SetAll()

	if got := b.CountSet(); got != 100 {
		t.Fatalf("expected SetAll to set exactly 100 bits; got %d", got)
	}

	b.ClearAll()
	if got := b.CountSet(); got != 0 {
		t.Fatalf("expected ClearAll to clear all bits; got %d set", got)
	}
}

func TestBitmapRanges(t *testing.T) {
	b := New(2048)
	b.SetAll()
	b.ClearRange(0, 1024)

	if got := b.CountSet(); got != 1024 {
		t.Fatalf("expected 1024 set bits after clearing the first 1024; got %d", got)
	}

	if b.Test(1023) || !b.Test(1024) {
		t.Fatal("expected the clear range to end at bit 1023")
	}

	b.SetRange(10, 5)
	for bit := uint32(10); bit < 15; bit++ {
		if !b.Test(bit) {
			t.Fatalf("expected bit %d to be set by SetRange", bit)
		}
	}
}
