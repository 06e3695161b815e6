package jbig2

import "testing"

func TestBitmapEmpty(t *testing.T) {
	if bm := NewBitmap(0, 0); bm != nil {
		t.Fatalf("expected nil bitmap for zero dimensions, got %#v", bm)
	}
	if bm := NewBitmap(-1, 4); bm != nil {
		t.Fatalf("expected nil bitmap for negative width, got %#v", bm)
	}
}

func TestBitmapGetSetPixel(t *testing.T) {
	bm := NewBitmap(9, 3)
	if bm == nil {
		t.Fatalf("NewBitmap returned nil")
	}
	bm.SetPixel(8, 2, 1)
	if got := bm.GetPixel(8, 2); got != 1 {
		t.Errorf("GetPixel(8,2) = %d, want 1", got)
	}
	if got := bm.GetPixel(0, 0); got != 0 {
		t.Errorf("GetPixel(0,0) = %d, want 0", got)
	}
	// Out-of-bounds reads/writes are no-ops, never panics.
	bm.SetPixel(100, 100, 1)
	if got := bm.GetPixel(100, 100); got != 0 {
		t.Errorf("GetPixel out of bounds = %d, want 0", got)
	}
}

func TestBitmapFill(t *testing.T) {
	bm := NewBitmap(5, 5)
	bm.Fill(true)
	for y := int32(0); y < 5; y++ {
		for x := int32(0); x < 5; x++ {
			if bm.GetPixel(x, y) != 1 {
				t.Fatalf("pixel (%d,%d) not set after Fill(true)", x, y)
			}
		}
	}
	bm.Fill(false)
	if bm.GetPixel(2, 2) != 0 {
		t.Fatalf("pixel (2,2) still set after Fill(false)")
	}
}

func TestBitmapSubBitmap(t *testing.T) {
	bm := NewBitmap(4, 4)
	bm.SetPixel(2, 1, 1)
	sub := bm.SubBitmap(1, 1, 2, 2)
	if sub == nil {
		t.Fatalf("SubBitmap returned nil")
	}
	if sub.Width() != 2 || sub.Height() != 2 {
		t.Fatalf("sub dimensions = %dx%d, want 2x2", sub.Width(), sub.Height())
	}
	if sub.GetPixel(1, 0) != 1 {
		t.Errorf("sub pixel (1,0) = %d, want 1", sub.GetPixel(1, 0))
	}
}

func TestBitmapComposeOr(t *testing.T) {
	dst := NewBitmap(4, 4)
	dst.SetPixel(0, 0, 1)
	src := NewBitmap(2, 2)
	src.SetPixel(1, 1, 1)
	dst.ComposeFrom(2, 2, src, ComposeOr)
	if dst.GetPixel(0, 0) != 1 {
		t.Errorf("expected original pixel to survive OR composite")
	}
	if dst.GetPixel(3, 3) != 1 {
		t.Errorf("expected composed pixel at (3,3) to be 1")
	}
}

func TestBitmapComposeReplace(t *testing.T) {
	dst := NewBitmap(2, 2)
	dst.Fill(true)
	src := NewBitmap(2, 2)
	dst.ComposeFrom(0, 0, src, ComposeReplace)
	if dst.GetPixel(0, 0) != 0 {
		t.Errorf("expected REPLACE to overwrite with source (zero) pixels")
	}
}

func TestBitmapExpand(t *testing.T) {
	bm := NewBitmap(3, 2)
	bm.SetPixel(0, 1, 1)
	bm.Expand(4, true)
	if bm.Height() != 4 {
		t.Fatalf("Height() = %d, want 4", bm.Height())
	}
	if bm.GetPixel(0, 1) != 1 {
		t.Errorf("existing pixel lost after Expand")
	}
	if bm.GetPixel(1, 3) != 1 {
		t.Errorf("new row not filled with default pixel after Expand")
	}
	// Expanding to a smaller or equal height is a no-op.
	bm.Expand(2, false)
	if bm.Height() != 4 {
		t.Errorf("Expand shrank the bitmap; Height() = %d, want 4", bm.Height())
	}
}

func TestBitmapCopyLine(t *testing.T) {
	bm := NewBitmap(8, 3)
	bm.SetPixel(3, 0, 1)
	bm.CopyLine(2, 0)
	if bm.GetPixel(3, 2) != 1 {
		t.Errorf("CopyLine did not replicate source row")
	}
}

func TestBitmapDuplicateIsIndependent(t *testing.T) {
	bm := NewBitmap(2, 2)
	dup := bm.Duplicate()
	dup.SetPixel(0, 0, 1)
	if bm.GetPixel(0, 0) != 0 {
		t.Errorf("Duplicate shares storage with the original")
	}
}
