package mode

import "testing"

func TestAddWrapsOnOverflow(t *testing.T) {
	a := NewInt(Bs, 100)
	b := NewInt(Bs, 100)
	sum, err := Add(a, b, Wrap)
	if err != nil {
		t.Fatalf("Add under Wrap should never error: %v", err)
	}
	if got := sum.Int64(); got != -56 {
		t.Errorf("Add(100,100) wrapped in Bs = %d, want -56", got)
	}
}

func TestAddSaturatesOnOverflow(t *testing.T) {
	a := NewInt(Bs, 100)
	b := NewInt(Bs, 100)
	sum, err := Add(a, b, Saturate)
	if err != nil {
		t.Fatalf("Add under Saturate should never error: %v", err)
	}
	if got := sum.Int64(); got != Bs.Max() {
		t.Errorf("Add(100,100) saturated in Bs = %d, want %d", got, Bs.Max())
	}
}

func TestAddBadPolicyErrorsOnOverflow(t *testing.T) {
	a := NewInt(Bs, 100)
	b := NewInt(Bs, 100)
	if _, err := Add(a, b, Bad); err == nil {
		t.Error("Add under Bad policy should error on overflow")
	}
	c := NewInt(Bs, 1)
	d := NewInt(Bs, 2)
	if _, err := Add(c, d, Bad); err != nil {
		t.Errorf("Add under Bad policy should not error when the sum fits: %v", err)
	}
}

func TestSubNoOverflowForInRangeValues(t *testing.T) {
	a := NewInt(Is, 5)
	b := NewInt(Is, 3)
	diff, err := Sub(a, b, Bad)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if diff.Int64() != 2 {
		t.Errorf("Sub(5,3) = %d, want 2", diff.Int64())
	}
}

func TestMulWrapsUnsigned(t *testing.T) {
	a := NewInt(Bu, 200)
	b := NewInt(Bu, 2)
	prod, err := Mul(a, b, Wrap)
	if err != nil {
		t.Fatalf("Mul under Wrap should never error: %v", err)
	}
	if got := prod.Int64(); got != 144 { // 400 mod 256
		t.Errorf("Mul(200,2) wrapped in Bu = %d, want 144", got)
	}
}

func TestCmpSignedOrdering(t *testing.T) {
	neg := NewInt(Is, -1)
	pos := NewInt(Is, 1)
	if Cmp(neg, pos) != Less {
		t.Error("Cmp(-1, 1) should be Less under signed ordering")
	}
	if Cmp(pos, neg) != Greater {
		t.Error("Cmp(1, -1) should be Greater under signed ordering")
	}
	if Cmp(pos, pos) != Equal {
		t.Error("Cmp(1, 1) should be Equal")
	}
}

func TestConvNarrowingTruncates(t *testing.T) {
	v := NewInt(Is, 300)
	narrow := Conv(v, Bu)
	if narrow.Int64() != 300%256 {
		t.Errorf("Conv(300, Bu) = %d, want %d", narrow.Int64(), 300%256)
	}
}

func TestConvIllegalReturnsZero(t *testing.T) {
	v := NewInt(Is, 42)
	illegal := Conv(v, P) // int32 -> 64-bit reference: width mismatch, illegal
	if illegal.Bits != 0 {
		t.Errorf("Conv of an illegal pair should return the zero Tarval, got Bits=%d", illegal.Bits)
	}
}

func TestShlAndShrRoundTripLogical(t *testing.T) {
	v := NewInt(Iu, 1)
	amt := NewInt(Iu, 4)
	shifted := Shl(v, amt)
	if shifted.Int64() != 16 {
		t.Errorf("Shl(1, 4) = %d, want 16", shifted.Int64())
	}
	back := Shr(shifted, amt)
	if back.Int64() != 1 {
		t.Errorf("Shr(16, 4) = %d, want 1", back.Int64())
	}
}

func TestShrsPreservesSign(t *testing.T) {
	v := NewInt(Is, -8)
	amt := NewInt(Is, 1)
	got := Shrs(v, amt)
	if got.Int64() != -4 {
		t.Errorf("Shrs(-8, 1) = %d, want -4", got.Int64())
	}
}
