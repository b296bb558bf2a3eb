package mode

import "testing"

func TestInternReturnsSameInstance(t *testing.T) {
	a := Intern("Is", SortInt, 32, true, ArithTwosComplement)
	if a != Is {
		t.Error("Intern(\"Is\", ...) should return the predeclared Is mode by pointer identity")
	}
}

func TestMinMaxSignedAndUnsigned(t *testing.T) {
	if Is.Min() != -(1 << 31) || Is.Max() != 1<<31-1 {
		t.Errorf("Is.Min()/Max() = %d/%d, want %d/%d", Is.Min(), Is.Max(), -(1 << 31), 1<<31-1)
	}
	if Iu.Min() != 0 || Iu.Max() != 1<<32-1 {
		t.Errorf("Iu.Min()/Max() = %d/%d, want 0/%d", Iu.Min(), Iu.Max(), 1<<32-1)
	}
}

func TestConvLegal(t *testing.T) {
	cases := []struct {
		from, to *Mode
		want     bool
	}{
		{Is, Hs, true},   // narrow within int
		{Is, F, true},    // int -> float
		{F, Is, true},    // float -> int
		{P, Ls, true},    // reference -> int, same width
		{Is, P, false},   // int -> reference, different width
		{Is, Is, true},   // identity
		{Bb, Is, false},  // internal-boolean has no cross-sort rule
	}
	for _, c := range cases {
		if got := ConvLegal(c.from, c.to); got != c.want {
			t.Errorf("ConvLegal(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}
