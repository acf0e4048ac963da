package docval

import "testing"

func TestCompareTypeHierarchy(t *testing.T) {
	order := []Value{Undefined, Null, Number(1e9), String("z"), Bool(true), Date(0), Array(nil), Object(nil)}
	for i := 0; i < len(order)-1; i++ {
		if c := Compare(order[i], order[i+1], nil); c >= 0 {
			t.Errorf("expected %v < %v, got compare = %d", order[i], order[i+1], c)
		}
	}
}

func TestCompareAntisymmetricAndTransitive(t *testing.T) {
	vals := []Value{Number(1), Number(2), Number(3), String("a"), String("b")}
	for _, a := range vals {
		for _, b := range vals {
			if Compare(a, b, nil) != -Compare(b, a, nil) {
				t.Errorf("Compare(%v,%v) not antisymmetric", a, b)
			}
		}
	}
	// 1 < 2 < 3 implies 1 < 3
	if Compare(Number(1), Number(2), nil) >= 0 || Compare(Number(2), Number(3), nil) >= 0 {
		t.Fatal("precondition broken")
	}
	if Compare(Number(1), Number(3), nil) >= 0 {
		t.Error("transitivity violated")
	}
}

func TestCompareArraysLexicographic(t *testing.T) {
	a := Array([]Value{Number(1), Number(2)})
	b := Array([]Value{Number(1), Number(3)})
	if Compare(a, b, nil) >= 0 {
		t.Error("expected a < b")
	}
	short := Array([]Value{Number(1)})
	long := Array([]Value{Number(1), Number(0)})
	if Compare(short, long, nil) >= 0 {
		t.Error("expected shorter prefix-equal array to sort first")
	}
}

func TestCompareObjectsBySortedValues(t *testing.T) {
	a := Object(map[string]Value{"a": Number(1), "b": Number(2)})
	b := Object(map[string]Value{"a": Number(1), "b": Number(3)})
	if Compare(a, b, nil) >= 0 {
		t.Error("expected a < b")
	}
}

func TestComparableRequiresSameScalarKind(t *testing.T) {
	if Comparable(Number(1), String("1")) {
		t.Error("number and string should not be comparable")
	}
	if !Comparable(Number(1), Number(2)) {
		t.Error("two numbers should be comparable")
	}
	if Comparable(Bool(true), Bool(false)) {
		t.Error("bools are not comparable via $lt/$gt family")
	}
}

func TestCompareBoolOrder(t *testing.T) {
	if Compare(Bool(false), Bool(true), nil) >= 0 {
		t.Error("false should sort before true")
	}
}
