package docval

import "testing"

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"undefined", Undefined, false},
		{"null", Null, false},
		{"false", Bool(false), false},
		{"true", Bool(true), true},
		{"zero", Number(0), false},
		{"nonzero", Number(1), true},
		{"empty string", String(""), true},
		{"empty array", Array(nil), true},
		{"empty object", Object(nil), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Truthy(); got != tt.want {
				t.Errorf("Truthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScalar(t *testing.T) {
	if !Null.Scalar() {
		t.Error("Null should be scalar")
	}
	if Array(nil).Scalar() {
		t.Error("Array should not be scalar")
	}
	if Object(nil).Scalar() {
		t.Error("Object should not be scalar")
	}
}

func TestAsKindPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic accessing wrong kind")
		}
	}()
	_ = String("x").AsNumber()
}
