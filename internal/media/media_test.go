package media

import "testing"

func TestTransformString(t *testing.T) {
	tests := []struct {
		name string
		in   Transform
		want string
	}{
		{"profile", ProfileTransform, "c_fill,g_face,h_500,w_500"},
		{"no focus", Transform{Width: 100, Height: 50, Crop: "fill"}, "c_fill,h_50,w_100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDestroyResultOK(t *testing.T) {
	var nilResult *DestroyResult
	if nilResult.OK() {
		t.Error("nil result should not be OK")
	}
	if (&DestroyResult{Result: ResultNotFound}).OK() {
		t.Error("not found result should not be OK")
	}
	if !(&DestroyResult{Result: ResultOK}).OK() {
		t.Error("ok result should be OK")
	}
}
