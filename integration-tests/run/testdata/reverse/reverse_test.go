package reverse

import "testing"

func FuzzReverse(f *testing.F) {
	f.Add("hello")
	f.Fuzz(func(t *testing.T, s string) {
		if doubled := Reverse(Reverse(s)); doubled != s {
			t.Errorf("Reverse(Reverse(%q)) = %q", s, doubled)
		}
	})
}
