package patientid

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"480319", "0480319"},
		{"0480319", "0480319"},
		{" 480319 ", "0480319"},
		{"1", "0000001"},
		{"", "0000000"},
		{"12345678", "12345678"},
		{"\t42\n", "0000042"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"480319", " 9 ", "", "0000000", "99999999"}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
		if len(once) < Width {
			t.Errorf("Normalize(%q) = %q, shorter than %d", in, once, Width)
		}
	}
}
