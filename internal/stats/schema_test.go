package stats

import "testing"

/*
Test_ProbeKinds classifies a mixed sample: clean numerics (including
scientific notation and nulls mid-column) probe numeric; any non-numeric
token or an all-null sample probes categorical.
*/
func Test_ProbeKinds(t *testing.T) {
	headers := []string{"id", "price", "city", "empty", "mixed"}
	sample := [][]string{
		{"1", "10.5", "Praha", "", "1"},
		{"2", "", "Brno", "", "x"},
		{"3", "2.5e1", "Ostrava", "", "3"},
	}

	schemas := ProbeKinds(headers, sample, 0)

	want := []ColumnKind{KindNumeric, KindNumeric, KindCategorical, KindCategorical, KindCategorical}
	for i, k := range want {
		if schemas[i].Kind != k {
			t.Fatalf("column %q kind = %v, want %v", headers[i], schemas[i].Kind, k)
		}
		if schemas[i].Position != i {
			t.Fatalf("column %q position = %d, want %d", headers[i], schemas[i].Position, i)
		}
		if schemas[i].Name != headers[i] {
			t.Fatalf("column %d name = %q, want %q", i, schemas[i].Name, headers[i])
		}
	}
}

/*
Test_ProbeKinds_AllNullDefaultsCategorical: zero non-null samples must not
produce a numeric classification on no evidence.
*/
func Test_ProbeKinds_AllNullDefaultsCategorical(t *testing.T) {
	schemas := ProbeKinds([]string{"c"}, [][]string{{""}, {" "}, {""}}, 0)
	if schemas[0].Kind != KindCategorical {
		t.Fatalf("all-null column kind = %v, want categorical", schemas[0].Kind)
	}
}

/*
Test_ProbeKinds_SampleCap: rows past maxSample must not influence the
classification.
*/
func Test_ProbeKinds_SampleCap(t *testing.T) {
	sample := [][]string{
		{"1"},
		{"2"},
		{"not-numeric"}, // beyond the cap; ignored
	}
	schemas := ProbeKinds([]string{"n"}, sample, 2)
	if schemas[0].Kind != KindNumeric {
		t.Fatalf("kind = %v, want numeric (third row outside sample cap)", schemas[0].Kind)
	}
}

/*
Test_ProbeKinds_ShortRow: rows with fewer fields than the header are
tolerated during probing; the missing cells simply contribute nothing.
*/
func Test_ProbeKinds_ShortRow(t *testing.T) {
	sample := [][]string{
		{"1", "a"},
		{"2"}, // short row
	}
	schemas := ProbeKinds([]string{"n", "s"}, sample, 0)
	if schemas[0].Kind != KindNumeric {
		t.Fatalf("col 0 kind = %v, want numeric", schemas[0].Kind)
	}
	if schemas[1].Kind != KindCategorical {
		t.Fatalf("col 1 kind = %v, want categorical", schemas[1].Kind)
	}
}

/*
Test_ParseNumeric pins the accepted and rejected token forms. NaN and Inf
parse as floats but are not finite, so the profiler rejects them.
*/
func Test_ParseNumeric(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{" 3.14 ", 3.14, true},
		{"-1e-3", -0.001, true},
		{"", 0, false},
		{"NaN", 0, false},
		{"+Inf", 0, false},
		{"-Inf", 0, false},
		{"12abc", 0, false},
		{"0x10", 0, false},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, ok := ParseNumeric(c.in)
			if ok != c.ok {
				t.Fatalf("ParseNumeric(%q) ok = %v, want %v", c.in, ok, c.ok)
			}
			if ok && got != c.want {
				t.Fatalf("ParseNumeric(%q) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}
