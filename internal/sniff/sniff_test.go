package sniff

import (
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

/*
Test_Detect_UTF8Comma: the plain case, valid UTF-8 and comma-separated.
*/
func Test_Detect_UTF8Comma(t *testing.T) {
	sample := []byte("id,name,price\n1,widget,9.99\n")
	p, err := Detect(sample)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if p.EncodingName != "utf-8" {
		t.Fatalf("encoding = %q, want utf-8", p.EncodingName)
	}
	if p.Delimiter != ',' {
		t.Fatalf("delimiter = %q, want ','", p.Delimiter)
	}
	if p.Columns != 3 {
		t.Fatalf("columns = %d, want 3", p.Columns)
	}
}

/*
Test_Detect_DelimiterByMaxColumns: the winning delimiter is the one that
yields the most columns on the first line, even with commas present inside
the data.
*/
func Test_Detect_DelimiterByMaxColumns(t *testing.T) {
	cases := []struct {
		name   string
		sample string
		want   rune
		cols   int
	}{
		{"semicolon", "a;b;c;d\n1;2;3;4\n", ';', 4},
		{"tab", "a\tb\tc\n1\t2\t3\n", '\t', 3},
		{"pipe", "x|y\n1|2\n", '|', 2},
		{"comma beats pipe", "a,b,c|d\n", ',', 3},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p, err := Detect([]byte(c.sample))
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if p.Delimiter != c.want {
				t.Fatalf("delimiter = %q, want %q", p.Delimiter, c.want)
			}
			if p.Columns != c.cols {
				t.Fatalf("columns = %d, want %d", p.Columns, c.cols)
			}
		})
	}
}

/*
Test_Detect_UTF8BOM: a BOM short-circuits detection and the returned
encoding strips the BOM on decode.
*/
func Test_Detect_UTF8BOM(t *testing.T) {
	sample := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b\n1,2\n")...)
	p, err := Detect(sample)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if p.EncodingName != "utf-8 (bom)" {
		t.Fatalf("encoding = %q, want utf-8 (bom)", p.EncodingName)
	}
	decoded, _, err := transform.Bytes(p.Encoding.NewDecoder(), sample)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(decoded) != "a,b\n1,2\n" {
		t.Fatalf("decoded = %q, BOM not stripped", decoded)
	}
}

/*
Test_Detect_Windows1252Fallback: bytes invalid as UTF-8 but clean under a
legacy code page fall through to the single-byte candidates.
*/
func Test_Detect_Windows1252Fallback(t *testing.T) {
	// "café,prix\n" encoded in windows-1252: é = 0xE9 (invalid as UTF-8 here).
	raw, _, err := transform.Bytes(charmap.Windows1252.NewEncoder(), []byte("café,prix\n1,2\n"))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	p, err := Detect(raw)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if p.EncodingName != "windows-1252" {
		t.Fatalf("encoding = %q, want windows-1252", p.EncodingName)
	}
	if p.Delimiter != ',' {
		t.Fatalf("delimiter = %q, want ','", p.Delimiter)
	}
}

/*
Test_Detect_EmptySample is an error, not a guess.
*/
func Test_Detect_EmptySample(t *testing.T) {
	if _, err := Detect(nil); err == nil {
		t.Fatalf("expected error for empty sample")
	}
}

/*
Test_EncodingByName resolves configured names case-insensitively and rejects
typos.
*/
func Test_EncodingByName(t *testing.T) {
	enc, err := EncodingByName("Windows-1252")
	if err != nil || enc != charmap.Windows1252 {
		t.Fatalf("EncodingByName(Windows-1252) = %v, %v", enc, err)
	}
	if enc, err := EncodingByName(""); err != nil || enc != nil {
		t.Fatalf("empty name should mean detect, got %v, %v", enc, err)
	}
	if _, err := EncodingByName("latin-99"); err == nil {
		t.Fatalf("expected error for unknown encoding name")
	}
}

/*
Test_EncodingByName_UTF16: the UTF-16 variants are pinnable by name even
though detection only reaches them through a BOM.
*/
func Test_EncodingByName_UTF16(t *testing.T) {
	for _, name := range []string{"utf-16le", "UTF-16BE"} {
		enc, err := EncodingByName(name)
		if err != nil || enc == nil {
			t.Fatalf("EncodingByName(%q) = %v, %v", name, enc, err)
		}
	}

	// "a,b" in UTF-16LE without a BOM; a pinned utf-16le must decode it.
	raw := []byte{'a', 0x00, ',', 0x00, 'b', 0x00}
	enc, err := EncodingByName("utf-16le")
	if err != nil {
		t.Fatalf("EncodingByName: %v", err)
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(decoded) != "a,b" {
		t.Fatalf("decoded = %q, want a,b", decoded)
	}
}

/*
Test_NormalizeName mirrors the header-to-identifier rules used for history
table columns and chart file names.
*/
func Test_NormalizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Price (USD)", "price_usd"},
		{"Krátký Text", "kratky_text"},
		{"  spaced  out  ", "spaced_out"},
		{"a.b-c d", "a_b_c_d"},
		{"___", "col"},
		{"", "col"},
		{"Überschuß", "uberschu"},
	}
	for _, c := range cases {
		if got := NormalizeName(c.in); got != c.want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
