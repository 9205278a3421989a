// Package sniff guesses the file-level properties of a delimited text file
// from a small byte sample: the character encoding and the field delimiter.
//
// The guesses are made once, before any aggregation starts, and the rest of
// the program treats the result as a fixed, opaque input. The heuristics are
// deliberately simple: a short fixed candidate list for each property, with
// the encoding scored by decode cleanliness and the delimiter by how many
// columns it yields on the first sample line.
package sniff

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	encunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrNoEncoding is returned when no candidate encoding decodes the sample
// acceptably. It is one of the few fatal conditions of a profiling run.
var ErrNoEncoding = errors.New("sniff: no candidate encoding decodes the sample")

// Properties is the resolved (encoding, delimiter) pair plus the evidence
// behind the choice.
type Properties struct {
	// Encoding decodes the source into UTF-8. Never nil.
	Encoding encoding.Encoding
	// EncodingName is the candidate's human-readable name for reports.
	EncodingName string
	// Delimiter is the winning field separator rune.
	Delimiter rune
	// Columns is the parsed column count of the first line under the winning
	// delimiter, which is also the delimiter's score.
	Columns int
}

// encodingCandidate pairs an encoding with its display name. Order is the
// tie-break preference.
type encodingCandidate struct {
	name string
	enc  encoding.Encoding
}

// candidateEncodings is the fixed list the sniffer tries, most common first.
// UTF-8 wins outright when the sample is valid UTF-8; the single-byte code
// pages are fallbacks for legacy exports.
var candidateEncodings = []encodingCandidate{
	{"utf-8", encunicode.UTF8},
	{"windows-1252", charmap.Windows1252},
	{"windows-1250", charmap.Windows1250},
	{"iso-8859-1", charmap.ISO8859_1},
	{"iso-8859-2", charmap.ISO8859_2},
}

// candidateDelimiters is the fixed list of separators, scored by parsed
// column count on the first line. Order is the tie-break preference.
var candidateDelimiters = []rune{',', ';', '\t', '|'}

// namedEncodings are resolvable by name only, not tried during detection:
// the UTF-16 variants are BOM-detected, and scoring their decoders against
// BOM-less single-byte data would be meaningless.
var namedEncodings = []encodingCandidate{
	{"utf-16le", encunicode.UTF16(encunicode.LittleEndian, encunicode.UseBOM)},
	{"utf-16be", encunicode.UTF16(encunicode.BigEndian, encunicode.UseBOM)},
}

// EncodingByName resolves a configured encoding name to the matching
// candidate. The empty string means "detect"; unknown names are an error so
// a typo in a profile fails loudly instead of silently mis-decoding.
func EncodingByName(name string) (encoding.Encoding, error) {
	if name == "" {
		return nil, nil
	}
	for _, cand := range candidateEncodings {
		if strings.EqualFold(cand.name, name) {
			return cand.enc, nil
		}
	}
	for _, cand := range namedEncodings {
		if strings.EqualFold(cand.name, name) {
			return cand.enc, nil
		}
	}
	return nil, fmt.Errorf("sniff: unknown encoding %q", name)
}

// maxReplacementRatio is the rejection threshold for an encoding candidate:
// if more than this fraction of decoded runes are U+FFFD replacements the
// candidate clearly does not fit the byte stream.
const maxReplacementRatio = 0.05

// Detect inspects the sampled bytes and resolves both properties.
// BOM-carrying UTF-8/UTF-16 inputs are recognized directly; everything else
// goes through the candidate scoring loops.
func Detect(sample []byte) (Properties, error) {
	if len(sample) == 0 {
		return Properties{}, fmt.Errorf("sniff: empty sample")
	}

	name, enc, decoded, err := detectEncoding(sample)
	if err != nil {
		return Properties{}, err
	}

	delim, cols := detectDelimiter(decoded)

	return Properties{
		Encoding:     enc,
		EncodingName: name,
		Delimiter:    delim,
		Columns:      cols,
	}, nil
}

// detectEncoding picks the candidate with the cleanest decode of the sample.
// Returns the decoded sample as well so the delimiter scoring can reuse it.
func detectEncoding(sample []byte) (string, encoding.Encoding, string, error) {
	// BOMs are unambiguous; short-circuit on them.
	switch {
	case bytes.HasPrefix(sample, []byte{0xEF, 0xBB, 0xBF}):
		enc := encunicode.UTF8BOM
		dec, _ := decodeWith(enc, sample)
		return "utf-8 (bom)", enc, dec, nil
	case bytes.HasPrefix(sample, []byte{0xFF, 0xFE}):
		enc := encunicode.UTF16(encunicode.LittleEndian, encunicode.UseBOM)
		dec, _ := decodeWith(enc, sample)
		return "utf-16le", enc, dec, nil
	case bytes.HasPrefix(sample, []byte{0xFE, 0xFF}):
		enc := encunicode.UTF16(encunicode.BigEndian, encunicode.UseBOM)
		dec, _ := decodeWith(enc, sample)
		return "utf-16be", enc, dec, nil
	}

	// Valid UTF-8 wins outright; a truncated trailing rune (the sample is a
	// byte-limited prefix) does not count against it.
	if utf8.Valid(trimPartialRune(sample)) {
		dec, _ := decodeWith(encunicode.UTF8, trimPartialRune(sample))
		return "utf-8", encunicode.UTF8, dec, nil
	}

	bestIdx := -1
	bestRatio := 0.0
	bestDecoded := ""
	for i, cand := range candidateEncodings {
		if cand.enc == encunicode.UTF8 {
			continue // already rejected above
		}
		decoded, ratio := decodeWith(cand.enc, sample)
		if ratio > maxReplacementRatio {
			continue
		}
		if bestIdx == -1 || ratio < bestRatio {
			bestIdx, bestRatio, bestDecoded = i, ratio, decoded
		}
	}
	if bestIdx == -1 {
		return "", nil, "", ErrNoEncoding
	}
	c := candidateEncodings[bestIdx]
	return c.name, c.enc, bestDecoded, nil
}

// decodeWith decodes sample under enc and reports the fraction of runes
// that came out as U+FFFD replacements.
func decodeWith(enc encoding.Encoding, sample []byte) (string, float64) {
	decoded, _, err := transform.Bytes(enc.NewDecoder(), sample)
	if err != nil {
		return "", 1
	}
	total, bad := 0, 0
	for _, r := range string(decoded) {
		total++
		if r == utf8.RuneError {
			bad++
		}
	}
	if total == 0 {
		return "", 1
	}
	return string(decoded), float64(bad) / float64(total)
}

// trimPartialRune drops a trailing incomplete UTF-8 sequence caused by the
// sample being cut at an arbitrary byte offset.
func trimPartialRune(b []byte) []byte {
	for n := 0; n < utf8.UTFMax && len(b) > 0; n++ {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size != 1 {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}

// detectDelimiter scores each candidate by the parsed column count of the
// first sample line, quoting-aware via encoding/csv. Highest count wins;
// ties keep the earlier candidate.
func detectDelimiter(decoded string) (rune, int) {
	line := decoded
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSuffix(line, "\r")

	best := candidateDelimiters[0]
	bestCols := 1
	for _, d := range candidateDelimiters {
		r := csv.NewReader(strings.NewReader(line))
		r.Comma = d
		r.LazyQuotes = true
		rec, err := r.Read()
		if err != nil {
			continue
		}
		if len(rec) > bestCols {
			best = d
			bestCols = len(rec)
		}
	}
	return best, bestCols
}

// NormalizeName converts arbitrary header text into a lowercase ASCII
// identifier usable as a database column or file name:
//  1. lowercase
//  2. strip accents (NFD → remove Mn → NFC)
//  3. keep [a-z0-9_]; convert space/dash/dot to underscore; drop others
//  4. fallback to "col" if nothing survives
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		default:
			// drop anything else
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	return name
}
