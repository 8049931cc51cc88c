// Package swfmt implements the three-way printf-style formatting rule
// applied to a decoded ITM software-channel value (§4.4), shared by the
// fan-out channel workers and the cat-style formatted sink so the same
// template behaves identically in both.
package swfmt

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/coresight-tools/mtrace/itm"
)

// MaxRecordLen is the maximum length of a formatted software-channel
// output record; longer records are truncated.
const MaxRecordLen = 100

var verbPattern = regexp.MustCompile(`%[-+ 0#]*[0-9]*(\.[0-9]+)?[vTtbcdoqxXUeEfFgGsp%]`)

// countVerbs returns how many non-literal (%%) verbs a template contains,
// so the value can be replicated exactly that many times instead of
// risking Go's "%!(EXTRA ...)" annotation on over-supplied Sprintf args.
func countVerbs(template string) int {
	n := 0
	for _, m := range verbPattern.FindAllString(template, -1) {
		if m != "%%" {
			n++
		}
	}
	return n
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// Format applies a channel's printf-style template to a decoded software
// value, per §4.4's three sub-cases (float reinterpret, per-byte %c
// broadcast, or integer replication), truncated to MaxRecordLen.
func Format(template string, sw itm.Software) []byte {
	var out []byte
	switch {
	case strings.Contains(template, "%f"):
		out = []byte(formatFloat(template, sw.Value))
	case strings.Contains(template, "%c"):
		out = formatChars(template, sw)
	default:
		out = []byte(formatInt(template, sw.Value))
	}
	if len(out) > MaxRecordLen {
		out = out[:MaxRecordLen]
	}
	return out
}

// formatFloat reinterprets the raw 32-bit payload as an IEEE-754 single
// precision value using a byte-preserving cast (host endianness; the
// caller is responsible for accounting for cross-endian targets).
func formatFloat(template string, value uint32) string {
	f := math.Float32frombits(value)
	n := clamp(countVerbs(template), 1, 4)
	args := make([]any, n)
	for i := range args {
		args[i] = f
	}
	return fmt.Sprintf(template, args...)
}

func formatChars(template string, sw itm.Software) []byte {
	var buf bytes.Buffer
	v := sw.Value
	n := clamp(countVerbs(template), 1, 4)
	for i := 0; i < sw.Len; i++ {
		b := byte(v)
		v >>= 8
		args := make([]any, n)
		for j := range args {
			args[j] = rune(b)
		}
		buf.WriteString(fmt.Sprintf(template, args...))
	}
	return buf.Bytes()
}

func formatInt(template string, value uint32) string {
	n := clamp(countVerbs(template), 1, 4)
	args := make([]any, n)
	for i := range args {
		args[i] = value
	}
	return fmt.Sprintf(template, args...)
}

// FormatRaw returns the raw 4-byte little-endian payload, used when a
// channel has no template configured (§4.4 "Raw mode").
func FormatRaw(sw itm.Software) []byte {
	return []byte{
		byte(sw.Value),
		byte(sw.Value >> 8),
		byte(sw.Value >> 16),
		byte(sw.Value >> 24),
	}
}
