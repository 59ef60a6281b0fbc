package stringutil

import "fmt"

const ShortenLogLength = 16

// ShortenLog keeps the first and last ShortenLogLength/2 characters of a long
// identifier.
func ShortenLog(s string) string {
	half := ShortenLogLength / 2
	if len(s) <= ShortenLogLength {
		return s
	}
	return fmt.Sprintf("%s...%s", s[:half], s[len(s)-half:])
}

// ShortHash shortens the display form of a hash for log lines.
func ShortHash(h fmt.Stringer) string {
	return ShortenLog(h.String())
}
