package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const slugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// maxSlugBase keeps the readable part of a slug short enough for QR codes
const maxSlugBase = 40

// Slugify turns a title into a lowercase, dash separated ASCII string
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFKD.String(title) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugBase {
		slug = strings.Trim(slug[:maxSlugBase], "-")
	}
	if slug == "" {
		slug = "link"
	}
	return slug
}

// RandomSuffix returns n random base36 characters
func RandomSuffix(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(slugAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = slugAlphabet[idx.Int64()]
	}
	return string(out), nil
}

// NewSlug builds a unique-looking slug from a title
func NewSlug(title string) (string, error) {
	suffix, err := RandomSuffix(6)
	if err != nil {
		return "", err
	}
	return Slugify(title) + "-" + suffix, nil
}
