// Package identifier mints booking ids and magic-link tokens.
// Generation is pure: uniqueness against storage is the caller's concern.
package identifier

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// BookingIDPrefix starts every human-readable booking id.
	BookingIDPrefix = "BK"
	// MagicLinkTokenLength is the length of a magic-link token.
	MagicLinkTokenLength = 21

	suffixAlphabet = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	suffixLength   = 6
)

// Generator produces booking ids (time prefix + random suffix) and
// URL-safe magic-link tokens.
type Generator struct {
	now func() time.Time
}

// NewGenerator creates a generator using the wall clock.
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// NewBookingID returns e.g. BK-LZ3K9Q1A-7XKQ2M.
func (g *Generator) NewBookingID() (string, error) {
	suffix, err := gonanoid.Generate(suffixAlphabet, suffixLength)
	if err != nil {
		return "", fmt.Errorf("booking id suffix: %w", err)
	}
	stamp := strings.ToUpper(strconv.FormatInt(g.now().UnixMilli(), 36))
	return BookingIDPrefix + "-" + stamp + "-" + suffix, nil
}

// NewMagicLinkToken returns a 21-character token over the URL-safe nanoid alphabet.
func (g *Generator) NewMagicLinkToken() (string, error) {
	tok, err := gonanoid.New(MagicLinkTokenLength)
	if err != nil {
		return "", fmt.Errorf("magic link token: %w", err)
	}
	return tok, nil
}
