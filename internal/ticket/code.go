package ticket

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// CodeLength is the number of characters in an issued ticket code.
	CodeLength = 6
	// MaxCodeAttempts bounds the collision retry loop.
	MaxCodeAttempts = 100

	// LegacyPrefix precedes the decimal ticket id in codes printed by the old
	// system. Such codes are accepted on scan but never issued.
	LegacyPrefix = "NJOY-TICKET-"

	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// largest multiple of len(codeAlphabet) that fits in a byte
	codeByteLimit = 252
)

// CodeGenerator draws uniformly random ticket codes.
type CodeGenerator struct {
	random      io.Reader
	maxAttempts int
}

// NewCodeGenerator creates a generator backed by crypto/rand.
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{random: rand.Reader, maxAttempts: MaxCodeAttempts}
}

// NewCodeGeneratorFrom creates a generator reading randomness from r and giving
// up after maxAttempts collisions.
func NewCodeGeneratorFrom(r io.Reader, maxAttempts int) *CodeGenerator {
	return &CodeGenerator{random: r, maxAttempts: maxAttempts}
}

// Generate returns a code for which taken reports false. It fails with
// ErrGenerationExhausted once every attempt collided.
func (g *CodeGenerator) Generate(ctx context.Context, taken func(ctx context.Context, code string) (bool, error)) (string, error) {
	for range g.maxAttempts {
		code, err := g.draw()
		if err != nil {
			return "", err
		}

		exists, err := taken(ctx, code)
		if err != nil {
			return "", fmt.Errorf("checking code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}

	return "", ErrGenerationExhausted
}

// draw uses rejection sampling on single bytes so every symbol is equally likely.
func (g *CodeGenerator) draw() (string, error) {
	var sb strings.Builder
	sb.Grow(CodeLength)

	buf := make([]byte, CodeLength*2)
	for sb.Len() < CodeLength {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= codeByteLimit {
				continue
			}
			sb.WriteByte(codeAlphabet[int(b)%len(codeAlphabet)])
			if sb.Len() == CodeLength {
				break
			}
		}
	}

	return sb.String(), nil
}

// ValidCode reports whether code has the shape of an issued code.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(codeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

// ParseLegacyCode extracts the ticket id from a legacy "NJOY-TICKET-<id>" code.
func ParseLegacyCode(code string) (int64, bool) {
	upper := strings.ToUpper(code)
	idx := strings.Index(upper, LegacyPrefix)
	if idx < 0 {
		return 0, false
	}

	id, err := strconv.ParseInt(upper[idx+len(LegacyPrefix):], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
