package engine

import (
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	prefixMaxLen     = 5
	valueTokenMaxLen = 3
	prefixFallback   = "PROD"
	valueFallback    = "VAR"
	skuPrefix        = "VAR"
	randomTokenLen   = 6
)

var (
	skuPattern = regexp.MustCompile(`^[A-Z0-9-]+$`)

	// 36^6, the number of distinct 6-char base-36 tokens.
	randomTokenSpace = uint64(2176782336)
)

// NormalizePrefix turns a dimension name into an upper-case token of at most
// five characters from [A-Z0-9], or "PROD" when nothing survives.
func NormalizePrefix(text string) string {
	return normalize(text, prefixMaxLen, prefixFallback)
}

// NormalizeValueToken turns a dimension value into an upper-case token of at
// most three characters from [A-Z0-9], or "VAR" when nothing survives.
func NormalizeValueToken(text string) string {
	return normalize(text, valueTokenMaxLen, valueFallback)
}

func normalize(text string, maxLen int, fallback string) string {
	// Decompose and drop combining marks so "é" folds to "E" instead of vanishing.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	for _, r := range strings.ToUpper(folded) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() >= maxLen {
				break
			}
		}
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}

// ValidSKU reports whether sku only holds [A-Z0-9-].
func ValidSKU(sku string) bool {
	return skuPattern.MatchString(sku)
}

// SKUGenerator builds option SKUs of the form VAR-<tok>-...-<stamp>-<index>.
// Uniqueness within a product comes from index, which the combination
// generator sets to the option's position.
type SKUGenerator struct {
	now    func() time.Time
	token  func(string) string
	random func() string
}

func NewSKUGenerator() *SKUGenerator {
	return &SKUGenerator{now: time.Now, token: NormalizeValueToken, random: randomToken}
}

// OptionSKU returns a SKU for the combination at position index. Output always
// matches ^[A-Z0-9-]+$; if the assembled value does not, a random base-36
// token is substituted.
func (g *SKUGenerator) OptionSKU(assignment model.ValueAssignment, index int) string {
	parts := make([]string, 0, len(assignment)+3)
	parts = append(parts, skuPrefix)
	for _, p := range assignment {
		parts = append(parts, g.token(p.Value))
	}
	parts = append(parts, timestampToken(g.now()), strconv.Itoa(index))

	sku := strings.Join(parts, "-")
	if ValidSKU(sku) {
		return sku
	}
	return fmt.Sprintf("%s-%s", skuPrefix, g.random())
}

func timestampToken(t time.Time) string {
	return fmt.Sprintf("%06d", t.UnixMilli()%1_000_000)
}

func randomToken() string {
	id := uuid.New()
	n := binary.BigEndian.Uint64(id[:8]) % randomTokenSpace
	tok := strings.ToUpper(strconv.FormatUint(n, 36))
	if len(tok) < randomTokenLen {
		tok = strings.Repeat("0", randomTokenLen-len(tok)) + tok
	}
	return tok
}
