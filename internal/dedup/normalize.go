package dedup

import (
	"strings"
	"unicode"
)

// Corporate suffixes stripped from name keys so "Acme Dental LLC" and
// "Acme Dental" collapse to the same key.
var nameSuffixes = []string{"llc", "inc", "ltd", "corp", "co", "pllc", "pc", "pa"}

// Street-type abbreviations folded to one form for address keys.
var streetAbbrevs = map[string]string{
	"street": "st", "avenue": "ave", "boulevard": "blvd", "drive": "dr",
	"road": "rd", "lane": "ln", "court": "ct", "place": "pl",
	"parkway": "pkwy", "highway": "hwy", "suite": "ste",
	"north": "n", "south": "s", "east": "e", "west": "w",
}

// normalizeKey lowercases, strips punctuation, and collapses runs of
// non-alphanumerics to single spaces.
func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteByte(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// NameKey returns the dedup key form of a business name.
func NameKey(name string) string {
	key := normalizeKey(name)
	if key == "" {
		return ""
	}
	tokens := strings.Fields(key)
	for len(tokens) > 1 && isNameSuffix(tokens[len(tokens)-1]) {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

func isNameSuffix(tok string) bool {
	for _, s := range nameSuffixes {
		if tok == s {
			return true
		}
	}
	return false
}

// AddressKey returns the dedup key form of a street address, folding street
// type words to their abbreviations.
func AddressKey(address string) string {
	key := normalizeKey(address)
	if key == "" {
		return ""
	}
	tokens := strings.Fields(key)
	for i, tok := range tokens {
		if abbr, ok := streetAbbrevs[tok]; ok {
			tokens[i] = abbr
		}
	}
	return strings.Join(tokens, " ")
}

// CityKey returns the dedup key form of a city or region name.
func CityKey(name string) string {
	return normalizeKey(name)
}

// PhoneKey reduces a phone number to its significant digits, dropping a
// leading country code 1.
func PhoneKey(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) < 7 {
		return ""
	}
	return digits
}

// PostalKey trims a postal code to its primary segment (ZIP5 for ZIP+4).
func PostalKey(postal string) string {
	postal = strings.TrimSpace(postal)
	if i := strings.IndexByte(postal, '-'); i > 0 {
		postal = postal[:i]
	}
	return postal
}

// LeadingTokenOverlap counts how many leading tokens two name keys share.
func LeadingTokenOverlap(a, b string) int {
	at := strings.Fields(NameKey(a))
	bt := strings.Fields(NameKey(b))
	n := 0
	for n < len(at) && n < len(bt) && at[n] == bt[n] {
		n++
	}
	return n
}
