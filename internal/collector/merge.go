package collector

import (
	"github.com/nichelabs/discovery-engine/internal/dedup"
	"github.com/nichelabs/discovery-engine/internal/discovery"
)

// merger combines candidates for the same grid across providers. The first
// provider configured is authoritative for identity fields; later providers
// fill gaps and contribute additive data only.
type merger struct {
	primary string
	order   []string
	byKey   map[string]*discovery.Candidate
}

func newMerger(primaryProvider string) *merger {
	return &merger{
		primary: primaryProvider,
		byKey:   make(map[string]*discovery.Candidate),
	}
}

// candidateKey derives a cross-provider identity key using the same
// normalization the store-level dedup uses, strongest signal first.
func candidateKey(c discovery.Candidate) string {
	nameKey := dedup.NameKey(c.Name)
	if postal := dedup.PostalKey(c.PostalCode); nameKey != "" && postal != "" {
		return "np:" + nameKey + "|" + postal
	}
	if addr := dedup.AddressKey(c.Address); addr != "" && c.City != "" {
		return "ad:" + addr + "|" + dedup.AddressKey(c.City)
	}
	if phone := dedup.PhoneKey(c.Phone); phone != "" {
		return "ph:" + phone
	}
	return "nm:" + nameKey
}

func (m *merger) add(providerName string, cands []discovery.Candidate) {
	authoritative := providerName == m.primary
	for i := range cands {
		key := candidateKey(cands[i])
		existing, ok := m.byKey[key]
		if !ok {
			c := cands[i]
			m.byKey[key] = &c
			m.order = append(m.order, key)
			continue
		}
		combine(existing, cands[i], authoritative)
	}
}

// combine folds src into dst. Identity fields follow the authoritative
// provider; contact and review fields fill gaps only; lists and provenance
// are additive.
func combine(dst *discovery.Candidate, src discovery.Candidate, authoritative bool) {
	setString(&dst.Name, src.Name, authoritative)
	setString(&dst.Address, src.Address, authoritative)
	setString(&dst.City, src.City, authoritative)
	setString(&dst.Region, src.Region, authoritative)
	setString(&dst.PostalCode, src.PostalCode, authoritative)
	setString(&dst.Phone, src.Phone, authoritative)
	setString(&dst.Website, src.Website, false)
	setString(&dst.Email, src.Email, false)

	if (src.Lat != 0 || src.Lng != 0) && (authoritative || (dst.Lat == 0 && dst.Lng == 0)) {
		dst.Lat, dst.Lng = src.Lat, src.Lng
	}
	if dst.Rating == 0 && src.Rating != 0 {
		dst.Rating = src.Rating
	}
	if dst.ReviewCount == 0 && src.ReviewCount != 0 {
		dst.ReviewCount = src.ReviewCount
	}
	if len(dst.Hours) == 0 {
		dst.Hours = append([]string(nil), src.Hours...)
	}

	dst.Categories = appendMissing(dst.Categories, src.Categories)
	dst.PhotoURLs = appendMissing(dst.PhotoURLs, src.PhotoURLs)
	for k, v := range src.Sources {
		if dst.Sources == nil {
			dst.Sources = make(map[string]string)
		}
		if _, ok := dst.Sources[k]; !ok {
			dst.Sources[k] = v
		}
	}
	for k, v := range src.Socials {
		if dst.Socials == nil {
			dst.Socials = make(map[string]string)
		}
		if _, ok := dst.Socials[k]; !ok {
			dst.Socials[k] = v
		}
	}
}

func setString(dst *string, src string, overwrite bool) {
	if src == "" {
		return
	}
	if *dst == "" || overwrite {
		*dst = src
	}
}

func appendMissing(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[s] = true
	}
	for _, s := range incoming {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		existing = append(existing, s)
	}
	return existing
}

// candidates returns merged candidates in first-seen order.
func (m *merger) candidates() []discovery.Candidate {
	out := make([]discovery.Candidate, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, *m.byKey[key])
	}
	return out
}
