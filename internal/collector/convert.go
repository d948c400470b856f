package collector

import (
	"errors"
	"strings"

	"github.com/nichelabs/discovery-engine/internal/discovery"
)

// Convert maps provider place details onto a candidate. A place needs a name
// and at least one of address, coordinates, or phone to be locatable; review
// fields are carried only when review import is enabled.
func Convert(d discovery.PlaceDetails, providerName string, importReviews bool) (discovery.Candidate, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return discovery.Candidate{}, errors.New("place has no name")
	}

	address := strings.TrimSpace(d.Address())
	hasCoords := d.Lat != 0 || d.Lng != 0
	phone := strings.TrimSpace(d.Phone)
	if address == "" && !hasCoords && phone == "" {
		return discovery.Candidate{}, errors.New("place has no address, coordinates, or phone")
	}

	cand := discovery.Candidate{
		Name:       name,
		Address:    address,
		City:       strings.TrimSpace(d.City),
		Region:     strings.TrimSpace(d.Region),
		PostalCode: strings.TrimSpace(d.PostalCode),
		Phone:      phone,
		Website:    strings.TrimSpace(d.Website),
		Lat:        d.Lat,
		Lng:        d.Lng,
		Categories: append([]string(nil), d.Categories...),
		Hours:      append([]string(nil), d.Hours...),
		PhotoURLs:  append([]string(nil), d.PhotoURLs...),
		Sources:    map[string]string{providerName: d.ExternalID},
	}
	if importReviews {
		cand.Rating = d.Rating
		cand.ReviewCount = d.ReviewCount
	}
	return cand, nil
}
