// Package googleplaces implements a search provider backed by the Google
// Places web service (nearby search + place details).
package googleplaces

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/nichelabs/discovery-engine/internal/discovery"
	"github.com/nichelabs/discovery-engine/internal/metrics"
)

const (
	defaultBaseURL = "https://maps.googleapis.com"
	// The nearby-search API returns at most three pages of twenty results.
	maxResults = 60
	maxPages   = 3
	// Places rejects radii above fifty kilometers.
	maxRadiusMeters = 50000
)

// detailFields is the field mask requested from the details endpoint.
const detailFields = "place_id,name,address_component,formatted_phone_number," +
	"website,geometry,rating,user_ratings_total,type,opening_hours,photo"

// Config captures the parameters required to call the Places API.
type Config struct {
	APIKey      string
	BaseURL     string
	HTTPTimeout time.Duration
	// PageDelay is the wait before a next_page_token becomes valid.
	PageDelay time.Duration
}

// Provider implements discovery.SearchProvider against the Places API.
type Provider struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	pageDelay time.Duration
	logger    *zap.Logger
}

// New creates a Places provider.
func New(cfg Config, logger *zap.Logger) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("places api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Provider{
		client:    &http.Client{Timeout: cfg.HTTPTimeout},
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		pageDelay: cfg.PageDelay,
		logger:    logger,
	}, nil
}

// Name implements discovery.SearchProvider.
func (p *Provider) Name() string { return "google_places" }

// MaxRadiusMeters implements discovery.SearchProvider.
func (p *Provider) MaxRadiusMeters() float64 { return maxRadiusMeters }

type nearbyResponse struct {
	Status        string         `json:"status"`
	ErrorMessage  string         `json:"error_message"`
	NextPageToken string         `json:"next_page_token"`
	Results       []nearbyResult `json:"results"`
}

type nearbyResult struct {
	PlaceID  string   `json:"place_id"`
	Name     string   `json:"name"`
	Types    []string `json:"types"`
	Geometry geometry `json:"geometry"`
}

type geometry struct {
	Location latLng `json:"location"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NearbySearch returns place summaries around a point, following page tokens
// up to the provider's sixty-result cap.
func (p *Provider) NearbySearch(ctx context.Context, lat, lng, radiusMeters float64, keyword string) ([]discovery.PlaceSummary, error) {
	if radiusMeters > maxRadiusMeters {
		radiusMeters = maxRadiusMeters
	}
	var (
		out       []discovery.PlaceSummary
		pageToken string
	)
	for page := 0; page < maxPages; page++ {
		if pageToken != "" {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.pageDelay):
			}
		}

		q := url.Values{}
		q.Set("key", p.apiKey)
		if pageToken != "" {
			q.Set("pagetoken", pageToken)
		} else {
			q.Set("location", fmt.Sprintf("%.6f,%.6f", lat, lng))
			q.Set("radius", strconv.Itoa(int(radiusMeters)))
			q.Set("keyword", keyword)
		}

		var resp nearbyResponse
		if _, err := p.get(ctx, "nearby_search", "/maps/api/place/nearbysearch/json", q, &resp); err != nil {
			return nil, err
		}
		switch resp.Status {
		case "OK":
		case "ZERO_RESULTS":
			return out, nil
		default:
			return nil, fmt.Errorf("nearby search status %s: %s", resp.Status, resp.ErrorMessage)
		}

		for _, r := range resp.Results {
			s := discovery.PlaceSummary{
				ExternalID: r.PlaceID,
				Name:       r.Name,
				Lat:        r.Geometry.Location.Lat,
				Lng:        r.Geometry.Location.Lng,
			}
			if len(r.Types) > 0 {
				s.Category = r.Types[0]
			}
			out = append(out, s)
			if len(out) >= maxResults {
				return out, nil
			}
		}
		if resp.NextPageToken == "" {
			return out, nil
		}
		pageToken = resp.NextPageToken
	}
	return out, nil
}

type detailsResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Result       detailsResult `json:"result"`
}

type detailsResult struct {
	PlaceID           string             `json:"place_id"`
	Name              string             `json:"name"`
	AddressComponents []addressComponent `json:"address_components"`
	Phone             string             `json:"formatted_phone_number"`
	Website           string             `json:"website"`
	Geometry          geometry           `json:"geometry"`
	Rating            float64            `json:"rating"`
	UserRatingsTotal  int                `json:"user_ratings_total"`
	Types             []string           `json:"types"`
	OpeningHours      openingHours       `json:"opening_hours"`
	Photos            []photo            `json:"photos"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type openingHours struct {
	WeekdayText []string `json:"weekday_text"`
}

type photo struct {
	PhotoReference string `json:"photo_reference"`
}

// Details implements discovery.SearchProvider. The raw response body is kept
// on the returned details for archival.
func (p *Provider) Details(ctx context.Context, externalID string) (discovery.PlaceDetails, error) {
	q := url.Values{}
	q.Set("key", p.apiKey)
	q.Set("place_id", externalID)
	q.Set("fields", detailFields)

	var resp detailsResponse
	raw, err := p.get(ctx, "details", "/maps/api/place/details/json", q, &resp)
	if err != nil {
		return discovery.PlaceDetails{}, err
	}
	if resp.Status != "OK" {
		return discovery.PlaceDetails{}, fmt.Errorf("place details status %s: %s", resp.Status, resp.ErrorMessage)
	}

	r := resp.Result
	d := discovery.PlaceDetails{
		ExternalID:  r.PlaceID,
		Name:        r.Name,
		Phone:       r.Phone,
		Website:     r.Website,
		Lat:         r.Geometry.Location.Lat,
		Lng:         r.Geometry.Location.Lng,
		Rating:      r.Rating,
		ReviewCount: r.UserRatingsTotal,
		Categories:  r.Types,
		Hours:       r.OpeningHours.WeekdayText,
		Raw:         raw,
	}
	for _, c := range r.AddressComponents {
		for _, t := range c.Types {
			switch t {
			case "street_number":
				d.StreetNumber = c.LongName
			case "route":
				d.Route = c.LongName
			case "locality":
				d.City = c.LongName
			case "administrative_area_level_1":
				d.Region = c.ShortName
			case "postal_code":
				d.PostalCode = c.LongName
			}
		}
	}
	for _, ph := range r.Photos {
		if ph.PhotoReference != "" {
			d.PhotoURLs = append(d.PhotoURLs, ph.PhotoReference)
		}
	}
	if d.ExternalID == "" {
		d.ExternalID = externalID
	}
	return d, nil
}

func (p *Provider) get(ctx context.Context, op, path string, q url.Values, v any) (body []byte, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveProviderCall(p.Name(), op, err, time.Since(start))
	}()

	u := p.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("new places request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			p.logger.Debug("Failed to close places response body", zap.Error(cerr))
		}
	}()
	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read places response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places request returned %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return nil, fmt.Errorf("decode places response: %w", err)
	}
	return body, nil
}
