package googleplaces

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.Handler) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := New(Config{
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		PageDelay: time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return p
}

func TestNearbySearchFollowsPageTokens(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"": `{"status":"OK","next_page_token":"tok-2","results":[
			{"place_id":"p1","name":"First Dental","types":["dentist","health"],
			 "geometry":{"location":{"lat":33.75,"lng":-84.39}}}]}`,
		"tok-2": `{"status":"OK","results":[
			{"place_id":"p2","name":"Second Dental","types":["dentist"],
			 "geometry":{"location":{"lat":33.76,"lng":-84.40}}}]}`,
	}
	var requests []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/maps/api/place/nearbysearch/json", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		tok := r.URL.Query().Get("pagetoken")
		requests = append(requests, tok)
		fmt.Fprint(w, pages[tok])
	})

	p := newTestProvider(t, handler)
	got, err := p.NearbySearch(context.Background(), 33.75, -84.39, 5000, "dentist")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "p1", got[0].ExternalID)
	require.Equal(t, "dentist", got[0].Category)
	require.Equal(t, []string{"", "tok-2"}, requests)
}

func TestNearbySearchZeroResults(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"ZERO_RESULTS","results":[]}`)
	}))
	got, err := p.NearbySearch(context.Background(), 0, 0, 1000, "dentist")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestNearbySearchSurfacesAPIErrors(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"OVER_QUERY_LIMIT","error_message":"quota exceeded"}`)
	}))
	_, err := p.NearbySearch(context.Background(), 0, 0, 1000, "dentist")
	require.Error(t, err)
	require.Contains(t, err.Error(), "OVER_QUERY_LIMIT")
}

func TestNearbySearchClampsRadius(t *testing.T) {
	t.Parallel()

	var radius string
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		radius = r.URL.Query().Get("radius")
		fmt.Fprint(w, `{"status":"ZERO_RESULTS"}`)
	}))
	_, err := p.NearbySearch(context.Background(), 0, 0, 250000, "dentist")
	require.NoError(t, err)
	require.Equal(t, "50000", radius)
}

func TestDetailsParsesAddressComponents(t *testing.T) {
	t.Parallel()

	body := `{"status":"OK","result":{
		"place_id":"p1","name":"Bright Smile Dental",
		"formatted_phone_number":"(404) 555-0134","website":"https://brightsmile.example",
		"geometry":{"location":{"lat":33.749,"lng":-84.388}},
		"rating":4.6,"user_ratings_total":128,
		"types":["dentist","health"],
		"opening_hours":{"weekday_text":["Monday: 9AM-5PM"]},
		"photos":[{"photo_reference":"ref-1"}],
		"address_components":[
			{"long_name":"123","short_name":"123","types":["street_number"]},
			{"long_name":"Main Street","short_name":"Main St","types":["route"]},
			{"long_name":"Atlanta","short_name":"Atlanta","types":["locality","political"]},
			{"long_name":"Georgia","short_name":"GA","types":["administrative_area_level_1","political"]},
			{"long_name":"30303","short_name":"30303","types":["postal_code"]}]}}`

	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/maps/api/place/details/json", r.URL.Path)
		require.Equal(t, "p1", r.URL.Query().Get("place_id"))
		fmt.Fprint(w, body)
	}))

	d, err := p.Details(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, "Bright Smile Dental", d.Name)
	require.Equal(t, "123 Main Street", d.Address())
	require.Equal(t, "Atlanta", d.City)
	require.Equal(t, "GA", d.Region)
	require.Equal(t, "30303", d.PostalCode)
	require.Equal(t, "(404) 555-0134", d.Phone)
	require.Equal(t, 4.6, d.Rating)
	require.Equal(t, 128, d.ReviewCount)
	require.Equal(t, []string{"Monday: 9AM-5PM"}, d.Hours)
	require.Equal(t, []string{"ref-1"}, d.PhotoURLs)
	require.NotEmpty(t, d.Raw)
}

func TestDetailsNotFound(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"NOT_FOUND"}`)
	}))
	_, err := p.Details(context.Background(), "missing")
	require.Error(t, err)
}
