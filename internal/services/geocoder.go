package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperr "onlyz-dating-server/internal/errors"
)

// Coordinates is a geocoding result.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Geocoder resolves a city/country pair to coordinates. Best-effort: callers
// are expected to swallow failures at the profile boundary, leaving the
// coordinates unset.
type Geocoder interface {
	Geocode(ctx context.Context, city, country string) (*Coordinates, error)
}

// NominatimGeocoder queries a Nominatim-compatible endpoint. A (nil, nil)
// return means the lookup succeeded but found nothing.
type NominatimGeocoder struct {
	endpoint string
	client   *http.Client
}

func NewNominatimGeocoder(endpoint string, timeout time.Duration) *NominatimGeocoder {
	return &NominatimGeocoder{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, city, country string) (*Coordinates, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("%s, %s", city, country))
	query.Set("format", "json")
	query.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"/search?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: geocode request: %v", apperr.ErrExternal, err)
	}
	req.Header.Set("User-Agent", "onlyz-app")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: geocode: %v", apperr.ErrExternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: geocode status %d", apperr.ErrExternal, resp.StatusCode)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: geocode decode: %v", apperr.ErrExternal, err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: geocode parse: %v", apperr.ErrExternal, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: geocode parse: %v", apperr.ErrExternal, err)
	}
	return &Coordinates{Latitude: lat, Longitude: lon}, nil
}
