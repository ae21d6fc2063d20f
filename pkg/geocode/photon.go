package geocode

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// photonResponse is the GeoJSON FeatureCollection from the Photon reverse API.
type photonResponse struct {
	Features []struct {
		Properties struct {
			Name        string `json:"name"`
			Street      string `json:"street"`
			Housenumber string `json:"housenumber"`
			District    string `json:"district"`
			Locality    string `json:"locality"`
			County      string `json:"county"`
			City        string `json:"city"`
			State       string `json:"state"`
			Postcode    string `json:"postcode"`
			Country     string `json:"country"`
		} `json:"properties"`
	} `json:"features"`
}

// reversePhoton resolves a coordinate through the fallback endpoint.
// No lang parameter: Photon rejects language codes outside its small
// supported set, Indonesian included.
func (c *client) reversePhoton(ctx context.Context, lat, lon float64) (*Result, error) {
	if err := c.fallbackLimiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: photon rate gate")
	}
	c.fallbackCalls.Add(1)

	params := url.Values{
		"lat":   {formatCoord(lat)},
		"lon":   {formatCoord(lon)},
		"limit": {"1"},
	}

	body, err := c.get(ctx, c.fallbackURL+"?"+params.Encode(), "photon")
	if err != nil {
		return nil, err
	}

	var pr photonResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, eris.Wrap(err, "geocode: photon parse response")
	}

	if len(pr.Features) == 0 {
		return &Result{Status: StatusNotFound, Source: SourcePhoton}, nil
	}

	p := pr.Features[0].Properties
	street := firstNonEmpty(p.Street, p.Name)
	result := &Result{
		Street:    street,
		Kelurahan: firstNonEmpty(p.District, p.Locality),
		Kecamatan: p.County,
		City:      p.City,
		Province:  p.State,
		Source:    SourcePhoton,
		Status:    StatusOK,
	}
	result.FullAddress = joinAddress(street, p.Housenumber, result.Kelurahan, result.Kecamatan, p.City, p.State, p.Postcode, p.Country)

	if result.FullAddress == "" {
		return &Result{Status: StatusNotFound, Source: SourcePhoton}, nil
	}
	return result, nil
}

// joinAddress composes a display address from the non-empty parts. Photon
// has no display_name equivalent.
func joinAddress(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}
