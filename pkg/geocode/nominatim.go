package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geosheet/internal/resilience"
)

// nominatimResponse is the JSON response from the Nominatim reverse API.
// Failed lookups come back 200 with an "error" key instead of an address.
// Address is a pointer so a payload without the object decodes to nil
// instead of an all-empty struct.
type nominatimResponse struct {
	Error       string            `json:"error"`
	DisplayName string            `json:"display_name"`
	Address     *nominatimAddress `json:"address"`
}

type nominatimAddress struct {
	Road          string `json:"road"`
	Suburb        string `json:"suburb"`
	Village       string `json:"village"`
	Neighbourhood string `json:"neighbourhood"`
	CityDistrict  string `json:"city_district"`
	Municipality  string `json:"municipality"`
	City          string `json:"city"`
	Town          string `json:"town"`
	State         string `json:"state"`
}

// reverseNominatim resolves a coordinate through the primary endpoint.
// zoom=18 asks for building-level detail, matching the administrative
// granularity the output columns need.
func (c *client) reverseNominatim(ctx context.Context, lat, lon float64) (*Result, error) {
	if err := c.primaryLimiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim rate gate")
	}
	c.primaryCalls.Add(1)

	params := url.Values{
		"lat":             {formatCoord(lat)},
		"lon":             {formatCoord(lon)},
		"format":          {"json"},
		"addressdetails":  {"1"},
		"zoom":            {"18"},
		"accept-language": {c.language},
	}

	body, err := c.get(ctx, c.primaryURL+"?"+params.Encode(), "nominatim")
	if err != nil {
		return nil, err
	}

	var nr nominatimResponse
	if err := json.Unmarshal(body, &nr); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse response")
	}

	if nr.Error != "" || nr.Address == nil || emptyAddress(nr) {
		return &Result{Status: StatusNotFound, Source: SourceNominatim}, nil
	}

	addr := nr.Address
	return &Result{
		Street:      addr.Road,
		Kelurahan:   firstNonEmpty(addr.Suburb, addr.Village, addr.Neighbourhood),
		Kecamatan:   firstNonEmpty(addr.CityDistrict, addr.Municipality),
		City:        firstNonEmpty(addr.City, addr.Town),
		Province:    addr.State,
		FullAddress: nr.DisplayName,
		Source:      SourceNominatim,
		Status:      StatusOK,
	}, nil
}

// get performs one throttled request and classifies the failure modes the
// retry layer cares about: timeouts and 429/5xx are transient, everything
// else fails the endpoint immediately.
func (c *client) get(ctx context.Context, reqURL, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: %s build request", endpoint)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			c.timeouts.Add(1)
			return nil, resilience.NewTransientError(eris.Wrapf(err, "geocode: %s timeout", endpoint), 0)
		}
		return nil, eris.Wrapf(err, "geocode: %s request", endpoint)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests {
		c.rateLimited.Add(1)
		return nil, resilience.NewTransientError(
			eris.Errorf("geocode: %s returned status 429", endpoint), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: %s returned status %d", endpoint, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: %s read body", endpoint)
	}
	return body, nil
}

func emptyAddress(nr nominatimResponse) bool {
	a := nr.Address
	return a.Road == "" && a.Suburb == "" && a.Village == "" && a.Neighbourhood == "" &&
		a.CityDistrict == "" && a.Municipality == "" && a.City == "" && a.Town == "" &&
		a.State == "" && nr.DisplayName == ""
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
