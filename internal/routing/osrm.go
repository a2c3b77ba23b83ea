package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"backend-livetrack/internal/shared/geo"
)

// ErrProvider is returned for non-success responses (quota, bad request, outage).
var ErrProvider = errors.New("route provider error")

// OSRMClient snaps requests with an OSRM compatible /route service.
type OSRMClient struct {
	baseURL string
	profile string
	http    *http.Client
}

var _ Snapper = (*OSRMClient)(nil)

func NewOSRMClient(baseURL string, timeout time.Duration) *OSRMClient {
	return &OSRMClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: "driving",
		http:    &http.Client{Timeout: timeout},
	}
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64           `json:"distance"`
		Duration float64           `json:"duration"`
		Geometry *geojson.Geometry `json:"geometry"`
	} `json:"routes"`
}

func (c *OSRMClient) Snap(ctx context.Context, req Request) ([]geo.Point, error) {
	coords := make([]string, 0, len(req.Waypoints)+2)
	for _, p := range req.Points() {
		coords = append(coords, fmt.Sprintf("%.6f,%.6f", p.Lng, p.Lat))
	}
	url := fmt.Sprintf("%s/route/v1/%s/%s?overview=full&geometries=geojson", c.baseURL, c.profile, strings.Join(coords, ";"))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	var out osrmResponse
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: decode: %w", ErrProvider, err)
	}
	switch {
	case out.Code == "NoRoute" || out.Code == "NoSegment":
		return nil, ErrNoRoute
	case resp.StatusCode != http.StatusOK || out.Code != "Ok":
		return nil, fmt.Errorf("%w: status %d code %s %s", ErrProvider, resp.StatusCode, out.Code, out.Message)
	case len(out.Routes) == 0 || out.Routes[0].Geometry == nil:
		return nil, ErrNoRoute
	}

	line, ok := out.Routes[0].Geometry.Geometry().(orb.LineString)
	if !ok || len(line) < 2 {
		return nil, ErrNoRoute
	}
	points := make([]geo.Point, len(line))
	for i, p := range line {
		points[i] = geo.Point{Lat: p.Lat(), Lng: p.Lon()}
	}
	return points, nil
}
