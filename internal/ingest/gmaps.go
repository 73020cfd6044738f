package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/pkg/httpretry"
	"github.com/ignite/leadflow/internal/pkg/logger"
	"github.com/ignite/leadflow/internal/store"
)

// ErrNoAPIKey is returned when the Google Maps ingester runs without a
// configured key.
var ErrNoAPIKey = errors.New("ingest: google maps api key missing")

const (
	gmapsMaxResults   = 50
	gmapsStatusRetry  = 3
	gmapsStatusDelay  = 500 * time.Millisecond
	gmapsDetailFields = "name,formatted_phone_number,website,types"
)

// GoogleMapsIngester captures leads from the Places API: one text
// search, then a details call per place.
type GoogleMapsIngester struct {
	st         store.LeadStore
	pacer      Pacer
	client     httpretry.HTTPDoer
	apiKey     string
	baseURL    string
	searchTerm string
	location   string
	industry   string
}

func NewGoogleMaps(st store.LeadStore, pacer Pacer, apiKey, searchTerm, location, industry string) *GoogleMapsIngester {
	return &GoogleMapsIngester{
		st:         st,
		pacer:      pacer,
		client:     httpretry.NewRetryClient(nil, 3),
		apiKey:     apiKey,
		baseURL:    "https://maps.googleapis.com/maps/api/place",
		searchTerm: searchTerm,
		location:   location,
		industry:   industry,
	}
}

// WithBaseURL points the ingester at a different API host, for tests.
func (g *GoogleMapsIngester) WithBaseURL(base string, client httpretry.HTTPDoer) *GoogleMapsIngester {
	g.baseURL = base
	if client != nil {
		g.client = client
	}
	return g
}

func (g *GoogleMapsIngester) Platform() string { return "google_maps" }

type placesResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID string `json:"place_id"`
	} `json:"results"`
	Result struct {
		Name                 string   `json:"name"`
		FormattedPhoneNumber string   `json:"formatted_phone_number"`
		Website              string   `json:"website"`
		Types                []string `json:"types"`
	} `json:"result"`
}

func (g *GoogleMapsIngester) Ingest(ctx context.Context) ([]int64, error) {
	if g.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	src, err := g.st.EnsureLeadSource(ctx, "google_maps", "maps", g.baseURL)
	if err != nil {
		return nil, fmt.Errorf("ingest google_maps: %w", err)
	}

	query := g.searchTerm
	if g.location != "" {
		if query != "" {
			query = fmt.Sprintf("%s in %s", query, g.location)
		} else {
			query = g.location
		}
	}
	search, err := g.apiGet(ctx, "textsearch", url.Values{"query": {query}})
	if err != nil {
		return nil, fmt.Errorf("ingest google_maps: text search: %w", err)
	}

	places := search.Results
	if len(places) > gmapsMaxResults {
		places = places[:gmapsMaxResults]
	}

	now := time.Now().UTC()
	leads := make([]*domain.RawLead, 0, len(places))
	attrs := make([]*domain.SourceAttribution, 0, len(places))
	for _, p := range places {
		if g.pacer != nil {
			if err := g.pacer.Wait(ctx); err != nil {
				return nil, fmt.Errorf("ingest google_maps: %w", err)
			}
		}
		details, err := g.apiGet(ctx, "details", url.Values{
			"place_id": {p.PlaceID},
			"fields":   {gmapsDetailFields},
		})
		if err != nil {
			logger.Warn("place details failed", "place_id", p.PlaceID, "error", err.Error())
			continue
		}
		d := details.Result
		industry := g.industry
		if industry == "" {
			industry = strings.Join(d.Types, ",")
		}
		blob, _ := json.Marshal(map[string]any{"place_id": p.PlaceID, "details": d})
		leads = append(leads, &domain.RawLead{
			CompanyName: d.Name,
			Phone:       d.FormattedPhoneNumber,
			Website:     d.Website,
			Industry:    industry,
			SourceID:    src.ID,
			CapturedAt:  now,
			RawData:     string(blob),
		})
		attrs = append(attrs, &domain.SourceAttribution{
			Platform:    "google_maps",
			Reference:   p.PlaceID,
			CollectedAt: now,
		})
	}

	if err := g.st.InsertRawLeads(ctx, leads, attrs); err != nil {
		return nil, fmt.Errorf("ingest google_maps: %w", err)
	}
	ids := make([]int64, len(leads))
	for i, l := range leads {
		ids[i] = l.ID
	}
	logger.Info("ingest cycle complete", "platform", "google_maps", "captured", len(ids))
	return ids, nil
}

// apiGet calls one Places endpoint and retries an API-level error status
// (anything but OK/ZERO_RESULTS) up to 3 times with 500ms spacing.
// Transport-level retries are the HTTP client's job.
func (g *GoogleMapsIngester) apiGet(ctx context.Context, path string, params url.Values) (*placesResponse, error) {
	params.Set("key", g.apiKey)
	endpoint := fmt.Sprintf("%s/%s/json?%s", g.baseURL, path, params.Encode())

	var last *placesResponse
	for attempt := 0; attempt < gmapsStatusRetry; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(gmapsStatusDelay):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := g.client.Do(req)
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		var pr placesResponse
		if err := json.Unmarshal(body, &pr); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", path, err)
		}
		if pr.Status == "OK" || pr.Status == "ZERO_RESULTS" {
			return &pr, nil
		}
		last = &pr
		logger.Warn("places api error status", "path", path, "status", pr.Status, "attempt", attempt+1)
	}
	return nil, fmt.Errorf("places api %s: status %s after %d attempts", path, last.Status, gmapsStatusRetry)
}
