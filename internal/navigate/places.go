package navigate

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadhunter/internal/extract"
	"github.com/sells-group/leadhunter/internal/resilience"
	"github.com/sells-group/leadhunter/pkg/google"
)

// PlacesConfig controls a Places API listing search.
type PlacesConfig struct {
	Query    string
	Language string
	// PageSize is capped at 20 by the API.
	PageSize   int
	MaxPages   int
	RatePerSec float64
	Retry      resilience.RetryConfig
}

// DefaultPlacesConfig returns a three-page search paced at five calls per
// second.
func DefaultPlacesConfig(query string) PlacesConfig {
	return PlacesConfig{
		Query:      query,
		PageSize:   20,
		MaxPages:   3,
		RatePerSec: 5,
		Retry:      resilience.DefaultRetryConfig(),
	}
}

// Places navigates the results of a Places Text Search. The listing is
// fetched once, on the first Count, and each visit renders one place as a
// detail panel.
type Places struct {
	client  google.Client
	cfg     PlacesConfig
	limiter *rate.Limiter
	places  []google.Place
	loaded  bool
}

// NewPlaces creates a Places navigator.
func NewPlaces(client google.Client, cfg PlacesConfig) *Places {
	if cfg.PageSize <= 0 || cfg.PageSize > 20 {
		cfg.PageSize = 20
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	return &Places{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Count runs the search and returns the number of places found.
func (p *Places) Count(ctx context.Context) (int, error) {
	if !p.loaded {
		if err := p.load(ctx); err != nil {
			return 0, err
		}
	}
	return len(p.places), nil
}

func (p *Places) load(ctx context.Context) error {
	if strings.TrimSpace(p.cfg.Query) == "" {
		return eris.New("navigate: places query is empty")
	}
	log := zap.L().With(zap.String("navigator", "places"), zap.String("query", p.cfg.Query))

	token := ""
	for page := 0; page < p.cfg.MaxPages; page++ {
		resp, err := p.search(ctx, token)
		if err != nil {
			if page == 0 {
				return eris.Wrapf(err, "navigate: search %q", p.cfg.Query)
			}
			log.Warn("places: stopping pagination after error", zap.Int("page", page), zap.Error(err))
			break
		}
		p.places = append(p.places, resp.Places...)
		log.Debug("places: page fetched", zap.Int("page", page), zap.Int("places", len(resp.Places)))
		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}
	p.loaded = true
	return nil
}

func (p *Places) search(ctx context.Context, token string) (*google.TextSearchResponse, error) {
	req := google.TextSearchRequest{
		TextQuery:    p.cfg.Query,
		PageSize:     p.cfg.PageSize,
		PageToken:    token,
		LanguageCode: p.cfg.Language,
	}
	retry := p.cfg.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("google", "text_search")
	}
	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*google.TextSearchResponse, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "navigate: rate limit wait")
		}
		return p.client.TextSearch(ctx, req)
	})
}

// Visit renders the i-th place.
func (p *Places) Visit(ctx context.Context, i int) (extract.Scope, error) {
	if err := ctx.Err(); err != nil {
		return extract.Scope{}, err
	}
	if i < 0 || i >= len(p.places) {
		return extract.Scope{}, eris.Errorf("navigate: entity %d out of range", i)
	}
	return PlaceScope(p.places[i])
}

// PlaceScope renders a place the way a listing detail panel presents it: a
// headline, labelled rating and review widgets, keyed address and website
// items, a tel: link, and a map permalink carrying the coordinates.
func PlaceScope(pl google.Place) (extract.Scope, error) {
	var (
		lines   []string
		handles extract.Elements
	)
	add := func(line string, el extract.Element) {
		if line != "" {
			lines = append(lines, line)
		}
		handles = append(handles, el)
	}

	if name := pl.DisplayName.Text; name != "" {
		add(name, extract.Element{Tag: "h1", Attrs: map[string]string{"class": "fontHeadlineLarge"}, Text: name})
	}
	if pl.Rating > 0 {
		r := strconv.FormatFloat(pl.Rating, 'f', 1, 64)
		add(r, extract.Element{Tag: "span", Attrs: map[string]string{"aria-label": r + " stars"}})
	}
	if pl.UserRatingCount > 0 {
		n := strconv.Itoa(pl.UserRatingCount)
		add("("+n+")", extract.Element{Tag: "span", Attrs: map[string]string{"aria-label": n + " reviews"}})
	}
	if pl.FormattedAddress != "" {
		add(pl.FormattedAddress, extract.Element{
			Tag:   "button",
			Attrs: map[string]string{"data-item-id": "address", "aria-label": "Address: " + pl.FormattedAddress},
			Text:  pl.FormattedAddress,
		})
	}
	if hours := pl.OpeningHours; hours != nil && len(hours.WeekdayDescriptions) > 0 {
		add("", extract.Element{
			Tag:   "div",
			Attrs: map[string]string{"aria-label": "Hours: " + strings.Join(hours.WeekdayDescriptions, "; ")},
		})
	}
	if pl.WebsiteURI != "" {
		add(pl.WebsiteURI, extract.Element{
			Tag:   "a",
			Attrs: map[string]string{"data-item-id": "authority", "href": pl.WebsiteURI},
			Text:  hostOf(pl.WebsiteURI),
		})
	}
	if phone := firstNonEmpty(pl.NationalPhoneNumber, pl.InternationalPhoneNumber); phone != "" {
		tel := strings.ReplaceAll(firstNonEmpty(pl.InternationalPhoneNumber, phone), " ", "")
		add(phone, extract.Element{
			Tag:   "a",
			Attrs: map[string]string{"href": "tel:" + tel, "data-item-id": "phone:tel:" + tel},
			Text:  phone,
		})
	}
	if pc := pl.PlusCode; pc != nil && pc.CompoundCode != "" {
		add(pc.CompoundCode, extract.Element{Tag: "span", Attrs: map[string]string{"data-item-id": "oloc"}, Text: pc.CompoundCode})
	}
	if pl.ID != "" {
		handles = append(handles, extract.Element{Tag: "div", Attrs: map[string]string{"data-cid": pl.ID}})
	}

	if len(lines) == 0 {
		return extract.Scope{}, ErrNoContent
	}
	return extract.Scope{
		Text:      strings.Join(lines, "\n"),
		Handles:   handles,
		Permalink: placePermalink(pl),
	}, nil
}

// placePermalink builds a maps URL in the @lat,lng form the coordinate
// parser reads, falling back to the API's own link.
func placePermalink(pl google.Place) string {
	if pl.Location == nil {
		if pl.GoogleMapsURI != "" {
			return pl.GoogleMapsURI
		}
		return "https://www.google.com/maps/place/?q=place_id:" + pl.ID
	}
	slug := url.PathEscape(strings.ReplaceAll(pl.DisplayName.Text, " ", "+"))
	return fmt.Sprintf("https://www.google.com/maps/place/%s/@%.7f,%.7f,17z", slug, pl.Location.Latitude, pl.Location.Longitude)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
