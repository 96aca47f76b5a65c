package navigate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadhunter/internal/extract"
	"github.com/sells-group/leadhunter/internal/resilience"
	"github.com/sells-group/leadhunter/pkg/google"
	"github.com/sells-group/leadhunter/pkg/google/mocks"
)

const panelHTML = `<html><head>
<link rel="canonical" href="https://www.google.com/maps/place/City+Mobile/@26.8467,80.9462,17z/data=!3m1!1s0x399bfd:0x1a2b!8m2">
<title>Maps</title></head>
<body>
<div role="navigation">Directions Save Share</div>
<div role="main">
  <h1 class="DUwDvf fontHeadlineLarge">City Mobile   Store</h1>
  <div><span aria-label="4.5 stars">4.5</span><span aria-label="1,234 reviews">(1,234)</span></div>
  <button data-item-id="address" aria-label="Address: 12 Hazratganj, Lucknow, Uttar Pradesh 226001"><div>12 Hazratganj, Lucknow, Uttar Pradesh 226001</div></button>
  <a href="tel:+919876543210" data-item-id="phone:tel:+919876543210"><div>098765 43210</div></a>
  <script>var tracking = 1;</script>
</div>
</body></html>`

func TestParseSnapshot_MainPanel(t *testing.T) {
	scope, err := ParseSnapshot(strings.NewReader(panelHTML))
	require.NoError(t, err)

	assert.Contains(t, scope.Text, "City Mobile Store")
	assert.Contains(t, scope.Text, "12 Hazratganj, Lucknow")
	assert.NotContains(t, scope.Text, "Directions")
	assert.NotContains(t, scope.Text, "tracking")
	assert.Equal(t, "https://www.google.com/maps/place/City+Mobile/@26.8467,80.9462,17z/data=!3m1!1s0x399bfd:0x1a2b!8m2", scope.Permalink)

	h1 := scope.Handles.Query(extract.Match{Tag: "h1"})
	require.Len(t, h1, 1)
	assert.Equal(t, "City Mobile Store", h1[0].Text)

	tel := scope.Handles.Query(extract.Match{Tag: "a", Attr: "href", Op: extract.OpPrefix, Value: "tel:"})
	require.Len(t, tel, 1)
	assert.Equal(t, "098765 43210", tel[0].Text)
}

func TestParseSnapshot_FeedsEngine(t *testing.T) {
	scope, err := ParseSnapshot(strings.NewReader(panelHTML))
	require.NoError(t, err)

	res := extract.NewEngine(extract.DefaultOptions()).Extract(scope, nil)
	assert.Equal(t, "City Mobile Store", res.Value(extract.FieldName))
	assert.Equal(t, "4.5", res.Value(extract.FieldRating))
	assert.Equal(t, "+919876543210", res.Value(extract.FieldPhone))
	assert.Equal(t, "12 Hazratganj, Lucknow, Uttar Pradesh 226001", res.Value(extract.FieldAddress))
	assert.Equal(t, "0x399bfd:0x1a2b", res.Value(extract.FieldPlaceID))
}

func TestParseSnapshot_BodyFallbackAndOGURL(t *testing.T) {
	doc := `<html><head><meta property="og:url" content="https://maps.example/place/x"></head>
<body><p>Gupta Kirana</p><p>Open now</p></body></html>`
	scope, err := ParseSnapshot(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Gupta Kirana\nOpen now", scope.Text)
	assert.Equal(t, "https://maps.example/place/x", scope.Permalink)
}

func TestParseSnapshot_DataPermalink(t *testing.T) {
	doc := `<body><div data-permalink="https://maps.example/?cid=42">Store</div></body>`
	scope, err := ParseSnapshot(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "https://maps.example/?cid=42", scope.Permalink)
}

func TestParseSnapshot_NoContent(t *testing.T) {
	_, err := ParseSnapshot(strings.NewReader(`<html><body><div role="main">  </div></body></html>`))
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestSnapshotDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "02.html"), []byte(`<body><h1>Second Shop</h1></body>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01.html"), []byte(`<body><h1>First Shop</h1></body>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "03.html"), []byte(`<body></body>`), 0o644))

	nav, err := NewSnapshotDir(dir)
	require.NoError(t, err)

	ctx := context.Background()
	n, err := nav.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	first, err := nav.Visit(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "First Shop", first.Text)

	_, err = nav.Visit(ctx, 2)
	assert.ErrorIs(t, err, ErrNoContent)

	_, err = nav.Visit(ctx, 3)
	assert.Error(t, err)
}

func TestFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.json")
	data := `[
	  {"text": "Sharma Sweets\n4.5(120)", "permalink": "https://maps.example/place/Sharma/@26.8,80.9,15z",
	   "handles": [{"tag": "a", "attrs": {"href": "tel:+919876543210"}}]},
	  {"text": "", "permalink": "https://maps.example/place/empty"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	nav, err := LoadFixture(path)
	require.NoError(t, err)

	ctx := context.Background()
	n, err := nav.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	scope, err := nav.Visit(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "Sharma Sweets\n4.5(120)", scope.Text)
	assert.Len(t, scope.Handles.Query(extract.Match{Tag: "a"}), 1)

	_, err = nav.Visit(ctx, 1)
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestFixture_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))
	_, err := LoadFixture(path)
	assert.Error(t, err)
}

func TestFixture_CancelledContext(t *testing.T) {
	nav := NewFixture([]FixtureEntity{{Text: "x"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := nav.Visit(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func samplePlace() google.Place {
	return google.Place{
		ID:                       "ChIJ123",
		DisplayName:              google.DisplayName{Text: "City Mobile Store"},
		Rating:                   4.5,
		UserRatingCount:          1234,
		NationalPhoneNumber:      "0522 234 5678",
		InternationalPhoneNumber: "+91 522 234 5678",
		FormattedAddress:         "12 Hazratganj, Lucknow, Uttar Pradesh 226001, India",
		WebsiteURI:               "https://www.citymobile.in/",
		Location:                 &google.LatLng{Latitude: 26.8467, Longitude: 80.9462},
		PlusCode:                 &google.PlusCode{CompoundCode: "6VGX+QR Lucknow, Uttar Pradesh"},
		OpeningHours: &google.OpeningHours{WeekdayDescriptions: []string{
			"Monday: 10:00 AM – 9:00 PM",
			"Tuesday: 10:00 AM – 9:00 PM",
		}},
	}
}

func TestPlaceScope_FeedsEngine(t *testing.T) {
	scope, err := PlaceScope(samplePlace())
	require.NoError(t, err)

	res := extract.NewEngine(extract.DefaultOptions()).Extract(scope, nil)
	assert.Equal(t, "City Mobile Store", res.Value(extract.FieldName))
	assert.Equal(t, "4.5", res.Value(extract.FieldRating))
	assert.Equal(t, "1234", res.Value(extract.FieldReviewCount))
	assert.Equal(t, "+915222345678", res.Value(extract.FieldPhone))
	assert.Equal(t, "12 Hazratganj, Lucknow, Uttar Pradesh 226001, India", res.Value(extract.FieldAddress))
	assert.Equal(t, "https://www.citymobile.in/", res.Value(extract.FieldWebsite))
	assert.Equal(t, "6VGX+QR Lucknow", res.Value(extract.FieldPlusCode))
	assert.Equal(t, "ChIJ123", res.Value(extract.FieldPlaceID))
	assert.True(t, res.Found(extract.FieldHours))

	lat, lng, ok := extract.Coordinates(scope.Permalink)
	require.True(t, ok)
	assert.Equal(t, "26.8467000", lat)
	assert.Equal(t, "80.9462000", lng)
}

func TestPlaceScope_NoLocation(t *testing.T) {
	pl := google.Place{ID: "ChIJ9", DisplayName: google.DisplayName{Text: "Gupta Kirana"}, GoogleMapsURI: "https://maps.google.com/?cid=99"}
	scope, err := PlaceScope(pl)
	require.NoError(t, err)
	assert.Equal(t, "https://maps.google.com/?cid=99", scope.Permalink)

	pl.GoogleMapsURI = ""
	scope, err = PlaceScope(pl)
	require.NoError(t, err)
	assert.Equal(t, "https://www.google.com/maps/place/?q=place_id:ChIJ9", scope.Permalink)
}

func TestPlaceScope_Empty(t *testing.T) {
	_, err := PlaceScope(google.Place{ID: "x"})
	assert.ErrorIs(t, err, ErrNoContent)
}

func testPlacesConfig(query string) PlacesConfig {
	cfg := DefaultPlacesConfig(query)
	cfg.RatePerSec = 0
	cfg.Retry = resilience.RetryConfig{MaxAttempts: 1}
	return cfg
}

func TestPlaces_Paginates(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("TextSearch", mock.Anything, mock.MatchedBy(func(r google.TextSearchRequest) bool {
		return r.PageToken == ""
	})).Return(&google.TextSearchResponse{
		Places:        []google.Place{samplePlace()},
		NextPageToken: "p2",
	}, nil).Once()
	client.On("TextSearch", mock.Anything, mock.MatchedBy(func(r google.TextSearchRequest) bool {
		return r.PageToken == "p2"
	})).Return(&google.TextSearchResponse{
		Places: []google.Place{{ID: "ChIJ2", DisplayName: google.DisplayName{Text: "Second Shop"}}},
	}, nil).Once()

	nav := NewPlaces(client, testPlacesConfig("mobile shops in Lucknow"))
	ctx := context.Background()

	n, err := nav.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// The listing is fetched once.
	n, err = nav.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	scope, err := nav.Visit(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Second Shop", scope.Text)
}

func TestPlaces_MaxPages(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("TextSearch", mock.Anything, mock.Anything).Return(&google.TextSearchResponse{
		Places:        []google.Place{samplePlace()},
		NextPageToken: "more",
	}, nil).Twice()

	cfg := testPlacesConfig("shops")
	cfg.MaxPages = 2
	n, err := NewPlaces(client, cfg).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPlaces_FirstPageError(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("TextSearch", mock.Anything, mock.Anything).Return(nil, errors.New("google: unexpected status 403")).Once()

	_, err := NewPlaces(client, testPlacesConfig("shops")).Count(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestPlaces_LaterPageErrorKeepsEarlierPlaces(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("TextSearch", mock.Anything, mock.MatchedBy(func(r google.TextSearchRequest) bool {
		return r.PageToken == ""
	})).Return(&google.TextSearchResponse{
		Places:        []google.Place{samplePlace()},
		NextPageToken: "p2",
	}, nil).Once()
	client.On("TextSearch", mock.Anything, mock.MatchedBy(func(r google.TextSearchRequest) bool {
		return r.PageToken == "p2"
	})).Return(nil, errors.New("boom")).Once()

	n, err := NewPlaces(client, testPlacesConfig("shops")).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPlaces_RetriesTransient(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("TextSearch", mock.Anything, mock.Anything).
		Return(nil, resilience.NewTransientError(errors.New("google: unexpected status 503"), 503)).Once()
	client.On("TextSearch", mock.Anything, mock.Anything).
		Return(&google.TextSearchResponse{Places: []google.Place{samplePlace()}}, nil).Once()

	cfg := testPlacesConfig("shops")
	cfg.Retry = resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: 1, MaxBackoff: 1}
	n, err := NewPlaces(client, cfg).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPlaces_EmptyQuery(t *testing.T) {
	client := mocks.NewMockClient(t)
	_, err := NewPlaces(client, testPlacesConfig(" ")).Count(context.Background())
	assert.Error(t, err)
}
