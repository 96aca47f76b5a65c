package assist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadhunter/internal/extract"
	"github.com/sells-group/leadhunter/internal/resilience"
	"github.com/sells-group/leadhunter/pkg/anthropic"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*anthropic.MessageResponse)
	return resp, args.Error(1)
}

func reply(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "text", Text: text}}}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RatePerSec = 0
	cfg.Retry = resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	return cfg
}

func TestParseSuggestion(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  extract.Suggestions
	}{
		{
			name:  "clean json",
			reply: `{"store_name":"Sharma Sweets","rating":"4.5","phone":"98765 43210","website":"Not found"}`,
			want: extract.Suggestions{
				extract.FieldName:   "Sharma Sweets",
				extract.FieldRating: "4.5",
				extract.FieldPhone:  "98765 43210",
			},
		},
		{
			name:  "prose around json and numeric values",
			reply: "Here you go:\n{\"store_name\": \"Gupta Store\", \"rating\": 4.2, \"reviews_count\": 310}\nThanks",
			want: extract.Suggestions{
				extract.FieldName:        "Gupta Store",
				extract.FieldRating:      "4.2",
				extract.FieldReviewCount: "310",
			},
		},
		{
			name:  "repaired",
			reply: `{store_name: 'Anand Bakery', phone: '0522-2345678',}`,
			want: extract.Suggestions{
				extract.FieldName:  "Anand Bakery",
				extract.FieldPhone: "0522-2345678",
			},
		},
		{
			name:  "unknown keys and sentinels dropped",
			reply: `{"store_name":"Unknown Store","rating":"N/A","cuisine":"sweets","address":""}`,
			want:  extract.Suggestions{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSuggestion(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSuggestion_NoJSON(t *testing.T) {
	_, err := ParseSuggestion("I could not find any details.")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestSuggest(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == DefaultConfig().Model && len(req.Messages) == 1 && len(req.System) == 1
	})).Return(reply(`{"store_name":"Sharma Sweets","phone":"+91 98765 43210"}`), nil)

	a := NewAnthropic(client, testConfig())
	sugg, err := a.Suggest(context.Background(), "Sharma Sweets\n4.5(120)")

	require.NoError(t, err)
	assert.Equal(t, "+91 98765 43210", sugg[extract.FieldPhone])
	client.AssertExpectations(t)
}

func TestSuggest_TruncatesInput(t *testing.T) {
	client := new(mockClient)
	var sent string
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sent = args.Get(1).(anthropic.MessageRequest).Messages[0].Content
		}).
		Return(reply(`{}`), nil)

	cfg := testConfig()
	cfg.MaxInputChars = 5
	_, err := NewAnthropic(client, cfg).Suggest(context.Background(), "ABCDEFGHIJ")

	require.NoError(t, err)
	assert.Contains(t, sent, "ABCDE\n")
	assert.NotContains(t, sent, "ABCDEF")
}

func TestSuggest_RetriesTransient(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, resilience.NewTransientError(errors.New("overloaded"), 529)).Once()
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(reply(`{"store_name":"Gupta Store"}`), nil).Once()

	sugg, err := NewAnthropic(client, testConfig()).Suggest(context.Background(), "Gupta Store")

	require.NoError(t, err)
	assert.Equal(t, "Gupta Store", sugg[extract.FieldName])
	client.AssertNumberOfCalls(t, "CreateMessage", 2)
}

func TestSuggest_BreakerStopsCalls(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("invalid api key"))

	cfg := testConfig()
	cfg.BreakerThreshold = 2
	a := NewAnthropic(client, cfg)

	for i := 0; i < 4; i++ {
		_, err := a.Suggest(context.Background(), "text")
		require.Error(t, err)
	}

	client.AssertNumberOfCalls(t, "CreateMessage", 2)
}
