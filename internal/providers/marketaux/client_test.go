package marketaux

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNewsSentimentLabels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/news/all", r.URL.Path)
		assert.Equal(t, "NVDA", r.URL.Query().Get("symbols"))
		assert.Equal(t, "true", r.URL.Query().Get("filter_entities"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_token"))
		w.Write([]byte(`{"data":[
			{"title":"record quarter","description":"d1","source":"wire","published_at":"2026-08-27T14:00:00Z","url":"http://a",
			 "entities":[{"symbol":"NVDA","sentiment_score":0.62}]},
			{"title":"regulatory probe","description":"d2","source":"wire","published_at":"2026-08-26T09:00:00Z","url":"http://b",
			 "entities":[{"symbol":"NVDA","sentiment_score":-0.4},{"symbol":"AMD","sentiment_score":0.5}]},
			{"title":"sector roundup","description":"d3","source":"wire","published_at":"2026-08-25T12:00:00Z","url":"http://c",
			 "entities":[{"symbol":"NVDA","sentiment_score":0.02}]}
		]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	items, err := client.GetNews(context.Background(), "NVDA", 7, 10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "positive", items[0].Sentiment)
	assert.Equal(t, "negative", items[1].Sentiment)
	assert.Equal(t, "neutral", items[2].Sentiment)
}

func TestGetNewsCapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"title":"one","published_at":"2026-08-27T14:00:00Z"},
			{"title":"two","published_at":"2026-08-26T14:00:00Z"},
			{"title":"three","published_at":"2026-08-25T14:00:00Z"}
		]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	items, err := client.GetNews(context.Background(), "NVDA", 7, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
