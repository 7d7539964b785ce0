package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peritus/internal/providers"
)

func TestGetQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-key", r.URL.Query().Get("token"))
		w.Write([]byte(`{"c":189.5,"d":2.3,"dp":1.23,"h":190.1,"l":187.2,"o":188.0,"pc":187.2,"t":1700000000}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	quote, err := client.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.Equal(t, 189.5, quote.CurrentPrice)
	assert.Equal(t, 187.2, quote.PreviousClose)
	assert.Equal(t, 1.23, quote.ChangePercent)
}

func TestGetQuoteUnknownSymbol(t *testing.T) {
	// Finnhub answers unknown symbols with 200 and zeroed fields.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c":0,"d":null,"dp":null,"h":0,"l":0,"o":0,"pc":0,"t":0}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	_, err := client.GetQuote(context.Background(), "ZZZZZ")
	require.Error(t, err)
	assert.Equal(t, providers.KindNotFound, providers.KindOf(err))
}

func TestGetQuoteUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient("bad-key", WithBaseURL(server.URL))

	_, err := client.GetQuote(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Equal(t, providers.KindUnauthorized, providers.KindOf(err))
}

func TestGetQuoteRateLimitedRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	_, err := client.GetQuote(context.Background(), "AAPL")
	require.Error(t, err)

	var pe *providers.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, providers.KindRateLimited, pe.Kind)
	assert.Equal(t, float64(30), pe.RetryAfter.Seconds())
}

func TestGetCompanyNewsOrderedAndCapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/company-news", r.URL.Path)
		w.Write([]byte(`[
			{"headline":"older","summary":"s1","source":"wire","datetime":1700000000,"url":"http://a"},
			{"headline":"newest","summary":"s2","source":"wire","datetime":1700200000,"url":"http://b"},
			{"headline":"middle","summary":"s3","source":"wire","datetime":1700100000,"url":"http://c"}
		]`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	items, err := client.GetCompanyNews(context.Background(), "AAPL", 7, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "newest", items[0].Title)
	assert.Equal(t, "middle", items[1].Title)
}

func TestGetCompanyProfileEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	_, err := client.GetCompanyProfile(context.Background(), "ZZZZZ")
	require.Error(t, err)
	assert.Equal(t, providers.KindNotFound, providers.KindOf(err))
}

func TestSearchSymbolPrefersCommonStock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count":3,"result":[
			{"symbol":"AAPL.SW","description":"APPLE INC","type":"Common Stock"},
			{"symbol":"AAPL","description":"Apple Inc","type":"Common Stock"},
			{"symbol":"AAPL220617","description":"option","type":"Option"}
		]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	ticker, err := client.SearchSymbol(context.Background(), "apple")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", ticker.Symbol)
	assert.Equal(t, "Apple Inc", ticker.CompanyName)
}
