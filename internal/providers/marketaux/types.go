package marketaux

// newsResponse is the /news/all payload.
type newsResponse struct {
	Data []newsArticle `json:"data"`
}

type newsArticle struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Source      string       `json:"source"`
	PublishedAt string       `json:"published_at"`
	URL         string       `json:"url"`
	Entities    []newsEntity `json:"entities"`
}

type newsEntity struct {
	Symbol         string  `json:"symbol"`
	SentimentScore float64 `json:"sentiment_score"`
}
