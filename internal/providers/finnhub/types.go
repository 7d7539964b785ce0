package finnhub

// quoteResponse is the /quote payload.
type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// newsArticle is one element of the /company-news payload.
type newsArticle struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	Datetime int64  `json:"datetime"`
	URL      string `json:"url"`
}

// profileResponse is the /stock/profile2 payload.
type profileResponse struct {
	Name      string  `json:"name"`
	Ticker    string  `json:"ticker"`
	Exchange  string  `json:"exchange"`
	Industry  string  `json:"finnhubIndustry"`
	MarketCap float64 `json:"marketCapitalization"`
	WebURL    string  `json:"weburl"`
}

// searchResponse is the /search payload.
type searchResponse struct {
	Count  int            `json:"count"`
	Result []searchResult `json:"result"`
}

type searchResult struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Type        string `json:"type"`
}
