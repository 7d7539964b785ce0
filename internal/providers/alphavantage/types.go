package alphavantage

// dailyResponse is the TIME_SERIES_DAILY payload. Note and Information
// carry throttle notices; Error Message carries lookup failures. All
// three arrive with HTTP 200.
type dailyResponse struct {
	Note         string              `json:"Note"`
	Information  string              `json:"Information"`
	ErrorMessage string              `json:"Error Message"`
	Series       map[string]dailyBar `json:"Time Series (Daily)"`
}

type dailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}
