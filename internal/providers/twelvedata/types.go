package twelvedata

// apiEnvelope is the in-body error shape Twelve Data returns with
// HTTP 200 when a request fails.
type apiEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// quoteResponse is the /quote payload. All numeric fields arrive as
// strings.
type quoteResponse struct {
	Symbol        string `json:"symbol"`
	Open          string `json:"open"`
	High          string `json:"high"`
	Low           string `json:"low"`
	Close         string `json:"close"`
	Volume        string `json:"volume"`
	PreviousClose string `json:"previous_close"`
	Change        string `json:"change"`
	PercentChange string `json:"percent_change"`
	Timestamp     int64  `json:"timestamp"`
}

// timeSeriesResponse is the /time_series payload.
type timeSeriesResponse struct {
	Values []timeSeriesBar `json:"values"`
	Status string          `json:"status"`
}

type timeSeriesBar struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}
