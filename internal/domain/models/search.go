package models

// SymbolMatch is one symbol search hit from the upstream provider.
type SymbolMatch struct {
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Region      string  `json:"region,omitempty"`
	MarketOpen  string  `json:"market_open,omitempty"`
	MarketClose string  `json:"market_close,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	MatchScore  float64 `json:"match_score"`
}
