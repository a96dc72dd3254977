package apiserver

// MarketInfo describes one registered market's trading rules.
type MarketInfo struct {
	MarketID     string `json:"market_id"`
	BaseAssetID  string `json:"base_asset_id"`
	QuoteAssetID string `json:"quote_asset_id"`
	TickSize     string `json:"tick_size"`
	LotSize      string `json:"lot_size"`
	TakerFeeBps  uint32 `json:"taker_fee_bps"`
	MakerFeeBps  uint32 `json:"maker_fee_bps"`
}

// PriceLevel is one occupied tick and the total base quantity resting at it.
type PriceLevel struct {
	Tick    int32  `json:"tick"`
	QtyBase string `json:"qty_base"`
}

// OrderbookSnapshot is the current resting book for one market, both sides
// ordered best-to-worst.
type OrderbookSnapshot struct {
	MarketID string       `json:"market_id"`
	Bids     []PriceLevel `json:"bids"`
	Asks     []PriceLevel `json:"asks"`
}

// BalanceInfo is one account's available/locked balance in one asset.
type BalanceInfo struct {
	Account   string `json:"account"`
	AssetID   string `json:"asset_id"`
	Available string `json:"available"`
	Locked    string `json:"locked"`
}

// TradeUpdate is broadcast over the "trades:<market_id>" WebSocket channel
// as each batch commits.
type TradeUpdate struct {
	MarketID      string `json:"market_id"`
	MakerOrderID  string `json:"maker_order_id"`
	TakerOrderID  string `json:"taker_order_id"`
	Maker         string `json:"maker"`
	Taker         string `json:"taker"`
	QtyBase       string `json:"qty_base"`
	QuoteAmt      string `json:"quote_amt"`
	TakerFeeQuote string `json:"taker_fee_quote"`
}

// RootUpdate is broadcast over the "roots:<market_id>" WebSocket channel as
// each batch commits a new state root.
type RootUpdate struct {
	MarketID   string `json:"market_id"`
	BatchSeq   uint64 `json:"batch_seq"`
	PrevRoot   string `json:"prev_root"`
	NewRoot    string `json:"new_root"`
	TradesRoot string `json:"trades_root"`
	FeesRoot   string `json:"fees_root"`
}

// SubmitResponse acknowledges a batch of messages admitted to a market's
// queue.
type SubmitResponse struct {
	Status   string `json:"status"`
	Admitted int    `json:"admitted"`
	QueueLen int    `json:"queue_len"`
}

// ErrorResponse is the JSON body returned alongside any non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
