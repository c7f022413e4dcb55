package domain

import "time"

// Transfer represents one ownership-change event of a CryptoPunk.
// Corresponds to transfers table in PostgreSQL and ClickHouse.
type Transfer struct {
	TxHash      string    // Ethereum transaction hash
	EventIndex  int       // index of transfer within transaction
	BlockNumber int64     // Ethereum block number
	Timestamp   time.Time // block time (UTC)
	Sender      string    // "from" address
	Receiver    string    // "to" address
	Value       float64   // transferred value in ETH
	ValueUSD    *float64  // Value * spot USD price, nil when no quote for the day
}

// DateLayout is the calendar-day key format used by every per-day aggregation.
const DateLayout = "2006-01-02"

// DateOf returns the UTC calendar date key of t.
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
