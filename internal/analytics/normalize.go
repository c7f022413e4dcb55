package analytics

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"cryptopunks-analysis/internal/domain"
)

// ColumnMapping names the input columns the normalizer reads.
// Revisions of the cleaned ledger disagree on naming (receiver vs to),
// so the mapping is always supplied rather than assumed.
type ColumnMapping struct {
	Timestamp string
	Sender    string // optional
	Receiver  string
	Value     string
	TxHash    string // optional
}

// DefaultColumns matches the processed CSV written by the cleaning step.
var DefaultColumns = ColumnMapping{
	Timestamp: "timeStamp",
	Sender:    "sender",
	Receiver:  "receiver",
	Value:     "value",
	TxHash:    "hash",
}

// EtherscanColumns matches raw Etherscan field names.
var EtherscanColumns = ColumnMapping{
	Timestamp: "timeStamp",
	Sender:    "from",
	Receiver:  "to",
	Value:     "value",
	TxHash:    "hash",
}

// Table is a header plus string cells, the shape of a processed CSV.
// Timestamps may be textual date-times or numeric Unix seconds.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Entry is one normalized transfer with its derived calendar date.
type Entry struct {
	domain.Transfer
	Date string // YYYY-MM-DD (UTC)
}

// Ledger is the normalized, read-only input shared by every analysis pass.
// Entries keep input order; Excluded counts rows dropped for a null,
// non-finite or negative value.
type Ledger struct {
	Entries  []Entry
	Excluded int
}

// Len returns the number of analysable entries.
func (l *Ledger) Len() int {
	return len(l.Entries)
}

// Values returns entry values in ledger order.
func (l *Ledger) Values() []float64 {
	values := make([]float64, len(l.Entries))
	for i, e := range l.Entries {
		values[i] = e.Value
	}
	return values
}

// timestampLayouts are tried in order before falling back to Unix seconds.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	domain.DateLayout,
}

// Normalize converts a table into a Ledger without touching the caller's table.
// Fails with *InvalidInputError when a required column is absent, a timestamp
// cannot be parsed, or a non-empty value is not a number.
func Normalize(t Table, cols ColumnMapping) (*Ledger, error) {
	index := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		index[strings.TrimSpace(c)] = i
	}

	tsIdx, err := requireColumn(index, cols.Timestamp)
	if err != nil {
		return nil, err
	}
	recvIdx, err := requireColumn(index, cols.Receiver)
	if err != nil {
		return nil, err
	}
	valIdx, err := requireColumn(index, cols.Value)
	if err != nil {
		return nil, err
	}
	senderIdx := optionalColumn(index, cols.Sender)
	hashIdx := optionalColumn(index, cols.TxHash)

	ledger := &Ledger{Entries: make([]Entry, 0, len(t.Rows))}
	for i, row := range t.Rows {
		rowNum := i + 1

		rawTS := cell(row, tsIdx)
		ts, err := ParseTimestamp(rawTS)
		if err != nil {
			return nil, &InvalidInputError{Column: cols.Timestamp, Row: rowNum, Value: rawTS, Reason: err.Error()}
		}

		rawVal := cell(row, valIdx)
		value, ok, err := parseValue(rawVal)
		if err != nil {
			return nil, &InvalidInputError{Column: cols.Value, Row: rowNum, Value: rawVal, Reason: "not a number"}
		}
		if !ok {
			ledger.Excluded++
			continue
		}

		ledger.Entries = append(ledger.Entries, Entry{
			Transfer: domain.Transfer{
				TxHash:    cell(row, hashIdx),
				Timestamp: ts,
				Sender:    cell(row, senderIdx),
				Receiver:  cell(row, recvIdx),
				Value:     value,
			},
			Date: domain.DateOf(ts),
		})
	}

	return ledger, nil
}

// NewLedger builds a Ledger from already-typed transfers.
// Transfers are copied; a zero timestamp is rejected as unparseable.
func NewLedger(transfers []*domain.Transfer) (*Ledger, error) {
	ledger := &Ledger{Entries: make([]Entry, 0, len(transfers))}
	for i, t := range transfers {
		if t == nil {
			continue
		}
		if t.Timestamp.IsZero() {
			return nil, &InvalidInputError{Column: "timestamp", Row: i + 1, Reason: "missing timestamp"}
		}
		if !validValue(t.Value) {
			ledger.Excluded++
			continue
		}
		entry := Entry{Transfer: *t, Date: domain.DateOf(t.Timestamp)}
		entry.Timestamp = t.Timestamp.UTC()
		ledger.Entries = append(ledger.Entries, entry)
	}
	return ledger, nil
}

// ParseTimestamp accepts RFC3339, "2006-01-02 15:04:05", a bare date, or
// Unix seconds (integer or fractional). The result is in UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, &InvalidInputError{Reason: "empty timestamp"}
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		whole, frac := math.Modf(f)
		return time.Unix(int64(whole), int64(frac*1e9)).UTC(), nil
	}

	return time.Time{}, &InvalidInputError{Reason: "unrecognised timestamp format"}
}

// SortedByTime returns entries ordered by timestamp ASC; ties keep ledger order.
func (l *Ledger) SortedByTime() []Entry {
	sorted := make([]Entry, len(l.Entries))
	copy(sorted, l.Entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// parseValue returns ok=false for null-like, non-finite or negative values.
func parseValue(raw string) (float64, bool, error) {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "na":
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return v, validValue(v), nil
}

func validValue(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func requireColumn(index map[string]int, name string) (int, error) {
	if name == "" {
		return 0, &InvalidInputError{Column: name, Reason: "column name not mapped"}
	}
	i, ok := index[name]
	if !ok {
		return 0, &InvalidInputError{Column: name, Reason: "column not found"}
	}
	return i, nil
}

func optionalColumn(index map[string]int, name string) int {
	if name == "" {
		return -1
	}
	if i, ok := index[name]; ok {
		return i
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
