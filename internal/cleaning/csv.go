package cleaning

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"cryptopunks-analysis/internal/analytics"
	"cryptopunks-analysis/internal/domain"
)

// ProcessedFile is the cleaned ledger written under the processed data directory.
const ProcessedFile = "cryptopunks_transfers_cleaned.csv"

// TimestampLayout is the textual timestamp format of the processed CSV.
const TimestampLayout = "2006-01-02 15:04:05"

// Header is the column order of the processed CSV.
var Header = []string{"timeStamp", "hash", "event_index", "block_number", "sender", "receiver", "value", "value_usd"}

// WriteCSV writes transfers as the processed CSV.
func WriteCSV(w io.Writer, transfers []*domain.Transfer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, t := range transfers {
		usd := ""
		if t.ValueUSD != nil {
			usd = strconv.FormatFloat(*t.ValueUSD, 'f', -1, 64)
		}
		record := []string{
			t.Timestamp.UTC().Format(TimestampLayout),
			t.TxHash,
			strconv.Itoa(t.EventIndex),
			strconv.FormatInt(t.BlockNumber, 10),
			t.Sender,
			t.Receiver,
			strconv.FormatFloat(t.Value, 'f', -1, 64),
			usd,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV writes transfers to dir/name, creating dir. Returns the written path.
func SaveCSV(dir, name string, transfers []*domain.Transfer) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteCSV(f, transfers); err != nil {
		return "", err
	}
	return path, f.Close()
}

// ReadTable reads any header-first CSV into an analytics.Table.
func ReadTable(r io.Reader) (analytics.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return analytics.Table{}, fmt.Errorf("%w: empty csv", ErrInvalidRecord)
	}
	if err != nil {
		return analytics.Table{}, fmt.Errorf("read header: %w", err)
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return analytics.Table{}, fmt.Errorf("read rows: %w", err)
	}
	return analytics.Table{Columns: header, Rows: rows}, nil
}

// LoadTable reads the CSV at path.
func LoadTable(path string) (analytics.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return analytics.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadTable(f)
}

// ReadTransfers reads a processed CSV back into typed transfers.
// Rows with an empty value are skipped, matching the analytics normalizer.
func ReadTransfers(r io.Reader) ([]*domain.Transfer, error) {
	table, err := ReadTable(r)
	if err != nil {
		return nil, err
	}

	col := make(map[string]int, len(table.Columns))
	for i, c := range table.Columns {
		col[c] = i
	}
	for _, required := range []string{"timeStamp", "sender", "receiver", "value"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidRecord, required)
		}
	}

	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	out := make([]*domain.Transfer, 0, len(table.Rows))
	for n, row := range table.Rows {
		if get(row, "value") == "" {
			continue
		}
		ts, err := analytics.ParseTimestamp(get(row, "timeStamp"))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidRecord, n+1, err)
		}
		value, err := strconv.ParseFloat(get(row, "value"), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d value: %v", ErrInvalidRecord, n+1, err)
		}

		t := &domain.Transfer{
			TxHash:    get(row, "hash"),
			Timestamp: ts,
			Sender:    get(row, "sender"),
			Receiver:  get(row, "receiver"),
			Value:     value,
		}
		if s := get(row, "event_index"); s != "" {
			if t.EventIndex, err = strconv.Atoi(s); err != nil {
				return nil, fmt.Errorf("%w: row %d event_index: %v", ErrInvalidRecord, n+1, err)
			}
		}
		if s := get(row, "block_number"); s != "" {
			if t.BlockNumber, err = strconv.ParseInt(s, 10, 64); err != nil {
				return nil, fmt.Errorf("%w: row %d block_number: %v", ErrInvalidRecord, n+1, err)
			}
		}
		if s := get(row, "value_usd"); s != "" {
			usd, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d value_usd: %v", ErrInvalidRecord, n+1, err)
			}
			t.ValueUSD = &usd
		}
		out = append(out, t)
	}
	return out, nil
}

// LoadTransfers reads the processed CSV at path.
func LoadTransfers(path string) ([]*domain.Transfer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadTransfers(f)
}
