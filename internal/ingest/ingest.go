// Package ingest reads and writes trade sessions as CSV.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"trade-bias-analyzer/internal/errors"
	"trade-bias-analyzer/internal/models"
)

// RequiredColumns lists the columns every session file must carry.
var RequiredColumns = []string{
	"timestamp", "asset", "side", "quantity",
	"entry_price", "exit_price", "profit_loss", "balance",
}

// columnAliases maps alternative header names to their canonical column.
var columnAliases = map[string]string{
	"pnl":             "profit_loss",
	"p&l":             "profit_loss",
	"p_l":             "profit_loss",
	"account_balance": "balance",
}

// timestampLayouts are tried in order when parsing the timestamp column.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04",
	"2006-01-02",
}

// tradeRow is the CSV shape of a trade. Values are kept as text so that
// conversion failures can be reported with their row number.
type tradeRow struct {
	Timestamp  string `csv:"timestamp"`
	Asset      string `csv:"asset"`
	Side       string `csv:"side"`
	Quantity   string `csv:"quantity"`
	EntryPrice string `csv:"entry_price"`
	ExitPrice  string `csv:"exit_price"`
	PnL        string `csv:"profit_loss"`
	Balance    string `csv:"balance"`
}

// NormalizeHeader lower-cases a column name, replaces spaces with
// underscores and resolves known aliases.
func NormalizeHeader(name string) string {
	n := strings.TrimPrefix(name, "\ufeff")
	n = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(n)), " ", "_")
	if canonical, ok := columnAliases[n]; ok {
		return canonical
	}
	return n
}

// Parse reads a CSV session, validates it and returns the trades sorted by
// timestamp.
func Parse(in io.Reader, source string) ([]models.TradeRecord, error) {
	cr := csv.NewReader(in)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewDataError(source, 0, "empty file", nil)
	}
	if err != nil {
		return nil, errors.NewDataError(source, 0, "reading header", err)
	}
	for i, name := range first {
		first[i] = NormalizeHeader(name)
	}
	if missing := missingColumns(first); len(missing) > 0 {
		return nil, errors.NewDataError(source, 1, fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")), nil)
	}

	var rows []tradeRow
	if err := gocsv.UnmarshalCSV(&replayReader{first: first, rest: cr}, &rows); err != nil {
		return nil, errors.NewDataError(source, 0, "decoding rows", err)
	}

	trades := make([]models.TradeRecord, 0, len(rows))
	for i, row := range rows {
		// Row 1 is the header.
		trade, err := row.toTrade()
		if err != nil {
			return nil, errors.NewDataError(source, i+2, err.Error(), nil)
		}
		trades = append(trades, trade)
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.Before(trades[j].Timestamp)
	})
	return trades, nil
}

// ParseFile opens and parses a CSV session file.
func ParseFile(path string) ([]models.TradeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataError(path, 0, "opening file", err)
	}
	defer f.Close()
	return Parse(f, path)
}

// replayReader hands the already normalized header back to gocsv.
type replayReader struct {
	first  []string
	rest   *csv.Reader
	served bool
}

func (r *replayReader) Read() ([]string, error) {
	if !r.served {
		r.served = true
		return r.first, nil
	}
	return r.rest.Read()
}

func (r *replayReader) ReadAll() ([][]string, error) {
	var records [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
}

func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, c := range RequiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

func (r tradeRow) toTrade() (models.TradeRecord, error) {
	ts, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return models.TradeRecord{}, err
	}

	side := models.Side(strings.ToUpper(strings.TrimSpace(r.Side)))
	if side != models.SideBuy && side != models.SideSell {
		return models.TradeRecord{}, fmt.Errorf("side %q must be BUY or SELL", r.Side)
	}

	asset := strings.TrimSpace(r.Asset)
	if asset == "" {
		return models.TradeRecord{}, fmt.Errorf("asset is empty")
	}

	var t models.TradeRecord
	t.Timestamp, t.Asset, t.Side = ts, asset, side
	for _, f := range []struct {
		name     string
		raw      string
		dst      *float64
		positive bool
	}{
		{"quantity", r.Quantity, &t.Quantity, true},
		{"entry_price", r.EntryPrice, &t.EntryPrice, true},
		{"exit_price", r.ExitPrice, &t.ExitPrice, true},
		{"profit_loss", r.PnL, &t.PnL, false},
		{"balance", r.Balance, &t.Balance, false},
	} {
		v, err := strconv.ParseFloat(strings.TrimSpace(f.raw), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return models.TradeRecord{}, fmt.Errorf("%s %q is not a number", f.name, f.raw)
		}
		if f.positive && v <= 0 {
			return models.TradeRecord{}, fmt.Errorf("%s must be positive, got %v", f.name, v)
		}
		*f.dst = v
	}
	return t, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q is not a recognized date/time", raw)
}

// Write encodes trades as CSV with the canonical header.
func Write(out io.Writer, trades []models.TradeRecord) error {
	rows := make([]*tradeRow, len(trades))
	for i, t := range trades {
		rows[i] = &tradeRow{
			Timestamp:  t.Timestamp.Format(time.RFC3339),
			Asset:      t.Asset,
			Side:       string(t.Side),
			Quantity:   formatFloat(t.Quantity),
			EntryPrice: formatFloat(t.EntryPrice),
			ExitPrice:  formatFloat(t.ExitPrice),
			PnL:        formatFloat(t.PnL),
			Balance:    formatFloat(t.Balance),
		}
	}
	return gocsv.Marshal(&rows, out)
}

// WriteFile writes trades to a CSV file, replacing any existing file.
func WriteFile(path string, trades []models.TradeRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewDataError(path, 0, "creating file", err)
	}
	if err := Write(f, trades); err != nil {
		f.Close()
		return errors.NewDataError(path, 0, "writing rows", err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
