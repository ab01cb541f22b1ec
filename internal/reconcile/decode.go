package reconcile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rickgao/arbfeed/internal/model"
)

// Errors returned (wrapped in a model.FeedError) by DecodeBatch.
var (
	ErrMalformedJSON = errors.New("message is not valid JSON")
	ErrNotList       = errors.New("message is not a JSON list")
)

// Batch is a decoded snapshot.
type Batch struct {
	Records []model.Opportunity // Valid records, first-seen order, last duplicate wins
	Dropped []RecordError       // Records excluded by the shape check
	Total   int                 // Elements in the inbound list
}

// Malformed reports whether the list was non-empty but no record survived.
func (b Batch) Malformed() bool {
	return b.Total > 0 && len(b.Records) == 0
}

// RecordError describes one dropped record.
type RecordError struct {
	Index  int    // Position in the inbound list
	ID     string // Record id, if one could be read
	Reason string
}

func (e RecordError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("record %d (%s): %s", e.Index, e.ID, e.Reason)
	}
	return fmt.Sprintf("record %d: %s", e.Index, e.Reason)
}

// DecodeBatch parses an inbound stream message as a list of records.
//
// A payload that is not valid JSON or not a list yields a KindDataFormat
// FeedError. Individual records that fail the shape check are reported in
// Batch.Dropped and do not abort the rest of the batch.
func DecodeBatch(data []byte) (Batch, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return Batch{}, model.NewFeedError(model.KindDataFormat, ErrMalformedJSON)
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return Batch{}, model.NewFeedError(model.KindDataFormat, ErrNotList)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return Batch{}, model.NewFeedError(model.KindDataFormat, fmt.Errorf("unmarshal list: %w", err))
	}

	batch := Batch{
		Records: make([]model.Opportunity, 0, len(elems)),
		Total:   len(elems),
	}
	seen := make(map[string]int, len(elems))

	for i, raw := range elems {
		opp, recErr := decodeRecord(i, raw)
		if recErr != nil {
			batch.Dropped = append(batch.Dropped, *recErr)
			continue
		}

		if idx, dup := seen[opp.ID]; dup {
			batch.Records[idx] = opp
			continue
		}
		seen[opp.ID] = len(batch.Records)
		batch.Records = append(batch.Records, opp)
	}

	return batch, nil
}

// decodeRecord applies the shape check: a non-empty string id, string
// symbol and exchanges, and a numeric net_profit_pct. Optional fields of the
// wrong type decode as absent rather than dropping the record.
func decodeRecord(index int, raw json.RawMessage) (model.Opportunity, *RecordError) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return model.Opportunity{}, &RecordError{Index: index, Reason: "record is not an object"}
	}

	id, ok := required[string](fields, "id")
	if !ok || id == "" {
		return model.Opportunity{}, &RecordError{Index: index, Reason: "missing id"}
	}

	symbol, ok := required[string](fields, "symbol")
	if !ok {
		return model.Opportunity{}, &RecordError{Index: index, ID: id, Reason: "missing symbol"}
	}
	buyExchange, ok := required[string](fields, "buy_exchange")
	if !ok {
		return model.Opportunity{}, &RecordError{Index: index, ID: id, Reason: "missing buy_exchange"}
	}
	sellExchange, ok := required[string](fields, "sell_exchange")
	if !ok {
		return model.Opportunity{}, &RecordError{Index: index, ID: id, Reason: "missing sell_exchange"}
	}
	netProfitPct, ok := required[float64](fields, "net_profit_pct")
	if !ok {
		return model.Opportunity{}, &RecordError{Index: index, ID: id, Reason: "missing net_profit_pct"}
	}

	return model.Opportunity{
		ID:                   id,
		Symbol:               symbol,
		BuyExchange:          buyExchange,
		SellExchange:         sellExchange,
		BuyPrice:             optional[float64](fields, "buy_price"),
		SellPrice:            optional[float64](fields, "sell_price"),
		PotentialProfitPct:   optional[float64](fields, "potential_profit_pct"),
		ExecutableVolumeBase: optional[float64](fields, "executable_volume_base"),
		FeesPaidQuote:        optional[float64](fields, "fees_paid_quote"),
		NetProfitPct:         &netProfitPct,
		NetProfitQuote:       optional[float64](fields, "net_profit_quote"),
		BuyNetwork:           optional[string](fields, "buy_network"),
		SellNetwork:          optional[string](fields, "sell_network"),
		Timestamp:            optional[int64](fields, "timestamp"),
	}, nil
}

// required decodes a present, non-null field of type T.
func required[T any](fields map[string]json.RawMessage, name string) (T, bool) {
	v := optional[T](fields, name)
	if v == nil {
		var zero T
		return zero, false
	}
	return *v, true
}

// optional decodes field name as T, or returns nil when it is absent, null
// or of another type.
func optional[T any](fields map[string]json.RawMessage, name string) *T {
	raw, ok := fields[name]
	if !ok {
		return nil
	}
	var v *T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}
