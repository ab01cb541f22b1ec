package model

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestOpportunity_BaseAsset(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"BTC/USDT", "BTC"},
		{"ETH/BTC", "ETH"},
		{"SOLUSDT", "SOLUSDT"},
		{"", ""},
	}

	for _, tt := range tests {
		o := Opportunity{Symbol: tt.symbol}
		if got := o.BaseAsset(); got != tt.want {
			t.Errorf("BaseAsset(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}

func TestRecord_Recency(t *testing.T) {
	t.Run("active uses payload timestamp", func(t *testing.T) {
		r := Record{Opportunity: Opportunity{Timestamp: ptr(int64(1700000000000))}, IsActive: true}
		if got := r.Recency(); got != 1700000000000 {
			t.Errorf("Recency() = %d, want 1700000000000", got)
		}
	})

	t.Run("inactive uses disappearance", func(t *testing.T) {
		r := Record{
			Opportunity:   Opportunity{Timestamp: ptr(int64(1700000000000))},
			IsActive:      false,
			DisappearedAt: 1700000005000,
		}
		if got := r.Recency(); got != 1700000005000 {
			t.Errorf("Recency() = %d, want 1700000005000", got)
		}
	})

	t.Run("missing timestamp", func(t *testing.T) {
		r := Record{IsActive: true}
		if got := r.Recency(); got != 0 {
			t.Errorf("Recency() = %d, want 0", got)
		}
	})
}

func TestRecord_Disappeared(t *testing.T) {
	active := Record{IsActive: true, DisappearedAt: 5}
	if _, ok := active.Disappeared(); ok {
		t.Error("active record should not report a disappearance")
	}

	inactive := Record{IsActive: false, DisappearedAt: 42}
	at, ok := inactive.Disappeared()
	if !ok || at != 42 {
		t.Errorf("Disappeared() = (%d, %v), want (42, true)", at, ok)
	}
}

func TestParseExchangeStatus(t *testing.T) {
	tests := map[string]ExchangeStatus{
		"connected":     ExchangeConnected,
		"CONNECTING":    ExchangeConnecting,
		"disconnected ": ExchangeDisconnected,
		"error":         ExchangeError,
		"errored":       ExchangeError,
		"auth_error":    ExchangeAuthError,
		"no_ws_support": ExchangeNoWSSupport,
		"No_Pairs":      ExchangeNoPairs,
		"rate_limited":  ExchangeUnknown,
		"":              ExchangeUnknown,
	}

	for in, want := range tests {
		if got := ParseExchangeStatus(in); got != want {
			t.Errorf("ParseExchangeStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMonitoredPairs(t *testing.T) {
	p := MonitoredPairs{
		"kraken":  {"BTC/USD", "ETH/USD"},
		"binance": {"BTC/USDT", "SOL/USDT", ""},
		"empty":   nil,
	}

	if got, want := p.Exchanges(), []string{"binance", "empty", "kraken"}; !slices.Equal(got, want) {
		t.Errorf("Exchanges() = %v, want %v", got, want)
	}
	if got, want := p.Assets(), []string{"BTC", "ETH", "SOL"}; !slices.Equal(got, want) {
		t.Errorf("Assets() = %v, want %v", got, want)
	}

	var none MonitoredPairs
	if len(none.Exchanges()) != 0 || len(none.Assets()) != 0 {
		t.Error("nil MonitoredPairs should have no exchanges or assets")
	}
}

func TestKindOf(t *testing.T) {
	base := errors.New("boom")

	wrapped := fmt.Errorf("handle message: %w", NewFeedError(KindDataFormat, base))
	if got := KindOf(wrapped); got != KindDataFormat {
		t.Errorf("KindOf(wrapped) = %q, want %q", got, KindDataFormat)
	}
	if !errors.Is(wrapped, base) {
		t.Error("FeedError should unwrap to the underlying error")
	}

	if got := KindOf(base); got != KindTransport {
		t.Errorf("KindOf(plain) = %q, want %q", got, KindTransport)
	}
}
