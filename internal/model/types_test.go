package model

import "testing"

func TestSide_String(t *testing.T) {
	if got := Buy.String(); got != "buy" {
		t.Errorf("Buy.String() = %q, want %q", got, "buy")
	}
	if got := Sell.String(); got != "sell" {
		t.Errorf("Sell.String() = %q, want %q", got, "sell")
	}
}

func TestSide_Sign(t *testing.T) {
	if got := Buy.Sign(); got != 1 {
		t.Errorf("Buy.Sign() = %v, want 1", got)
	}
	if got := Sell.Sign(); got != -1 {
		t.Errorf("Sell.Sign() = %v, want -1", got)
	}
}

func TestSide_Opposite(t *testing.T) {
	if got := Buy.Opposite(); got != Sell {
		t.Errorf("Buy.Opposite() = %v, want Sell", got)
	}
	if got := Sell.Opposite(); got != Buy {
		t.Errorf("Sell.Opposite() = %v, want Buy", got)
	}
}

func TestOrderKind_String(t *testing.T) {
	if got := Limit.String(); got != "limit" {
		t.Errorf("Limit.String() = %q, want %q", got, "limit")
	}
	if got := Market.String(); got != "market" {
		t.Errorf("Market.String() = %q, want %q", got, "market")
	}
}
