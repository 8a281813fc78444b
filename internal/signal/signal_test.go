package signal

import (
	"errors"
	"testing"
)

func TestParse_ValidSignal(t *testing.T) {
	sig, err := Parse([]byte(`{"ticker":"MNQ","action":"buy","quantity":2}`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if sig.Ticker != "MNQ" || sig.Action != ActionBuy || sig.Quantity != 2 {
		t.Fatalf("unexpected signal %+v", sig)
	}
}

func TestParse_QuantityAsString(t *testing.T) {
	sig, err := Parse([]byte(`{"ticker":"MNQ","action":"sell","quantity":"3"}`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if sig.Quantity != 3 || sig.Action != ActionSell {
		t.Fatalf("unexpected signal %+v", sig)
	}
}

func TestParse_QuantityDefaultsToOne(t *testing.T) {
	sig, err := Parse([]byte(`{"ticker":"MNQ","action":"buy"}`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if sig.Quantity != 1 {
		t.Fatalf("expected default quantity 1, got %d", sig.Quantity)
	}
}

func TestParse_ActionCaseInsensitive(t *testing.T) {
	sig, err := Parse([]byte(`{"ticker":"MNQ","action":"BUY","quantity":1}`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if sig.Action != ActionBuy {
		t.Fatalf("expected buy, got %s", sig.Action)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", `ticker=MNQ`},
		{"missing ticker", `{"action":"buy","quantity":1}`},
		{"blank ticker", `{"ticker":"  ","action":"buy","quantity":1}`},
		{"unknown action", `{"ticker":"MNQ","action":"hold","quantity":1}`},
		{"missing action", `{"ticker":"MNQ","quantity":1}`},
		{"zero quantity", `{"ticker":"MNQ","action":"sell","quantity":0}`},
		{"negative quantity", `{"ticker":"MNQ","action":"buy","quantity":-1}`},
		{"fractional quantity", `{"ticker":"MNQ","action":"buy","quantity":1.5}`},
		{"non-numeric quantity", `{"ticker":"MNQ","action":"buy","quantity":"many"}`},
	}

	for _, tc := range cases {
		if _, err := Parse([]byte(tc.body)); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: expected ErrInvalid, got %v", tc.name, err)
		}
	}
}
