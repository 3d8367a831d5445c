package store

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestDecodeDocument_Normalizes(t *testing.T) {
	raw := `{
		"customers": {"not": "an array"},
		"menu": [{"id":"menu_1","name":"Tea","price":"45"}, 42],
		"bookings": null,
		"exchangeRates": {"krw": 41},
		"posState": {"zoom": 2}
	}`
	doc, err := decodeDocument([]byte(raw), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if doc.Customers == nil || len(doc.Customers) != 0 {
		t.Errorf("customers = %v, want empty", doc.Customers)
	}
	if len(doc.Menu) != 1 || doc.Menu[0].Price != 45 {
		t.Errorf("menu = %+v, want one item priced 45", doc.Menu)
	}
	if doc.Bookings == nil || len(doc.Sales) != 0 {
		t.Error("absent collections should decode as empty")
	}
	if doc.Rates.USD != DefaultUSDRate || doc.Rates.KRW != 41 {
		t.Errorf("rates = %+v, want usd backfilled and krw kept", doc.Rates)
	}
	if string(doc.State["zoom"]) != "2" {
		t.Errorf("state = %v", doc.State)
	}
}

func TestDecodeDocument_RejectsNonObject(t *testing.T) {
	if _, err := decodeDocument([]byte(`[1,2]`), quietLogger()); err == nil {
		t.Error("expected error for array document")
	}
}

func TestDocument_PreservesUnknownFields(t *testing.T) {
	raw := `{
		"customers": [{"id":"cust_1","name":"A","loyaltyTier":"gold"}],
		"sales": [],
		"exchangeRates": {"usd": 0.03, "krw": 39, "eur": 0.027},
		"giftCards": [{"code":"X1"}]
	}`
	doc, err := decodeDocument([]byte(raw), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	out, err := doc.encode()
	if err != nil {
		t.Fatal(err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(out, &top); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(top["giftCards"]), `"X1"`) {
		t.Errorf("giftCards dropped: %s", out)
	}
	if !strings.Contains(string(top["customers"]), `"loyaltyTier": "gold"`) {
		t.Errorf("record field dropped: %s", top["customers"])
	}
	if !strings.Contains(string(top["exchangeRates"]), `"eur"`) {
		t.Errorf("rate field dropped: %s", top["exchangeRates"])
	}
}

func TestRecord_MarshalKeepsKnownFieldsOverExtra(t *testing.T) {
	c := Customer{ID: "cust_1", Name: "New", Extra: map[string]json.RawMessage{"name": json.RawMessage(`"Old"`)}}
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"name":"New"`) {
		t.Errorf("marshal = %s, want typed field to win", b)
	}
}

func TestDecodeDocument_WarnsOnUnusableKnownFields(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))
	raw := `{
		"customers": [{"id":"cust_1","name":{"first":"A"},"phone":812,"tags":["vip"]}],
		"bookings": [{"id":"book_1","customerName":"B","date":"2024-01-01","partySize":true}]
	}`
	doc, err := decodeDocument([]byte(raw), log)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Customers[0].Phone != "812" {
		t.Errorf("phone = %q, want number coerced to text", doc.Customers[0].Phone)
	}

	out := logs.String()
	if !strings.Contains(out, "collection=customers") || !strings.Contains(out, "fields=[name]") {
		t.Errorf("missing customer warning in %q", out)
	}
	if !strings.Contains(out, "fields=[partySize]") {
		t.Errorf("missing booking warning in %q", out)
	}
	if strings.Contains(out, "tags") || strings.Contains(out, "phone") {
		t.Errorf("coerced or preserved fields reported as lost: %q", out)
	}
}
