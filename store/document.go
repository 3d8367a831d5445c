package store

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
)

// Top-level keys of the persisted document.
const (
	keyCustomers    = "customers"
	keyCompanies    = "companies"
	keyMenu         = "menu"
	keyBookings     = "bookings"
	keyReservations = "reservations"
	keySales        = "sales"
	keyState        = "posState"
	keyRates        = "exchangeRates"
)

var documentKeys = []string{
	keyCustomers, keyCompanies, keyMenu, keyBookings,
	keyReservations, keySales, keyState, keyRates,
}

// Document is the single persisted root: every collection, the free-form
// UI state and the exchange rates.
type Document struct {
	Customers    []Customer
	Companies    []Company
	Menu         []MenuItem
	Bookings     []Booking
	Reservations []Reservation
	Sales        []Sale
	State        map[string]json.RawMessage
	Rates        Rates

	// top-level keys this build does not know about
	extra map[string]json.RawMessage
}

// NewDocument returns a document holding only defaults.
func NewDocument() *Document {
	return &Document{
		Customers:    []Customer{},
		Companies:    []Company{},
		Menu:         []MenuItem{},
		Bookings:     []Booking{},
		Reservations: []Reservation{},
		Sales:        []Sale{},
		State:        defaultState(),
		Rates:        DefaultRates(),
	}
}

func defaultState() map[string]json.RawMessage {
	return map[string]json.RawMessage{}
}

// decodeDocument parses a persisted document, normalizing it rather than
// failing: absent or malformed parts fall back to their defaults. It only
// returns an error when data is not a JSON object at all.
func decodeDocument(data []byte, log *slog.Logger) (*Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	doc := NewDocument()
	doc.Customers = decodeList[Customer](top, keyCustomers, log)
	doc.Companies = decodeList[Company](top, keyCompanies, log)
	doc.Menu = decodeList[MenuItem](top, keyMenu, log)
	doc.Bookings = decodeList[Booking](top, keyBookings, log)
	doc.Reservations = decodeList[Reservation](top, keyReservations, log)
	doc.Sales = decodeList[Sale](top, keySales, log)

	if raw, ok := top[keyState]; ok && !isNull(raw) {
		var persisted map[string]json.RawMessage
		if err := json.Unmarshal(raw, &persisted); err != nil {
			log.Warn("ignoring malformed state", "error", err)
		}
		// persisted keys win over defaults
		for k, v := range persisted {
			doc.State[k] = v
		}
	}

	if raw, ok := top[keyRates]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &doc.Rates); err != nil {
			log.Warn("ignoring malformed rates", "error", err)
			doc.Rates = DefaultRates()
		}
	}

	for k, v := range top {
		if containsKey(documentKeys, k) {
			continue
		}
		if doc.extra == nil {
			doc.extra = make(map[string]json.RawMessage)
		}
		doc.extra[k] = v
	}
	return doc, nil
}

func decodeList[R any](top map[string]json.RawMessage, key string, log *slog.Logger) []R {
	out := []R{}
	raw, ok := top[key]
	if !ok || isNull(raw) {
		return out
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Warn("collection is not an array, treating as empty", "collection", key)
		return out
	}
	for i, item := range items {
		var r R
		if err := json.Unmarshal(item, &r); err != nil {
			log.Warn("dropping malformed record", "collection", key, "index", i, "error", err)
			continue
		}
		if lost := lostFields(item, r); len(lost) > 0 {
			log.Warn("record fields have unusable types and will be reset on save",
				"collection", key, "index", i, "fields", lost)
		}
		out = append(out, r)
	}
	return out
}

// lostFields lists the keys of raw holding an object, array or boolean that
// did not survive decoding into r. Strings and numbers are coerced, never
// lost.
func lostFields(raw json.RawMessage, r any) []string {
	var in, out map[string]json.RawMessage
	if json.Unmarshal(raw, &in) != nil {
		return nil
	}
	encoded, err := json.Marshal(r)
	if err != nil || json.Unmarshal(encoded, &out) != nil {
		return nil
	}
	var lost []string
	for k, v := range in {
		v = bytes.TrimSpace(v)
		if len(v) == 0 || !strings.ContainsRune("{[tf", rune(v[0])) {
			continue
		}
		if !bytes.Equal(compact(v), compact(out[k])) {
			lost = append(lost, k)
		}
	}
	slices.Sort(lost)
	return lost
}

func compact(v json.RawMessage) []byte {
	var buf bytes.Buffer
	if json.Compact(&buf, v) != nil {
		return v
	}
	return buf.Bytes()
}

func (d *Document) encode() ([]byte, error) {
	top := make(map[string]any, len(d.extra)+len(documentKeys))
	for k, v := range d.extra {
		top[k] = v
	}
	top[keyCustomers] = d.Customers
	top[keyCompanies] = d.Companies
	top[keyMenu] = d.Menu
	top[keyBookings] = d.Bookings
	top[keyReservations] = d.Reservations
	top[keySales] = d.Sales
	top[keyState] = d.State
	top[keyRates] = d.Rates
	return json.MarshalIndent(top, "", "  ")
}
