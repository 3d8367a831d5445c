package store

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestSales_RangeFilterSortsNewestFirst(t *testing.T) {
	s, _ := newTestStore(t, WithClock(steppingClock(time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC))))

	for _, date := range []string{"2024-01-01", "2024-01-15", "2024-02-01"} {
		if _, err := s.Sales().Create(ctx(), fields(t, `{"businessDate":"`+date+`","totalBaht":100}`)); err != nil {
			t.Fatal(err)
		}
	}

	items, err := s.Sales().List(ctx(), ParseDateRange("2024-01-01", "2024-01-31"))
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d sales, want 2", len(items))
	}
	if items[0].BusinessDate != "2024-01-15" || items[1].BusinessDate != "2024-01-01" {
		t.Errorf("order = [%s %s], want newest createdAt first", items[0].BusinessDate, items[1].BusinessDate)
	}

	totals := SumSales(items)
	if totals.Count != 2 || totals.TotalBaht != 200 {
		t.Errorf("totals = %+v, want 2 / 200", totals)
	}
}

func TestSales_MalformedBoundsAreIgnored(t *testing.T) {
	s, _ := newTestStore(t)
	s.Sales().Create(ctx(), fields(t, `{"businessDate":"2023-06-01","totalBaht":1}`))
	s.Sales().Create(ctx(), fields(t, `{"businessDate":"2024-06-01","totalBaht":1}`))

	items, err := s.Sales().List(ctx(), ParseDateRange("June", "2024/12/31"))
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Errorf("got %d sales, want both with bounds ignored", len(items))
	}

	items, _ = s.Sales().List(ctx(), ParseDateRange("garbage", "2023-12-31"))
	if len(items) != 1 || items[0].BusinessDate != "2023-06-01" {
		t.Errorf("got %+v, want only the 2023 sale", items)
	}
}

func TestSales_CreateDefaultsAndExtras(t *testing.T) {
	now := time.Date(2024, 3, 9, 23, 15, 0, 0, time.UTC)
	s, _ := newTestStore(t, WithClock(func() time.Time { return now }))

	sale, err := s.Sales().Create(ctx(), fields(t, `{"businessDate":"yesterday","totalBaht":"350.5","items":[{"name":"Tea","qty":2}],"table":"A3"}`))
	if err != nil {
		t.Fatal(err)
	}
	if sale.BusinessDate != "2024-03-09" {
		t.Errorf("businessDate = %q, want today's date", sale.BusinessDate)
	}
	if sale.CreatedAt != "2024-03-09T23:15:00.000Z" {
		t.Errorf("createdAt = %q", sale.CreatedAt)
	}
	if sale.TotalBaht != 350.5 {
		t.Errorf("totalBaht = %v", sale.TotalBaht)
	}
	if string(sale.Extra["table"]) != `"A3"` || sale.Extra["items"] == nil {
		t.Errorf("extra = %v, want client keys kept", sale.Extra)
	}

	got, err := s.Sales().Get(ctx(), sale.ID)
	if err != nil {
		t.Fatal(err)
	}
	var items []map[string]any
	if err := json.Unmarshal(got.Extra["items"], &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0]["name"] != "Tea" {
		t.Errorf("items = %s after reload", got.Extra["items"])
	}
}

func TestSales_ClientIDHonored(t *testing.T) {
	s, _ := newTestStore(t)

	sale, err := s.Sales().Create(ctx(), fields(t, `{"id":"bill-0042","totalBaht":10,"createdAt":"2024-01-01T08:00:00.000Z"}`))
	if err != nil {
		t.Fatal(err)
	}
	if sale.ID != "bill-0042" || sale.CreatedAt != "2024-01-01T08:00:00.000Z" {
		t.Errorf("sale = %+v, want client id and createdAt", sale)
	}

	_, err = s.Sales().Create(ctx(), fields(t, `{"id":"bill-0042","totalBaht":10}`))
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "id" {
		t.Errorf("err = %v, want duplicate id ValidationError", err)
	}
}

func TestSales_CreatedAtFallbackForRange(t *testing.T) {
	r := ParseDateRange("2024-01-01", "2024-01-31")
	if !r.Contains(Sale{CreatedAt: "2024-01-20T10:00:00.000Z"}) {
		t.Error("sale without businessDate should match on createdAt date")
	}
	if r.Contains(Sale{}) {
		t.Error("sale without any date should not match a bounded range")
	}
}

func TestSales_TotalInputs(t *testing.T) {
	s, _ := newTestStore(t)

	tests := []struct {
		body    string
		want    float64
		invalid bool
	}{
		{`{"totalBaht":null}`, 0, false},
		{`{"totalBaht":""}`, 0, false},
		{`{"totalBaht":"  "}`, 0, false},
		{`{"totalBaht":" 99.5 "}`, 99.5, false},
		{`{}`, 0, true},
		{`{"totalBaht":"abc"}`, 0, true},
		{`{"totalBaht":{"thb":1}}`, 0, true},
	}
	for _, tt := range tests {
		sale, err := s.Sales().Create(ctx(), fields(t, tt.body))
		if tt.invalid {
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != "totalBaht" {
				t.Errorf("%s: err = %v, want totalBaht ValidationError", tt.body, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tt.body, err)
			continue
		}
		if sale.TotalBaht != tt.want {
			t.Errorf("%s: total = %v, want %v", tt.body, sale.TotalBaht, tt.want)
		}
	}
}

func TestSales_NonStringCreatedAtUsesNow(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	s, _ := newTestStore(t, WithClock(func() time.Time { return now }))

	for _, createdAt := range []string{`1709285400000`, `true`, `""`} {
		sale, err := s.Sales().Create(ctx(), fields(t, `{"totalBaht":1,"createdAt":`+createdAt+`}`))
		if err != nil {
			t.Fatal(err)
		}
		if sale.CreatedAt != Timestamp(now) {
			t.Errorf("createdAt %s stored as %q, want %q", createdAt, sale.CreatedAt, Timestamp(now))
		}
	}
}
