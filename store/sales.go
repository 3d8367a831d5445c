package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// SalesLog is the append-only bill history. Sales can be created and read
// but never updated or deleted.
type SalesLog struct {
	c *Collection[Sale]
}

func (s *Store) Sales() *SalesLog {
	return &SalesLog{c: &Collection[Sale]{store: s, def: &saleDef}}
}

func (l *SalesLog) Name() string { return l.c.Name() }

// List returns the sales inside r, newest createdAt first.
func (l *SalesLog) List(ctx context.Context, r DateRange) ([]Sale, error) {
	var keep func(Sale) bool
	if !r.IsZero() {
		keep = r.Contains
	}
	items, err := l.c.List(ctx, keep)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt > items[j].CreatedAt
	})
	return items, nil
}

func (l *SalesLog) Get(ctx context.Context, id string) (Sale, error) {
	return l.c.Get(ctx, id)
}

// Create appends a sale. A client-supplied id is kept; it must not collide
// with an existing sale.
func (l *SalesLog) Create(ctx context.Context, f Fields) (Sale, error) {
	return l.c.Create(ctx, f)
}

var saleDef = collectionDef[Sale]{
	name:   keySales,
	prefix: "sale",
	slot:   func(d *Document) *[]Sale { return &d.Sales },
	id:     func(s Sale) string { return s.ID },
	create: func(id string, f Fields, now time.Time) (Sale, error) {
		total, err := saleTotal(f)
		if err != nil {
			return Sale{}, err
		}
		s := Sale{
			ID:           id,
			BusinessDate: NormalizeDate(f.text("businessDate")),
			CreatedAt:    stringOnly(f, "createdAt"),
			TotalBaht:    total,
			Extra:        f.rest(saleKeys),
		}
		if v := f.text("id"); v != "" {
			s.ID = v
		}
		if s.BusinessDate == "" {
			s.BusinessDate = now.UTC().Format(DateLayout)
		}
		if s.CreatedAt == "" {
			s.CreatedAt = Timestamp(now)
		}
		return s, nil
	},
}

// saleTotal requires totalBaht to be present. An explicit null or blank
// string counts as zero, matching what existing tills send for comped bills.
func saleTotal(f Fields) (float64, error) {
	raw, present := f["totalBaht"]
	if !present {
		return 0, invalid("totalBaht", "must be a number")
	}
	if isNull(raw) {
		return 0, nil
	}
	var s string
	if json.Unmarshal(raw, &s) == nil && strings.TrimSpace(s) == "" {
		return 0, nil
	}
	v, _, err := f.Float("totalBaht")
	return v, err
}

// stringOnly returns the value of key when it is a JSON string, and ""
// for any other type.
func stringOnly(f Fields, key string) string {
	var s string
	if json.Unmarshal(f[key], &s) != nil {
		return ""
	}
	return s
}
