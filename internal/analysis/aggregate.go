// Package analysis turns a user's expense records into monthly totals,
// category breakdowns, goal progress, trend alerts and spending insights.
//
// Everything here is a pure function of its arguments. Callers load the
// owner-scoped records and pass the goal and clock explicitly.
package analysis

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"spendtrack/internal/core"
)

// Entry is the aggregation view of one record. A record whose amount is
// missing or unparseable has Amount.Valid == false and contributes zero; a
// record without a usable date is left out of month buckets only.
type Entry struct {
	Amount   decimal.NullDecimal
	Category string
	Date     string
}

type MonthTotal struct {
	Key   string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

type CategoryTotal struct {
	Name  string          `json:"category"`
	Total decimal.Decimal `json:"total"`
}

// Totals holds month buckets ascending by key and category buckets in
// first-seen order.
type Totals struct {
	Months     []MonthTotal    `json:"months"`
	Categories []CategoryTotal `json:"categories"`
	Grand      decimal.Decimal `json:"grandTotal"`
}

// FromRecords adapts stored records for aggregation.
func FromRecords(recs []core.ExpenseRecord) []Entry {
	out := make([]Entry, 0, len(recs))
	for _, r := range recs {
		out = append(out, Entry{
			Amount:   decimal.NewNullDecimal(r.Amount.Decimal()),
			Category: r.Category,
			Date:     r.Date.String(),
		})
	}
	return out
}

// EntryFromRaw builds an Entry from loosely typed values such as an imported
// CSV row. Bad amounts and dates degrade instead of failing.
func EntryFromRaw(amount, category, date string) Entry {
	e := Entry{Category: category, Date: strings.TrimSpace(date)}
	amount = strings.ReplaceAll(strings.TrimSpace(amount), ",", ".")
	if d, err := decimal.NewFromString(amount); err == nil {
		e.Amount = decimal.NewNullDecimal(d)
	}
	return e
}

// monthKey returns the YYYY-MM bucket of a record date, or "" when the date
// is missing or not a calendar date.
func monthKey(date string) string {
	if date == "" {
		return ""
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return ""
	}
	return d.MonthKey()
}

// Aggregate sums entries by month and by category.
func Aggregate(entries []Entry) Totals {
	months := map[string]decimal.Decimal{}
	cats := map[string]decimal.Decimal{}
	var order []string
	grand := decimal.Zero

	for _, e := range entries {
		amount := decimal.Zero
		if e.Amount.Valid {
			amount = e.Amount.Decimal
		}

		cat := strings.TrimSpace(e.Category)
		if cat == "" {
			cat = core.DefaultCategory
		}
		if _, seen := cats[cat]; !seen {
			order = append(order, cat)
			cats[cat] = decimal.Zero
		}
		cats[cat] = cats[cat].Add(amount)
		grand = grand.Add(amount)

		if key := monthKey(e.Date); key != "" {
			if cur, ok := months[key]; ok {
				months[key] = cur.Add(amount)
			} else {
				months[key] = amount
			}
		}
	}

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := Totals{
		Months:     make([]MonthTotal, 0, len(keys)),
		Categories: make([]CategoryTotal, 0, len(order)),
		Grand:      grand,
	}
	for _, k := range keys {
		t.Months = append(t.Months, MonthTotal{Key: k, Total: months[k]})
	}
	for _, c := range order {
		t.Categories = append(t.Categories, CategoryTotal{Name: c, Total: cats[c]})
	}
	return t
}

// MonthTotal returns the total for key, zero when the month has no records.
func (t Totals) MonthTotal(key string) decimal.Decimal {
	for _, m := range t.Months {
		if m.Key == key {
			return m.Total
		}
	}
	return decimal.Zero
}

func (t Totals) CategoryTotal(name string) decimal.Decimal {
	for _, c := range t.Categories {
		if c.Name == name {
			return c.Total
		}
	}
	return decimal.Zero
}

// MonthMap and CategoryMap expose the buckets as plain maps.
func (t Totals) MonthMap() map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(t.Months))
	for _, mt := range t.Months {
		m[mt.Key] = mt.Total
	}
	return m
}

func (t Totals) CategoryMap() map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(t.Categories))
	for _, c := range t.Categories {
		m[c.Name] = c.Total
	}
	return m
}

// SortedCategories returns categories by total descending, ties by name.
func (t Totals) SortedCategories() []CategoryTotal {
	out := make([]CategoryTotal, len(t.Categories))
	copy(out, t.Categories)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}
