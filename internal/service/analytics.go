package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/model"
)

const (
	uncategorized = "Uncategorized"
	dailyWindow   = 14
	monthLayout   = "2006-01"
)

// CategoryTotal is the spend of one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// PeriodTotal is the spend of one month or day.
type PeriodTotal struct {
	Period string          `json:"period"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}

// Analytics summarizes a set of active expenses.
type Analytics struct {
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	ByCategory []CategoryTotal `json:"byCategory"`
	ByMonth    []PeriodTotal   `json:"byMonth"`
	Daily      []PeriodTotal   `json:"daily"`
}

// summarize builds the analytics for expenses. Categories are ordered by
// total descending, months ascending, and the daily series covers the
// fourteen days ending on now's date with empty days reported as zero.
func summarize(expenses []model.Expense, now time.Time) *Analytics {
	out := &Analytics{
		Total:      decimal.Zero,
		Count:      len(expenses),
		ByCategory: []CategoryTotal{},
		ByMonth:    []PeriodTotal{},
	}

	today := now.UTC().Truncate(24 * time.Hour)
	first := today.AddDate(0, 0, -(dailyWindow - 1))
	daily := make([]PeriodTotal, dailyWindow)
	for i := range daily {
		daily[i] = PeriodTotal{Period: first.AddDate(0, 0, i).Format(dateLayout), Total: decimal.Zero}
	}

	categories := map[string]*CategoryTotal{}
	months := map[string]*PeriodTotal{}

	for _, e := range expenses {
		out.Total = out.Total.Add(e.Amount)

		name := e.Category
		if name == "" {
			name = uncategorized
		}
		c, ok := categories[name]
		if !ok {
			c = &CategoryTotal{Category: name, Total: decimal.Zero}
			categories[name] = c
		}
		c.Total = c.Total.Add(e.Amount)
		c.Count++

		date := e.Date.UTC()
		month := date.Format(monthLayout)
		m, ok := months[month]
		if !ok {
			m = &PeriodTotal{Period: month, Total: decimal.Zero}
			months[month] = m
		}
		m.Total = m.Total.Add(e.Amount)
		m.Count++

		day := date.Truncate(24 * time.Hour)
		if idx := int(day.Sub(first) / (24 * time.Hour)); !day.Before(first) && idx < dailyWindow {
			daily[idx].Total = daily[idx].Total.Add(e.Amount)
			daily[idx].Count++
		}
	}

	for _, c := range categories {
		out.ByCategory = append(out.ByCategory, *c)
	}
	sort.Slice(out.ByCategory, func(i, j int) bool {
		a, b := out.ByCategory[i], out.ByCategory[j]
		if cmp := a.Total.Cmp(b.Total); cmp != 0 {
			return cmp > 0
		}
		return a.Category < b.Category
	})

	for _, m := range months {
		out.ByMonth = append(out.ByMonth, *m)
	}
	sort.Slice(out.ByMonth, func(i, j int) bool {
		return out.ByMonth[i].Period < out.ByMonth[j].Period
	})

	out.Daily = daily
	return out
}
