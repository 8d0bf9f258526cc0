package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/model"
)

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 3, 14, 18, 0, 0, 0, time.UTC)
	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 12, 0, 0, 0, time.UTC) }
	amount := decimal.RequireFromString

	expenses := []model.Expense{
		{Amount: amount("10.00"), Category: "Food", Date: day(time.January, 20)},
		{Amount: amount("4.50"), Category: "Food", Date: day(time.March, 1)},
		{Amount: amount("20"), Category: "Travel", Date: day(time.March, 14)},
		{Amount: amount("1.25"), Category: "", Date: day(time.March, 13)},
	}

	got := summarize(expenses, now)

	assert.Equal(t, 4, got.Count)
	assert.Equal(t, "35.75", got.Total.StringFixed(2))

	require.Len(t, got.ByCategory, 3)
	assert.Equal(t, "Travel", got.ByCategory[0].Category)
	assert.Equal(t, "Food", got.ByCategory[1].Category)
	assert.Equal(t, "14.50", got.ByCategory[1].Total.StringFixed(2))
	assert.Equal(t, 2, got.ByCategory[1].Count)
	assert.Equal(t, "Uncategorized", got.ByCategory[2].Category)

	require.Len(t, got.ByMonth, 2)
	assert.Equal(t, "2024-01", got.ByMonth[0].Period)
	assert.Equal(t, "2024-03", got.ByMonth[1].Period)
	assert.Equal(t, "25.75", got.ByMonth[1].Total.StringFixed(2))

	require.Len(t, got.Daily, 14)
	assert.Equal(t, "2024-03-01", got.Daily[0].Period)
	assert.Equal(t, "2024-03-14", got.Daily[13].Period)
	assert.Equal(t, "4.50", got.Daily[0].Total.StringFixed(2))
	assert.Equal(t, "1.25", got.Daily[12].Total.StringFixed(2))
	assert.Equal(t, "20.00", got.Daily[13].Total.StringFixed(2))
	assert.True(t, got.Daily[5].Total.IsZero())
	assert.Zero(t, got.Daily[5].Count)
}

func TestSummarize_Empty(t *testing.T) {
	got := summarize(nil, time.Now())

	assert.Zero(t, got.Count)
	assert.True(t, got.Total.IsZero())
	assert.NotNil(t, got.ByCategory)
	assert.NotNil(t, got.ByMonth)
	assert.Len(t, got.Daily, 14)
}
