package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityWhere(t *testing.T) {
	where, args := identityWhere(IdentityFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = identityWhere(IdentityFilter{Event: "Seminar", Search: "a_b"})
	assert.Equal(t,
		"WHERE event = $1 AND (name ILIKE $2 OR email ILIKE $2 OR phone ILIKE $2 OR digital_id ILIKE $2)",
		where)
	assert.Equal(t, []any{"Seminar", `%a\_b%`}, args)
}

func TestLogWhere(t *testing.T) {
	from := time.Date(2024, 3, 4, 0, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	to := from.AddDate(0, 0, 1)

	where, args := logWhere(LogFilter{IdentityID: "BIL-1000", Event: "Seminar", From: &from, To: &to})
	assert.Equal(t,
		"WHERE identity_id = $1 AND event = $2 AND occurred_at >= $3 AND occurred_at < $4",
		where)
	require.Len(t, args, 4)
	assert.Equal(t, from.UTC(), args[2])
	assert.Equal(t, time.UTC, args[2].(time.Time).Location())
}

func TestAppendPage(t *testing.T) {
	q, args := appendPage("SELECT 1", []any{"x"}, 10, 20)
	assert.Equal(t, "SELECT 1 LIMIT $2 OFFSET $3", q)
	assert.Equal(t, []any{"x", 10, 20}, args)

	q, args = appendPage("SELECT 1", nil, 0, 0)
	assert.Equal(t, "SELECT 1", q)
	assert.Empty(t, args)
}

func TestSortWhitelist(t *testing.T) {
	col, order, err := logSort(LogFilter{})
	require.NoError(t, err)
	assert.Equal(t, "occurred_at", col)
	assert.Equal(t, OrderDesc, order)

	col, order, err = logSort(LogFilter{Sort: "confidence_score", Order: "ASC"})
	require.NoError(t, err)
	assert.Equal(t, "confidence", col)
	assert.Equal(t, OrderAsc, order)

	_, _, err = logSort(LogFilter{Sort: "title; DROP TABLE attendance_logs"})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, _, err = identitySort(IdentityFilter{Order: "sideways"})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestPage(t *testing.T) {
	tests := []struct {
		n, limit, offset int
		start, end       int
	}{
		{10, 0, 0, 0, 10},
		{10, 3, 0, 0, 3},
		{10, 3, 8, 8, 10},
		{10, 3, 20, 10, 10},
		{10, 0, -1, 0, 10},
	}
	for _, tt := range tests {
		s, e := page(tt.n, tt.limit, tt.offset)
		assert.Equal(t, tt.start, s)
		assert.Equal(t, tt.end, e)
	}
}
