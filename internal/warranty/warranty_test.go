package warranty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
}

func TestExpiryDateFromReceiptDate(t *testing.T) {
	got := ExpiryDate("2025-05-30", time.Time{}, 365, fixedNow)
	assert.Equal(t, "30/05/2026", got)
}

func TestExpiryDateDisplayFormatInput(t *testing.T) {
	got := ExpiryDate("30/05/2025", time.Time{}, 30, fixedNow)
	assert.Equal(t, "29/06/2025", got)
}

func TestExpiryDateFallsBackToCreatedAt(t *testing.T) {
	created := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	got := ExpiryDate("not a date", created, 90, fixedNow)
	assert.Equal(t, "10/04/2025", got)
}

func TestExpiryDateFallsBackToNow(t *testing.T) {
	got := ExpiryDate("", time.Time{}, 10, fixedNow)
	assert.Equal(t, "25/06/2025", got)
}

func TestIsExpired(t *testing.T) {
	assert.True(t, IsExpired("14/06/2025", fixedNow))
	assert.False(t, IsExpired("15/06/2025", fixedNow))
	assert.False(t, IsExpired("16/06/2025", fixedNow))
	assert.False(t, IsExpired("2025-07-01", fixedNow))
	assert.True(t, IsExpired("garbage", fixedNow))
}
