package warranty

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const displayLayout = "02/01/2006" // DD/MM/YYYY, as shown in the UI

// ExpiryDate computes a warranty expiry from the receipt date plus a period
// in days. The receipt date string wins when it parses; otherwise the
// record's creation time, otherwise now. Returned in DD/MM/YYYY form.
func ExpiryDate(receiptDate string, createdAt time.Time, periodDays int, now func() time.Time) string {
	base := parseBase(receiptDate, createdAt, now)
	return base.AddDate(0, 0, periodDays).Format(displayLayout)
}

func parseBase(receiptDate string, createdAt time.Time, now func() time.Time) time.Time {
	for _, layout := range []string{"2006-01-02", displayLayout, time.RFC3339} {
		if t, err := time.Parse(layout, receiptDate); err == nil {
			return t
		}
	}
	if !createdAt.IsZero() {
		return createdAt
	}
	if now != nil {
		return now()
	}
	return time.Now().UTC()
}

// IsExpired reports whether a DD/MM/YYYY expiry date lies before today.
// Unparseable input counts as expired rather than silently valid.
func IsExpired(expiryDate string, now func() time.Time) bool {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	t, err := parseExpiry(expiryDate)
	if err != nil {
		return true
	}
	today := now().Truncate(24 * time.Hour)
	return t.Before(today)
}

func parseExpiry(s string) (time.Time, error) {
	parts := strings.Split(s, "/")
	if len(parts) == 3 {
		day, err1 := strconv.Atoi(parts[0])
		month, err2 := strconv.Atoi(parts[1])
		year, err3 := strconv.Atoi(parts[2])
		if err1 == nil && err2 == nil && err3 == nil {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
		}
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unparseable expiry date %q", s)
}
