package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "Other"},
		{"Meal", "Meal"},
		{"Fuel&Energy", "Fuel"},
		{"Transportation", "Travel"},
		{"Transportation.CarRental", "Car"},
		{"Healthcare", "Health"},
		{"Subscriptions", "Subscriptions"},
		// unknown labels pass through untouched
		{"Groceries", "Groceries"},
		// matching is case sensitive
		{"fuel&energy", "fuel&energy"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Standardize(tc.in), "input %q", tc.in)
	}
}

func TestIsStandard(t *testing.T) {
	for _, label := range AsStringSlice() {
		assert.True(t, IsStandard(label), "label %q", label)
	}
	assert.False(t, IsStandard("Groceries"))
	assert.False(t, IsStandard(""))
}

func TestStandardizeOutputsForKnownInputs(t *testing.T) {
	for in := range vendorCategories {
		assert.True(t, IsStandard(Standardize(in)), "mapped output for %q must be standard", in)
	}
}
