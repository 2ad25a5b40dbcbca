package constants

type Category string

// Standardized display categories. These are the closed vocabulary shown in
// the UI and written to exports; vendor taxonomies are mapped onto them.
const (
	Meal          Category = "Meal"
	Supplies      Category = "Supplies"
	Hotel         Category = "Hotel"
	Fuel          Category = "Fuel"
	Travel        Category = "Travel"
	Car           Category = "Car"
	Communication Category = "Communication"
	Subscriptions Category = "Subscriptions"
	Entertainment Category = "Entertainment"
	Training      Category = "Training"
	Health        Category = "Health"
	Other         Category = "Other"
)

var allCategories = []Category{
	Meal,
	Supplies,
	Hotel,
	Fuel,
	Travel,
	Car,
	Communication,
	Subscriptions,
	Entertainment,
	Training,
	Health,
	Other,
}

// vendorCategories maps Azure Document Intelligence 4.0 receipt types onto
// the standardized vocabulary. Lookups are case-sensitive on purpose: the
// vendor taxonomy is a fixed enum, not free text.
var vendorCategories = map[string]Category{
	"Meal":                     Meal,
	"Supplies":                 Supplies,
	"Hotel":                    Hotel,
	"Fuel&Energy":              Fuel,
	"Transportation":           Travel,
	"Transportation.CarRental": Car,
	"Communication":            Communication,
	"Subscriptions":            Subscriptions,
	"Entertainment":            Entertainment,
	"Training":                 Training,
	"Healthcare":               Health,
	"Other":                    Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Standardize maps a vendor category label to the display vocabulary.
// Empty input maps to Other. Unknown labels pass through unchanged so that
// new vendor categories never break ingestion; they just display raw.
func Standardize(input string) string {
	if input == "" {
		return string(Other)
	}
	if cat, ok := vendorCategories[input]; ok {
		return string(cat)
	}
	return input
}

// IsStandard reports whether label is one of the closed display categories.
func IsStandard(label string) bool {
	for _, cat := range allCategories {
		if label == string(cat) {
			return true
		}
	}
	return false
}
