package core

import "strings"

// StandardCategory is a classifier output label.
type StandardCategory string

const (
	FoodAndDrink      StandardCategory = "FOOD_AND_DRINK"
	Shopping          StandardCategory = "SHOPPING"
	Transportation    StandardCategory = "TRANSPORTATION"
	BillsAndUtilities StandardCategory = "BILLS_AND_UTILITIES"
	Entertainment     StandardCategory = "ENTERTAINMENT"
	Health            StandardCategory = "HEALTH"
	Transfer          StandardCategory = "TRANSFER"
	Other             StandardCategory = "OTHER"
	Income            StandardCategory = "INCOME"
)

var displayNames = map[StandardCategory]string{
	FoodAndDrink:      "Food & Drink",
	Shopping:          "Shopping",
	Transportation:    "Transportation",
	BillsAndUtilities: "Bills & Utilities",
	Entertainment:     "Entertainment",
	Health:            "Health",
	Transfer:          "Transfer",
	Other:             "Other",
	Income:            "Income",
}

// StandardCategories lists every label in display order.
func StandardCategories() []StandardCategory {
	return []StandardCategory{
		FoodAndDrink, Shopping, Transportation, BillsAndUtilities,
		Entertainment, Health, Transfer, Other, Income,
	}
}

// DisplayName returns the human readable name, e.g. "Food & Drink".
func (c StandardCategory) DisplayName() string {
	if name, ok := displayNames[c]; ok {
		return name
	}
	return displayNames[Other]
}

// Category converts the label into the stored (primary, detailed) pair.
func (c StandardCategory) Category() Category {
	return Category{Primary: c.DisplayName(), Detailed: string(c)}
}

// StandardCategoryFromDisplayName maps a display name or label back, defaulting to Other.
func StandardCategoryFromDisplayName(name string) StandardCategory {
	name = strings.TrimSpace(name)
	for c, display := range displayNames {
		if strings.EqualFold(display, name) || strings.EqualFold(string(c), name) {
			return c
		}
	}
	return Other
}

// IsIncomeCategory reports whether a free-form category name means income.
func IsIncomeCategory(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), Income.DisplayName()) ||
		strings.EqualFold(strings.TrimSpace(name), string(Income))
}
