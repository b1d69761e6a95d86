// Package classifier assigns a standard spending category to a transaction.
//
// Rules are a static table evaluated top to bottom; the first rule whose
// keyword appears in the lower-cased description wins. Positive amounts are
// always income. Classification never fails: anything unmatched is Other.
package classifier

import (
	"strings"

	"trackify/internal/core"
)

type rule struct {
	category core.StandardCategory
	keywords []string
}

// rules is ordered by priority.
var rules = []rule{
	{core.FoodAndDrink, []string{
		"restaurant", "cafe", "coffee", "starbucks", "dunkin", "pizza", "burger",
		"mcdonald", "wendy", "taco", "chipotle", "subway", "kfc", "domino",
		"grubhub", "doordash", "ubereats", "uber eats", "postmates", "bakery",
		"bar ", "pub", "grocery", "supermarket", "whole foods", "trader joe",
		"safeway", "kroger", "food", "diner", "sushi",
	}},
	{core.Shopping, []string{
		"amazon", "walmart", "target", "costco", "best buy", "ebay", "etsy",
		"ikea", "home depot", "lowe's", "macy", "nordstrom", "shop", "store",
		"mall", "outlet", "clothing", "apparel",
	}},
	{core.Transportation, []string{
		"uber", "lyft", "taxi", "cab ", "metro", "transit", "subway fare",
		"bus", "train", "amtrak", "airline", "airlines", "flight", "parking",
		"toll", "gas station", "shell", "chevron", "exxon", "fuel", "bp ",
	}},
	{core.BillsAndUtilities, []string{
		"electric", "utility", "utilities", "water bill", "internet", "comcast",
		"verizon", "at&t", "t-mobile", "phone bill", "insurance", "rent",
		"mortgage", "bill", "cable",
	}},
	{core.Entertainment, []string{
		"netflix", "spotify", "hulu", "disney", "hbo", "youtube", "steam",
		"playstation", "xbox", "nintendo", "cinema", "movie", "theater",
		"theatre", "concert", "ticketmaster", "game",
	}},
	{core.Health, []string{
		"pharmacy", "cvs", "walgreens", "doctor", "dental", "dentist",
		"hospital", "clinic", "medical", "health", "gym", "fitness", "vision",
	}},
	{core.Transfer, []string{
		"transfer", "venmo", "zelle", "paypal", "cash app", "wire", "deposit",
		"withdrawal", "atm", "payment thank you",
	}},
}

// Classify maps a description and signed amount to a standard category.
// An unparsable amount takes the spending path.
func Classify(description, amount string) core.StandardCategory {
	if d, err := core.ParseAmount(amount); err == nil && d.IsPositive() {
		return core.Income
	}

	desc := strings.ToLower(description)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(desc, kw) {
				return r.category
			}
		}
	}
	return core.Other
}

// ClassifyTransaction returns a copy of tx with its category populated.
func ClassifyTransaction(tx core.Transaction) core.Transaction {
	return tx.WithCategory(Classify(tx.Description, tx.Amount).Category())
}

// ClassifyAll classifies every transaction without modifying the input slice.
func ClassifyAll(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		out[i] = ClassifyTransaction(tx)
	}
	return out
}
