package classifier

import (
	"testing"

	"trackify/internal/core"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		description string
		amount      string
		want        core.StandardCategory
	}{
		{"pizza", "Pizza Hut", "-40.00", core.FoodAndDrink},
		{"payroll", "Payroll", "1000.00", core.Income},
		{"positive overrides keywords", "Starbucks refund", "4.50", core.Income},
		{"shopping", "AMAZON MKTPLACE", "-19.99", core.Shopping},
		{"transport", "Lyft ride", "-12.00", core.Transportation},
		{"bills", "Comcast Xfinity", "-80", core.BillsAndUtilities},
		{"entertainment", "NETFLIX.COM", "-15.49", core.Entertainment},
		{"health", "CVS Pharmacy", "-8.20", core.Health},
		{"transfer", "Zelle to Sam", "-50", core.Transfer},
		{"no match", "Mystery Vendor", "-3", core.Other},
		{"unparsable amount spends", "Chipotle", "n/a", core.FoodAndDrink},
		{"unparsable amount unmatched", "zzz", "", core.Other},
		{"zero is not income", "Paycheck", "0", core.Other},
		// "uber eats" appears in food and must win over transportation's "uber".
		{"priority order", "Uber Eats order", "-22", core.FoodAndDrink},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.description, tt.amount); got != tt.want {
				t.Errorf("Classify(%q, %q) = %s, want %s", tt.description, tt.amount, got, tt.want)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	for i := 0; i < 50; i++ {
		if got := Classify("Shell Gas Station", "-30"); got != core.Transportation {
			t.Fatalf("iteration %d: got %s", i, got)
		}
	}
}

func TestIncomeOverride(t *testing.T) {
	for _, amount := range []string{"0.01", "1", "+25", "99999.99"} {
		for _, desc := range []string{"Pizza", "Netflix", "Transfer", ""} {
			if got := Classify(desc, amount); got != core.Income {
				t.Fatalf("Classify(%q, %q) = %s, want INCOME", desc, amount, got)
			}
		}
	}
}

func TestClassifyAllDoesNotMutateInput(t *testing.T) {
	in := []core.Transaction{
		{ID: "t1", Description: "Pizza Hut", Amount: "-40.00"},
		{ID: "t2", Description: "Payroll", Amount: "1000.00"},
	}
	out := ClassifyAll(in)

	if in[0].Category != nil || in[1].Category != nil {
		t.Fatal("input transactions were modified")
	}
	if out[0].Category == nil || out[0].Category.Detailed != string(core.FoodAndDrink) {
		t.Fatalf("unexpected category for t1: %+v", out[0].Category)
	}
	if out[0].Category.Primary != "Food & Drink" {
		t.Fatalf("unexpected primary for t1: %q", out[0].Category.Primary)
	}
	if out[1].Category == nil || out[1].Category.Detailed != string(core.Income) {
		t.Fatalf("unexpected category for t2: %+v", out[1].Category)
	}
}
