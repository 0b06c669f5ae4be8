package classify

import (
	"testing"

	"saldo/internal/core"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		class    string
		number   string
		wantArea core.BusinessArea
		wantKind core.LedgerKind
	}{
		{
			name:     "logis revenue",
			class:    "4",
			number:   "4010",
			wantArea: core.AreaLogis,
			wantKind: core.KindRevenue,
		},
		{
			name:     "food and beverage revenue",
			class:    "4",
			number:   "4250",
			wantArea: core.AreaFoodBeverage,
			wantKind: core.KindRevenue,
		},
		{
			name:     "spa revenue",
			class:    "4",
			number:   "4510",
			wantArea: core.AreaSpa,
			wantKind: core.KindRevenue,
		},
		{
			name:     "revenue outside department ranges",
			class:    "4",
			number:   "4900",
			wantArea: core.AreaSonstige,
			wantKind: core.KindRevenue,
		},
		{
			name:     "cost of goods",
			class:    "5",
			number:   "5100",
			wantArea: core.AreaFoodBeverage,
			wantKind: core.KindExpense,
		},
		{
			name:     "personnel expense",
			class:    "6",
			number:   "6020",
			wantArea: core.AreaPersonal,
			wantKind: core.KindExpense,
		},
		{
			name:     "maintenance expense",
			class:    "7",
			number:   "7100",
			wantArea: core.AreaInstandhaltung,
			wantKind: core.KindExpense,
		},
		{
			name:     "energy expense",
			class:    "7",
			number:   "7250",
			wantArea: core.AreaEnergie,
			wantKind: core.KindExpense,
		},
		{
			name:     "administration catches remaining class seven",
			class:    "7",
			number:   "7800",
			wantArea: core.AreaVerwaltung,
			wantKind: core.KindExpense,
		},
		{
			name:     "financial expense",
			class:    "8",
			number:   "8100",
			wantArea: core.AreaVerwaltung,
			wantKind: core.KindExpense,
		},
		{
			name:     "balance sheet account is neutral",
			class:    "1",
			number:   "1200",
			wantArea: core.AreaSonstige,
			wantKind: core.KindNeutral,
		},
		{
			name:     "missing class falls back to number digit",
			class:    "",
			number:   "6400",
			wantArea: core.AreaSonstige,
			wantKind: core.KindExpense,
		},
		{
			name:     "empty class and number",
			class:    "",
			number:   "",
			wantArea: core.AreaSonstige,
			wantKind: core.KindNeutral,
		},
		{
			name:     "non-numeric account number",
			class:    "4",
			number:   "A-4100",
			wantArea: core.AreaSonstige,
			wantKind: core.KindRevenue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			area, kind := Classify(tt.class, tt.number)
			if area != tt.wantArea {
				t.Errorf("Classify(%q, %q) area = %q, want %q", tt.class, tt.number, area, tt.wantArea)
			}
			if kind != tt.wantKind {
				t.Errorf("Classify(%q, %q) kind = %q, want %q", tt.class, tt.number, kind, tt.wantKind)
			}
		})
	}
}

// Classification must be stable: two identical accounts always receive the
// same area and kind no matter when they are classified.
func TestClassify_Stable(t *testing.T) {
	inputs := []struct{ class, number string }{
		{"4", "4010"},
		{"5", "5100"},
		{"7", "7250"},
		{"1", "1200"},
	}

	for _, in := range inputs {
		areaFirst, kindFirst := Classify(in.class, in.number)
		for i := 0; i < 3; i++ {
			area, kind := Classify(in.class, in.number)
			if area != areaFirst || kind != kindFirst {
				t.Fatalf("Classify(%q, %q) unstable: got (%q, %q), previously (%q, %q)",
					in.class, in.number, area, kind, areaFirst, kindFirst)
			}
		}
	}
}

func TestApply(t *testing.T) {
	account := core.Account{Number: "4250", Name: "Restaurant", Class: "4"}
	got := Apply(account)

	if got.Area != core.AreaFoodBeverage {
		t.Errorf("Apply() area = %q, want %q", got.Area, core.AreaFoodBeverage)
	}
	if got.Kind != core.KindRevenue {
		t.Errorf("Apply() kind = %q, want %q", got.Kind, core.KindRevenue)
	}
	if got.Number != account.Number || got.Name != account.Name || got.Class != account.Class {
		t.Errorf("Apply() mutated identity fields: %+v", got)
	}
}
