package ledger

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func balance(t *testing.T, number string, year, month int, net string) core.MonthlyBalance {
	t.Helper()
	n := mustDecimal(t, net)
	return core.MonthlyBalance{
		AccountNumber: number,
		Year:          year,
		Month:         month,
		Debit:         decimal.Zero,
		Credit:        n.Neg(),
		Net:           n,
	}
}

func TestStore_MergeAccounts_Classifies(t *testing.T) {
	s := NewStore()
	err := s.MergeAccounts([]core.Account{
		{Number: "4010", Name: "Logis", Class: "4"},
	})
	if err != nil {
		t.Fatalf("MergeAccounts() unexpected error: %v", err)
	}

	got, ok := s.Account("4010")
	if !ok {
		t.Fatal("account 4010 not found after merge")
	}
	if got.Area != core.AreaLogis || got.Kind != core.KindRevenue {
		t.Errorf("merged account = %+v, want Logis/revenue", got)
	}
}

func TestStore_MergeAccounts_LastWriteWins(t *testing.T) {
	s := NewStore()
	if err := s.MergeAccounts([]core.Account{{Number: "4010", Name: "Old Name", Class: "4"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.MergeAccounts([]core.Account{{Number: "4010", Name: "New Name", Class: "4"}}); err != nil {
		t.Fatal(err)
	}

	got, _ := s.Account("4010")
	if got.Name != "New Name" {
		t.Errorf("account name = %q, want %q", got.Name, "New Name")
	}
	if s.AccountCount() != 1 {
		t.Errorf("AccountCount() = %d, want 1", s.AccountCount())
	}
}

func TestStore_MergeAccounts_AtomicOnInvalid(t *testing.T) {
	s := NewStore()
	err := s.MergeAccounts([]core.Account{
		{Number: "4010", Name: "Logis", Class: "4"},
		{Number: "", Name: "Broken"},
	})
	if !errors.Is(err, core.ErrEmptyAccountNumber) {
		t.Fatalf("MergeAccounts() error = %v, want ErrEmptyAccountNumber", err)
	}
	if s.AccountCount() != 0 {
		t.Errorf("AccountCount() = %d after failed merge, want 0", s.AccountCount())
	}
}

func TestStore_MergeBalances_Idempotent(t *testing.T) {
	s := NewStore()
	bals := []core.MonthlyBalance{
		balance(t, "4010", 2024, 7, "100"),
		balance(t, "6020", 2024, 7, "-50"),
	}

	if err := s.MergeBalances(bals); err != nil {
		t.Fatal(err)
	}
	before := s.Balances()

	if err := s.MergeBalances(bals); err != nil {
		t.Fatal(err)
	}
	after := s.Balances()

	if !reflect.DeepEqual(before, after) {
		t.Errorf("re-merge changed state:\nbefore %+v\nafter  %+v", before, after)
	}
	if len(after) != 2 {
		t.Errorf("got %d balances, want 2", len(after))
	}
}

func TestStore_MergeBalances_MonotonicAcrossPeriods(t *testing.T) {
	s := NewStore()
	if err := s.MergeBalances([]core.MonthlyBalance{balance(t, "4010", 2024, 6, "80")}); err != nil {
		t.Fatal(err)
	}
	if err := s.MergeBalances([]core.MonthlyBalance{balance(t, "4010", 2024, 7, "100")}); err != nil {
		t.Fatal(err)
	}

	june, ok := s.Balance("4010", core.Period{Year: 2024, Month: 6})
	if !ok {
		t.Fatal("june balance missing after importing july")
	}
	if !june.Net.Equal(mustDecimal(t, "80")) {
		t.Errorf("june net = %s, want 80", june.Net)
	}
}

func TestStore_MergeBalances_LastWriteWins(t *testing.T) {
	s := NewStore()
	if err := s.MergeBalances([]core.MonthlyBalance{balance(t, "4010", 2024, 7, "100")}); err != nil {
		t.Fatal(err)
	}
	if err := s.MergeBalances([]core.MonthlyBalance{balance(t, "4010", 2024, 7, "120")}); err != nil {
		t.Fatal(err)
	}

	got, _ := s.Balance("4010", core.Period{Year: 2024, Month: 7})
	if !got.Net.Equal(mustDecimal(t, "120")) {
		t.Errorf("net = %s, want 120", got.Net)
	}
	if len(s.Balances()) != 1 {
		t.Errorf("got %d balances, want 1", len(s.Balances()))
	}
}

func TestStore_RecordBatch_ReplacesSamePeriod(t *testing.T) {
	s := NewStore()
	first := core.UploadBatch{Filename: "Saldenliste-07-2024.csv", Year: 2024, Month: 7, AccountCount: 10, ImportedAt: time.Now().UTC()}
	second := core.UploadBatch{Filename: "Saldenliste-07-2024.csv", Year: 2024, Month: 7, AccountCount: 12, ImportedAt: time.Now().UTC()}

	if err := s.RecordBatch(first); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordBatch(second); err != nil {
		t.Fatal(err)
	}

	batches := s.Batches()
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	if batches[0].AccountCount != 12 {
		t.Errorf("AccountCount = %d, want 12", batches[0].AccountCount)
	}
}

func TestStore_RemoveBatch_KeepsBalances(t *testing.T) {
	s := NewStore()
	if err := s.MergeBalances([]core.MonthlyBalance{balance(t, "4010", 2024, 7, "100")}); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordBatch(core.UploadBatch{Filename: "Saldenliste-07-2024.csv", Year: 2024, Month: 7, AccountCount: 1}); err != nil {
		t.Fatal(err)
	}

	if !s.RemoveBatch("Saldenliste-07-2024.csv") {
		t.Fatal("RemoveBatch() = false, want true")
	}
	if len(s.Batches()) != 0 {
		t.Errorf("got %d batches after removal, want 0", len(s.Batches()))
	}
	if _, ok := s.Balance("4010", core.Period{Year: 2024, Month: 7}); !ok {
		t.Error("balance removed along with batch, want it kept")
	}

	if s.RemoveBatch("Saldenliste-07-2024.csv") {
		t.Error("second RemoveBatch() = true, want false")
	}
}

func TestStore_Accounts_Sorted(t *testing.T) {
	s := NewStore()
	err := s.MergeAccounts([]core.Account{
		{Number: "7250", Class: "7"},
		{Number: "4010", Class: "4"},
		{Number: "6020", Class: "6"},
	})
	if err != nil {
		t.Fatal(err)
	}

	got := s.Accounts()
	want := []string{"4010", "6020", "7250"}
	for i, a := range got {
		if a.Number != want[i] {
			t.Fatalf("Accounts()[%d] = %s, want %s", i, a.Number, want[i])
		}
	}
}
