package workflow

import (
	"errors"
	"sync"
	"testing"

	"github.com/flotadata/flota_backend/models"
	"github.com/flotadata/flota_backend/utils"
	"github.com/shopspring/decimal"
)

// NOTE: These tests are intentionally DB-free. They validate the posting
// semantics (overflow split, reversal exactness, non-negativity, per-box
// serialization) against an in-memory box that mirrors what the
// transactional engine does to the real one.
//
// Full DB integration tests should be added in an environment that can run MySQL + Redis.

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeHistoryRow struct {
	kind   models.MovementKind
	delta  decimal.Decimal
	before decimal.Decimal
	after  decimal.Decimal
}

type fakePending struct {
	entryId int
	amount  decimal.Decimal
	state   models.PendingPaymentState
}

// fakeBox mirrors the applicator/reversal balance math without storage.
type fakeBox struct {
	mu       sync.Mutex
	balance  decimal.Decimal
	history  []fakeHistoryRow
	pendings []fakePending
	applied  map[int]decimal.Decimal // entryId -> overflow at apply time
}

func newFakeBox(balance decimal.Decimal) *fakeBox {
	return &fakeBox{balance: balance, applied: map[int]decimal.Decimal{}}
}

func (b *fakeBox) apply(entryId int, direction models.TransactionDirection, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.applied[entryId]; ok {
		return decimal.Zero, decimal.Zero, errAlreadyApplied
	}

	before := b.balance
	overflow := decimal.Zero
	var kind models.MovementKind
	var delta decimal.Decimal

	if direction == models.TransactionDirectionIncome {
		kind = models.MovementKindIncome
		delta = amount
		b.balance = before.Add(amount)
	} else {
		var applied decimal.Decimal
		applied, overflow = splitExpense(before, amount)
		b.balance = before.Sub(applied)
		if overflow.IsPositive() {
			kind = models.MovementKindPartialExpense
			delta = applied
			b.pendings = append(b.pendings, fakePending{entryId: entryId, amount: overflow, state: models.PendingPaymentStatePending})
		} else {
			kind = models.MovementKindExpense
			delta = amount
		}
	}

	b.history = append(b.history, fakeHistoryRow{kind: kind, delta: delta, before: before, after: b.balance})
	b.applied[entryId] = overflow
	return b.balance, overflow, nil
}

func (b *fakeBox) reverse(entryId int, direction models.TransactionDirection, amount decimal.Decimal) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()

	overflow, ok := b.applied[entryId]
	if !ok {
		return b.balance
	}

	before := b.balance
	var kind models.MovementKind
	if direction == models.TransactionDirectionIncome {
		kind = models.MovementKindReversalIncome
		b.balance = before.Sub(amount)
		if b.balance.IsNegative() {
			b.balance = decimal.Zero
		}
	} else {
		kind = models.MovementKindReversalExpense
		b.balance = before.Add(amount.Sub(overflow))
	}

	b.history = append(b.history, fakeHistoryRow{kind: kind, delta: amount, before: before, after: b.balance})
	for i := range b.pendings {
		if b.pendings[i].entryId == entryId && b.pendings[i].state == models.PendingPaymentStatePending {
			b.pendings[i].state = models.PendingPaymentStateCancelled
		}
	}
	delete(b.applied, entryId)
	return b.balance
}

var errAlreadyApplied = errDuplicate{}

type errDuplicate struct{}

func (errDuplicate) Error() string { return "already applied" }

func TestSplitExpense_SufficientFunds(t *testing.T) {
	applied, overflow := splitExpense(dec("100.00"), dec("60.00"))
	if !applied.Equal(dec("60.00")) {
		t.Fatalf("applied = %s, want 60.00", applied)
	}
	if !overflow.IsZero() {
		t.Fatalf("overflow = %s, want 0", overflow)
	}
}

func TestSplitExpense_ExactBalance(t *testing.T) {
	applied, overflow := splitExpense(dec("40.00"), dec("40.00"))
	if !applied.Equal(dec("40.00")) || !overflow.IsZero() {
		t.Fatalf("applied = %s overflow = %s, want 40.00 / 0", applied, overflow)
	}
}

func TestSplitExpense_Overflow(t *testing.T) {
	applied, overflow := splitExpense(dec("40.00"), dec("90.00"))
	if !applied.Equal(dec("40.00")) {
		t.Fatalf("applied = %s, want 40.00", applied)
	}
	if !overflow.Equal(dec("50.00")) {
		t.Fatalf("overflow = %s, want 50.00", overflow)
	}
}

func TestSplitExpense_EmptyBox(t *testing.T) {
	applied, overflow := splitExpense(decimal.Zero, dec("25.00"))
	if !applied.IsZero() {
		t.Fatalf("applied = %s, want 0", applied)
	}
	if !overflow.Equal(dec("25.00")) {
		t.Fatalf("overflow = %s, want 25.00", overflow)
	}
}

func TestApply_ExpenseWithSufficientFunds(t *testing.T) {
	box := newFakeBox(dec("100.00"))

	after, overflow, err := box.apply(1, models.TransactionDirectionExpense, dec("60.00"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !after.Equal(dec("40.00")) {
		t.Fatalf("balance = %s, want 40.00", after)
	}
	if !overflow.IsZero() {
		t.Fatalf("overflow = %s, want 0", overflow)
	}
	if len(box.history) != 1 {
		t.Fatalf("history rows = %d, want 1", len(box.history))
	}
	row := box.history[0]
	if row.kind != models.MovementKindExpense || !row.delta.Equal(dec("60.00")) ||
		!row.before.Equal(dec("100.00")) || !row.after.Equal(dec("40.00")) {
		t.Fatalf("history row = %+v", row)
	}
}

func TestApply_OverflowBooksPendingPayment(t *testing.T) {
	box := newFakeBox(dec("40.00"))

	after, overflow, err := box.apply(2, models.TransactionDirectionExpense, dec("90.00"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !after.IsZero() {
		t.Fatalf("balance = %s, want 0.00", after)
	}
	if !overflow.Equal(dec("50.00")) {
		t.Fatalf("overflow = %s, want 50.00", overflow)
	}
	if box.history[0].kind != models.MovementKindPartialExpense {
		t.Fatalf("kind = %s, want PartialExpense", box.history[0].kind)
	}
	if len(box.pendings) != 1 {
		t.Fatalf("pendings = %d, want 1", len(box.pendings))
	}
	p := box.pendings[0]
	if !p.amount.Equal(dec("50.00")) || p.state != models.PendingPaymentStatePending {
		t.Fatalf("pending = %+v", p)
	}
}

func TestApply_IncomeOnEmptyBox(t *testing.T) {
	box := newFakeBox(decimal.Zero)

	after, _, err := box.apply(3, models.TransactionDirectionIncome, dec("200.00"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !after.Equal(dec("200.00")) {
		t.Fatalf("balance = %s, want 200.00", after)
	}
	if box.history[0].kind != models.MovementKindIncome {
		t.Fatalf("kind = %s, want Income", box.history[0].kind)
	}
}

func TestLowBalanceWarning_Thresholds(t *testing.T) {
	cases := []struct {
		balance   string
		threshold string
		want      bool
	}{
		{"0.00", "0.00", true},
		{"0.01", "0.00", false},
		{"100.00", "100.00", true},
		{"99.99", "100.00", true},
		{"100.01", "100.00", false},
	}
	for _, c := range cases {
		got := lowBalanceWarning(dec(c.balance), dec(c.threshold))
		if got != c.want {
			t.Fatalf("lowBalanceWarning(%s, %s) = %v, want %v", c.balance, c.threshold, got, c.want)
		}
	}
}

func TestApply_DrainedBoxWarnsAtDefaultThreshold(t *testing.T) {
	box := newFakeBox(dec("40.00"))

	after, _, err := box.apply(8, models.TransactionDirectionExpense, dec("90.00"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !after.IsZero() {
		t.Fatalf("balance = %s, want 0.00", after)
	}
	if !lowBalanceWarning(after, decimal.Zero) {
		t.Fatal("balance 0.00 at threshold 0 raised no warning")
	}
}

func TestApply_WithoutBox(t *testing.T) {
	entry := models.LedgerEntry{BoxId: 0}
	if entry.HasBox() {
		t.Fatal("entry without a box reported HasBox")
	}

	res := noBoxApplicationResult()
	if res.BoxBalanceAfter != nil {
		t.Fatalf("BoxBalanceAfter = %s, want nil", res.BoxBalanceAfter)
	}
	if !res.OverflowAmount.IsZero() {
		t.Fatalf("overflow = %s, want 0", res.OverflowAmount)
	}
	if res.LowBalanceWarning {
		t.Fatal("no-box apply raised a low-balance warning")
	}
}

func TestApply_Twice_Rejected(t *testing.T) {
	box := newFakeBox(dec("100.00"))

	if _, _, err := box.apply(4, models.TransactionDirectionExpense, dec("10.00")); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if _, _, err := box.apply(4, models.TransactionDirectionExpense, dec("10.00")); err == nil {
		t.Fatal("second apply succeeded, want already-applied rejection")
	}
	if !box.balance.Equal(dec("90.00")) {
		t.Fatalf("balance = %s, want 90.00 after rejected double apply", box.balance)
	}
}

func TestReverse_RestoresPreApplyBalance_PartialExpense(t *testing.T) {
	box := newFakeBox(dec("40.00"))

	if _, _, err := box.apply(5, models.TransactionDirectionExpense, dec("90.00")); err != nil {
		t.Fatalf("apply: %v", err)
	}

	after := box.reverse(5, models.TransactionDirectionExpense, dec("90.00"))
	if !after.Equal(dec("40.00")) {
		t.Fatalf("balance = %s, want 40.00 restored", after)
	}

	rev := box.history[len(box.history)-1]
	if rev.kind != models.MovementKindReversalExpense {
		t.Fatalf("kind = %s, want ReversalExpense", rev.kind)
	}
	// The audit row records the full transaction amount, not the applied portion.
	if !rev.delta.Equal(dec("90.00")) {
		t.Fatalf("delta = %s, want full amount 90.00", rev.delta)
	}

	if box.pendings[0].state != models.PendingPaymentStateCancelled {
		t.Fatalf("pending state = %s, want Cancelled", box.pendings[0].state)
	}
}

func TestReverse_RestoresPreApplyBalance_FullExpense(t *testing.T) {
	box := newFakeBox(dec("100.00"))

	if _, _, err := box.apply(6, models.TransactionDirectionExpense, dec("60.00")); err != nil {
		t.Fatalf("apply: %v", err)
	}
	after := box.reverse(6, models.TransactionDirectionExpense, dec("60.00"))
	if !after.Equal(dec("100.00")) {
		t.Fatalf("balance = %s, want 100.00 restored", after)
	}
}

func TestReverse_Income(t *testing.T) {
	box := newFakeBox(dec("10.00"))

	if _, _, err := box.apply(7, models.TransactionDirectionIncome, dec("200.00")); err != nil {
		t.Fatalf("apply: %v", err)
	}
	after := box.reverse(7, models.TransactionDirectionIncome, dec("200.00"))
	if !after.Equal(dec("10.00")) {
		t.Fatalf("balance = %s, want 10.00 restored", after)
	}
}

func TestReverse_NeverApplied_IsNoop(t *testing.T) {
	box := newFakeBox(dec("75.00"))

	after := box.reverse(99, models.TransactionDirectionExpense, dec("50.00"))
	if !after.Equal(dec("75.00")) {
		t.Fatalf("balance = %s, want 75.00 untouched", after)
	}
	if len(box.history) != 0 {
		t.Fatalf("history rows = %d, want 0", len(box.history))
	}
}

func TestBalanceNeverNegative(t *testing.T) {
	box := newFakeBox(dec("30.00"))

	amounts := []string{"10.00", "50.00", "5.00", "100.00", "0.01"}
	for i, a := range amounts {
		after, _, err := box.apply(100+i, models.TransactionDirectionExpense, dec(a))
		if err != nil {
			t.Fatalf("apply %s: %v", a, err)
		}
		if after.IsNegative() {
			t.Fatalf("balance went negative (%s) after expense %s", after, a)
		}
	}
}

func TestHistoryBalancesChain(t *testing.T) {
	box := newFakeBox(dec("100.00"))

	box.apply(200, models.TransactionDirectionExpense, dec("30.00"))
	box.apply(201, models.TransactionDirectionIncome, dec("15.50"))
	box.apply(202, models.TransactionDirectionExpense, dec("120.00"))
	box.reverse(202, models.TransactionDirectionExpense, dec("120.00"))

	for i := 1; i < len(box.history); i++ {
		prev, cur := box.history[i-1], box.history[i]
		if !prev.after.Equal(cur.before) {
			t.Fatalf("row %d: balance_after %s != next balance_before %s", i-1, prev.after, cur.before)
		}
	}
}

func TestPostingLockContention_IsConcurrentModification(t *testing.T) {
	err := postingLockContentionErr(7)
	if !errors.Is(err, utils.ErrorConcurrentModification) {
		t.Fatalf("lock contention error = %v, want ErrorConcurrentModification", err)
	}
}

func TestConcurrentAppliesSerialize(t *testing.T) {
	box := newFakeBox(decimal.Zero)

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, _, err := box.apply(1000+id, models.TransactionDirectionIncome, dec("1.00")); err != nil {
				t.Errorf("apply %d: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	if !box.balance.Equal(dec("50.00")) {
		t.Fatalf("balance = %s, want 50.00", box.balance)
	}
	if len(box.history) != workers {
		t.Fatalf("history rows = %d, want %d", len(box.history), workers)
	}
}
