package models

import (
	"encoding/json"
	"testing"
)

func TestTransactionDirection_UnmarshalRejectsUnknown(t *testing.T) {
	var d TransactionDirection
	if err := json.Unmarshal([]byte(`"Transfer"`), &d); err == nil {
		t.Fatal("unmarshal accepted unknown direction")
	}
	if err := json.Unmarshal([]byte(`"Income"`), &d); err != nil {
		t.Fatalf("unmarshal Income: %v", err)
	}
	if d != TransactionDirectionIncome {
		t.Fatalf("direction = %s, want Income", d)
	}
}

func TestTransactionState_Valid(t *testing.T) {
	for _, s := range []TransactionState{TransactionStatePending, TransactionStateApplied, TransactionStateRefunded} {
		if !s.Valid() {
			t.Fatalf("%s should be valid", s)
		}
	}
	if TransactionState("Paid").Valid() {
		t.Fatal("legacy state name Paid should not validate")
	}
}

func TestPendingPaymentState_Unmarshal(t *testing.T) {
	var s PendingPaymentState
	if err := json.Unmarshal([]byte(`"Paid"`), &s); err != nil {
		t.Fatalf("unmarshal Paid: %v", err)
	}
	if s != PendingPaymentStatePaid {
		t.Fatalf("state = %s, want Paid", s)
	}
	if err := json.Unmarshal([]byte(`"Settled"`), &s); err == nil {
		t.Fatal("unmarshal accepted unknown state")
	}
}

func TestCompositeCursorRoundTrip(t *testing.T) {
	encoded := EncodeCompositeCursor("2026-03-01 10:30:00", 42)
	cursor, id := DecodeCompositeCursor(&encoded)
	if cursor != "2026-03-01 10:30:00" {
		t.Fatalf("cursor = %q", cursor)
	}
	if id != 42 {
		t.Fatalf("id = %d, want 42", id)
	}
}

func TestDecodeCompositeCursor_NilCursor(t *testing.T) {
	cursor, id := DecodeCompositeCursor(nil)
	if cursor != "" || id != 0 {
		t.Fatalf("nil cursor decoded to %q/%d, want empty", cursor, id)
	}
}
