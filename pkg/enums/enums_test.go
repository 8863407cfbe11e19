package enums

import "testing"

func TestParseRoundTrips(t *testing.T) {
	for _, status := range validInventoryStatuses {
		if got, err := ParseInventoryStatus(string(status)); err != nil || got != status {
			t.Fatalf("inventory status %q: got %q err %v", status, got, err)
		}
	}
	for _, op := range validStockOperations {
		if got, err := ParseStockOperation(string(op)); err != nil || got != op {
			t.Fatalf("stock operation %q: got %q err %v", op, got, err)
		}
	}
	for _, tt := range validTransactionTypes {
		if got, err := ParseTransactionType(string(tt)); err != nil || got != tt {
			t.Fatalf("transaction type %q: got %q err %v", tt, got, err)
		}
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	if _, err := ParseInventoryStatus("archived"); err == nil {
		t.Fatal("expected error for unknown inventory status")
	}
	if _, err := ParseStockOperation("multiply"); err == nil {
		t.Fatal("expected error for unknown stock operation")
	}
	if _, err := ParseCurrency("ngn"); err == nil {
		t.Fatal("currency codes are upper case")
	}
	if _, err := ParseTransactionType("refund"); err == nil {
		t.Fatal("expected error for unknown transaction type")
	}
}

func TestPaymentStatusFailure(t *testing.T) {
	cases := map[PaymentStatus]bool{
		PaymentStatusSuccess:   false,
		PaymentStatusPending:   false,
		PaymentStatusOngoing:   false,
		PaymentStatusFailed:    true,
		PaymentStatusAbandoned: true,
		PaymentStatusReversed:  true,
	}
	for status, want := range cases {
		if got := status.IsFailure(); got != want {
			t.Fatalf("%s: expected IsFailure=%v", status, want)
		}
	}
}

func TestReservationStatusTerminal(t *testing.T) {
	if ReservationStatusHeld.IsTerminal() {
		t.Fatal("held reservations still count against stock")
	}
	for _, status := range []ReservationStatus{ReservationStatusCommitted, ReservationStatusReleased, ReservationStatusExpired} {
		if !status.IsTerminal() {
			t.Fatalf("%s should be terminal", status)
		}
	}
}
