package enums

import "testing"

func TestTransferStatusTerminal(t *testing.T) {
	cases := map[TransferStatus]bool{
		TransferStatusPending:   false,
		TransferStatusInTransit: false,
		TransferStatusCompleted: true,
		TransferStatusCancelled: true,
	}
	for status, terminal := range cases {
		if status.IsTerminal() != terminal {
			t.Fatalf("status %s terminal=%v", status, status.IsTerminal())
		}
		if !status.IsValid() {
			t.Fatalf("status %s should be valid", status)
		}
	}
}

func TestParseTransferStatus(t *testing.T) {
	got, err := ParseTransferStatus("in_transit")
	if err != nil || got != TransferStatusInTransit {
		t.Fatalf("unexpected parse result %q err=%v", got, err)
	}
	if _, err := ParseTransferStatus("shipped"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestParseUserRole(t *testing.T) {
	if role, err := ParseUserRole("manager"); err != nil || role != UserRoleManager {
		t.Fatalf("unexpected parse result %q err=%v", role, err)
	}
	if _, err := ParseUserRole("admin"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestOutboxEnums(t *testing.T) {
	if !EventStockChanged.IsValid() || OutboxEventType("order_created").IsValid() {
		t.Fatalf("unexpected event type validity")
	}
	if _, err := ParseOutboxAggregateType("transfer"); err != nil {
		t.Fatalf("expected transfer aggregate to parse: %v", err)
	}
}

func TestParseOutboxDLQErrorReason(t *testing.T) {
	for _, raw := range []string{"max_attempts", "non_retryable", "unroutable"} {
		reason, err := ParseOutboxDLQErrorReason(raw)
		if err != nil || reason.String() != raw {
			t.Fatalf("parse %q: %v %v", raw, reason, err)
		}
	}
	if _, err := ParseOutboxDLQErrorReason("timeout"); err == nil {
		t.Fatal("expected unknown reason to fail")
	}
}
