package leads

import (
	"context"
	"testing"
)

func TestUpdateStatusNotConfigured(t *testing.T) {
	t.Parallel()

	svc := NewService(nil)
	if err := svc.UpdateStatus(context.Background(), "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee", StatusSent, ""); err == nil {
		t.Fatal("expected error without a configured pool")
	}
	if err := svc.UpdateStatus(context.Background(), "not-a-uuid", StatusFailed, ""); err == nil {
		t.Fatal("expected error for invalid lead id")
	}
}
