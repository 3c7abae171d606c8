package services

import (
	"context"
	"testing"

	"github.com/CustomZone1/customzone/models"
)

func TestNotificationInbox(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.notifications.Notify(ctx, 1, models.NotificationWallet, "first", "body")
	env.notifications.Notify(ctx, 1, models.NotificationBooking, "second", "body")
	env.notifications.Notify(ctx, 2, models.NotificationWallet, "other user", "body")

	inbox, err := env.notifications.ListByUser(ctx, 1, false, 50, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(inbox) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(inbox))
	}
	// Новые сверху.
	if inbox[0].Title != "second" {
		t.Fatalf("unexpected order: %+v", inbox)
	}

	if err := env.notifications.MarkAllRead(ctx, 1); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	unread, err := env.notifications.ListByUser(ctx, 1, true, 50, 0)
	if err != nil {
		t.Fatalf("list unread failed: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("expected empty unread inbox, got %d", len(unread))
	}

	// Чужой инбокс не затронут.
	otherUnread, err := env.notifications.ListByUser(ctx, 2, true, 50, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(otherUnread) != 1 {
		t.Fatalf("expected 1 unread for user 2, got %d", len(otherUnread))
	}
}

func TestWalletOperationsProduceNotifications(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if _, _, err := env.wallets.Credit(ctx, 1, 100, "top up"); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	inbox, err := env.notifications.ListByUser(ctx, 1, true, 50, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(inbox) != 1 || inbox[0].Type != models.NotificationWallet {
		t.Fatalf("expected one wallet notification, got %+v", inbox)
	}
}
