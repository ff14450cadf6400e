package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/models"
)

func TestAuditStore_GetByEntity(t *testing.T) {
	store := NewAuditStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = store.Log(ctx, models.AuditLog{EntityType: "asset", EntityKey: "h1", Action: fmt.Sprintf("a%d", i)})
	}
	_ = store.Log(ctx, models.AuditLog{EntityType: "asset", EntityKey: "h2", Action: "other"})

	got, err := store.GetByEntity(ctx, "asset", "h1", 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// newest first, one skipped
	if got[0].Action != "a3" || got[1].Action != "a2" {
		t.Errorf("actions = %s, %s", got[0].Action, got[1].Action)
	}

	all, _ := store.GetByEntity(ctx, "asset", "h1", 0, 0)
	if len(all) != 5 {
		t.Errorf("default limit returned %d entries", len(all))
	}

	actions := store.Actions("asset", "h2")
	if len(actions) != 1 || actions[0] != "other" {
		t.Errorf("Actions = %v", actions)
	}
}

func TestAuditStore_PagesNewestFirst(t *testing.T) {
	store := NewAuditStore()
	ctx := context.Background()

	for _, action := range []string{"created", "minted", "linked"} {
		_ = store.Log(ctx, models.AuditLog{ActorType: "system", Action: action, EntityType: "account", EntityKey: "0xabc"})
	}
	_ = store.Log(ctx, models.AuditLog{ActorType: "system", Action: "created", EntityType: "asset", EntityKey: "h1"})

	logs, err := store.GetByEntity(ctx, "account", "0xabc", 2, 0)
	if err != nil {
		t.Fatalf("GetByEntity failed: %v", err)
	}
	if len(logs) != 2 || logs[0].Action != "linked" || logs[1].Action != "minted" {
		t.Errorf("unexpected page: %+v", logs)
	}

	logs, _ = store.GetByEntity(ctx, "account", "0xabc", 2, 2)
	if len(logs) != 1 || logs[0].Action != "created" {
		t.Errorf("unexpected second page: %+v", logs)
	}

	actions := store.Actions("account", "0xabc")
	if len(actions) != 3 || actions[0] != "created" {
		t.Errorf("Actions = %v", actions)
	}
}
