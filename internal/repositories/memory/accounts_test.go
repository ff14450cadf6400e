package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/models"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/repositories"
)

func TestAccountStore_CreateAndGet(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	acc := &models.Account{
		Address:   "0x1234567890123456789012345678901234567890",
		Nickname:  "Alice",
		LinkState: models.LinkStatePending,
	}
	if err := store.Create(ctx, acc); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if acc.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	got, err := store.GetByAddress(ctx, acc.Address)
	if err != nil {
		t.Fatalf("GetByAddress failed: %v", err)
	}
	if got.Nickname != "Alice" {
		t.Errorf("Nickname mismatch: got %s, want Alice", got.Nickname)
	}

	// returned records are copies
	got.Nickname = "Mallory"
	again, _ := store.GetByAddress(ctx, acc.Address)
	if again.Nickname != "Alice" {
		t.Errorf("store mutated through returned copy: %s", again.Nickname)
	}
}

func TestAccountStore_Duplicate(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	a := &models.Account{Address: "0xabc", Nickname: "A"}
	if err := store.Create(ctx, a); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err := store.Create(ctx, &models.Account{Address: "0xabc", Nickname: "B"})
	if !errors.Is(err, repositories.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestAccountStore_ConcurrentCreateOneWins(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	var ok, dup int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Create(ctx, &models.Account{Address: "0xsame", Nickname: "x"})
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, repositories.ErrDuplicateKey):
				atomic.AddInt32(&dup, 1)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || dup != 31 {
		t.Errorf("got %d created and %d duplicates, want 1 and 31", ok, dup)
	}
}

func TestAccountStore_LinkAndDelete(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	if err := store.LinkToken(ctx, "0xmissing", "1"); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_ = store.Create(ctx, &models.Account{Address: "0xabc", Nickname: "A", LinkState: models.LinkStatePending})
	if err := store.LinkToken(ctx, "0xabc", "1700000000001"); err != nil {
		t.Fatalf("LinkToken failed: %v", err)
	}
	got, _ := store.GetByAddress(ctx, "0xabc")
	if got.TokenID == nil || *got.TokenID != "1700000000001" {
		t.Errorf("TokenID not linked: %v", got.TokenID)
	}
	if got.LinkState != models.LinkStateLinked {
		t.Errorf("LinkState = %s, want linked", got.LinkState)
	}

	if err := store.Delete(ctx, "0xabc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByAddress(ctx, "0xabc"); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "0xabc"); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestAccountStore_ListSortedByNickname(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	for _, n := range []string{"Charlie", "Alice", "Bob"} {
		_ = store.Create(ctx, &models.Account{Address: "0x" + n, Nickname: n})
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"Alice", "Bob", "Charlie"}
	for i, a := range list {
		if a.Nickname != want[i] {
			t.Errorf("list[%d] = %s, want %s", i, a.Nickname, want[i])
		}
	}
}
