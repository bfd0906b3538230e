package db

import (
	"context"
	"testing"

	"github.com/hpungsan/timeless/internal/config"
)

func newTestKV(t *testing.T) *KV {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewKV(db)
}

func TestKV_GetMissing(t *testing.T) {
	kv := newTestKV(t)

	value, ok, err := kv.Get(context.Background(), "timeCapsules")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Errorf("ok = true for missing key, value = %q", value)
	}
}

func TestKV_PutGet(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	if err := kv.Put(ctx, "userPlan", "plus"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	value, ok, err := kv.Get(ctx, "userPlan")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || value != "plus" {
		t.Errorf("Get = (%q, %v), want (plus, true)", value, ok)
	}

	// Overwrite
	if err := kv.Put(ctx, "userPlan", "legacy"); err != nil {
		t.Fatalf("Put overwrite failed: %v", err)
	}
	value, _, _ = kv.Get(ctx, "userPlan")
	if value != "legacy" {
		t.Errorf("value after overwrite = %q, want legacy", value)
	}
}

func TestKV_EmptyValue(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	if err := kv.Put(ctx, "timeCapsules", ""); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	value, ok, err := kv.Get(ctx, "timeCapsules")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || value != "" {
		t.Errorf("Get = (%q, %v), want (\"\", true)", value, ok)
	}
}

func TestKV_Delete(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	if err := kv.Put(ctx, "hasVisited", "true"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := kv.Delete(ctx, "hasVisited"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "hasVisited"); ok {
		t.Error("key still present after Delete")
	}

	// Deleting again is fine
	if err := kv.Delete(ctx, "hasVisited"); err != nil {
		t.Errorf("second Delete failed: %v", err)
	}
}

func TestKV_Keys(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	for _, k := range []string{"timeCapsules.corrupt.2", "userPlan", "timeCapsules", "timeCapsules.corrupt.1"} {
		if err := kv.Put(ctx, k, "x"); err != nil {
			t.Fatalf("Put(%q) failed: %v", k, err)
		}
	}

	keys, err := kv.Keys(ctx, "timeCapsules.corrupt.")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	want := []string{"timeCapsules.corrupt.1", "timeCapsules.corrupt.2"}
	if len(keys) != len(want) {
		t.Fatalf("Keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestKV_ClosedDB(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	kv := NewKV(db)
	db.Close()

	if err := kv.Put(context.Background(), "k", "v"); err == nil {
		t.Error("Put on closed db should fail")
	}
}

func TestConfigurePool(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer db.Close()

	ConfigurePool(db, nil)
	ConfigurePool(db, &config.Config{DBMaxOpenConns: 2, DBMaxIdleConns: 1})
	if got := db.Stats().MaxOpenConnections; got != 2 {
		t.Errorf("MaxOpenConnections = %d, want 2", got)
	}
}
