package redis

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
)

func TestConnectionRegistry_AddAndList(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewConnectionRegistryRepository(client, "rt:conn")
	ctx := context.Background()

	connectedAt := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	records := []domain.ConnectionRecord{
		{UserID: "user-1", ConnectionID: "conn-a", InstanceID: "web-1", ConnectedAt: connectedAt},
		{UserID: "user-1", ConnectionID: "conn-b", InstanceID: "web-2", ConnectedAt: connectedAt},
		{UserID: "user-2", ConnectionID: "conn-c", InstanceID: "web-1", ConnectedAt: connectedAt},
	}
	for _, record := range records {
		if err := repo.AddConnection(ctx, record); err != nil {
			t.Fatalf("AddConnection returned error: %v", err)
		}
	}

	ids, err := repo.Connections(ctx, "user-1")
	if err != nil {
		t.Fatalf("Connections returned error: %v", err)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "conn-a" || ids[1] != "conn-b" {
		t.Fatalf("unexpected connections for user-1: %v", ids)
	}

	ids, err = repo.Connections(ctx, "user-2")
	if err != nil {
		t.Fatalf("Connections returned error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "conn-c" {
		t.Fatalf("unexpected connections for user-2: %v", ids)
	}
}

func TestConnectionRegistry_AddIsIdempotent(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewConnectionRegistryRepository(client, "rt:conn")
	ctx := context.Background()

	record := domain.ConnectionRecord{UserID: "user-1", ConnectionID: "conn-a", InstanceID: "web-1"}
	if err := repo.AddConnection(ctx, record); err != nil {
		t.Fatalf("AddConnection returned error: %v", err)
	}
	if err := repo.AddConnection(ctx, record); err != nil {
		t.Fatalf("AddConnection returned error: %v", err)
	}

	ids, err := repo.Connections(ctx, "user-1")
	if err != nil {
		t.Fatalf("Connections returned error: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected set semantics to collapse duplicates, got %v", ids)
	}
}

func TestConnectionRegistry_RemoveConnection(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewConnectionRegistryRepository(client, "rt:conn")
	ctx := context.Background()

	if err := repo.AddConnection(ctx, domain.ConnectionRecord{UserID: "user-1", ConnectionID: "conn-a", InstanceID: "web-1"}); err != nil {
		t.Fatalf("AddConnection returned error: %v", err)
	}
	if err := repo.AddConnection(ctx, domain.ConnectionRecord{UserID: "user-1", ConnectionID: "conn-b", InstanceID: "web-2"}); err != nil {
		t.Fatalf("AddConnection returned error: %v", err)
	}

	if err := repo.RemoveConnection(ctx, "user-1", "conn-a"); err != nil {
		t.Fatalf("RemoveConnection returned error: %v", err)
	}

	ids, err := repo.Connections(ctx, "user-1")
	if err != nil {
		t.Fatalf("Connections returned error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "conn-b" {
		t.Fatalf("expected only conn-b to remain, got %v", ids)
	}

	// Removing a connection that is already gone is a no-op.
	if err := repo.RemoveConnection(ctx, "user-1", "conn-a"); err != nil {
		t.Fatalf("RemoveConnection of missing connection returned error: %v", err)
	}
}

func TestConnectionRegistry_RecordsCarryDetails(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewConnectionRegistryRepository(client, "rt:conn")
	ctx := context.Background()

	connectedAt := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	if err := repo.AddConnection(ctx, domain.ConnectionRecord{
		UserID:       "user-1",
		ConnectionID: "conn-a",
		InstanceID:   "web-2",
		ConnectedAt:  connectedAt,
	}); err != nil {
		t.Fatalf("AddConnection returned error: %v", err)
	}

	records, err := repo.Records(ctx, "user-1")
	if err != nil {
		t.Fatalf("Records returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	record := records[0]
	if record.InstanceID != "web-2" {
		t.Fatalf("expected instance web-2, got %q", record.InstanceID)
	}
	if !record.ConnectedAt.Equal(connectedAt) {
		t.Fatalf("expected connected-at %v, got %v", connectedAt, record.ConnectedAt)
	}
}

func TestConnectionRegistry_ConcurrentUpdatesLoseNothing(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewConnectionRegistryRepository(client, "rt:conn")
	ctx := context.Background()

	// Two goroutines stand in for two process instances registering
	// connections for the same user at the same time.
	const perWorker = 20
	var wg sync.WaitGroup
	for _, instance := range []string{"web-1", "web-2"} {
		wg.Add(1)
		go func(instance string) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				record := domain.ConnectionRecord{
					UserID:       "user-1",
					ConnectionID: instance + "-conn-" + string(rune('a'+i)),
					InstanceID:   instance,
				}
				if err := repo.AddConnection(ctx, record); err != nil {
					t.Errorf("AddConnection returned error: %v", err)
					return
				}
			}
		}(instance)
	}
	wg.Wait()

	ids, err := repo.Connections(ctx, "user-1")
	if err != nil {
		t.Fatalf("Connections returned error: %v", err)
	}
	if len(ids) != 2*perWorker {
		t.Fatalf("expected %d connections, got %d", 2*perWorker, len(ids))
	}
}

func TestConnectionRegistry_InvalidInput(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewConnectionRegistryRepository(client, "rt:conn")
	ctx := context.Background()

	if err := repo.AddConnection(ctx, domain.ConnectionRecord{UserID: "user-1"}); err == nil {
		t.Fatalf("expected error for missing connection id")
	}
	if err := repo.RemoveConnection(ctx, "", "conn-a"); err == nil {
		t.Fatalf("expected error for missing user id")
	}
	if _, err := repo.Connections(ctx, ""); err == nil {
		t.Fatalf("expected error for missing user id")
	}
}
