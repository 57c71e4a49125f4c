package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"projector-server/entities"
)

func TestMemoryTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx Store) error {
		if err := tx.Projectors().Create(ctx, &entities.Projector{Classroom: "A1", Model: "X"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if _, err := store.Projectors().GetByClassroom(ctx, "A1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rolled back projector still visible: %v", err)
	}

	err = store.Transaction(ctx, func(tx Store) error {
		return tx.Projectors().Create(ctx, &entities.Projector{Classroom: "A1", Model: "X"})
	})
	if err != nil {
		t.Fatal(err)
	}
	p, err := store.Projectors().GetByClassroom(ctx, "A1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != entities.ProjectorOff {
		t.Errorf("new projector status = %s, want OFF", p.Status)
	}
}

func TestMemoryDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	cmd := &entities.Command{ModelName: "X", Action: "TURN_ON", Instruction: "on"}
	if err := store.Commands().Create(ctx, cmd); err != nil {
		t.Fatal(err)
	}
	if err := store.Commands().Create(ctx, &entities.Command{ModelName: "X", Action: "TURN_ON"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
	if err := store.Commands().Delete(ctx, "X", "TURN_OFF"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryFindByInstructionTieBreak(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, c := range []entities.Command{
		{ModelName: "X", Action: "LAMP_ON", Instruction: "%1"},
		{ModelName: "X", Action: "ACK", Instruction: "%1"},
		{ModelName: "Y", Action: "AAA", Instruction: "%1"},
	} {
		c := c
		if err := store.Commands().Create(ctx, &c); err != nil {
			t.Fatal(err)
		}
	}
	got, err := store.Commands().FindByInstruction(ctx, "X", "%1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Action != "ACK" {
		t.Errorf("action = %s, want ACK", got.Action)
	}
}

func TestMemoryPendingOrderAndSoftDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	events := []entities.ServerEvent{
		{Classroom: "A1", Status: entities.EventPending, CreatedAt: at},
		{Classroom: "A1", Status: entities.EventPending, CreatedAt: at},
		{Classroom: "A1", Status: entities.EventPending, CreatedAt: at.Add(-time.Minute)},
		{Classroom: "A1", Status: entities.EventExecuted, CreatedAt: at.Add(time.Minute)},
		{Classroom: "B2", Status: entities.EventPending, CreatedAt: at},
	}
	if err := store.Events().Create(ctx, events); err != nil {
		t.Fatal(err)
	}
	if events[0].ID == 0 || events[4].ID != 5 {
		t.Fatalf("ids not assigned: %+v", events)
	}

	pending, err := store.Events().PendingByClassroom(ctx, "A1")
	if err != nil {
		t.Fatal(err)
	}
	wantIDs := []uint{2, 1, 3}
	if len(pending) != len(wantIDs) {
		t.Fatalf("pending = %d events, want %d", len(pending), len(wantIDs))
	}
	for i, id := range wantIDs {
		if pending[i].ID != id {
			t.Errorf("pending[%d].ID = %d, want %d", i, pending[i].ID, id)
		}
	}

	n, err := store.Events().SoftDeleteByClassroom(ctx, "A1")
	if err != nil || n != 4 {
		t.Fatalf("soft delete = %d, %v", n, err)
	}
	pending, _ = store.Events().PendingByClassroom(ctx, "A1")
	if len(pending) != 0 {
		t.Errorf("soft deleted events still pending: %d", len(pending))
	}

	history, total, err := store.Events().Search(ctx, EventFilter{Classroom: "A1"}, Page{Number: 0, Size: 2})
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 || len(history) != 2 {
		t.Errorf("history total=%d page=%d, want 4 and 2", total, len(history))
	}
	if history[0].ID != 4 {
		t.Errorf("history should be newest first, got id %d", history[0].ID)
	}

	beyond, total, _ := store.Events().Search(ctx, EventFilter{}, Page{Number: 9, Size: 10})
	if total != 5 || len(beyond) != 0 {
		t.Errorf("page beyond end: total=%d len=%d", total, len(beyond))
	}

	counts, err := store.Events().CountByStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[entities.EventPending] != 4 || counts[entities.EventExecuted] != 1 || counts[entities.EventError] != 0 {
		t.Errorf("counts = %v", counts)
	}
}
