package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store/memory"
)

type capturedEvent struct {
	kind    string
	id      int64
	version int64
}

type fakePublisher struct {
	events []capturedEvent
	fail   bool
}

func (p *fakePublisher) PublishTransactionExport(_ context.Context, id, version int64) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, capturedEvent{kind: "export", id: id, version: version})
	return nil
}

func (p *fakePublisher) PublishTransactionDelete(_ context.Context, id int64) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, capturedEvent{kind: "delete", id: id})
	return nil
}

func newTxFixture(t *testing.T) (*TransactionService, *memory.Store, *fakePublisher, core.Category) {
	t.Helper()
	st := memory.New()
	pub := &fakePublisher{}
	cat := st.SeedCategory(core.Category{UserID: 1, Name: "Groceries", Type: core.Expense})
	return NewTransactionService(st, pub), st, pub, cat
}

func validTx(cat core.Category, cents int64) core.Transaction {
	return core.Transaction{
		UserID:     1,
		CategoryID: cat.ID,
		Amount:     core.Money{Cents: cents},
		Type:       core.Expense,
		Date:       time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		Note:       "weekly shop",
	}
}

func TestCreateTransactionPublishesExport(t *testing.T) {
	svc, _, pub, cat := newTxFixture(t)

	saved, err := svc.Create(context.Background(), validTx(cat, 2350))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if saved.ID == 0 {
		t.Error("expected assigned ID")
	}
	if len(pub.events) != 1 || pub.events[0].kind != "export" || pub.events[0].id != saved.ID {
		t.Errorf("events = %+v, want one export for id %d", pub.events, saved.ID)
	}
}

func TestCreateTransactionTypeMismatch(t *testing.T) {
	svc, st, _, _ := newTxFixture(t)
	salary := st.SeedCategory(core.Category{UserID: 1, Name: "Salary", Type: core.Income})

	tx := validTx(salary, 1000) // expense transaction against an income category
	_, err := svc.Create(context.Background(), tx)
	if !errors.Is(err, core.ErrTypeMismatch) {
		t.Fatalf("err = %v, want ErrTypeMismatch", err)
	}
}

func TestCreateTransactionUnknownCategory(t *testing.T) {
	svc, _, _, cat := newTxFixture(t)

	tx := validTx(cat, 1000)
	tx.CategoryID = 9999
	_, err := svc.Create(context.Background(), tx)
	if !errors.Is(err, core.ErrDanglingCategory) {
		t.Fatalf("err = %v, want ErrDanglingCategory", err)
	}
}

func TestCreateTransactionSurvivesBrokerOutage(t *testing.T) {
	svc, _, pub, cat := newTxFixture(t)
	pub.fail = true

	saved, err := svc.Create(context.Background(), validTx(cat, 500))
	if err != nil {
		t.Fatalf("Create should not fail on publish error, got %v", err)
	}
	if saved.ID == 0 {
		t.Error("expected assigned ID despite broker outage")
	}
}

func TestUpdateTransactionRevalidatesCategory(t *testing.T) {
	svc, st, _, cat := newTxFixture(t)
	ctx := context.Background()

	saved, err := svc.Create(ctx, validTx(cat, 1000))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	salary := st.SeedCategory(core.Category{UserID: 1, Name: "Salary", Type: core.Income})
	saved.CategoryID = salary.ID
	if _, err := svc.Update(ctx, saved); !errors.Is(err, core.ErrTypeMismatch) {
		t.Fatalf("err = %v, want ErrTypeMismatch", err)
	}
}

func TestDeleteTransactionPublishesDelete(t *testing.T) {
	svc, _, pub, cat := newTxFixture(t)
	ctx := context.Background()

	saved, err := svc.Create(ctx, validTx(cat, 1000))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, 1, saved.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	last := pub.events[len(pub.events)-1]
	if last.kind != "delete" || last.id != saved.ID {
		t.Errorf("last event = %+v, want delete for id %d", last, saved.ID)
	}

	if _, err := svc.Get(ctx, 1, saved.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get after delete: %v, want ErrNotFound", err)
	}
}

func TestDeleteTransactionOtherUser(t *testing.T) {
	svc, _, _, cat := newTxFixture(t)
	ctx := context.Background()

	saved, err := svc.Create(ctx, validTx(cat, 1000))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, 2, saved.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("cross-user delete: %v, want ErrNotFound", err)
	}
}
