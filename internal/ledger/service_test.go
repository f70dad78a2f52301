package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/famboard/famboard-backend/pkg/db"
	"github.com/famboard/famboard-backend/pkg/enums"
	pkgerrors "github.com/famboard/famboard-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS entries (
  id TEXT PRIMARY KEY,
  family_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  actor_id TEXT,
  verb TEXT NOT NULL,
  amount INTEGER NOT NULL,
  balance_after INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'posted',
  parent_hold_id TEXT,
  parent_entry_id TEXT,
  idempotency_key TEXT,
  reason TEXT,
  refund_reason TEXT,
  refund_notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS uniq_entries_idempotency_key
  ON entries (idempotency_key) WHERE idempotency_key IS NOT NULL;`
	if err := conn.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return conn
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := newTestDB(t)
	svc, err := NewService(ServiceParams{
		DB:   db.FromGorm(conn),
		Repo: NewRepository(conn),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func TestBalanceOfEmptyAccount(t *testing.T) {
	svc, _ := newTestService(t)
	balance, err := svc.BalanceOf(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected 0 balance, got %d", balance)
	}
}

func TestPostSequenceKeepsRunningBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	family, user := uuid.New(), uuid.New()

	steps := []struct {
		verb    enums.EntryVerb
		amount  int
		balance int
	}{
		{enums.EntryVerbEarn, 50, 50},
		{enums.EntryVerbEarn, 30, 80},
		{enums.EntryVerbRedeem, 60, 20},
		{enums.EntryVerbEarn, 5, 25},
	}

	for i, step := range steps {
		result, err := svc.Post(ctx, PostInput{
			FamilyID: family,
			UserID:   user,
			Verb:     step.verb,
			Amount:   step.amount,
		})
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if result.Balance != step.balance {
			t.Fatalf("step %d: expected balance %d, got %d", i, step.balance, result.Balance)
		}
		if result.Entry.BalanceAfter != step.balance {
			t.Fatalf("step %d: balance_after snapshot mismatch", i)
		}
	}
}

func TestPostRejectsNegativeBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	family, user := uuid.New(), uuid.New()

	if _, err := svc.Post(ctx, PostInput{FamilyID: family, UserID: user, Verb: enums.EntryVerbEarn, Amount: 10}); err != nil {
		t.Fatalf("earn: %v", err)
	}

	_, err := svc.Post(ctx, PostInput{FamilyID: family, UserID: user, Verb: enums.EntryVerbRedeem, Amount: 11})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientFunds {
		t.Fatalf("expected INSUFFICIENT_FUNDS, got %v", err)
	}

	balance, err := svc.BalanceOf(ctx, family, user)
	if err != nil || balance != 10 {
		t.Fatalf("balance should be unchanged at 10, got %d err %v", balance, err)
	}
}

func TestPostVerbInferenceFromSign(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	family, user := uuid.New(), uuid.New()

	earned, err := svc.Post(ctx, PostInput{FamilyID: family, UserID: user, Amount: 40})
	if err != nil {
		t.Fatalf("earn: %v", err)
	}
	if earned.Entry.Verb != enums.EntryVerbEarn || earned.Entry.Amount != 40 {
		t.Fatalf("expected inferred earn +40, got %s %d", earned.Entry.Verb, earned.Entry.Amount)
	}

	redeemed, err := svc.Post(ctx, PostInput{FamilyID: family, UserID: user, Amount: -15})
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redeemed.Entry.Verb != enums.EntryVerbRedeem || redeemed.Entry.Amount != -15 {
		t.Fatalf("expected inferred redeem -15, got %s %d", redeemed.Entry.Verb, redeemed.Entry.Amount)
	}

	adjusted, err := svc.Post(ctx, PostInput{FamilyID: family, UserID: user, Amount: 0})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if adjusted.Entry.Verb != enums.EntryVerbAdjust {
		t.Fatalf("expected inferred adjust, got %s", adjusted.Entry.Verb)
	}
}

func TestPostCoercesAmountSign(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	family, user := uuid.New(), uuid.New()

	// earn with a negative input still credits
	result, err := svc.Post(ctx, PostInput{FamilyID: family, UserID: user, Verb: enums.EntryVerbEarn, Amount: -25})
	if err != nil {
		t.Fatalf("earn: %v", err)
	}
	if result.Entry.Amount != 25 {
		t.Fatalf("expected coerced +25, got %d", result.Entry.Amount)
	}

	// redeem with a positive input still debits
	result, err = svc.Post(ctx, PostInput{FamilyID: family, UserID: user, Verb: enums.EntryVerbRedeem, Amount: 10})
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if result.Entry.Amount != -10 {
		t.Fatalf("expected coerced -10, got %d", result.Entry.Amount)
	}
}

func TestPostIdempotentReplay(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	family, user := uuid.New(), uuid.New()
	key := "client-key-1"

	first, err := svc.Post(ctx, PostInput{
		FamilyID: family, UserID: user,
		Verb: enums.EntryVerbEarn, Amount: 30,
		IdempotencyKey: &key,
	})
	if err != nil {
		t.Fatalf("first post: %v", err)
	}
	if first.Deduped {
		t.Fatal("first post must not be a dedupe")
	}

	second, err := svc.Post(ctx, PostInput{
		FamilyID: family, UserID: user,
		Verb: enums.EntryVerbEarn, Amount: 30,
		IdempotencyKey: &key,
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !second.Deduped {
		t.Fatal("replay must be deduped")
	}
	if second.Entry.ID != first.Entry.ID || second.Balance != first.Balance {
		t.Fatalf("replay must return the original result: %v vs %v", second.Entry.ID, first.Entry.ID)
	}

	var count int64
	if err := conn.Table("entries").Where("idempotency_key = ?", key).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one entry for the key, got %d", count)
	}
}

func TestPostRequiresIdentity(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Post(context.Background(), PostInput{UserID: uuid.New(), Amount: 10})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListEntriesPaginates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	family, user := uuid.New(), uuid.New()

	for i := 0; i < 5; i++ {
		if _, err := svc.Post(ctx, PostInput{FamilyID: family, UserID: user, Verb: enums.EntryVerbEarn, Amount: 10}); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	page, err := svc.ListEntries(ctx, ListEntriesParams{FamilyID: family, UserID: user, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page.Entries))
	}
	if page.NextCursor == "" {
		t.Fatal("expected next cursor")
	}

	rest, err := svc.ListEntries(ctx, ListEntriesParams{FamilyID: family, UserID: user, Limit: 10, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(rest.Entries) != 3 {
		t.Fatalf("expected 3 remaining entries, got %d", len(rest.Entries))
	}
}

func TestListEntriesInvalidCursor(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ListEntries(context.Background(), ListEntriesParams{
		FamilyID: uuid.New(), UserID: uuid.New(), Cursor: "not-a-cursor",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListEntriesScopedToFamily(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := uuid.New()
	familyA, familyB := uuid.New(), uuid.New()

	if _, err := svc.Post(ctx, PostInput{FamilyID: familyA, UserID: user, Verb: enums.EntryVerbEarn, Amount: 10}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	page, err := svc.ListEntries(ctx, ListEntriesParams{FamilyID: familyB, UserID: user, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Entries) != 0 {
		t.Fatal("family B must not see family A entries")
	}
}
