package refunds

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/famboard/famboard-backend/internal/ledger"
	"github.com/famboard/famboard-backend/pkg/config"
	"github.com/famboard/famboard-backend/pkg/db"
	"github.com/famboard/famboard-backend/pkg/db/models"
	"github.com/famboard/famboard-backend/pkg/enums"
	pkgerrors "github.com/famboard/famboard-backend/pkg/errors"
)

type fixture struct {
	svc    Service
	ledger ledger.Service
	conn   *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:refunds_" + uuid.NewString() + "?mode=memory&cache=shared"
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

	client := db.FromGorm(conn)
	repo := ledger.NewRepository(conn)
	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{DB: client, Repo: repo})
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}

	svc, err := NewService(ServiceParams{
		DB:      client,
		Entries: repo,
		Ledger:  ledgerSvc,
		Config:  config.LedgerConfig{RefundWindow: 30 * 24 * time.Hour},
	})
	if err != nil {
		t.Fatalf("refunds service: %v", err)
	}
	return &fixture{svc: svc, ledger: ledgerSvc, conn: conn}
}

// seedRedeem earns enough to cover the debit and posts one redeem entry.
func (f *fixture) seedRedeem(t *testing.T, familyID, userID uuid.UUID, amount int) *models.Entry {
	t.Helper()
	ctx := context.Background()
	if _, err := f.ledger.Post(ctx, ledger.PostInput{
		FamilyID: familyID, UserID: userID, Verb: enums.EntryVerbEarn, Amount: amount + 40,
	}); err != nil {
		t.Fatalf("seed earn: %v", err)
	}
	result, err := f.ledger.Post(ctx, ledger.PostInput{
		FamilyID: familyID, UserID: userID, Verb: enums.EntryVerbRedeem, Amount: amount,
	})
	if err != nil {
		t.Fatalf("seed redeem: %v", err)
	}
	return result.Entry
}

func (f *fixture) backdate(t *testing.T, entryID uuid.UUID, age time.Duration) {
	t.Helper()
	err := f.conn.Model(&models.Entry{}).
		Where("id = ?", entryID).
		Update("created_at", time.Now().Add(-age)).Error
	if err != nil {
		t.Fatalf("backdate entry: %v", err)
	}
}

func TestRefundPartialThenFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	family, user := uuid.New(), uuid.New()
	redeem := f.seedRedeem(t, family, user, 60)

	first, err := f.svc.Refund(ctx, RefundInput{FamilyID: family, UserID: user, EntryID: redeem.ID, Amount: 20})
	if err != nil {
		t.Fatalf("first refund: %v", err)
	}
	if first.Entry.Verb != enums.EntryVerbRefund || first.Entry.Amount != 20 {
		t.Fatalf("expected refund +20, got %s %d", first.Entry.Verb, first.Entry.Amount)
	}
	if first.Remaining != 40 {
		t.Fatalf("expected 40 remaining, got %d", first.Remaining)
	}
	if first.Entry.ParentEntryID == nil || *first.Entry.ParentEntryID != redeem.ID {
		t.Fatal("refund must reference the redeem entry")
	}

	second, err := f.svc.Refund(ctx, RefundInput{FamilyID: family, UserID: user, EntryID: redeem.ID, Amount: 40})
	if err != nil {
		t.Fatalf("second refund: %v", err)
	}
	if second.Remaining != 0 {
		t.Fatalf("expected nothing remaining, got %d", second.Remaining)
	}

	// Fully refunded: the third attempt exceeds the bound.
	_, err = f.svc.Refund(ctx, RefundInput{FamilyID: family, UserID: user, EntryID: redeem.ID, Amount: 1})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeRefundNotAllowed {
		t.Fatalf("expected REFUND_NOT_ALLOWED, got %v", err)
	}
}

func TestRefundOverRemainingReportsRemaining(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	family, user := uuid.New(), uuid.New()
	redeem := f.seedRedeem(t, family, user, 60)

	if _, err := f.svc.Refund(ctx, RefundInput{FamilyID: family, UserID: user, EntryID: redeem.ID, Amount: 50}); err != nil {
		t.Fatalf("refund: %v", err)
	}

	_, err := f.svc.Refund(ctx, RefundInput{FamilyID: family, UserID: user, EntryID: redeem.ID, Amount: 11})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeRefundNotAllowed {
		t.Fatalf("expected REFUND_NOT_ALLOWED, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["remaining"] != 10 {
		t.Fatalf("expected remaining 10 in details, got %v", typed.Details())
	}
}

func TestRefundWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	family, user := uuid.New(), uuid.New()

	inside := f.seedRedeem(t, family, user, 30)
	f.backdate(t, inside.ID, 29*24*time.Hour)
	if _, err := f.svc.Refund(ctx, RefundInput{FamilyID: family, UserID: user, EntryID: inside.ID, Amount: 10}); err != nil {
		t.Fatalf("refund inside window: %v", err)
	}

	outside := f.seedRedeem(t, family, user, 30)
	f.backdate(t, outside.ID, 31*24*time.Hour)
	_, err := f.svc.Refund(ctx, RefundInput{FamilyID: family, UserID: user, EntryID: outside.ID, Amount: 10})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeRefundWindowExpired {
		t.Fatalf("expected REFUND_WINDOW_EXPIRED, got %v", err)
	}
}

func TestRefundTargetValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	family, user := uuid.New(), uuid.New()

	_, err := f.svc.Refund(ctx, RefundInput{FamilyID: family, UserID: user, EntryID: uuid.New(), Amount: 10})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeRedeemNotFound {
		t.Fatalf("expected REDEEM_NOT_FOUND, got %v", err)
	}

	earn, err := f.ledger.Post(ctx, ledger.PostInput{FamilyID: family, UserID: user, Verb: enums.EntryVerbEarn, Amount: 50})
	if err != nil {
		t.Fatalf("earn: %v", err)
	}
	_, err = f.svc.Refund(ctx, RefundInput{FamilyID: family, UserID: user, EntryID: earn.Entry.ID, Amount: 10})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotRedeemTx {
		t.Fatalf("expected NOT_REDEEM_TX, got %v", err)
	}

	redeem := f.seedRedeem(t, family, user, 30)
	_, err = f.svc.Refund(ctx, RefundInput{FamilyID: family, UserID: uuid.New(), EntryID: redeem.ID, Amount: 10})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUserMismatch {
		t.Fatalf("expected USER_MISMATCH, got %v", err)
	}
}

func TestRefundIsFamilyScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	familyA, familyB, user := uuid.New(), uuid.New(), uuid.New()
	redeem := f.seedRedeem(t, familyA, user, 30)

	// Another family sees the redeem as missing, not as forbidden.
	_, err := f.svc.Refund(ctx, RefundInput{FamilyID: familyB, UserID: user, EntryID: redeem.ID, Amount: 10})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeRedeemNotFound {
		t.Fatalf("expected REDEEM_NOT_FOUND across families, got %v", err)
	}
}

func TestRefundIdempotencyKeyConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	family, user := uuid.New(), uuid.New()
	redeem := f.seedRedeem(t, family, user, 60)
	key := "refund-key-1"

	first, err := f.svc.Refund(ctx, RefundInput{
		FamilyID: family, UserID: user, EntryID: redeem.ID, Amount: 20, IdempotencyKey: &key,
	})
	if err != nil {
		t.Fatalf("first refund: %v", err)
	}

	_, err = f.svc.Refund(ctx, RefundInput{
		FamilyID: family, UserID: user, EntryID: redeem.ID, Amount: 20, IdempotencyKey: &key,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeRefundExists {
		t.Fatalf("expected REFUND_EXISTS, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details, got %v", typed.Details())
	}
	if details["existing"] != first.Entry.ID {
		t.Fatalf("expected existing refund id in details, got %v", details["existing"])
	}
	if details["remaining"] != 40 {
		t.Fatalf("expected remaining 40 in details, got %v", details["remaining"])
	}
}

func TestRefundableListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	family, user := uuid.New(), uuid.New()

	open := f.seedRedeem(t, family, user, 60)
	closed := f.seedRedeem(t, family, user, 30)
	stale := f.seedRedeem(t, family, user, 20)
	f.backdate(t, stale.ID, 31*24*time.Hour)

	if _, err := f.svc.Refund(ctx, RefundInput{FamilyID: family, UserID: user, EntryID: closed.ID, Amount: 30}); err != nil {
		t.Fatalf("refund: %v", err)
	}

	refundables, err := f.svc.Refundables(ctx, family, user)
	if err != nil {
		t.Fatalf("refundables: %v", err)
	}
	if len(refundables) != 1 {
		t.Fatalf("expected one refundable redeem, got %d", len(refundables))
	}
	if refundables[0].Entry.ID != open.ID || refundables[0].Remaining != 60 {
		t.Fatalf("expected open redeem with 60 remaining, got %+v", refundables[0])
	}
}
