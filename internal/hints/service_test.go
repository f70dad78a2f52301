package hints

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/famboard/famboard-backend/internal/holds"
	"github.com/famboard/famboard-backend/internal/ledger"
	"github.com/famboard/famboard-backend/internal/refunds"
	"github.com/famboard/famboard-backend/internal/rewards"
	"github.com/famboard/famboard-backend/pkg/config"
	"github.com/famboard/famboard-backend/pkg/db"
	"github.com/famboard/famboard-backend/pkg/db/models"
	"github.com/famboard/famboard-backend/pkg/enums"
)

type fixture struct {
	svc     Service
	ledger  ledger.Service
	holds   holds.Service
	refunds refunds.Service
	conn    *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:hints_" + uuid.NewString() + "?mode=memory&cache=shared"
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
  ON entries (idempotency_key) WHERE idempotency_key IS NOT NULL;
CREATE TABLE IF NOT EXISTS holds (
  id TEXT PRIMARY KEY,
  family_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  reward_id TEXT NOT NULL,
  quoted_amount INTEGER NOT NULL,
  final_amount INTEGER,
  status TEXT NOT NULL DEFAULT 'pending',
  expires_at DATETIME,
  redeemed_at DATETIME,
  released_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS rewards (
  id TEXT PRIMARY KEY,
  family_id TEXT NOT NULL,
  title TEXT NOT NULL,
  cost INTEGER NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := conn.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}

	client := db.FromGorm(conn)
	repo := ledger.NewRepository(conn)
	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{DB: client, Repo: repo})
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	rewardSvc, err := rewards.NewService(rewards.ServiceParams{Repo: rewards.NewRepository(conn)})
	if err != nil {
		t.Fatalf("rewards service: %v", err)
	}
	ledgerCfg := config.LedgerConfig{RefundWindow: 720 * time.Hour, HoldTTL: 72 * time.Hour}
	holdSvc, err := holds.NewService(holds.ServiceParams{
		DB: client, Repo: holds.NewRepository(conn),
		Rewards: rewardSvc, Ledger: ledgerSvc, Config: ledgerCfg,
	})
	if err != nil {
		t.Fatalf("holds service: %v", err)
	}
	refundSvc, err := refunds.NewService(refunds.ServiceParams{
		DB: client, Entries: repo, Ledger: ledgerSvc, Config: ledgerCfg,
	})
	if err != nil {
		t.Fatalf("refunds service: %v", err)
	}
	svc, err := NewService(ServiceParams{Ledger: ledgerSvc, Holds: holdSvc, Refunds: refundSvc})
	if err != nil {
		t.Fatalf("hints service: %v", err)
	}

	return &fixture{svc: svc, ledger: ledgerSvc, holds: holdSvc, refunds: refundSvc, conn: conn}
}

func TestHintsEmptyAccount(t *testing.T) {
	f := newFixture(t)
	got, err := f.svc.Hints(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("hints: %v", err)
	}
	if got.Balance != 0 || got.MaxRedeem != 0 {
		t.Fatalf("expected zero balance hints, got %+v", got)
	}
	if got.CanRefund || got.MaxRefund != 0 {
		t.Fatalf("expected nothing refundable, got %+v", got)
	}
	if got.PendingHoldCount != 0 || got.ActiveHoldID != nil {
		t.Fatalf("expected no holds, got %+v", got)
	}
	if got.RefundableRedeems == nil {
		t.Fatal("refundable list must be non-nil for JSON shape")
	}
}

func TestHintsComposeAllReadPaths(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	family, user := uuid.New(), uuid.New()

	if _, err := f.ledger.Post(ctx, ledger.PostInput{FamilyID: family, UserID: user, Verb: enums.EntryVerbEarn, Amount: 100}); err != nil {
		t.Fatalf("earn: %v", err)
	}
	redeemed, err := f.ledger.Post(ctx, ledger.PostInput{FamilyID: family, UserID: user, Verb: enums.EntryVerbRedeem, Amount: 60})
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if _, err := f.refunds.Refund(ctx, refunds.RefundInput{
		FamilyID: family, UserID: user, EntryID: redeemed.Entry.ID, Amount: 20,
	}); err != nil {
		t.Fatalf("refund: %v", err)
	}

	reward := models.Reward{ID: uuid.New(), FamilyID: family, Title: "movie night", Cost: 30, Active: true}
	if err := f.conn.Create(&reward).Error; err != nil {
		t.Fatalf("seed reward: %v", err)
	}
	hold, err := f.holds.Reserve(ctx, holds.ReserveInput{FamilyID: family, UserID: user, RewardID: reward.ID})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	got, err := f.svc.Hints(ctx, family, user)
	if err != nil {
		t.Fatalf("hints: %v", err)
	}

	// 100 earned, 60 redeemed, 20 refunded back.
	if got.Balance != 60 || got.MaxRedeem != 60 {
		t.Fatalf("expected balance 60, got %+v", got)
	}
	if got.PendingHoldCount != 1 || got.PendingHoldTotal != 30 {
		t.Fatalf("expected one pending hold of 30, got %+v", got)
	}
	if got.ActiveHoldID == nil || *got.ActiveHoldID != hold.ID {
		t.Fatalf("expected active hold %s, got %v", hold.ID, got.ActiveHoldID)
	}
	if !got.CanRefund || got.MaxRefund != 40 {
		t.Fatalf("expected 40 refundable, got %+v", got)
	}
	if len(got.RefundableRedeems) != 1 || got.RefundableRedeems[0].RedeemTxID != redeemed.Entry.ID {
		t.Fatalf("expected one refundable redeem, got %+v", got.RefundableRedeems)
	}
	if got.RefundableRedeems[0].Remaining != 40 {
		t.Fatalf("expected 40 remaining, got %d", got.RefundableRedeems[0].Remaining)
	}
}

func TestHintsIsolatedPerFamily(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	familyA, familyB := uuid.New(), uuid.New()

	if _, err := f.ledger.Post(ctx, ledger.PostInput{FamilyID: familyA, UserID: user, Verb: enums.EntryVerbEarn, Amount: 100}); err != nil {
		t.Fatalf("earn: %v", err)
	}

	got, err := f.svc.Hints(ctx, familyB, user)
	if err != nil {
		t.Fatalf("hints: %v", err)
	}
	if got.Balance != 0 {
		t.Fatalf("family B must not see family A balance, got %d", got.Balance)
	}
}
