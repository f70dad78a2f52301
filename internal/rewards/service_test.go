package rewards

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/famboard/famboard-backend/pkg/db/models"
	pkgerrors "github.com/famboard/famboard-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:rewards_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := `
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

	svc, err := NewService(ServiceParams{Repo: NewRepository(conn)})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func seedReward(t *testing.T, conn *gorm.DB, familyID uuid.UUID, title string, cost int, active bool) models.Reward {
	t.Helper()
	reward := models.Reward{
		ID:       uuid.New(),
		FamilyID: familyID,
		Title:    title,
		Cost:     cost,
		Active:   active,
	}
	if err := conn.Create(&reward).Error; err != nil {
		t.Fatalf("seed reward: %v", err)
	}
	return reward
}

func TestGetReturnsActiveReward(t *testing.T) {
	svc, conn := newTestService(t)
	family := uuid.New()
	seeded := seedReward(t, conn, family, "Movie night", 40, true)

	reward, err := svc.Get(context.Background(), family, seeded.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reward.Cost != 40 || reward.Title != "Movie night" {
		t.Fatalf("unexpected reward %+v", reward)
	}
}

func TestGetHidesInactiveReward(t *testing.T) {
	svc, conn := newTestService(t)
	family := uuid.New()
	seeded := seedReward(t, conn, family, "Retired", 10, false)

	_, err := svc.Get(context.Background(), family, seeded.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("inactive reward must read as missing, got %v", err)
	}
}

func TestGetScopedToFamily(t *testing.T) {
	svc, conn := newTestService(t)
	seeded := seedReward(t, conn, uuid.New(), "Family A only", 15, true)

	_, err := svc.Get(context.Background(), uuid.New(), seeded.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("cross-family reward must read as missing, got %v", err)
	}
}

func TestListActiveFiltersAndSorts(t *testing.T) {
	svc, conn := newTestService(t)
	family := uuid.New()
	seedReward(t, conn, family, "Zoo trip", 80, true)
	seedReward(t, conn, family, "Arcade hour", 25, true)
	seedReward(t, conn, family, "Hidden", 5, false)
	seedReward(t, conn, uuid.New(), "Other family", 30, true)

	list, err := svc.ListActive(context.Background(), family)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 active rewards, got %d", len(list))
	}
	if list[0].Title != "Arcade hour" || list[1].Title != "Zoo trip" {
		t.Fatalf("expected title sort, got %q then %q", list[0].Title, list[1].Title)
	}
}
