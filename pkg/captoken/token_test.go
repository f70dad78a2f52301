package captoken

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/famboard/famboard-backend/pkg/config"
	"github.com/famboard/famboard-backend/pkg/enums"
	pkgerrors "github.com/famboard/famboard-backend/pkg/errors"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(config.CapTokenConfig{
		Secret: "test-secret",
		Issuer: "famboard-test",
		TTL:    5 * time.Minute,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestSignVerifyRoundTrip(t *testing.T) {
	svc := newTestService(t)
	rewardID := uuid.New()
	payload := Payload{
		Kind:     enums.TokenKindRedeem,
		FamilyID: uuid.New(),
		UserID:   uuid.New(),
		RewardID: &rewardID,
		Amount:   40,
	}

	signed, err := svc.Sign(time.Now(), payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if signed.JTI == "" {
		t.Fatal("expected jti to be set")
	}

	verified, err := svc.Verify(signed.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.JTI != signed.JTI {
		t.Fatalf("jti mismatch: %s vs %s", verified.JTI, signed.JTI)
	}
	if verified.Payload.Amount != 40 || verified.Payload.Kind != enums.TokenKindRedeem {
		t.Fatalf("payload mismatch: %+v", verified.Payload)
	}
	if verified.Payload.RewardID == nil || *verified.Payload.RewardID != rewardID {
		t.Fatal("reward id not preserved")
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	svc := newTestService(t)
	other, err := NewService(config.CapTokenConfig{
		Secret: "other-secret",
		Issuer: "famboard-test",
		TTL:    5 * time.Minute,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	signed, err := other.Sign(time.Now(), Payload{
		Kind:     enums.TokenKindEarn,
		FamilyID: uuid.New(),
		UserID:   uuid.New(),
		Amount:   10,
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = svc.Verify(signed.Token)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeTokenInvalid {
		t.Fatalf("expected TOKEN_INVALID, got %v", err)
	}
	details := typed.Details().(map[string]any)
	if details["reason"] != ReasonBadSignature {
		t.Fatalf("expected bad_sig reason, got %v", details["reason"])
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := newTestService(t)
	signed, err := svc.Sign(time.Now().Add(-time.Hour), Payload{
		Kind:     enums.TokenKindEarn,
		FamilyID: uuid.New(),
		UserID:   uuid.New(),
		Amount:   5,
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = svc.Verify(signed.Token)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeTokenInvalid {
		t.Fatalf("expected TOKEN_INVALID, got %v", err)
	}
	details := typed.Details().(map[string]any)
	if details["reason"] != ReasonExpired {
		t.Fatalf("expected expired reason, got %v", details["reason"])
	}
}

func TestSignValidatesPayload(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Sign(time.Now(), Payload{Kind: "bogus", FamilyID: uuid.New(), UserID: uuid.New()}); err == nil {
		t.Fatal("expected invalid kind error")
	}
	if _, err := svc.Sign(time.Now(), Payload{Kind: enums.TokenKindEarn, UserID: uuid.New()}); err == nil {
		t.Fatal("expected missing family error")
	}
}
