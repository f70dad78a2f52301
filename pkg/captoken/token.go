package captoken

import (
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/famboard/famboard-backend/pkg/config"
	"github.com/famboard/famboard-backend/pkg/enums"
	pkgerrors "github.com/famboard/famboard-backend/pkg/errors"
)

var signingMethod = jwt.SigningMethodHS256

// Reject reasons surfaced in TOKEN_INVALID error details.
const (
	ReasonBadSignature = "bad_sig"
	ReasonExpired      = "expired"
	ReasonReused       = "token_reused"
)

// Payload is the action a scan token authorizes. Exactly one earn or redeem
// against one member of one family.
type Payload struct {
	Kind     enums.TokenKind `json:"kind"`
	FamilyID uuid.UUID       `json:"family_id"`
	UserID   uuid.UUID       `json:"user_id"`
	RewardID *uuid.UUID      `json:"reward_id,omitempty"`
	HoldID   *uuid.UUID      `json:"hold_id,omitempty"`
	Amount   int             `json:"amount"`
}

type claims struct {
	Payload
	jwt.RegisteredClaims
}

// Service signs and verifies single-use capability tokens. Replay prevention
// is the caller's job: check the returned JTI against consumed tokens before
// acting.
type Service struct {
	cfg config.CapTokenConfig
}

func NewService(cfg config.CapTokenConfig) (*Service, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("capability token secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("capability token ttl must be positive")
	}
	return &Service{cfg: cfg}, nil
}

// Signed carries the encoded token plus the identifiers the caller persists.
type Signed struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// Sign attaches a fresh jti and absolute expiry to the payload and returns
// the HMAC-SHA256 signed encoding.
func (s *Service) Sign(now time.Time, payload Payload) (*Signed, error) {
	if !payload.Kind.IsValid() {
		return nil, fmt.Errorf("invalid token kind %q", payload.Kind)
	}
	if payload.FamilyID == uuid.Nil {
		return nil, fmt.Errorf("family id is required")
	}
	if payload.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}

	jti := uuid.NewString()
	expiresAt := now.Add(s.cfg.TTL)

	tokenClaims := claims{
		Payload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(signingMethod, tokenClaims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("signing capability token: %w", err)
	}
	return &Signed{Token: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

// Verified is the decoded outcome of a successful verification.
type Verified struct {
	Payload Payload
	JTI     string
}

// Verify recomputes the signature and validates expiry. Consumed-token
// replay is NOT checked here.
func (s *Service) Verify(tokenString string) (*Verified, error) {
	parsed := &claims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		parsed,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != signingMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(s.cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
	)
	if err != nil {
		reason := ReasonBadSignature
		if stdErrors.Is(err, jwt.ErrTokenExpired) {
			reason = ReasonExpired
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeTokenInvalid, err, "capability token rejected").
			WithDetails(map[string]any{"reason": reason})
	}
	if parsed.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeTokenInvalid, "capability token missing jti").
			WithDetails(map[string]any{"reason": ReasonBadSignature})
	}

	return &Verified{Payload: parsed.Payload, JTI: parsed.ID}, nil
}
