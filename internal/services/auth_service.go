package services

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// OperatorSubject is the token subject of the single clinic operator.
const OperatorSubject = "operator"

type TokenSigner func(subject string, ttl time.Duration) (string, error)

// AuthService guards the clinic with one shared passcode. With no passcode
// configured it is disabled and the API is open.
type AuthService struct {
	hash      []byte
	signToken TokenSigner
	tokenTTL  time.Duration
}

type AuthResult struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func NewAuthService(passcode string, signer TokenSigner) (*AuthService, error) {
	s := &AuthService{signToken: signer, tokenTTL: 12 * time.Hour}
	if strings.TrimSpace(passcode) == "" {
		return s, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	s.hash = hash
	return s, nil
}

func (s *AuthService) Enabled() bool { return len(s.hash) > 0 }

func (s *AuthService) Login(passcode string) (*AuthResult, error) {
	if !s.Enabled() {
		return nil, NewInvalidError("authentication is disabled")
	}
	if strings.TrimSpace(passcode) == "" {
		return nil, NewInvalidError("passcode required")
	}
	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(passcode)); err != nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken(OperatorSubject, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Subject: OperatorSubject, ExpiresAt: time.Now().UTC().Add(s.tokenTTL)}, nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
