package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/invoiceflow/invoiceflow/internal/shared"
)

// Service guards access to the builder behind a single shared password.
// There are no individual accounts; a session either passed the gate or
// it did not.
type Service struct {
	passwordHash string
}

// NewService constructs a Service around the configured bcrypt hash of
// the access password.
func NewService(passwordHash string) *Service {
	return &Service{passwordHash: passwordHash}
}

// Authenticate validates the supplied password against the shared hash.
func (s *Service) Authenticate(ctx context.Context, password string) error {
	if s.passwordHash == "" {
		return shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return shared.ErrInvalidCredentials
	}
	return nil
}
