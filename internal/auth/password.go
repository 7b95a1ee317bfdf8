package auth

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/NatesHonor/apisite/internal/models"
	"github.com/NatesHonor/apisite/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// Principal is the resolved identity attached to an authenticated request.
type Principal struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
}

// Verifier checks submitted credentials against stored password hashes.
type Verifier struct {
	accounts  store.AccountStore
	dummyHash []byte
}

// NewVerifier creates a Verifier. The dummy hash is compared against when
// no account exists for the submitted email, so a missing account and a
// wrong password take the same time and return the same error.
func NewVerifier(accounts store.AccountStore) (*Verifier, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("apisite-dummy-password"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Verifier{accounts: accounts, dummyHash: dummy}, nil
}

// Verify checks the (email, password) pair. Returns ErrInvalidCredentials
// on a mismatch or a missing account, ErrAccountUnverified when the
// password matches but the account has not redeemed its verification
// token yet.
func (v *Verifier) Verify(ctx context.Context, email, password string) (*Principal, error) {
	account, err := v.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same bcrypt work as the found-account path.
			bcrypt.CompareHashAndPassword(v.dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	if !account.ValidatePassword(password) {
		log.Printf("[AUTH] Invalid password for account %d", account.ID)
		return nil, ErrInvalidCredentials
	}

	if !account.Verified {
		return nil, ErrAccountUnverified
	}

	return &Principal{
		ID:       account.ID,
		Username: account.Username,
		Email:    account.Email,
		Role:     account.Role,
	}, nil
}
