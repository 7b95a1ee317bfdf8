package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/NatesHonor/apisite/internal/mail"
	"github.com/NatesHonor/apisite/internal/models"
	"github.com/NatesHonor/apisite/internal/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	verifyKeyPrefix   = "verify:"
	cooldownKeyPrefix = "verify:cooldown:"
)

// redeemScript atomically claims the outstanding token ID for an email:
// the key is deleted only when it still holds the presented ID, so exactly
// one of N concurrent redemptions succeeds and a reissued token cannot be
// clobbered by redeeming a stale one.
var redeemScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Workflow orchestrates registration, verification mail dispatch, and
// one-time token redemption. State machine per email:
// Unregistered -> PendingVerification -> Verified.
type Workflow struct {
	accounts        store.AccountStore
	tokens          *TokenManager
	rdb             *redis.Client
	mailer          mail.Mailer
	clientURL       string
	verificationTTL time.Duration
	resendCooldown  time.Duration
}

// NewWorkflow creates a verification Workflow.
func NewWorkflow(accounts store.AccountStore, tokens *TokenManager, rdb *redis.Client,
	mailer mail.Mailer, clientURL string, verificationTTL, resendCooldown time.Duration) *Workflow {
	return &Workflow{
		accounts:        accounts,
		tokens:          tokens,
		rdb:             rdb,
		mailer:          mailer,
		clientURL:       clientURL,
		verificationTTL: verificationTTL,
		resendCooldown:  resendCooldown,
	}
}

// Register creates an unverified account and dispatches the verification
// mail. The account store's UNIQUE constraint is the authoritative guard
// against duplicates; the lookup below is only a fast path. When mail
// dispatch fails the account is kept so the caller can use Resend, and the
// failure surfaces as ErrDependencyUnavailable.
func (wf *Workflow) Register(ctx context.Context, email, username, password string) error {
	if _, err := wf.accounts.GetByEmail(ctx, email); err == nil {
		return ErrAlreadyExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	account, err := models.NewAccount(email, username, password)
	if err != nil {
		return err
	}

	if err := wf.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	log.Printf("[AUTH] Registered account %d, verification pending", account.ID)
	return wf.issueAndSend(ctx, email)
}

// Resend invalidates any outstanding verification token for the email and
// issues a new one, subject to a fixed per-email cooldown. Unknown emails
// are acknowledged without sending anything, so the endpoint does not
// confirm account existence.
func (wf *Workflow) Resend(ctx context.Context, email string) error {
	ok, err := wf.rdb.SetNX(ctx, cooldownKeyPrefix+email, 1, wf.resendCooldown).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	if !ok {
		return ErrRateLimited
	}

	account, err := wf.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("[AUTH] Resend requested for unknown email, acknowledging without dispatch")
			return nil
		}
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	if account.Verified {
		return nil
	}

	return wf.issueAndSend(ctx, email)
}

// Redeem parses the verification token, atomically consumes the
// outstanding record, and activates the account. Exactly one of N
// concurrent redemptions with the same token succeeds; the rest fail with
// ErrInvalidOrExpired.
func (wf *Workflow) Redeem(ctx context.Context, token string) error {
	claims, err := wf.tokens.ValidateVerificationToken(token)
	if err != nil {
		return ErrInvalidOrExpired
	}

	claimed, err := redeemScript.Run(ctx, wf.rdb,
		[]string{verifyKeyPrefix + claims.Email}, claims.TokenID).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	if claimed == 0 {
		return ErrInvalidOrExpired
	}

	if err := wf.accounts.SetVerified(ctx, claims.Email, true); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidOrExpired
		}
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	log.Printf("[AUTH] Account verified for redeemed token")
	return nil
}

// issueAndSend mints a fresh verification token, records it as the single
// outstanding token for the email, and dispatches the mail. Writing the
// new token ID overwrites any prior outstanding record, which invalidates
// earlier tokens at redemption time.
func (wf *Workflow) issueAndSend(ctx context.Context, email string) error {
	tokenID := uuid.NewString()
	token, err := wf.tokens.GenerateVerificationToken(email, tokenID)
	if err != nil {
		return err
	}

	if err := wf.rdb.Set(ctx, verifyKeyPrefix+email, tokenID, wf.verificationTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	link := fmt.Sprintf("%s/verify-email?token=%s", wf.clientURL, token)
	if err := wf.mailer.SendVerification(ctx, email, link); err != nil {
		log.Printf("[AUTH] Verification mail dispatch failed: %v", err)
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	return nil
}
