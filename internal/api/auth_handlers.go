package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/NatesHonor/apisite/internal/auth"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type userSummary struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// respondError translates the core failure taxonomy to stable response
// codes. Messages stay generic so login and registration failures never
// confirm or deny that an account exists.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "server error"

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrAccountUnverified):
		status = http.StatusUnauthorized
		message = "invalid credentials"
		if errors.Is(err, auth.ErrAccountUnverified) {
			// Surfaced distinctly so clients can offer a resend action.
			message = "account not verified"
		}
	case errors.Is(err, auth.ErrUnauthenticated):
		status = http.StatusUnauthorized
		message = "unauthorized"
	case errors.Is(err, auth.ErrAlreadyExists):
		status = http.StatusConflict
		message = "user already exists"
	case errors.Is(err, auth.ErrRateLimited):
		status = http.StatusTooManyRequests
		message = "too many requests"
	case errors.Is(err, auth.ErrCrossOriginRejected):
		status = http.StatusForbidden
		message = "cross-origin request rejected"
	case errors.Is(err, auth.ErrInvalidOrExpired):
		status = http.StatusBadRequest
		message = "invalid or expired token"
	case errors.Is(err, auth.ErrDependencyUnavailable):
		status = http.StatusServiceUnavailable
		message = "service temporarily unavailable"
	default:
		log.Printf("[API] Unexpected error: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": message})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// RegisterHandler creates an unverified account and dispatches the
// verification mail.
func (api *Api) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !auth.ValidateEmail(req.Email) {
		http.Error(w, "Invalid email format", http.StatusBadRequest)
		return
	}
	if req.Username == "" {
		http.Error(w, "Username required", http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		http.Error(w, "Password required", http.StatusBadRequest)
		return
	}

	ctx, cancel := api.depCtx(r)
	defer cancel()

	if err := api.workflow.Register(ctx, req.Email, req.Username, req.Password); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Registration successful, verification pending",
	})
}

// LoginHandler verifies credentials and issues both a session cookie for
// the browser audience and a short-lived bearer token for
// service-to-service callers.
func (api *Api) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := api.depCtx(r)
	defer cancel()

	principal, err := api.verifier.Verify(ctx, creds.Email, creds.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	sessionID, err := api.sessions.Create(ctx, principal)
	if err != nil {
		respondError(w, err)
		return
	}

	token, err := api.tokens.GenerateToken(principal)
	if err != nil {
		respondError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     api.Config.Session.CookieName,
		Value:    sessionID,
		Path:     "/",
		Expires:  time.Now().Add(api.Config.Session.TTL),
		HttpOnly: true,
		Secure:   api.Config.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user": userSummary{
			ID:       principal.ID,
			Email:    principal.Email,
			Username: principal.Username,
			Role:     string(principal.Role),
		},
	})
}

// LogoutHandler destroys the session and clears the cookie. Idempotent:
// logging out without a session still succeeds.
func (api *Api) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(api.Config.Session.CookieName); err == nil && cookie.Value != "" {
		ctx, cancel := api.depCtx(r)
		defer cancel()
		if err := api.sessions.Destroy(ctx, cookie.Value); err != nil {
			log.Printf("[API] Session destroy failed: %v", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     api.Config.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   api.Config.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// ResendHandler reissues the verification token, subject to the per-email
// cooldown.
func (api *Api) ResendHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "Email required", http.StatusBadRequest)
		return
	}

	ctx, cancel := api.depCtx(r)
	defer cancel()

	if err := api.workflow.Resend(ctx, req.Email); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// VerifyHandler redeems a one-time verification token and activates the
// account.
func (api *Api) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		http.Error(w, "Token required", http.StatusBadRequest)
		return
	}

	ctx, cancel := api.depCtx(r)
	defer cancel()

	if err := api.workflow.Redeem(ctx, req.Token); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Email verified successfully",
	})
}

// RoleHandler returns the authenticated principal's role.
func (api *Api) RoleHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"role": string(principal.Role)})
}

// MeHandler returns the authenticated principal's summary.
func (api *Api) MeHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	respondJSON(w, http.StatusOK, userSummary{
		ID:       principal.ID,
		Email:    principal.Email,
		Username: principal.Username,
		Role:     string(principal.Role),
	})
}

// AdminAccountsHandler reports the registered account count.
func (api *Api) AdminAccountsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.depCtx(r)
	defer cancel()

	count, err := api.accounts.Count(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"accounts": count})
}
