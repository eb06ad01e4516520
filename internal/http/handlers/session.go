package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"

	"vidiai/internal/middleware"
)

// TelegramUser is the identity carried by verified Mini App init data.
type TelegramUser struct {
	ID       int64
	Username string
}

// InitDataVerifier checks a raw Telegram init data string and returns the user.
type InitDataVerifier func(raw string) (TelegramUser, error)

// TelegramInitData verifies the init data signature with botToken and rejects
// payloads older than maxAge.
func TelegramInitData(botToken string, maxAge time.Duration) InitDataVerifier {
	return func(raw string) (TelegramUser, error) {
		if botToken == "" {
			return TelegramUser{}, errors.New("telegram bot token not configured")
		}
		if err := initdata.Validate(raw, botToken, maxAge); err != nil {
			return TelegramUser{}, fmt.Errorf("validate init data: %w", err)
		}
		data, err := initdata.Parse(raw)
		if err != nil {
			return TelegramUser{}, fmt.Errorf("parse init data: %w", err)
		}
		if data.User.ID == 0 {
			return TelegramUser{}, errors.New("init data has no user")
		}
		return TelegramUser{ID: data.User.ID, Username: data.User.Username}, nil
	}
}

// OwnerID is the ledger and history key of a Telegram user.
func OwnerID(telegramID int64) string {
	return fmt.Sprintf("tg:%d", telegramID)
}

type sessionRequest struct {
	InitData string `json:"init_data"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	OwnerID   string    `json:"owner_id"`
	Username  string    `json:"username,omitempty"`
	Balance   int       `json:"balance"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Session exchanges Telegram init data for a session token. The first session
// opens the credit account with the signup grant.
func (a *App) Session(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.InitData) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "init_data required")
		return
	}
	if a.VerifyInitData == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "sessions are disabled")
		return
	}
	user, err := a.VerifyInitData(req.InitData)
	if err != nil {
		a.logger().Warn().Err(err).Msg("http: init data rejected")
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid init data")
		return
	}
	owner := OwnerID(user.ID)
	balance, err := a.Ledger.Balance(r.Context(), owner)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ttl := a.JWTTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	claims := middleware.TokenClaims{TelegramID: user.ID, Username: user.Username}
	claims.Subject = owner
	token, err := middleware.SignJWT(a.JWTSecret, claims, ttl)
	if err != nil {
		a.logger().Error().Err(err).Msg("http: sign jwt failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, http.StatusOK, sessionResponse{
		Token:     token,
		OwnerID:   owner,
		Username:  user.Username,
		Balance:   balance,
		ExpiresAt: time.Now().Add(ttl).UTC(),
	})
}

// Balance returns the caller's credit balance and recent ledger entries.
func (a *App) Balance(w http.ResponseWriter, r *http.Request) {
	owner := a.currentUserID(r)
	if owner == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	balance, err := a.Ledger.Balance(r.Context(), owner)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	entries, err := a.Ledger.Entries(r.Context(), owner, 20)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"balance": balance, "entries": entries})
}
