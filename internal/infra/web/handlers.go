package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cashpoints/internal/domain"
	"cashpoints/internal/infra/metrics"
)

// healthHandler reports liveness. The database field flips to "offline"
// instead of failing the probe: the bot keeps answering in degraded mode.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	metrics.IncHealthCheck()

	db := "offline"
	if s.facade.DatabaseOnline(r.Context()) {
		db = "connected"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"bot":       "running",
		"database":  db,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// webhookHandler accepts Telegram deliveries. The secret header is checked
// before the body is touched; processing happens on the worker pool so the
// response returns inside Telegram's delivery timeout.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if s.secret != "" && r.Header.Get(secretTokenHeader) != s.secret {
		metrics.IncWebhookRequest(http.StatusUnauthorized)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		metrics.IncWebhookRequest(http.StatusBadRequest)
		http.Error(w, "Invalid update payload", http.StatusBadRequest)
		return
	}

	err := s.pool.Submit(func(ctx context.Context) error {
		s.updates.HandleUpdate(ctx, update, "webhook")
		return nil
	})
	if err != nil {
		// Non-2xx makes Telegram redeliver once the queue drains.
		s.log.Warn().Err(err).Int("update_id", update.UpdateID).Msg("webhook queue full")
		metrics.IncWebhookRequest(http.StatusServiceUnavailable)
		http.Error(w, "Busy", http.StatusServiceUnavailable)
		return
	}

	metrics.IncWebhookRequest(http.StatusOK)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	totals, err := s.statsUC.Totals(r.Context())
	if err != nil {
		http.Error(w, "Failed to get totals", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		TotalUsers        int   `json:"total_users"`
		PendingReferrals  int   `json:"pending_referrals"`
		VerifiedReferrals int   `json:"verified_referrals"`
		RewardsPaid       int64 `json:"rewards_paid"`
	}{
		TotalUsers:        totals.Users,
		PendingReferrals:  totals.ReferralsPending,
		VerifiedReferrals: totals.ReferralsVerified,
		RewardsPaid:       totals.RewardsPaid,
	})
}

func (s *Server) userHandler(w http.ResponseWriter, r *http.Request) {
	tgID, err := strconv.ParseInt(chi.URLParam(r, "telegram_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid telegram_id", http.StatusBadRequest)
		return
	}

	user, err := s.userUC.GetByTelegramID(r.Context(), tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to get user", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		TelegramID     int64     `json:"telegram_id"`
		Username       string    `json:"username"`
		FirstName      string    `json:"first_name"`
		Balance        int64     `json:"balance"`
		TotalEarnings  int64     `json:"total_earnings"`
		TotalReferrals int       `json:"total_referrals"`
		ReferralCode   string    `json:"referral_code"`
		IsVerified     bool      `json:"is_verified"`
		IsBanned       bool      `json:"is_banned"`
		CreatedAt      time.Time `json:"created_at"`
	}{
		TelegramID:     user.TelegramID,
		Username:       user.Username,
		FirstName:      user.FirstName,
		Balance:        user.Balance,
		TotalEarnings:  user.TotalEarnings,
		TotalReferrals: user.TotalReferrals,
		ReferralCode:   user.ReferralCode,
		IsVerified:     user.IsVerified,
		IsBanned:       user.IsBanned,
		CreatedAt:      user.CreatedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
