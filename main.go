package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

/* ======================
   Request / Response Types
   ====================== */

type SignupRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

type SaveScoreRequest struct {
	Score    int64 `json:"score"`
	PlayTime int64 `json:"play_time"`
}

type UnlockCharacterRequest struct {
	CharacterID *int  `json:"character_id"`
	Cost        int64 `json:"cost"`
}

type UpdateCoinsRequest struct {
	Coins int64 `json:"coins"`
}

type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type UserPayload struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Coins    int64  `json:"coins"`
}

type LoginResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	User    *UserPayload `json:"user,omitempty"`
}

type SaveScoreResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Coins   *int64 `json:"coins,omitempty"`
}

type CoinsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Coins   *int64 `json:"coins,omitempty"`
}

type UnlocksResponse struct {
	Success            bool   `json:"success"`
	Message            string `json:"message,omitempty"`
	UnlockedCharacters []int  `json:"unlocked_characters"`
}

type LeaderboardResponse struct {
	Success     bool               `json:"success"`
	Message     string             `json:"message,omitempty"`
	Leaderboard []LeaderboardEntry `json:"leaderboard,omitempty"`
	UserRank    *int64             `json:"user_rank,omitempty"`
}

type HistoryItem struct {
	Score    int64  `json:"score"`
	PlayTime int64  `json:"play_time"`
	PlayedAt string `json:"played_at"`
}

type HistoryResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	History []HistoryItem `json:"history"`
}

/* ======================
   main()
   ====================== */

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg := loadSettings()
	log.Println("App environment:", cfg.Env)

	store := NewStore(cfg.DatabaseURL)
	defer store.Close()

	// Connect eagerly when possible, but keep serving if the database is
	// not up yet; the health probe and handlers retry through Ensure.
	if _, err := store.Ensure(); err != nil {
		log.Println("Database not ready at startup:", err)
	}

	mailer := newMailer(cfg)
	if !mailer.configured() {
		log.Println("Email delivery not configured; verification and reset mails disabled")
	}

	mux := http.NewServeMux()
	registerRoutes(mux, store, mailer, cfg)

	addr := "0.0.0.0:" + cfg.Port
	log.Println("Listening on", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("server failed:", err)
	}
}

/* ======================
   Routes
   ====================== */

func registerRoutes(mux *http.ServeMux, store *Store, mailer *Mailer, cfg Settings) {
	mux.HandleFunc("/health", withMetrics("/health", healthHandler(store, cfg.Env)))
	mux.Handle("/metrics", metricsHandler())

	mux.HandleFunc("/api/signup", withMetrics("/api/signup", signupHandler(store, mailer, cfg)))
	mux.HandleFunc("/api/login", withMetrics("/api/login", loginHandler(store, cfg)))
	mux.HandleFunc("/api/logout", withMetrics("/api/logout", logoutHandler(store)))
	mux.HandleFunc("/api/guest-login", withMetrics("/api/guest-login", guestLoginHandler(store, cfg)))
	mux.HandleFunc("/api/forgot-password", withMetrics("/api/forgot-password", forgotPasswordHandler(store, mailer, cfg)))
	mux.HandleFunc("/api/reset-password", withMetrics("/api/reset-password", resetPasswordHandler(store)))
	mux.HandleFunc("/api/verify-email", withMetrics("/api/verify-email", verifyEmailHandler(store)))

	mux.HandleFunc("/api/save-score", withMetrics("/api/save-score", saveScoreHandler(store)))
	mux.HandleFunc("/api/leaderboard", withMetrics("/api/leaderboard", leaderboardHandler(store, cfg)))
	mux.HandleFunc("/api/history", withMetrics("/api/history", historyHandler(store, cfg)))

	mux.HandleFunc("/api/get-coins", withMetrics("/api/get-coins", getCoinsHandler(store)))
	mux.HandleFunc("/api/update-coins", withMetrics("/api/update-coins", updateCoinsHandler(store)))
	mux.HandleFunc("/api/get-unlocks", withMetrics("/api/get-unlocks", getUnlocksHandler(store)))
	mux.HandleFunc("/api/unlock-character", withMetrics("/api/unlock-character", unlockCharacterHandler(store)))
}
