package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func fail(w http.ResponseWriter, message string) {
	writeJSON(w, APIResponse{Success: false, Message: message})
}

// ensureDB hands out the lazily-initialized handle; on failure the client
// only ever sees a generic message, details stay in the server log.
func ensureDB(store *Store, w http.ResponseWriter, message string) (*sql.DB, bool) {
	db, err := store.Ensure()
	if err != nil {
		log.Println("storage unavailable:", err)
		fail(w, message)
		return nil, false
	}
	return db, true
}

// requireUser resolves the session and rejects guests. Writes the failure
// response itself when there is no authenticated user.
func requireUser(db *sql.DB, w http.ResponseWriter, r *http.Request, message string) *User {
	identity, err := resolveSession(db, r)
	if err == errNoSession {
		fail(w, message)
		return nil
	}
	if err != nil {
		log.Println("session lookup failed:", err)
		fail(w, message)
		return nil
	}
	if identity.IsGuest || identity.User == nil {
		fail(w, message)
		return nil
	}
	return identity.User
}

func signupHandler(store *Store, mailer *Mailer, cfg Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			fail(w, "Please fill in all fields")
			return
		}

		if req.Email == "" || req.Username == "" || req.Password == "" || req.ConfirmPassword == "" {
			fail(w, "Please fill in all fields")
			return
		}
		if !isValidEmail(req.Email) {
			fail(w, "Please enter a valid email address")
			return
		}
		if len(req.Password) < 6 {
			fail(w, "Password must be at least 6 characters")
			return
		}
		if req.Password != req.ConfirmPassword {
			fail(w, "Passwords do not match")
			return
		}

		db, ok := ensureDB(store, w, "Failed to create account")
		if !ok {
			return
		}

		allowed, _, err := allowAuthAttempt(db, getClientIP(r), "signup", cfg.SignupRateLimit, cfg.AuthRateWindow)
		if err != nil {
			log.Println("signup rate limit check failed:", err)
		} else if !allowed {
			fail(w, "Too many signup attempts. Please try again later.")
			return
		}

		userID, token, err := createUser(db, req.Email, req.Username, req.Password, cfg.StartingCoins)
		switch err {
		case nil:
		case errDuplicateEmail:
			fail(w, "Email already exists")
			return
		case errDuplicateUsername:
			fail(w, "Username already exists")
			return
		case errDuplicateAccount:
			fail(w, "Email or username already exists")
			return
		default:
			log.Println("createUser failed:", err)
			fail(w, "Failed to create account")
			return
		}

		if cfg.RequireEmailVerification {
			if err := mailer.sendVerificationEmail(req.Email, req.Username, token); err != nil {
				log.Println("verification email failed:", err)
			}
			writeJSON(w, APIResponse{Success: true, Message: "Account created! Please check your email to verify your account."})
			return
		}

		// Deployment policy: no email round trip before first login.
		if _, err := verifyUserByID(db, userID); err != nil {
			log.Println("auto-verify failed:", err)
			fail(w, "Failed to create account")
			return
		}
		writeJSON(w, APIResponse{Success: true, Message: "Account created successfully! You can now sign in."})
	}
}

func loginHandler(store *Store, cfg Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			fail(w, "Please fill in all fields")
			return
		}
		if req.Email == "" || req.Password == "" {
			fail(w, "Please fill in all fields")
			return
		}
		if !isValidEmail(req.Email) {
			fail(w, "Please enter a valid email address")
			return
		}

		db, ok := ensureDB(store, w, "Login failed")
		if !ok {
			return
		}

		allowed, _, err := allowAuthAttempt(db, getClientIP(r), "login", cfg.LoginRateLimit, cfg.AuthRateWindow)
		if err != nil {
			log.Println("login rate limit check failed:", err)
		} else if !allowed {
			fail(w, "Too many login attempts. Please try again later.")
			return
		}

		user, err := authenticateUser(db, req.Email, req.Password)
		if err == errInvalidCredentials {
			fail(w, "Invalid email or password")
			return
		}
		if err != nil {
			log.Println("authenticate failed:", err)
			fail(w, "Login failed")
			return
		}

		sessionID, expiresAt, err := createSession(db, user.ID, cfg.SessionTTL)
		if err != nil {
			log.Println("session create failed:", err)
			fail(w, "Login failed")
			return
		}
		writeSessionCookie(w, sessionID, expiresAt)

		writeJSON(w, LoginResponse{
			Success: true,
			Message: "Login successful!",
			User: &UserPayload{
				ID:       user.ID,
				Username: user.Username,
				Email:    user.Email,
				Coins:    user.Coins,
			},
		})
	}
}

func forgotPasswordHandler(store *Store, mailer *Mailer, cfg Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req ForgotPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			fail(w, "Please enter your email address")
			return
		}
		if req.Email == "" {
			fail(w, "Please enter your email address")
			return
		}
		if !isValidEmail(req.Email) {
			fail(w, "Please enter a valid email address")
			return
		}

		db, ok := ensureDB(store, w, "Email not found or not verified")
		if !ok {
			return
		}

		token, err := requestPasswordReset(db, req.Email, cfg.ResetTokenTTL)
		if err != nil {
			log.Println("password reset request failed:", err)
			fail(w, "Email not found or not verified")
			return
		}
		if token == "" {
			// Same message whether the address is unknown or unverified.
			fail(w, "Email not found or not verified")
			return
		}

		if err := mailer.sendPasswordResetEmail(req.Email, token); err != nil {
			log.Println("password reset email failed:", err)
			fail(w, "Email not found or not verified")
			return
		}
		writeJSON(w, APIResponse{Success: true, Message: "Password reset email sent!"})
	}
}

func resetPasswordHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req ResetPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			fail(w, "Invalid or expired reset token")
			return
		}
		if req.Token == "" || req.NewPassword == "" {
			fail(w, "Please fill in all fields")
			return
		}
		if len(req.NewPassword) < 6 {
			fail(w, "Password must be at least 6 characters")
			return
		}

		db, ok := ensureDB(store, w, "Invalid or expired reset token")
		if !ok {
			return
		}

		reset, err := resetPassword(db, req.Token, req.NewPassword)
		if err != nil {
			log.Println("password reset failed:", err)
			fail(w, "Invalid or expired reset token")
			return
		}
		if !reset {
			fail(w, "Invalid or expired reset token")
			return
		}
		writeJSON(w, APIResponse{Success: true, Message: "Password reset successfully! You can now sign in."})
	}
}

func verifyEmailHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req VerifyEmailRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			fail(w, "Invalid or expired verification link")
			return
		}

		db, ok := ensureDB(store, w, "Invalid or expired verification link")
		if !ok {
			return
		}

		verified, err := verifyUserByToken(db, req.Token)
		if err != nil {
			log.Println("email verification failed:", err)
			fail(w, "Invalid or expired verification link")
			return
		}
		if !verified {
			fail(w, "Invalid or expired verification link")
			return
		}
		writeJSON(w, APIResponse{Success: true, Message: "Email verified! You can now sign in."})
	}
}

func guestLoginHandler(store *Store, cfg Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		db, ok := ensureDB(store, w, "Failed to start guest session")
		if !ok {
			return
		}

		sessionID, expiresAt, err := createGuestSession(db, cfg.SessionTTL)
		if err != nil {
			log.Println("guest session create failed:", err)
			fail(w, "Failed to start guest session")
			return
		}
		writeSessionCookie(w, sessionID, expiresAt)
		writeJSON(w, APIResponse{Success: true, Message: "Playing as guest"})
	}
}

func logoutHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			if db, err := store.Ensure(); err == nil {
				clearSession(db, cookie.Value)
			}
		}
		clearSessionCookie(w)
		writeJSON(w, APIResponse{Success: true, Message: "Logged out successfully"})
	}
}

func saveScoreHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req SaveScoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			fail(w, "Invalid score payload")
			return
		}
		if req.Score < 0 || req.PlayTime < 0 {
			fail(w, "Invalid score payload")
			return
		}

		db, ok := ensureDB(store, w, "Failed to save score")
		if !ok {
			return
		}

		identity, err := resolveSession(db, r)
		if err == errNoSession || (err == nil && identity.IsGuest) {
			// Guest play persists nothing and still succeeds.
			writeJSON(w, APIResponse{Success: true, Message: "Score not saved for guest"})
			return
		}
		if err != nil {
			log.Println("session lookup failed:", err)
			fail(w, "Failed to save score")
			return
		}

		newCoins, err := saveGameScore(db, identity.User.ID, req.Score, req.PlayTime)
		if err != nil {
			log.Println("saveGameScore failed:", err)
			fail(w, "Failed to save score")
			return
		}

		gamesSavedTotal.Inc()
		coinsAwardedTotal.Add(float64(req.Score))

		writeJSON(w, SaveScoreResponse{Success: true, Coins: &newCoins})
	}
}

func leaderboardHandler(store *Store, cfg Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		db, ok := ensureDB(store, w, "Login required")
		if !ok {
			return
		}

		user := requireUser(db, w, r, "Login required")
		if user == nil {
			return
		}

		entries, err := getLeaderboard(db, cfg.LeaderboardLimit)
		if err != nil {
			log.Println("leaderboard query failed:", err)
			fail(w, "Failed to load leaderboard")
			return
		}

		rank, err := getUserRank(db, user.ID)
		if err != nil {
			log.Println("rank query failed:", err)
			fail(w, "Failed to load leaderboard")
			return
		}

		resp := LeaderboardResponse{Success: true, Leaderboard: entries}
		if rank > 0 {
			resp.UserRank = &rank
		}
		writeJSON(w, resp)
	}
}

func historyHandler(store *Store, cfg Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		db, ok := ensureDB(store, w, "Login required")
		if !ok {
			return
		}

		user := requireUser(db, w, r, "Login required")
		if user == nil {
			return
		}

		records, err := getUserHistory(db, user.ID, cfg.HistoryLimit)
		if err != nil {
			log.Println("history query failed:", err)
			fail(w, "Failed to load history")
			return
		}

		history := make([]HistoryItem, 0, len(records))
		for _, rec := range records {
			history = append(history, HistoryItem{
				Score:    rec.Score,
				PlayTime: rec.PlayTime,
				PlayedAt: rec.PlayedAt.UTC().Format(time.RFC3339),
			})
		}
		writeJSON(w, HistoryResponse{Success: true, History: history})
	}
}

func getUnlocksHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		db, ok := ensureDB(store, w, "Failed to get unlocks")
		if !ok {
			return
		}

		user := requireUser(db, w, r, "Not logged in")
		if user == nil {
			return
		}

		unlocks, err := getUserUnlocks(db, user.ID)
		if err != nil {
			log.Println("unlocks query failed:", err)
			fail(w, "Failed to get unlocks")
			return
		}
		writeJSON(w, UnlocksResponse{Success: true, UnlockedCharacters: unlocks})
	}
}

func unlockCharacterHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req UnlockCharacterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			fail(w, "Character ID required")
			return
		}
		if req.CharacterID == nil {
			fail(w, "Character ID required")
			return
		}
		if req.Cost < 0 {
			fail(w, "Invalid cost")
			return
		}

		db, ok := ensureDB(store, w, "Failed to unlock character")
		if !ok {
			return
		}

		user := requireUser(db, w, r, "Not logged in")
		if user == nil {
			return
		}

		newCoins, _, err := unlockCharacter(db, user.ID, *req.CharacterID, req.Cost)
		if err == errNotEnoughCoins {
			fail(w, "Not enough coins")
			return
		}
		if err != nil {
			log.Println("unlockCharacter failed:", err)
			fail(w, "Failed to unlock character")
			return
		}
		writeJSON(w, CoinsResponse{Success: true, Coins: &newCoins})
	}
}

func getCoinsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		db, ok := ensureDB(store, w, "Failed to get coins")
		if !ok {
			return
		}

		user := requireUser(db, w, r, "Not logged in")
		if user == nil {
			return
		}

		coins, err := getUserCoins(db, user.ID)
		if err != nil {
			log.Println("coins query failed:", err)
			fail(w, "Failed to get coins")
			return
		}
		writeJSON(w, CoinsResponse{Success: true, Coins: &coins})
	}
}

func updateCoinsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req UpdateCoinsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			fail(w, "Failed to update coins")
			return
		}
		if req.Coins < 0 {
			fail(w, "Coins must be non-negative")
			return
		}

		db, ok := ensureDB(store, w, "Failed to update coins")
		if !ok {
			return
		}

		user := requireUser(db, w, r, "Not logged in")
		if user == nil {
			return
		}

		if err := updateUserCoins(db, user.ID, req.Coins); err != nil {
			log.Println("updateUserCoins failed:", err)
			fail(w, "Failed to update coins")
			return
		}
		writeJSON(w, APIResponse{Success: true})
	}
}
