package user

import (
	"net/http"

	"github.com/KAsare1/socialfeed-server/cmd/utils"
	"github.com/gorilla/mux"
)

type Handler struct {
	svc     *Service
	auth    *utils.Authenticator
	limiter *utils.RateLimiter
}

func NewHandler(svc *Service, auth *utils.Authenticator, limiter *utils.RateLimiter) *Handler {
	return &Handler{svc: svc, auth: auth, limiter: limiter}
}

func (h *Handler) limit(next http.HandlerFunc) http.HandlerFunc {
	if h.limiter == nil {
		return next
	}
	return h.limiter.Limit(next)
}

// RegisterRoutes sets up identity and profile routes
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/signup", h.limit(h.handleSignup)).Methods("POST")
	router.HandleFunc("/auth/login", h.limit(h.handleLogin)).Methods("POST")
	router.HandleFunc("/auth/refresh", h.limit(h.handleRefreshToken)).Methods("POST")
	router.HandleFunc("/auth/forgot-password", h.limit(h.handleForgotPassword)).Methods("POST")
	router.HandleFunc("/auth/reset-password", h.limit(h.handleResetPassword)).Methods("POST")
	router.HandleFunc("/auth/me", h.auth.Require(h.handleMe)).Methods("GET")

	router.HandleFunc("/profile/me", h.auth.Require(h.limit(h.UpdateProfile))).Methods("PUT")
	router.HandleFunc("/profile/{userId:[0-9]+}", h.auth.Require(h.GetProfile)).Methods("GET")
	router.HandleFunc("/users/me", h.auth.Require(h.limit(h.DeleteAccount))).Methods("DELETE")
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	session, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success":       true,
		"message":       "Account created successfully",
		"user":          session.User,
		"access_token":  session.Tokens.AccessToken,
		"refresh_token": session.Tokens.RefreshToken,
		"expires_at":    session.Tokens.ExpiresAt,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	session, err := h.svc.Login(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"message":       "Login successful",
		"user":          session.User,
		"access_token":  session.Tokens.AccessToken,
		"refresh_token": session.Tokens.RefreshToken,
		"expires_at":    session.Tokens.ExpiresAt,
	})
}

func (h *Handler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.WriteError(w, err)
		return
	}

	tokens, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.ExpiresAt,
	})
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "If an account exists, a reset code will be sent to your email",
	})
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password reset successfully",
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p, err := utils.PrincipalFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, utils.Unauthorized("Unauthorized"))
		return
	}

	user, err := h.svc.Me(r.Context(), p)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseIDParam(mux.Vars(r)["userId"], "user ID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	user, err := h.svc.GetUser(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, err := utils.PrincipalFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, utils.Unauthorized("Unauthorized"))
		return
	}
	var req ProfileUpdate
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), p, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Profile updated successfully",
		"user":    user,
	})
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	p, err := utils.PrincipalFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, utils.Unauthorized("Unauthorized"))
		return
	}

	if err := h.svc.DeleteAccount(r.Context(), p); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Account deleted successfully",
	})
}
