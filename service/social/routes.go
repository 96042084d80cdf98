package social

import (
	"net/http"

	"github.com/KAsare1/socialfeed-server/cmd/utils"
	"github.com/gorilla/mux"
)

type FollowHandler struct {
	svc     *Service
	auth    *utils.Authenticator
	limiter *utils.RateLimiter
}

func NewFollowHandler(svc *Service, auth *utils.Authenticator, limiter *utils.RateLimiter) *FollowHandler {
	return &FollowHandler{svc: svc, auth: auth, limiter: limiter}
}

func (h *FollowHandler) RegisterRoutes(router *mux.Router) {
	write := func(next http.HandlerFunc) http.HandlerFunc {
		if h.limiter != nil {
			next = h.limiter.Limit(next)
		}
		return h.auth.Require(next)
	}

	router.HandleFunc("/users/{userId:[0-9]+}/follow", write(h.Follow)).Methods("POST")
	router.HandleFunc("/users/{userId:[0-9]+}/follow", write(h.Unfollow)).Methods("DELETE")
	router.HandleFunc("/users/{userId:[0-9]+}/followers", h.auth.Require(h.GetFollowers)).Methods("GET")
	router.HandleFunc("/users/{userId:[0-9]+}/following", h.auth.Require(h.GetFollowing)).Methods("GET")
	router.HandleFunc("/users/{userId:[0-9]+}/follow-status", h.auth.Require(h.GetFollowStatus)).Methods("GET")
	router.HandleFunc("/users/{userId:[0-9]+}/follow-stats", h.auth.Require(h.GetFollowStats)).Methods("GET")
}

func targetUser(r *http.Request) (uint, error) {
	return utils.ParseIDParam(mux.Vars(r)["userId"], "user ID")
}

func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	p, err := utils.PrincipalFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, utils.Unauthorized("Unauthorized"))
		return
	}
	target, err := targetUser(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.svc.Follow(r.Context(), p, target); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Successfully followed user",
	})
}

func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	p, err := utils.PrincipalFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, utils.Unauthorized("Unauthorized"))
		return
	}
	target, err := targetUser(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.svc.Unfollow(r.Context(), p, target); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Successfully unfollowed user",
	})
}

func (h *FollowHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	target, err := targetUser(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	page, err := h.svc.Followers(r.Context(), target, utils.ParsePagination(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"followers": page.Items,
		"total":     page.Total,
		"hasMore":   page.HasMore,
	})
}

func (h *FollowHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	target, err := targetUser(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	page, err := h.svc.Following(r.Context(), target, utils.ParsePagination(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"following": page.Items,
		"total":     page.Total,
		"hasMore":   page.HasMore,
	})
}

func (h *FollowHandler) GetFollowStatus(w http.ResponseWriter, r *http.Request) {
	p, err := utils.PrincipalFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, utils.Unauthorized("Unauthorized"))
		return
	}
	target, err := targetUser(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	following, err := h.svc.FollowStatus(r.Context(), p, target)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"isFollowing": following,
	})
}

func (h *FollowHandler) GetFollowStats(w http.ResponseWriter, r *http.Request) {
	target, err := targetUser(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	stats, err := h.svc.FollowStats(r.Context(), target)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}
