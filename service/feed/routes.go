package feed

import (
	"net/http"

	"github.com/KAsare1/socialfeed-server/cmd/utils"
	"github.com/gorilla/mux"
)

type FeedHandler struct {
	svc  *Service
	auth *utils.Authenticator
}

func NewFeedHandler(svc *Service, auth *utils.Authenticator) *FeedHandler {
	return &FeedHandler{svc: svc, auth: auth}
}

func (h *FeedHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/posts", h.auth.Require(h.GetPosts)).Methods("GET")
	router.HandleFunc("/posts/trending", h.auth.Require(h.GetTrending)).Methods("GET")
	router.HandleFunc("/posts/followers", h.auth.Require(h.GetFollowersFeed)).Methods("GET")
	router.HandleFunc("/users/{userId:[0-9]+}/timeline", h.auth.Require(h.GetTimeline)).Methods("GET")
}

func writePage[T any](w http.ResponseWriter, items []T, total int64, hasMore bool) {
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"posts":   items,
		"total":   total,
		"hasMore": hasMore,
	})
}

func (h *FeedHandler) GetPosts(w http.ResponseWriter, r *http.Request) {
	viewer, err := utils.PrincipalFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, utils.Unauthorized("Unauthorized"))
		return
	}

	var authorID *uint
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := utils.ParseIDParam(raw, "user ID")
		if err != nil {
			utils.WriteError(w, err)
			return
		}
		authorID = &id
	}

	page, err := h.svc.General(r.Context(), viewer, authorID, utils.ParsePagination(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writePage(w, page.Items, page.Total, page.HasMore)
}

func (h *FeedHandler) GetTrending(w http.ResponseWriter, r *http.Request) {
	viewer, err := utils.PrincipalFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, utils.Unauthorized("Unauthorized"))
		return
	}

	page, err := h.svc.Trending(r.Context(), viewer, utils.ParsePagination(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writePage(w, page.Items, page.Total, page.HasMore)
}

func (h *FeedHandler) GetFollowersFeed(w http.ResponseWriter, r *http.Request) {
	viewer, err := utils.PrincipalFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, utils.Unauthorized("Unauthorized"))
		return
	}

	page, err := h.svc.Followers(r.Context(), viewer, utils.ParsePagination(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writePage(w, page.Items, page.Total, page.HasMore)
}

func (h *FeedHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	viewer, err := utils.PrincipalFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, utils.Unauthorized("Unauthorized"))
		return
	}
	userID, err := utils.ParseIDParam(mux.Vars(r)["userId"], "user ID")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	page, err := h.svc.Timeline(r.Context(), viewer, userID, utils.ParsePagination(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writePage(w, page.Items, page.Total, page.HasMore)
}
