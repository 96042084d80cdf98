package forum

import (
	"mime"
	"net/http"

	"github.com/KAsare1/socialfeed-server/cmd/utils"
	"github.com/gorilla/mux"
)

type PostHandler struct {
	svc     *Service
	auth    *utils.Authenticator
	limiter *utils.RateLimiter
}

func NewPostHandler(svc *Service, auth *utils.Authenticator, limiter *utils.RateLimiter) *PostHandler {
	return &PostHandler{svc: svc, auth: auth, limiter: limiter}
}

func (h *PostHandler) RegisterRoutes(router *mux.Router) {
	read := h.auth.Require
	write := func(next http.HandlerFunc) http.HandlerFunc {
		if h.limiter != nil {
			next = h.limiter.Limit(next)
		}
		return h.auth.Require(next)
	}

	// Post routes
	router.HandleFunc("/posts", write(h.CreatePost)).Methods("POST")
	router.HandleFunc("/posts/{postId:[0-9]+}", read(h.GetPost)).Methods("GET")
	router.HandleFunc("/posts/{postId:[0-9]+}", write(h.UpdatePost)).Methods("PUT")
	router.HandleFunc("/posts/{postId:[0-9]+}", write(h.DeletePost)).Methods("DELETE")

	// Like routes
	router.HandleFunc("/posts/{postId:[0-9]+}/like", write(h.ToggleLike)).Methods("POST")
	router.HandleFunc("/posts/{postId:[0-9]+}/likes", read(h.GetLikes)).Methods("GET")

	// Share routes
	router.HandleFunc("/posts/{postId:[0-9]+}/share", write(h.SharePost)).Methods("POST")
	router.HandleFunc("/posts/{postId:[0-9]+}/share", write(h.UnsharePost)).Methods("DELETE")
	router.HandleFunc("/posts/{postId:[0-9]+}/shares", read(h.GetShares)).Methods("GET")

	// Comment routes
	router.HandleFunc("/posts/{postId:[0-9]+}/comments", read(h.GetComments)).Methods("GET")
	router.HandleFunc("/posts/{postId:[0-9]+}/comments", write(h.AddComment)).Methods("POST")
	router.HandleFunc("/comments/{commentId:[0-9]+}", write(h.UpdateComment)).Methods("PUT")
	router.HandleFunc("/comments/{commentId:[0-9]+}", write(h.DeleteComment)).Methods("DELETE")
}

type postRequest struct {
	Content string `json:"content"`
}

type commentRequest struct {
	Content         string `json:"content" validate:"required,max=1000"`
	ParentCommentID *uint  `json:"parentCommentId"`
}

type shareRequest struct {
	SharedContent *string `json:"shared_content" validate:"omitempty,max=500"`
	Message       *string `json:"message" validate:"omitempty,max=500"`
}

func principal(r *http.Request) (utils.Principal, error) {
	p, err := utils.PrincipalFromContext(r.Context())
	if err != nil {
		return utils.Principal{}, utils.Unauthorized("Unauthorized")
	}
	return p, nil
}

func postID(r *http.Request) (uint, error) {
	return utils.ParseIDParam(mux.Vars(r)["postId"], "post ID")
}

func commentID(r *http.Request) (uint, error) {
	return utils.ParseIDParam(mux.Vars(r)["commentId"], "comment ID")
}

// CreatePost accepts multipart (content + images) or a JSON body.
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var (
		content string
		images  []ImageFile
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			utils.WriteError(w, utils.BadRequest("Error parsing form"))
			return
		}
		defer r.MultipartForm.RemoveAll()

		content = r.FormValue("content")
		for _, fh := range r.MultipartForm.File["images"] {
			file, err := fh.Open()
			if err != nil {
				utils.WriteError(w, utils.BadRequest("Error processing image"))
				return
			}
			defer file.Close()
			images = append(images, ImageFile{Name: fh.Filename, Size: fh.Size, Reader: file})
		}
	} else {
		var req postRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.WriteError(w, err)
			return
		}
		content = req.Content
	}

	post, err := h.svc.CreatePost(r.Context(), p, content, images)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Post created successfully",
		"post":    post,
	})
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	id, err := postID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	post, err := h.svc.GetPost(r.Context(), p, id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"post":    post,
	})
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	id, err := postID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req postRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	post, err := h.svc.UpdatePost(r.Context(), p, id, req.Content)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Post updated successfully",
		"post":    post,
	})
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	id, err := postID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.svc.DeletePost(r.Context(), p, id); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Post deleted successfully",
	})
}

func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	id, err := postID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	result, err := h.svc.ToggleLike(r.Context(), p, id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	message := "Post unliked"
	if result.Liked {
		message = "Post liked"
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    message,
		"liked":      result.Liked,
		"likesCount": result.LikesCount,
	})
}

func (h *PostHandler) GetLikes(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	page, err := h.svc.ListLikes(r.Context(), id, utils.ParsePagination(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"likes":   page.Items,
		"total":   page.Total,
		"hasMore": page.HasMore,
	})
}

func (h *PostHandler) SharePost(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	id, err := postID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req shareRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.WriteError(w, err)
		return
	}
	message := req.SharedContent
	if message == nil {
		message = req.Message
	}

	share, err := h.svc.SharePost(r.Context(), p, id, message)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Post shared successfully",
		"share":   share,
	})
}

func (h *PostHandler) UnsharePost(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	id, err := postID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.svc.UnsharePost(r.Context(), p, id); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Post unshared successfully",
	})
}

func (h *PostHandler) GetShares(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	page, err := h.svc.ListShares(r.Context(), id, utils.ParsePagination(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"shares":  page.Items,
		"total":   page.Total,
		"hasMore": page.HasMore,
	})
}

func (h *PostHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	page, err := h.svc.ListComments(r.Context(), id, utils.ParsePagination(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"comments": page.Items,
		"total":    page.Total,
		"hasMore":  page.HasMore,
	})
}

func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	id, err := postID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req commentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.WriteError(w, err)
		return
	}

	var placement Placement = TopLevel{}
	if req.ParentCommentID != nil {
		placement = Reply{ParentID: *req.ParentCommentID}
	}

	comment, err := h.svc.CreateComment(r.Context(), p, id, req.Content, placement)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Comment added successfully",
		"comment": comment,
	})
}

func (h *PostHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	id, err := commentID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req commentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.WriteError(w, err)
		return
	}

	comment, err := h.svc.UpdateComment(r.Context(), p, id, req.Content)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Comment updated successfully",
		"comment": comment,
	})
}

func (h *PostHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	id, err := commentID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	removed, err := h.svc.DeleteComment(r.Context(), p, id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Comment deleted successfully",
		"deleted": removed,
	})
}
