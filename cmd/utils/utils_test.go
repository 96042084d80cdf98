package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticatorRoundTrip(t *testing.T) {
	auth := NewAuthenticator("secret", time.Minute)

	token, expiresAt, err := auth.GenerateAccessToken(42)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	p, err := auth.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), p.UserID)

	_, err = NewAuthenticator("other", time.Minute).ParseAccessToken(token)
	assert.Error(t, err)
}

func TestAuthenticatorExpiredToken(t *testing.T) {
	auth := NewAuthenticator("secret", -time.Minute)
	token, _, err := auth.GenerateAccessToken(1)
	require.NoError(t, err)

	_, err = auth.ParseAccessToken(token)
	assert.Error(t, err)
}

func TestRequire(t *testing.T) {
	auth := NewAuthenticator("secret", time.Minute)
	var seen Principal
	handler := auth.Require(func(w http.ResponseWriter, r *http.Request) {
		p, err := PrincipalFromContext(r.Context())
		require.NoError(t, err)
		seen = p
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
	})

	t.Run("bearer header", func(t *testing.T) {
		token, _, _ := auth.GenerateAccessToken(7)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, uint(7), seen.UserID)
	})

	t.Run("query token rejected", func(t *testing.T) {
		token, _, _ := auth.GenerateAccessToken(9)
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/?token="+token, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("query token on websocket", func(t *testing.T) {
		token, _, _ := auth.GenerateAccessToken(9)
		ws := auth.RequireWS(func(w http.ResponseWriter, r *http.Request) {
			p, err := PrincipalFromContext(r.Context())
			require.NoError(t, err)
			seen = p
			w.WriteHeader(http.StatusNoContent)
		})
		rec := httptest.NewRecorder()
		ws(rec, httptest.NewRequest(http.MethodGet, "/?token="+token, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, uint(9), seen.UserID)
	})

	t.Run("garbage", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"api error", NotFound("Post not found"), http.StatusNotFound, "Post not found"},
		{"wrapped api error", errors.Join(Conflict("Post already shared")), http.StatusConflict, "Post already shared"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["message"])
		})
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query string
		want  Pagination
	}{
		{"", Pagination{Page: 1, Limit: DefaultPageLimit}},
		{"page=3&limit=5", Pagination{Page: 3, Limit: 5}},
		{"page=0&limit=-2", Pagination{Page: 1, Limit: DefaultPageLimit}},
		{"page=abc&limit=1000", Pagination{Page: 1, Limit: MaxPageLimit}},
		{"page=922337203685477582&limit=10", Pagination{Page: MaxPage, Limit: 10}},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		assert.Equal(t, tt.want, ParsePagination(req), tt.query)
	}
}

func TestPaginationHasMore(t *testing.T) {
	p := Pagination{Page: 2, Limit: 10}
	assert.Equal(t, 10, p.Offset())
	assert.True(t, p.HasMore(21))
	assert.False(t, p.HasMore(20))
}

func TestPaginationOffsetDoesNotOverflow(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=922337203685477582&limit=50", nil)
	p := ParsePagination(req)
	assert.GreaterOrEqual(t, p.Offset(), 0)
	assert.False(t, p.HasMore(3))

	huge := Pagination{Page: 922337203685477582, Limit: 10}
	assert.GreaterOrEqual(t, huge.Offset(), 0)
	assert.GreaterOrEqual(t, huge.Offset()+huge.Limit, huge.Offset())
	assert.False(t, huge.HasMore(3))
}

func TestValidate(t *testing.T) {
	type req struct {
		Content string `json:"content" validate:"required,max=5"`
	}

	assert.NoError(t, Validate(req{Content: "hi"}))

	err := Validate(req{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "content is required", apiErr.Message)

	err = Validate(req{Content: "too long"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "content must be at most 5 characters", apiErr.Message)
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "hello", SanitizeText("  <b>hello</b> "))
	assert.Equal(t, "a & b", SanitizeText("a & b"))
	assert.Equal(t, "", SanitizeText("<script>alert(1)</script>"))
}

func TestValidateImage(t *testing.T) {
	ext, ct, err := ValidateImage("Photo.PNG", 1024)
	require.NoError(t, err)
	assert.Equal(t, ".png", ext)
	assert.Equal(t, "image/png", ct)

	_, _, err = ValidateImage("doc.pdf", 10)
	assert.Error(t, err)

	_, _, err = ValidateImage("big.jpg", MaxImageSize+1)
	assert.Error(t, err)
}

func TestRateLimiter(t *testing.T) {
	limiter, err := NewRateLimiter(1, 2, 16)
	require.NoError(t, err)

	assert.True(t, limiter.Allow("user:1"))
	assert.True(t, limiter.Allow("user:1"))
	assert.False(t, limiter.Allow("user:1"))
	assert.True(t, limiter.Allow("user:2"))

	handler := limiter.Limit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), Principal{UserID: 1}))
	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
