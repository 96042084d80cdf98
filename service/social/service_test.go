package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/KAsare1/socialfeed-server/cmd/models"
	"github.com/KAsare1/socialfeed-server/cmd/utils"
	"github.com/KAsare1/socialfeed-server/db"
	"github.com/KAsare1/socialfeed-server/service/realtime"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	mu     sync.Mutex
	events []realtime.Event
	to     []uint
}

func (c *capture) Notify(userID uint, e realtime.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.to = append(c.to, userID)
	c.events = append(c.events, e)
}

func newUser(t *testing.T, s db.Store, email string) utils.Principal {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "x", Profile: &models.Profile{FirstName: email}}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return utils.Principal{UserID: u.ID}
}

func statusOf(t *testing.T, err error) (int, string) {
	t.Helper()
	var apiErr *utils.APIError
	require.ErrorAs(t, err, &apiErr)
	return apiErr.Status, apiErr.Message
}

func TestFollowRules(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	notes := &capture{}
	svc := NewService(store, notes)
	alice := newUser(t, store, "alice@example.com")
	bob := newUser(t, store, "bob@example.com")

	status, msg := statusOf(t, svc.Follow(ctx, alice, alice.UserID))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "You cannot follow yourself", msg)

	status, msg = statusOf(t, svc.Follow(ctx, alice, 999))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found", msg)

	require.NoError(t, svc.Follow(ctx, alice, bob.UserID))
	require.Len(t, notes.events, 1)
	assert.Equal(t, bob.UserID, notes.to[0])
	assert.Equal(t, realtime.EventFollow, notes.events[0].Type)
	assert.Equal(t, alice.UserID, notes.events[0].ActorID)

	status, msg = statusOf(t, svc.Follow(ctx, alice, bob.UserID))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Already following this user", msg)

	following, err := svc.FollowStatus(ctx, alice, bob.UserID)
	require.NoError(t, err)
	assert.True(t, following)
	following, err = svc.FollowStatus(ctx, bob, alice.UserID)
	require.NoError(t, err)
	assert.False(t, following)

	require.NoError(t, svc.Unfollow(ctx, alice, bob.UserID))
	status, msg = statusOf(t, svc.Unfollow(ctx, alice, bob.UserID))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Not following this user", msg)
}

func TestFollowListsAndStats(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	svc := NewService(store, nil)
	alice := newUser(t, store, "alice@example.com")
	bob := newUser(t, store, "bob@example.com")
	carol := newUser(t, store, "carol@example.com")

	require.NoError(t, svc.Follow(ctx, bob, alice.UserID))
	require.NoError(t, svc.Follow(ctx, carol, alice.UserID))
	require.NoError(t, svc.Follow(ctx, alice, carol.UserID))

	followers, err := svc.Followers(ctx, alice.UserID, utils.Pagination{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, followers.Total)
	assert.True(t, followers.HasMore)
	require.Len(t, followers.Items, 1)

	following, err := svc.Following(ctx, alice.UserID, utils.Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, following.Items, 1)
	assert.Equal(t, carol.UserID, following.Items[0].ID)

	stats, err := svc.FollowStats(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.FollowStats{Followers: 2, Following: 1}, stats)

	_, err = svc.FollowStats(ctx, 999)
	status, _ := statusOf(t, err)
	assert.Equal(t, http.StatusNotFound, status)

	_, err = svc.Followers(ctx, 999, utils.Pagination{Page: 1, Limit: 10})
	status, _ = statusOf(t, err)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFollowRoutes(t *testing.T) {
	store := db.NewMemoryStore()
	svc := NewService(store, nil)
	alice := newUser(t, store, "alice@example.com")
	bob := newUser(t, store, "bob@example.com")

	auth := utils.NewAuthenticator("test-secret", time.Hour)
	router := mux.NewRouter()
	NewFollowHandler(svc, auth, nil).RegisterRoutes(router.PathPrefix("/api").Subrouter())
	token, _, err := auth.GenerateAccessToken(alice.UserID)
	require.NoError(t, err)

	call := func(method, path string) (int, map[string]interface{}) {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return rec.Code, body
	}

	base := fmt.Sprintf("/api/users/%d", bob.UserID)
	code, _ := call(http.MethodPost, base+"/follow")
	assert.Equal(t, http.StatusCreated, code)

	code, body := call(http.MethodGet, base+"/follow-status")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["isFollowing"])

	code, body = call(http.MethodGet, base+"/follow-stats")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["stats"].(map[string]interface{})["followers"])

	code, body = call(http.MethodGet, base+"/followers")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["followers"], 1)
	assert.Equal(t, false, body["hasMore"])

	code, body = call(http.MethodPost, fmt.Sprintf("/api/users/%d/follow", alice.UserID))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "You cannot follow yourself", body["message"])

	code, _ = call(http.MethodDelete, base+"/follow")
	assert.Equal(t, http.StatusOK, code)
	code, body = call(http.MethodDelete, base+"/follow")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Not following this user", body["message"])
}
