package user

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/KAsare1/socialfeed-server/cmd/models"
	"github.com/KAsare1/socialfeed-server/cmd/utils"
	"github.com/KAsare1/socialfeed-server/db"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outbox struct {
	mu   sync.Mutex
	sent []string
}

func (o *outbox) Send(to, subject, body string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, body)
	return nil
}

func (o *outbox) last() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sent) == 0 {
		return ""
	}
	return o.sent[len(o.sent)-1]
}

func newTestService(t *testing.T) (*Service, *db.MemoryStore, *outbox) {
	t.Helper()
	store := db.NewMemoryStore()
	mail := &outbox{}
	auth := utils.NewAuthenticator("test-secret", time.Hour)
	return NewService(store, nil, auth, mail, "test-secret", 24*time.Hour), store, mail
}

func apiStatus(t *testing.T, err error) (int, string) {
	t.Helper()
	var apiErr *utils.APIError
	require.ErrorAs(t, err, &apiErr)
	return apiErr.Status, apiErr.Message
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	session, err := svc.Signup(ctx, SignupRequest{Email: " Alice@Example.com ", Password: "password123", FirstName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", session.User.Email)
	assert.NotEmpty(t, session.Tokens.AccessToken)
	assert.NotEmpty(t, session.Tokens.RefreshToken)
	require.NotNil(t, session.User.Profile)
	assert.Equal(t, "Alice", session.User.Profile.FirstName)

	_, err = svc.Signup(ctx, SignupRequest{Email: "alice@example.com", Password: "password123"})
	status, msg := apiStatus(t, err)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, msgEmailTaken, msg)

	_, err = svc.Signup(ctx, SignupRequest{Email: "bob@example.com", Password: "short"})
	status, _ = apiStatus(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	_, err = svc.Signup(ctx, SignupRequest{Email: "not-an-email", Password: "password123"})
	status, _ = apiStatus(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	login, err := svc.Login(ctx, LoginRequest{Email: "ALICE@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, login.User.ID)
	assert.NotEqual(t, session.Tokens.RefreshToken, login.Tokens.RefreshToken)

	_, err = svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "wrong-password"})
	status, msg = apiStatus(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, msgInvalidCredentials, msg)

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "password123"})
	status, _ = apiStatus(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRefreshRotates(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	session, err := svc.Signup(ctx, SignupRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	tokens, err := svc.Refresh(ctx, session.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.Tokens.RefreshToken, tokens.RefreshToken)

	_, err = svc.Refresh(ctx, session.Tokens.RefreshToken)
	status, msg := apiStatus(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, msgInvalidRefresh, msg)

	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, err = svc.Refresh(ctx, tokens.RefreshToken)
	status, msg = apiStatus(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, msgExpiredRefresh, msg)
}

func TestConcurrentRefreshIssuesOnePair(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	session, err := svc.Signup(ctx, SignupRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []Tokens
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens, err := svc.Refresh(ctx, session.Tokens.RefreshToken)
			if err != nil {
				var apiErr *utils.APIError
				if assert.ErrorAs(t, err, &apiErr) {
					assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
				}
				return
			}
			mu.Lock()
			succeeded = append(succeeded, tokens)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, succeeded, 1)
	_, err = svc.Refresh(ctx, succeeded[0].RefreshToken)
	assert.NoError(t, err)
}

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	svc, _, mail := newTestService(t)

	_, err := svc.Signup(ctx, SignupRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(ctx, "nobody@example.com"))
	assert.Empty(t, mail.last())

	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))
	match := codePattern.FindStringSubmatch(mail.last())
	require.Len(t, match, 2)
	code := match[1]

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	err = svc.ResetPassword(ctx, ResetPasswordRequest{Email: "alice@example.com", Code: wrong, NewPassword: "new-password"})
	status, msg := apiStatus(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, msgInvalidResetCode, msg)

	require.NoError(t, svc.ResetPassword(ctx, ResetPasswordRequest{Email: "alice@example.com", Code: code, NewPassword: "new-password"}))

	_, err = svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "password123"})
	assert.Error(t, err)
	_, err = svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "new-password"})
	assert.NoError(t, err)

	err = svc.ResetPassword(ctx, ResetPasswordRequest{Email: "alice@example.com", Code: code, NewPassword: "another-one"})
	status, _ = apiStatus(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPasswordResetExpires(t *testing.T) {
	ctx := context.Background()
	svc, _, mail := newTestService(t)

	_, err := svc.Signup(ctx, SignupRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))
	code := codePattern.FindStringSubmatch(mail.last())[1]

	svc.now = func() time.Time { return time.Now().Add(resetCodeTTL + time.Minute) }
	err = svc.ResetPassword(ctx, ResetPasswordRequest{Email: "alice@example.com", Code: code, NewPassword: "new-password"})
	status, _ := apiStatus(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)

	bare := &models.User{Email: "bare@example.com", PasswordHash: "x"}
	require.NoError(t, store.CreateUser(ctx, bare))
	p := utils.Principal{UserID: bare.ID}

	bio := "<b>hi</b> there"
	gender := "female"
	birth := "1990-04-02"
	user, err := svc.UpdateProfile(ctx, p, ProfileUpdate{Bio: &bio, Gender: &gender, BirthDate: &birth})
	require.NoError(t, err)
	require.NotNil(t, user.Profile)
	assert.Equal(t, "hi there", user.Profile.Bio)
	assert.Equal(t, models.GenderFemale, user.Profile.Gender)
	require.NotNil(t, user.Profile.BirthDate)
	assert.Equal(t, 1990, user.Profile.BirthDate.Year())

	location := "Accra"
	user, err = svc.UpdateProfile(ctx, p, ProfileUpdate{Location: &location})
	require.NoError(t, err)
	assert.Equal(t, "Accra", user.Profile.Location)
	assert.Equal(t, "hi there", user.Profile.Bio)

	invalid := "robot"
	_, err = svc.UpdateProfile(ctx, p, ProfileUpdate{Gender: &invalid})
	status, _ := apiStatus(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	_, err = svc.GetUser(ctx, 999)
	status, msg := apiStatus(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, msgUserNotFound, msg)
}

func TestDeleteAccountRecountsOtherPosts(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)

	alice, err := svc.Signup(ctx, SignupRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	bob, err := svc.Signup(ctx, SignupRequest{Email: "bob@example.com", Password: "password123"})
	require.NoError(t, err)

	bobPost := &models.Post{UserID: bob.User.ID, Content: "bob's"}
	require.NoError(t, store.CreatePost(ctx, bobPost))
	alicePost := &models.Post{UserID: alice.User.ID, Content: "alice's"}
	require.NoError(t, store.CreatePost(ctx, alicePost))

	require.NoError(t, store.CreateLike(ctx, &models.PostLike{PostID: bobPost.ID, UserID: alice.User.ID}))
	require.NoError(t, store.AdjustPostCounter(ctx, bobPost.ID, db.LikesCount, 1))
	require.NoError(t, store.CreateShare(ctx, &models.PostShare{PostID: bobPost.ID, UserID: alice.User.ID}))
	require.NoError(t, store.AdjustPostCounter(ctx, bobPost.ID, db.SharesCount, 1))
	require.NoError(t, store.CreateComment(ctx, &models.PostComment{PostID: bobPost.ID, UserID: alice.User.ID, Content: "nice"}))
	require.NoError(t, store.AdjustPostCounter(ctx, bobPost.ID, db.CommentsCount, 1))

	require.NoError(t, svc.DeleteAccount(ctx, utils.Principal{UserID: alice.User.ID}))

	_, err = store.GetUser(ctx, alice.User.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = store.GetPost(ctx, alicePost.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)

	got, err := store.GetPost(ctx, bobPost.ID)
	require.NoError(t, err)
	assert.Zero(t, got.LikesCount)
	assert.Zero(t, got.SharesCount)
	assert.Zero(t, got.CommentsCount)
}

func TestUserRoutes(t *testing.T) {
	svc, _, _ := newTestService(t)
	router := mux.NewRouter()
	NewHandler(svc, svc.auth, nil).RegisterRoutes(router.PathPrefix("/api").Subrouter())

	call := func(method, path, token string, body interface{}) (int, map[string]interface{}) {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
		return rec.Code, out
	}

	code, body := call(http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "alice@example.com", "password": "password123"})
	require.Equal(t, http.StatusCreated, code)
	token := body["access_token"].(string)
	refresh := body["refresh_token"].(string)
	user := body["user"].(map[string]interface{})
	assert.NotContains(t, user, "password_hash")
	id := user["id"]

	code, body = call(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice@example.com", body["user"].(map[string]interface{})["email"])

	code, _ = call(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = call(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, code)
	assert.NotEqual(t, refresh, body["refresh_token"])

	code, _ = call(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = call(http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])

	code, body = call(http.MethodPut, "/api/profile/me", token, map[string]string{"bio": "hello"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hello", body["user"].(map[string]interface{})["profile"].(map[string]interface{})["bio"])

	code, _ = call(http.MethodGet, fmt.Sprintf("/api/profile/%v", id), token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, body = call(http.MethodGet, "/api/profile/999", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "User not found", body["message"])

	code, _ = call(http.MethodDelete, "/api/users/me", token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = call(http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}
