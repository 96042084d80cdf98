package user

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/KAsare1/socialfeed-server/cmd/models"
	"github.com/KAsare1/socialfeed-server/cmd/utils"
	"github.com/KAsare1/socialfeed-server/db"
	"github.com/KAsare1/socialfeed-server/service/media"
	"golang.org/x/crypto/bcrypt"
)

const (
	resetCodeTTL = 15 * time.Minute

	msgInvalidCredentials = "Invalid credentials"
	msgEmailTaken         = "Email already registered"
	msgInvalidRefresh     = "Invalid refresh token"
	msgExpiredRefresh     = "Refresh token expired"
	msgInvalidResetCode   = "Invalid or expired reset code"
	msgUserNotFound       = "User not found"
)

type SignupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"display_name" validate:"max=100"`
	FirstName   string `json:"first_name" validate:"max=100"`
	LastName    string `json:"last_name" validate:"max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// ProfileUpdate holds the fields a user may change. Nil fields are left
// untouched.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=100"`
	FirstName   *string `json:"first_name" validate:"omitempty,max=100"`
	LastName    *string `json:"last_name" validate:"omitempty,max=100"`
	Bio         *string `json:"bio" validate:"omitempty,max=1000"`
	Location    *string `json:"location" validate:"omitempty,max=255"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,url,max=1024"`
	BirthDate   *string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Gender      *string `json:"gender" validate:"omitempty,oneof=male female other prefer_not_to_say"`
}

type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type Session struct {
	User   *models.User `json:"user"`
	Tokens Tokens       `json:"tokens"`
}

type Service struct {
	store      db.Store
	blobs      media.Store
	auth       *utils.Authenticator
	mailer     Mailer
	secret     []byte
	refreshTTL time.Duration
	now        func() time.Time
	logger     *log.Logger
}

func NewService(store db.Store, blobs media.Store, auth *utils.Authenticator, mailer Mailer, secret string, refreshTTL time.Duration) *Service {
	logger := log.New(os.Stdout, "User: ", log.LstdFlags|log.Lshortfile)
	if mailer == nil {
		mailer = LogMailer{Logger: logger}
	}
	return &Service{
		store:      store,
		blobs:      blobs,
		auth:       auth,
		mailer:     mailer,
		secret:     []byte(secret),
		refreshTTL: refreshTTL,
		now:        time.Now,
		logger:     logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) newTokens(userID uint) (Tokens, error) {
	access, expiresAt, err := s.auth.GenerateAccessToken(userID)
	if err != nil {
		return Tokens{}, utils.Internal(fmt.Errorf("sign access token: %w", err))
	}
	refresh, err := newRefreshToken(s.secret, userID)
	if err != nil {
		return Tokens{}, utils.Internal(fmt.Errorf("generate refresh token: %w", err))
	}
	return Tokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}

// issueTokens signs an access token and stores a fresh refresh token,
// replacing whatever the user held before.
func (s *Service) issueTokens(ctx context.Context, store db.Store, user *models.User) (Tokens, error) {
	tokens, err := s.newTokens(user.ID)
	if err != nil {
		return Tokens{}, err
	}

	user.RefreshToken = tokens.RefreshToken
	user.RefreshTokenExpiredAt = s.now().Add(s.refreshTTL)
	if err := store.UpdateUser(ctx, user); err != nil {
		return Tokens{}, err
	}
	return tokens, nil
}

func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Session, error) {
	req.Email = normalizeEmail(req.Email)
	if err := utils.Validate(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, utils.Internal(fmt.Errorf("hash password: %w", err))
	}

	user := &models.User{
		Email:        req.Email,
		DisplayName:  utils.SanitizeText(req.DisplayName),
		PasswordHash: string(hash),
		Profile: &models.Profile{
			FirstName: utils.SanitizeText(req.FirstName),
			LastName:  utils.SanitizeText(req.LastName),
		},
	}

	var tokens Tokens
	err = s.store.Tx(ctx, func(tx db.Store) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				return utils.Conflict(msgEmailTaken)
			}
			return err
		}
		tokens, err = s.issueTokens(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Printf("user %d signed up", user.ID)
	return &Session{User: user, Tokens: tokens}, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	if err := utils.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, utils.Unauthorized(msgInvalidCredentials)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, utils.Unauthorized(msgInvalidCredentials)
	}

	tokens, err := s.issueTokens(ctx, s.store, user)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// invalidated, and only one caller can redeem it.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	user, err := s.store.GetUserByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return Tokens{}, utils.Unauthorized(msgInvalidRefresh)
		}
		return Tokens{}, err
	}
	if user.RefreshTokenExpiredAt.Before(s.now()) {
		return Tokens{}, utils.Unauthorized(msgExpiredRefresh)
	}

	tokens, err := s.newTokens(user.ID)
	if err != nil {
		return Tokens{}, err
	}
	swapped, err := s.store.SwapRefreshToken(ctx, user.ID, refreshToken, tokens.RefreshToken, s.now().Add(s.refreshTTL))
	if err != nil {
		return Tokens{}, err
	}
	if swapped == 0 {
		return Tokens{}, utils.Unauthorized(msgInvalidRefresh)
	}
	return tokens, nil
}

// ForgotPassword mails a reset code when the address belongs to an account.
// Callers get the same outcome either way.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		return err
	}

	code, err := newResetCode()
	if err != nil {
		return utils.Internal(fmt.Errorf("generate reset code: %w", err))
	}
	user.ResetCode = code
	user.ResetExpiry = s.now().Add(resetCodeTTL)
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return err
	}

	body := fmt.Sprintf("Your password reset code is: %s. It expires in %d minutes. Ignore this email if you did not request a reset.",
		code, int(resetCodeTTL.Minutes()))
	if err := s.mailer.Send(user.Email, "Password Reset Code", body); err != nil {
		s.logger.Printf("failed to send reset code to user %d: %v", user.ID, err)
	}
	return nil
}

// ResetPassword sets a new password and drops the current refresh token.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := utils.Validate(req); err != nil {
		return err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return utils.BadRequest(msgInvalidResetCode)
		}
		return err
	}
	if user.ResetCode == "" || user.ResetCode != req.Code || user.ResetExpiry.Before(s.now()) {
		return utils.BadRequest(msgInvalidResetCode)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return utils.Internal(fmt.Errorf("hash password: %w", err))
	}
	user.PasswordHash = string(hash)
	user.ResetCode = ""
	user.ResetExpiry = time.Time{}
	user.RefreshToken = ""
	user.RefreshTokenExpiredAt = time.Time{}
	return s.store.UpdateUser(ctx, user)
}

func (s *Service) Me(ctx context.Context, p utils.Principal) (*models.User, error) {
	return s.GetUser(ctx, p.UserID)
}

func (s *Service) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, utils.NotFound(msgUserNotFound)
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile applies the set fields, creating the profile row on first
// write.
func (s *Service) UpdateProfile(ctx context.Context, p utils.Principal, in ProfileUpdate) (*models.User, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	var birthDate *time.Time
	if in.BirthDate != nil && *in.BirthDate != "" {
		t, err := time.Parse("2006-01-02", *in.BirthDate)
		if err != nil {
			return nil, utils.BadRequest("birth_date must be YYYY-MM-DD")
		}
		birthDate = &t
	}

	err := s.store.Tx(ctx, func(tx db.Store) error {
		user, err := tx.GetUser(ctx, p.UserID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return utils.NotFound(msgUserNotFound)
			}
			return err
		}

		if in.DisplayName != nil {
			user.DisplayName = utils.SanitizeText(*in.DisplayName)
			if err := tx.UpdateUser(ctx, user); err != nil {
				return err
			}
		}

		profile, err := tx.GetProfile(ctx, p.UserID)
		if errors.Is(err, db.ErrNotFound) {
			profile = &models.Profile{UserID: p.UserID}
		} else if err != nil {
			return err
		}

		setText(&profile.FirstName, in.FirstName)
		setText(&profile.LastName, in.LastName)
		setText(&profile.Bio, in.Bio)
		setText(&profile.Location, in.Location)
		if in.AvatarURL != nil {
			profile.AvatarURL = strings.TrimSpace(*in.AvatarURL)
		}
		if in.BirthDate != nil {
			profile.BirthDate = birthDate
		}
		if in.Gender != nil {
			profile.Gender = models.Gender(*in.Gender)
		}
		return tx.SaveProfile(ctx, profile)
	})
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, p.UserID)
}

func setText(dst *string, v *string) {
	if v != nil {
		*dst = utils.SanitizeText(*v)
	}
}

// DeleteAccount removes the user and everything they own. Counters on
// other users' posts that the account had liked, shared or commented on
// are recomputed from the surviving rows.
func (s *Service) DeleteAccount(ctx context.Context, p utils.Principal) error {
	var keys []string
	err := s.store.Tx(ctx, func(tx db.Store) error {
		authorID := p.UserID
		posts, _, err := tx.ListPosts(ctx, db.PostQuery{AuthorID: &authorID})
		if err != nil {
			return err
		}
		own := make(map[uint]bool, len(posts))
		for _, post := range posts {
			own[post.ID] = true
			for _, img := range post.Images {
				keys = append(keys, img.Path)
			}
		}

		touched, err := tx.PostsTouchedBy(ctx, p.UserID)
		if err != nil {
			return err
		}

		if err := tx.DeleteUser(ctx, p.UserID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return utils.NotFound(msgUserNotFound)
			}
			return err
		}

		var others []uint
		for _, id := range touched {
			if !own[id] {
				others = append(others, id)
			}
		}
		return tx.RecountPostCounters(ctx, others)
	})
	if err != nil {
		return err
	}

	if len(keys) > 0 && s.blobs != nil {
		if err := s.blobs.Remove(context.Background(), keys...); err != nil {
			s.logger.Printf("failed to remove blobs of deleted user %d: %v", p.UserID, err)
		}
	}
	s.logger.Printf("user %d deleted their account", p.UserID)
	return nil
}
