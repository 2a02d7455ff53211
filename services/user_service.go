package services

import (
	"context"
	"errors"
	"io"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"fitquest-api/models"
	"fitquest-api/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrStorageDisabled    = errors.New("photo storage is not configured")
)

const minPasswordLength = 8

// TokenIssuer signs session tokens for logged-in users.
type TokenIssuer interface {
	Issue(userID, email string) (token string, expiresAt time.Time, err error)
}

// PhotoStore uploads user photos and returns their public URL.
type PhotoStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

type UserService struct {
	Store  store.Store
	Tokens TokenIssuer
	Photos PhotoStore // nil when storage is not configured
	Logger *zap.Logger
	Now    func() time.Time
}

func NewUserService(st store.Store, tokens TokenIssuer, photos PhotoStore, logger *zap.Logger) *UserService {
	return &UserService{Store: st, Tokens: tokens, Photos: photos, Logger: logger.Named("users"), Now: time.Now}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserPatch struct {
	Email     string  `json:"email"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

type LoginResult struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type ProgressPoint struct {
	Date        string `json:"date"`
	XP          int64  `json:"xp"`
	Completions int    `json:"completions"`
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email", "is not a valid address")
	}
	return email, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.Store.ListUsers(ctx)
	if err != nil {
		return nil, storeErr("list users", "user", "", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	u, err := s.Store.GetUser(ctx, id)
	if err != nil {
		return nil, storeErr("get user", "user", id, err)
	}
	return u, nil
}

func (s *UserService) GetByEmail(ctx context.Context, rawEmail string) (*models.User, error) {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	u, err := s.Store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, storeErr("get user", "user", email, err)
	}
	return u, nil
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalid("password", "must be at least %d characters", minPasswordLength)
	}

	if _, err := s.Store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, storeErr("get user", "user", email, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &PersistenceError{Op: "hash password", Err: err}
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Level:        1,
		XP:           models.XPProgress{Current: 0, Max: models.DefaultXPMax},
	}
	if err := s.Store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, storeErr("create user", "user", u.ID, err)
	}
	s.Logger.Info("user registered", zap.String("user_id", u.ID))
	return u, nil
}

// UpdateByEmail patches the profile fields of the user owning patch.Email.
func (s *UserService) UpdateByEmail(ctx context.Context, patch UserPatch) (*models.User, error) {
	email, err := normalizeEmail(patch.Email)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, invalid("name", "must not be empty")
	}

	var updated *models.User
	err = s.Store.Transaction(ctx, func(tx store.Store) error {
		found, err := tx.GetUserByEmail(ctx, email)
		if err != nil {
			return storeErr("get user", "user", email, err)
		}
		u, err := tx.LockUser(ctx, found.ID)
		if err != nil {
			return storeErr("load user", "user", found.ID, err)
		}
		if patch.Name != nil {
			u.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.AvatarURL != nil {
			u.AvatarURL = strings.TrimSpace(*patch.AvatarURL)
		}
		if err := tx.SaveUser(ctx, u); err != nil {
			return storeErr("save user", "user", u.ID, err)
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Login checks the password, touches last_login and issues a token.
func (s *UserService) Login(ctx context.Context, rawEmail, password string) (*LoginResult, error) {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, invalid("password", "is required")
	}

	found, err := s.Store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storeErr("get user", "user", email, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	var u *models.User
	err = s.Store.Transaction(ctx, func(tx store.Store) error {
		locked, err := tx.LockUser(ctx, found.ID)
		if err != nil {
			return storeErr("load user", "user", found.ID, err)
		}
		now := s.Now()
		locked.LastLogin = &now
		if err := tx.SaveUser(ctx, locked); err != nil {
			return storeErr("save user", "user", found.ID, err)
		}
		u = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.Tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, &PersistenceError{Op: "issue token", Err: err}
	}
	s.Logger.Info("user logged in", zap.String("user_id", u.ID))
	return &LoginResult{User: u, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *UserService) CompletedMissions(ctx context.Context, userID string) ([]models.CompletedMission, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	out, err := s.Store.ListCompletedMissions(ctx, userID, time.Time{})
	if err != nil {
		return nil, storeErr("list completed missions", "user", userID, err)
	}
	return out, nil
}

// ProgressChart buckets the completion ledger into one point per day for
// the last `days` days, oldest first, including empty days.
func (s *UserService) ProgressChart(ctx context.Context, userID string, days int) ([]ProgressPoint, error) {
	if days < 1 || days > 365 {
		return nil, invalid("days", "must be between 1 and 365")
	}
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	first := dayStart(s.Now()).AddDate(0, 0, -(days - 1))
	ledger, err := s.Store.ListCompletedMissions(ctx, userID, first)
	if err != nil {
		return nil, storeErr("list completed missions", "user", userID, err)
	}

	points := make([]ProgressPoint, days)
	index := make(map[string]int, days)
	for i := range points {
		d := first.AddDate(0, 0, i).Format(time.DateOnly)
		points[i].Date = d
		index[d] = i
	}
	for _, cm := range ledger {
		i, ok := index[cm.CompletedAt.In(first.Location()).Format(time.DateOnly)]
		if !ok {
			continue
		}
		points[i].XP += cm.XP
		points[i].Completions++
	}
	return points, nil
}

// UploadAvatar stores a profile photo and points the user at it.
func (s *UserService) UploadAvatar(ctx context.Context, userID, filename, contentType string, body io.Reader) (*models.User, error) {
	if s.Photos == nil {
		return nil, ErrStorageDisabled
	}
	if err := requireID("id", userID); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, invalid("photo", "must be an image")
	}
	if _, err := s.Store.GetUser(ctx, userID); err != nil {
		return nil, storeErr("get user", "user", userID, err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	key := "avatars/" + userID + "/" + uuid.NewString() + ext
	url, err := s.Photos.Upload(ctx, key, contentType, body)
	if err != nil {
		return nil, &PersistenceError{Op: "upload avatar", Err: err}
	}

	var updated *models.User
	err = s.Store.Transaction(ctx, func(tx store.Store) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return storeErr("load user", "user", userID, err)
		}
		u.AvatarURL = url
		if err := tx.SaveUser(ctx, u); err != nil {
			return storeErr("save user", "user", userID, err)
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
