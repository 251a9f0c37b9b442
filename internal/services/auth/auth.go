// Package auth содержит логику регистрации, входа и проверки учётных данных.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/subscription-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-manager/internal/lib/clock"
	"github.com/magabrotheeeer/subscription-manager/internal/lib/jwt"
	"github.com/magabrotheeeer/subscription-manager/internal/lib/password"
	"github.com/magabrotheeeer/subscription-manager/internal/models"
	"github.com/magabrotheeeer/subscription-manager/internal/storage"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgPasswordTooLong    = "Password must not exceed 72 bytes"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает его ID.
	CreateUser(ctx context.Context, user models.User) (int64, error)
	// GetUserByUsername возвращает пользователя по имени или storage.ErrUserNotFound.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// UserTaken сообщает, заняты ли имя пользователя и email.
	UserTaken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error)
	// SetUserRole меняет роль пользователя.
	SetUserRole(ctx context.Context, userID int64, role string) error
}

// Service отвечает за регистрацию, авторизацию и валидацию JWT.
type Service struct {
	users    UserRepository
	jwtMaker jwt.Maker
	clock    clock.Clock
	log      *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(users UserRepository, jwtMaker jwt.Maker, clk clock.Clock, log *slog.Logger) *Service {
	return &Service{
		users:    users,
		jwtMaker: jwtMaker,
		clock:    clk,
		log:      log,
	}
}

// Register создает пользователя с ролью user. Занятость имени проверяется раньше email.
func (s *Service) Register(ctx context.Context, username, rawPassword, email string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || rawPassword == "" || email == "" {
		return apperr.BadRequest("Username, password, and email are required")
	}

	usernameTaken, emailTaken, err := s.users.UserTaken(ctx, username, email)
	if err != nil {
		return apperr.Internal(err)
	}
	if usernameTaken {
		return apperr.Conflict("Username already exists")
	}
	if emailTaken {
		return apperr.Conflict("Email already exists")
	}

	hashed, err := password.GetHash(rawPassword)
	if errors.Is(err, password.ErrTooLong) {
		return apperr.Wrap(err, apperr.KindBadRequest, msgPasswordTooLong)
	}
	if err != nil {
		return apperr.Internal(err)
	}
	id, err := s.users.CreateUser(ctx, models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		Role:         models.RoleUser,
		CreatedAt:    s.clock.Now(),
	})
	if err != nil {
		return registrationError(err)
	}
	s.log.Info("user registered", slog.Int64("id", id), slog.String("username", username))
	return nil
}

// Login проверяет пароль и выдаёт токен доступа.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (string, error) {
	if username == "" || rawPassword == "" {
		return "", apperr.BadRequest("Username and password are required")
	}
	user, err := s.authenticate(ctx, username, rawPassword)
	if err != nil {
		return "", err
	}
	token, err := s.jwtMaker.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return token, nil
}

// Verify проверяет пару логин/пароль (HTTP Basic) и возвращает субъект запроса.
func (s *Service) Verify(ctx context.Context, username, rawPassword string) (models.Identity, error) {
	user, err := s.authenticate(ctx, username, rawPassword)
	if err != nil {
		return models.Identity{}, err
	}
	return user.Identity(), nil
}

// ValidateToken проверяет JWT и возвращает субъект запроса. Срок действия
// проверяется здесь, а не при выдаче.
func (s *Service) ValidateToken(_ context.Context, token string) (models.Identity, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return models.Identity{}, apperr.Wrap(err, apperr.KindUnauthorized, msgInvalidCredentials)
	}
	return models.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

// EnsureAdmin создаёт учётную запись администратора или выдаёт роль admin
// существующему пользователю с этим именем. Пароль существующего пользователя не меняется.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, rawPassword string) error {
	existing, err := s.users.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.Role == models.RoleAdmin {
			return nil
		}
		if err := s.users.SetUserRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return err
		}
		s.log.Info("admin role granted", slog.String("username", username))
		return nil
	case !errors.Is(err, storage.ErrUserNotFound):
		return err
	}

	if email == "" || rawPassword == "" {
		return apperr.BadRequest("admin email and password are required to create the admin account")
	}
	hashed, err := password.GetHash(rawPassword)
	if errors.Is(err, password.ErrTooLong) {
		return apperr.Wrap(err, apperr.KindBadRequest, msgPasswordTooLong)
	}
	if err != nil {
		return err
	}
	if _, err := s.users.CreateUser(ctx, models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		Role:         models.RoleAdmin,
		CreatedAt:    s.clock.Now(),
	}); err != nil {
		return err
	}
	s.log.Info("admin account created", slog.String("username", username))
	return nil
}

func (s *Service) authenticate(ctx context.Context, username, rawPassword string) (*models.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apperr.Wrap(err, apperr.KindUnauthorized, msgInvalidCredentials)
		}
		return nil, apperr.Internal(err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return nil, apperr.Wrap(err, apperr.KindUnauthorized, msgInvalidCredentials)
	}
	return user, nil
}

// registrationError переводит нарушение уникальности, пойманное хранилищем
// при гонке двух регистраций, в те же ответы, что и предварительная проверка.
func registrationError(err error) error {
	switch {
	case errors.Is(err, storage.ErrUsernameExists):
		return apperr.Wrap(err, apperr.KindConflict, "Username already exists")
	case errors.Is(err, storage.ErrEmailExists):
		return apperr.Wrap(err, apperr.KindConflict, "Email already exists")
	default:
		return apperr.Internal(err)
	}
}
