package service

import (
	"context"
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/profile-service/internal/cache"
	"github.com/d60-Lab/profile-service/internal/model"
	"github.com/d60-Lab/profile-service/internal/repository"
	"github.com/d60-Lab/profile-service/pkg/logger"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrConflict     = errors.New("username or auth id already in use")
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

type CreateUserInput struct {
	AuthUserID  string `validate:"required,max=64"`
	Username    string `validate:"required"`
	DisplayName string `validate:"max=64"`
	Bio         string `validate:"max=500"`
	AvatarURL   string `validate:"omitempty,url,max=512"`
}

// UpdateUserInput is a partial update; nil fields are left untouched.
type UpdateUserInput struct {
	Username    *string `validate:"omitempty"`
	DisplayName *string `validate:"omitempty,max=64"`
	Bio         *string `validate:"omitempty,max=500"`
	AvatarURL   *string `validate:"omitempty,url,max=512"`
}

// UserPage is one page of profile listings.
type UserPage struct {
	Users      []model.User
	Pagination Pagination
}

type UserService interface {
	Create(ctx context.Context, in CreateUserInput) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	Update(ctx context.Context, id string, in UpdateUserInput) (*model.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, search string, page, limit int) (*UserPage, error)
}

type userService struct {
	repo        repository.UserRepository
	invalidator cache.Invalidator
	validate    *validator.Validate
}

func NewUserService(repo repository.UserRepository, invalidator cache.Invalidator) UserService {
	return &userService{repo: repo, invalidator: invalidator, validate: validator.New()}
}

func (s *userService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if !usernameRe.MatchString(in.Username) {
		return nil, errors.New("username must be 3-32 chars of letters, digits or underscore")
	}
	u := &model.User{
		ID:          uuid.NewString(),
		AuthUserID:  in.AuthUserID,
		Username:    in.Username,
		DisplayName: in.DisplayName,
		Bio:         in.Bio,
		AvatarURL:   in.AvatarURL,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *userService) Update(ctx context.Context, id string, in UpdateUserInput) (*model.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Username != nil && !usernameRe.MatchString(*in.Username) {
		return nil, errors.New("username must be 3-32 chars of letters, digits or underscore")
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Username != nil {
		u.Username = *in.Username
	}
	if in.DisplayName != nil {
		u.DisplayName = *in.DisplayName
	}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}
	if in.AvatarURL != nil {
		u.AvatarURL = *in.AvatarURL
	}
	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, err
	}
	if err := s.invalidator.Invalidate(ctx, cache.ProfileKey(id)); err != nil {
		logger.Warn("cache invalidation failed", zap.String("key", cache.ProfileKey(id)), zap.Error(err))
	}
	return u, nil
}

func (s *userService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	// the user's edges were deleted with him, so his cached pages are stale
	for _, key := range []string{cache.ProfileKey(id), cache.FollowersKey(id), cache.FollowingKey(id)} {
		if err := s.invalidator.Invalidate(ctx, key); err != nil {
			logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

func (s *userService) List(ctx context.Context, search string, page, limit int) (*UserPage, error) {
	page, limit = normalizePage(page, limit)
	offset := (page - 1) * limit
	users, total, err := s.repo.List(ctx, search, offset, limit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return &UserPage{
		Users: users,
		Pagination: Pagination{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasMore: int64(offset+len(users)) < total,
		},
	}, nil
}
