package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/profile-service/internal/service"
	"github.com/d60-Lab/profile-service/pkg/response"
)

type createUserRequest struct {
	AuthUserID  string `json:"authUserId" binding:"required"`
	Username    string `json:"username" binding:"required"`
	DisplayName string `json:"displayName"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatarUrl"`
}

type updateUserRequest struct {
	Username    *string `json:"username"`
	DisplayName *string `json:"displayName"`
	Bio         *string `json:"bio"`
	AvatarURL   *string `json:"avatarUrl"`
}

// CreateUser creates a profile row.
// @Summary Create profile
// @Tags profiles
// @Accept json
// @Produce json
// @Param request body createUserRequest true "profile"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /users [post]
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.userService.Create(c.Request.Context(), service.CreateUserInput{
		AuthUserID:  req.AuthUserID,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			response.Conflict(c, err.Error())
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	response.Created(c, u)
}

// GetUser fetches one profile.
// @Summary Get profile
// @Tags profiles
// @Produce json
// @Param id path string true "user id"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.userService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, u)
}

// UpdateUser applies a partial profile update.
// @Summary Update profile
// @Tags profiles
// @Accept json
// @Produce json
// @Param id path string true "user id"
// @Param request body updateUserRequest true "fields to update"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /users/{id} [put]
func (h *Handler) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.userService.Update(c.Request.Context(), c.Param("id"), service.UpdateUserInput{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, service.ErrConflict):
			response.Conflict(c, err.Error())
		default:
			response.BadRequest(c, err.Error())
		}
		return
	}
	response.Success(c, u)
}

// DeleteUser removes a profile row.
// @Summary Delete profile
// @Tags profiles
// @Produce json
// @Param id path string true "user id"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.userService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// ListUsers pages profiles, optionally filtered by username prefix.
// @Summary List profiles
// @Tags profiles
// @Produce json
// @Param search query string false "username prefix"
// @Param page query int false "page" default(1)
// @Param limit query int false "page size" default(20)
// @Success 200 {object} response.Response
// @Router /users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	page, limit := pageParams(c)
	res, err := h.userService.List(c.Request.Context(), c.Query("search"), page, limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"users": res.Users, "pagination": res.Pagination})
}
