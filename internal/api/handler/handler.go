package handler

import (
	"gorm.io/gorm"

	"github.com/d60-Lab/profile-service/internal/service"
)

type Handler struct {
	relService  service.RelationshipService
	userService service.UserService
	db          *gorm.DB
}

func New(relService service.RelationshipService, userService service.UserService, db *gorm.DB) *Handler {
	return &Handler{relService: relService, userService: userService, db: db}
}
