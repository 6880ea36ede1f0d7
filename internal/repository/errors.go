package repository

import "errors"

var (
	// ErrUserNotFound 参与方不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrEdgeNotFound 关注关系不存在
	ErrEdgeNotFound = errors.New("follow relationship does not exist")
	// ErrDuplicate unique constraint violation (username / auth id)
	ErrDuplicate = errors.New("duplicate record")
)
