package service

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrInvalidRoomCode = errors.New("room code must be 6-8 alphanumeric characters")
	ErrInternalServer  = errors.New("internal server error")
)
