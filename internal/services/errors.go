package services

import "errors"

var (
	ErrAlreadyCheckedIn    = errors.New("already checked in today")
	ErrForbidden           = errors.New("forbidden")
	ErrImageNotFound       = errors.New("image not found")
	ErrAlreadyPublic       = errors.New("image already shared")
	ErrUserNotFound        = errors.New("user not found")
	ErrDescriptionRequired = errors.New("description is required")
	ErrSelfDemotion        = errors.New("admins cannot revoke their own admin flag")
)
