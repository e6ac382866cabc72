package services

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrStore           = errors.New("store failure")
)
