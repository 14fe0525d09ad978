package service

import "errors"

var (
	ErrNotFound               = errors.New("record not found")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrUserDisabled           = errors.New("user disabled")
	ErrEmailTaken             = errors.New("email already taken")
	ErrInvalidEmail           = errors.New("invalid email")
	ErrWeakPassword           = errors.New("password too weak")
	ErrCaptchaRequired        = errors.New("captcha required")
	ErrCaptchaInvalid         = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid   = errors.New("captcha config invalid")
	ErrGoaffproConfigInvalid  = errors.New("goaffpro setting invalid")
	ErrAffiliateSyncDisabled  = errors.New("affiliate sync disabled")
	ErrAffiliateSyncInFlight  = errors.New("affiliate sync already in progress")
	ErrAffiliateAlreadyLinked = errors.New("affiliate already linked")
)
