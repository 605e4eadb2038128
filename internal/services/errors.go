package services

import "errors"

// Sentinel errors. The text doubles as the i18n message code.
var (
	ErrNotFound           = errors.New("not_found")
	ErrCompanyNotFound    = errors.New("company_not_found")
	ErrCompanyCodeTaken   = errors.New("company_code_taken")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrSelfDelete         = errors.New("self_delete")
	ErrSelfRoleChange     = errors.New("self_role_change")
	ErrInvalidCredentials = errors.New("login_invalid")
	ErrInactiveUser       = errors.New("login_inactive")
	ErrHistoryNotFound    = errors.New("history_not_found")
	ErrInvalidLine        = errors.New("invalid line item")
)
