package service

import (
	"errors"

	"github.com/Frankie2101/GSM-sub000/internal/erp/repository"
)

// Error taxonomy shared by all ERP services. Callers match with errors.Is.
var (
	ErrNotFound     = repository.ErrNotFound
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnavailable  = errors.New("service unavailable")
)
