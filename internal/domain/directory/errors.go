package directory

import "errors"

var (
	ErrPatientNotFound  = errors.New("patient not found")
	ErrProviderNotFound = errors.New("provider not found")
	ErrLocationNotFound = errors.New("location not found")
	ErrServiceNotFound  = errors.New("service not found")
)
