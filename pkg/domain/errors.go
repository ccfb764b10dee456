package domain

import "errors"

// Tenant errors
var (
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrTenantSuspended = errors.New("tenant account is suspended")
	ErrTenantRequired  = errors.New("tenant context required")
	ErrSlugTaken       = errors.New("tenant slug already exists")
	ErrInvalidSlug     = errors.New("slug can only contain lowercase letters, numbers, and hyphens")
)

// Authentication errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidToken       = errors.New("invalid token")
)

// Entitlement errors
var (
	ErrStudentLimitReached = errors.New("student limit reached for current plan")
	ErrCourseLimitReached  = errors.New("course limit reached for current plan")
	ErrStorageLimitReached = errors.New("storage limit reached for current plan")
	ErrFeatureNotAvailable = errors.New("feature not available in current plan")
)

// Resource errors
var (
	ErrCourseNotFound     = errors.New("course not found")
	ErrCourseCodeTaken    = errors.New("course code already exists")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrAlreadyEnrolled    = errors.New("user is already enrolled in this course")
	ErrInvoiceNotFound    = errors.New("invoice not found")
)

// Assessment errors
var (
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrAttemptClosed      = errors.New("attempt already submitted")
	ErrNotEnrolled        = errors.New("confirmed enrollment required")
)
