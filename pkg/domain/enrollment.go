package domain

import (
	"time"

	"github.com/google/uuid"
)

// EnrollmentStatus represents the state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentStatusPending   EnrollmentStatus = "pending"
	EnrollmentStatusConfirmed EnrollmentStatus = "confirmed"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusDropped   EnrollmentStatus = "dropped"
)

// Enrollment represents a student's enrollment in a course.
// (user_id, course_id) is unique.
type Enrollment struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	UserID      uuid.UUID
	CourseID    uuid.UUID
	Status      EnrollmentStatus
	Progress    int // 0-100
	EnrolledAt  time.Time
	ConfirmedAt *time.Time
	UpdatedAt   time.Time
}

// CanView implements the enrollment access rule: admins always may,
// a student may view their own enrollment, an instructor may view
// enrollments of courses they teach.
func (e *Enrollment) CanView(user *User, courseInstructorID uuid.UUID) bool {
	switch user.Role {
	case RoleAdmin, RoleSuperadmin:
		return true
	case RoleStudent:
		return e.UserID == user.ID
	case RoleInstructor:
		return courseInstructorID == user.ID
	}
	return false
}
