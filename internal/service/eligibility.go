package service

import (
	"context"
	"fmt"

	"github.com/stemsi/exammode/internal/model"
)

// EligibilityPolicy decides whether an identity may be enrolled into the
// course that owns an exam session.
type EligibilityPolicy struct {
	courses    CourseLookup
	enrollment EnrollmentService
}

// NewEligibilityPolicy creates a new EligibilityPolicy.
func NewEligibilityPolicy(courses CourseLookup, enrollment EnrollmentService) *EligibilityPolicy {
	return &EligibilityPolicy{courses: courses, enrollment: enrollment}
}

// CanEnroll applies course visibility and the enrollment audience restriction.
func (p *EligibilityPolicy) CanEnroll(ctx context.Context, id model.Identity, session *model.ExamSession) (bool, error) {
	if !id.Authenticated {
		return false, nil
	}

	course, err := p.courses.GetCourse(ctx, session.CourseInstanceID)
	if err != nil {
		return false, fmt.Errorf("get course: %w", err)
	}
	if !course.VisibleToStudents {
		return false, nil
	}

	switch course.EnrollmentAudience {
	case model.AudienceInternalUsers:
		return !id.External, nil
	case model.AudienceExternalUsers:
		return id.External, nil
	default:
		return true, nil
	}
}

// IsAlreadyMember reports whether the identity is enrolled in the session's course.
func (p *EligibilityPolicy) IsAlreadyMember(ctx context.Context, id model.Identity, session *model.ExamSession) (bool, error) {
	if !id.Authenticated {
		return false, nil
	}
	ok, err := p.enrollment.IsEnrolled(ctx, id.UserID, session.CourseInstanceID)
	if err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return ok, nil
}
