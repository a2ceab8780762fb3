package model

// EnrollmentAudience restricts which accounts may self-enroll into a course.
type EnrollmentAudience string

const (
	AudienceAllUsers      EnrollmentAudience = "ALL_USERS"
	AudienceInternalUsers EnrollmentAudience = "INTERNAL_USERS"
	AudienceExternalUsers EnrollmentAudience = "EXTERNAL_USERS"
)

// CourseInstance is the course offering an exam session belongs to.
type CourseInstance struct {
	ID                 int                `json:"id"`
	Name               string             `json:"name"`
	VisibleToStudents  bool               `json:"visible_to_students"`
	EnrollmentAudience EnrollmentAudience `json:"enrollment_audience"`
}

// CourseModule is a unit of a course; exam modules carry the exam window.
type CourseModule struct {
	ID               int        `json:"id"`
	CourseInstanceID int        `json:"course_instance_id"`
	Name             string     `json:"name"`
	Window           TimeWindow `json:"window"`
}
