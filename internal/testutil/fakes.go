// Package testutil provides in-memory collaborators for service and handler tests.
package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exammode/internal/model"
	"github.com/stemsi/exammode/internal/repository"
)

// ContentBaseURL is the base used by Content.URLFor.
const ContentBaseURL = "https://lms.test"

// Clock is a settable clock.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// Courses holds course instances and modules.
type Courses struct {
	mu      sync.Mutex
	courses map[int]model.CourseInstance
	modules map[int]model.CourseModule
	Err     error
}

func NewCourses() *Courses {
	return &Courses{courses: map[int]model.CourseInstance{}, modules: map[int]model.CourseModule{}}
}

func (f *Courses) PutCourse(c model.CourseInstance) {
	f.mu.Lock()
	f.courses[c.ID] = c
	f.mu.Unlock()
}

func (f *Courses) PutModule(m model.CourseModule) {
	f.mu.Lock()
	f.modules[m.ID] = m
	f.mu.Unlock()
}

func (f *Courses) GetCourse(_ context.Context, id int) (*model.CourseInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	c, ok := f.courses[id]
	if !ok {
		return nil, repository.ErrCourseNotFound
	}
	return &c, nil
}

func (f *Courses) GetModule(_ context.Context, id int) (*model.CourseModule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.modules[id]
	if !ok {
		return nil, repository.ErrModuleNotFound
	}
	return &m, nil
}

// Enrollment records memberships and counts Enroll calls.
type Enrollment struct {
	mu          sync.Mutex
	members     map[[2]int]bool
	EnrollCalls int
	Err         error
}

func NewEnrollment() *Enrollment { return &Enrollment{members: map[[2]int]bool{}} }

func (f *Enrollment) IsEnrolled(_ context.Context, userID, courseInstanceID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	return f.members[[2]int{userID, courseInstanceID}], nil
}

func (f *Enrollment) Enroll(_ context.Context, userID, courseInstanceID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.EnrollCalls++
	f.members[[2]int{userID, courseInstanceID}] = true
	return nil
}

// Calls returns the number of Enroll calls so far.
func (f *Enrollment) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.EnrollCalls
}

// Content maps module ids to ordered learning objects.
type Content struct {
	mu      sync.Mutex
	objects map[int][]model.ContentRef
}

func NewContent() *Content { return &Content{objects: map[int][]model.ContentRef{}} }

// Add appends a learning object; callers add them in order.
func (f *Content) Add(ref model.ContentRef) {
	f.mu.Lock()
	f.objects[ref.ModuleID] = append(f.objects[ref.ModuleID], ref)
	f.mu.Unlock()
}

func (f *Content) FirstLearningObject(_ context.Context, moduleID int) (*model.ContentRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	objs := f.objects[moduleID]
	if len(objs) == 0 {
		return nil, nil
	}
	ref := objs[0]
	return &ref, nil
}

func (f *Content) URLFor(ref model.ContentRef) string {
	return repository.ExamContentURL(ContentBaseURL, ref)
}

// Sessions stores exam sessions with the (name, room) uniqueness rule.
type Sessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]model.ExamSession
	Err      error
}

func NewSessions() *Sessions { return &Sessions{sessions: map[uuid.UUID]model.ExamSession{}} }

// Put stores s as is, assigning an id when it has none.
func (f *Sessions) Put(s model.ExamSession) model.ExamSession {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	f.mu.Lock()
	f.sessions[s.ID] = s
	f.mu.Unlock()
	return s
}

func (f *Sessions) GetByID(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return &s, nil
}

func (f *Sessions) ListByCourse(_ context.Context, courseInstanceID int) ([]model.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []model.ExamSession
	for _, s := range f.sessions {
		if s.CourseInstanceID == courseInstanceID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *Sessions) Create(_ context.Context, s *model.ExamSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.sessions {
		if existing.Name == s.Name && roomOf(existing.Room) == roomOf(s.Room) {
			return repository.ErrDuplicateSession
		}
	}
	s.ID = uuid.New()
	f.sessions[s.ID] = *s
	return nil
}

func roomOf(r *string) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(*r)
}

// Attempts is an AttemptStore that serializes all writes behind one mutex.
type Attempts struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*model.ExamAttempt
	active   map[int]uuid.UUID
	OpenErr  error
	CloseErr error
}

func NewAttempts() *Attempts {
	return &Attempts{attempts: map[uuid.UUID]*model.ExamAttempt{}, active: map[int]uuid.UUID{}}
}

func (f *Attempts) Open(_ context.Context, a *model.ExamAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OpenErr != nil {
		return f.OpenErr
	}
	if _, ok := f.active[a.StudentID]; ok {
		return repository.ErrActiveAttemptExists
	}
	a.ID = uuid.New()
	a.FinishedAt = nil
	stored := *a
	f.attempts[a.ID] = &stored
	f.active[a.StudentID] = a.ID
	return nil
}

func (f *Attempts) CloseActive(_ context.Context, studentID int, at time.Time) (*model.ExamAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CloseErr != nil {
		return nil, f.CloseErr
	}
	id, ok := f.active[studentID]
	if !ok {
		return nil, repository.ErrNoActiveAttempt
	}
	delete(f.active, studentID)
	a := f.attempts[id]
	finished := at
	a.FinishedAt = &finished
	out := *a
	return &out, nil
}

func (f *Attempts) ActiveFor(_ context.Context, studentID int) (*model.ExamAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.active[studentID]
	if !ok {
		return nil, nil
	}
	out := *f.attempts[id]
	return &out, nil
}

func (f *Attempts) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.ExamAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ExamAttempt
	for _, a := range f.attempts {
		if a.SessionID == sessionID {
			out = append(out, *a)
		}
	}
	return out, nil
}

// All returns every attempt of a student.
func (f *Attempts) All(studentID int) []model.ExamAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ExamAttempt
	for _, a := range f.attempts {
		if a.StudentID == studentID {
			out = append(out, *a)
		}
	}
	return out
}

// Events records published admission events.
type Events struct {
	mu     sync.Mutex
	events []model.AdmissionEvent
	Err    error
}

func (f *Events) Publish(_ context.Context, e model.AdmissionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.events = append(f.events, e)
	return nil
}

// Types lists the recorded event types in order.
func (f *Events) Types() []model.AdmissionEventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.AdmissionEventType, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

// Profiles is an in-memory ProfileStore.
type Profiles struct {
	mu     sync.Mutex
	byID   map[int]model.UserProfile
	nextID int
}

func NewProfiles() *Profiles { return &Profiles{byID: map[int]model.UserProfile{}} }

func (f *Profiles) GetByID(_ context.Context, id int) (*model.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	return &p, nil
}

func (f *Profiles) GetByEmail(_ context.Context, email string) (*model.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if p.Email == email {
			return &p, nil
		}
	}
	return nil, repository.ErrProfileNotFound
}

func (f *Profiles) Create(_ context.Context, p *model.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == p.Email {
			return repository.ErrDuplicateEmail
		}
	}
	f.nextID++
	p.ID = f.nextID
	p.CreatedAt = time.Now()
	f.byID[p.ID] = *p
	return nil
}
