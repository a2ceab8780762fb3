package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

// UserLoginKey holds the JTI of the single device a user is logged in from.
func (CacheKeyStruct) UserLoginKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// StudentActiveAttemptKey caches the student's currently active exam attempt.
func (CacheKeyStruct) StudentActiveAttemptKey(studentID int) string {
	return fmt.Sprintf("student:%d:active_exam_attempt", studentID)
}

// ExamSessionMonitorChannel is the Redis PubSub channel carrying admission
// events for one exam session.
func (CacheKeyStruct) ExamSessionMonitorChannel(sessionID uuid.UUID) string {
	return fmt.Sprintf("exam_session:%s:monitor", sessionID)
}

var CacheKey = CacheKeyStruct{}
