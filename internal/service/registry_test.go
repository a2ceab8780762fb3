package service

import (
	"context"
	"testing"

	"github.com/stemsi/exammode/internal/model"
	"github.com/stemsi/exammode/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveSessionsFor(t *testing.T) {
	sessions := testutil.NewSessions()
	morning := sessions.Put(model.ExamSession{
		Name: "Morning", CourseInstanceID: courseID,
		Window: model.TimeWindow{Opening: at(8, 0), Closing: at(10, 0)},
	})
	late := sessions.Put(model.ExamSession{
		Name: "Late", CourseInstanceID: courseID,
		Window: model.TimeWindow{Opening: at(10, 0), Closing: at(12, 0)},
	})
	sessions.Put(model.ExamSession{
		Name: "Other course", CourseInstanceID: courseID + 1,
		Window: model.TimeWindow{Opening: at(8, 0), Closing: at(12, 0)},
	})
	r := NewExamSessionRegistry(sessions, testutil.NewContent())
	ctx := context.Background()

	got, err := r.ActiveSessionsFor(ctx, courseID, at(10, 0))
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.ExamSession{morning, late}, got)

	got, err = r.ActiveSessionsFor(ctx, courseID, at(11, 0))
	require.NoError(t, err)
	assert.Equal(t, []model.ExamSession{late}, got)

	got, err = r.ActiveSessionsFor(ctx, courseID, at(12, 1))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEntryContentFor(t *testing.T) {
	content := testutil.NewContent()
	content.Add(model.ContentRef{ID: 3, ModuleID: examModuleID, OrderNum: 1, Slug: "part one"})
	content.Add(model.ContentRef{ID: 4, ModuleID: examModuleID, OrderNum: 2, Slug: "part-two"})
	r := NewExamSessionRegistry(testutil.NewSessions(), content)
	ctx := context.Background()

	ref, err := r.EntryContentFor(ctx, &model.ExamSession{ExamModuleID: examModuleID})
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, 3, ref.ID)

	url, err := r.EntryURLFor(ctx, &model.ExamSession{ExamModuleID: examModuleID})
	require.NoError(t, err)
	assert.Equal(t, "https://lms.test/modules/20/exam/part%20one/", url)

	ref, err = r.EntryContentFor(ctx, &model.ExamSession{ExamModuleID: examModuleID + 1})
	require.NoError(t, err)
	assert.Nil(t, ref)
}
