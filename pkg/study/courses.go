package study

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/studywise/pkg/core"
)

// AddCourse creates a course named name.
func (s *Service) AddCourse(ctx context.Context, name string) (core.Course, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Course{}, core.ErrEmptyName
	}

	course := core.Course{ID: s.newID(), Name: name, CreatedAt: s.timestamp()}
	ctx = withReason(ctx, reason(core.CommitTypeFeat, "courses", fmt.Sprintf("add %q", name)))
	if err := s.store().courses.Save(ctx, courseToModel(course)); err != nil {
		return core.Course{}, fmt.Errorf("failed to save course: %w", err)
	}

	s.logger.Debug("course added", "id", course.ID, "name", name)
	return course, nil
}

// GetCourse returns the course with the given id.
func (s *Service) GetCourse(ctx context.Context, id string) (core.Course, error) {
	if id == "" {
		return core.Course{}, core.ErrNotFound
	}
	m, err := s.store().courses.Get(ctx, id)
	if err != nil {
		return core.Course{}, fmt.Errorf("course %s: %w", id, err)
	}
	return courseFromModel(m), nil
}

// ListCourses returns every course, newest first.
func (s *Service) ListCourses(ctx context.Context) ([]core.Course, error) {
	models, err := s.store().courses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	courses := make([]core.Course, 0, len(models))
	for _, m := range models {
		courses = append(courses, courseFromModel(m))
	}
	sort.SliceStable(courses, func(i, j int) bool {
		return courses[i].CreatedAt.After(courses[j].CreatedAt)
	})
	return courses, nil
}

// RenameCourse changes a course name.
func (s *Service) RenameCourse(ctx context.Context, id, name string) (core.Course, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Course{}, core.ErrEmptyName
	}
	course, err := s.GetCourse(ctx, id)
	if err != nil {
		return core.Course{}, err
	}

	old := course.Name
	course.Name = name
	ctx = withReason(ctx, reason(core.CommitTypeRefactor, "courses", fmt.Sprintf("rename %q to %q", old, name)))
	if err := s.store().courses.Save(ctx, courseToModel(course)); err != nil {
		return core.Course{}, fmt.Errorf("failed to save course: %w", err)
	}
	return course, nil
}

// DeleteCourse removes a course and every note that belongs to it.
// It returns the number of notes removed.
func (s *Service) DeleteCourse(ctx context.Context, id string) (int, error) {
	course, err := s.GetCourse(ctx, id)
	if err != nil {
		return 0, err
	}

	removed := 0
	msg := reason(core.CommitTypeFeat, "courses", fmt.Sprintf("delete %q", course.Name))
	err = s.batch(ctx, msg, func(c collections) error {
		notes, err := c.notes.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list notes: %w", err)
		}
		for _, n := range notes {
			if n.Data.CourseID != id {
				continue
			}
			if err := c.notes.Delete(ctx, n.ID); err != nil {
				return fmt.Errorf("failed to delete note %s: %w", n.ID, err)
			}
			removed++
		}
		return c.courses.Delete(ctx, id)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("course deleted", "id", id, "notes", removed)
	return removed, nil
}
