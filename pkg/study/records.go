package study

import (
	"time"

	"github.com/aretw0/studywise/pkg/core"
	"github.com/aretw0/studywise/pkg/typed"
)

// Stored shapes. The ID lives in the document key and a note's markdown in
// the document body, so neither is repeated in metadata.

type courseRecord struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type tagRecord struct {
	Name string `json:"name"`
}

type noteRecord struct {
	Title     string         `json:"title"`
	CourseID  string         `json:"courseId"`
	TagIDs    []string       `json:"tagIds"`
	Pinned    bool           `json:"isPinned,omitempty"`
	VideoURL  string         `json:"videoUrl,omitempty"`
	Reactions core.Reactions `json:"reactions,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func courseFromModel(m *typed.Model[courseRecord]) core.Course {
	return core.Course{ID: m.ID, Name: m.Data.Name, CreatedAt: m.Data.CreatedAt}
}

func courseToModel(c core.Course) *typed.Model[courseRecord] {
	return &typed.Model[courseRecord]{
		ID:   c.ID,
		Data: courseRecord{Name: c.Name, CreatedAt: c.CreatedAt},
	}
}

func tagFromModel(m *typed.Model[tagRecord]) core.Tag {
	return core.Tag{ID: m.ID, Name: m.Data.Name}
}

func tagToModel(t core.Tag) *typed.Model[tagRecord] {
	return &typed.Model[tagRecord]{ID: t.ID, Data: tagRecord{Name: t.Name}}
}

func noteFromModel(m *typed.Model[noteRecord]) core.Note {
	tagIDs := m.Data.TagIDs
	if tagIDs == nil {
		tagIDs = []string{}
	}
	return core.Note{
		ID:        m.ID,
		Title:     m.Data.Title,
		Content:   m.Content,
		CourseID:  m.Data.CourseID,
		TagIDs:    tagIDs,
		Pinned:    m.Data.Pinned,
		VideoURL:  m.Data.VideoURL,
		Reactions: m.Data.Reactions,
		CreatedAt: m.Data.CreatedAt,
		UpdatedAt: m.Data.UpdatedAt,
	}
}

func noteToModel(n core.Note) *typed.Model[noteRecord] {
	tagIDs := n.TagIDs
	if tagIDs == nil {
		tagIDs = []string{}
	}
	return &typed.Model[noteRecord]{
		ID:      n.ID,
		Content: n.Content,
		Data: noteRecord{
			Title:     n.Title,
			CourseID:  n.CourseID,
			TagIDs:    tagIDs,
			Pinned:    n.Pinned,
			VideoURL:  n.VideoURL,
			Reactions: n.Reactions,
			CreatedAt: n.CreatedAt,
			UpdatedAt: n.UpdatedAt,
		},
	}
}
