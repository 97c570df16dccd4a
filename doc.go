// Package studywise is the Composition Root for the StudyWise application.
//
// It connects the study service (courses, notes, tags, review decks and
// backups) with a storage adapter chosen at startup, following the
// Hexagonal Architecture pattern.
//
// Storage:
//
//   - **fs** (default): one Markdown file per record with YAML frontmatter,
//     optionally versioned with Git. Every write is a semantic commit.
//   - **sqlite**: a single database file inside the vault, with history.
//   - **redis**: a namespaced key space, useful for shared vaults.
//
// AI flows (summaries, study questions, flashcards) live in pkg/flows and
// are backed by Gemini through pkg/adapters/genai.
//
// Usage:
//
//	svc, err := studywise.New("./vault",
//		studywise.WithAutoInit(true),
//		studywise.WithLogger(logger),
//	)
//
//	course, err := svc.AddCourse(ctx, "Biology")
//	note, err := svc.AddNote(ctx, studywise.NoteDraft{
//		Title:    "Cells",
//		Content:  "# Cells\n\nThe basic unit of life.",
//		CourseID: course.ID,
//	})
package studywise
