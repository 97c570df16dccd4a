package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/studywise"
)

func main() {
	count := flag.Int("count", 1000, "Number of notes to generate")
	adapter := flag.String("adapter", studywise.AdapterFS, "Store to bench: fs or sqlite")
	keep := flag.Bool("keep", false, "Keep the benchmark vault after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "studywise_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	uri := benchDir
	if *adapter == studywise.AdapterSQLite {
		uri = filepath.Join(benchDir, "bench.db")
	}
	// Gitless keeps the measurement on parsing and I/O rather than git.
	open := func() *studywise.Service {
		svc, err := studywise.New(uri,
			studywise.WithLogger(logger),
			studywise.WithAdapter(*adapter),
			studywise.WithAutoInit(true),
			studywise.WithVersioning(false),
		)
		if err != nil {
			panic(err)
		}
		return svc
	}

	ctx := context.Background()
	service := open()
	course, err := service.AddCourse(ctx, "Benchmark")
	if err != nil {
		panic(err)
	}

	fmt.Printf("Generating %d notes in %s (%s)...\n", *count, benchDir, *adapter)
	startGen := time.Now()
	for i := 0; i < *count; i++ {
		_, err := service.AddNote(ctx, studywise.NoteDraft{
			Title:    fmt.Sprintf("Note %d", i),
			Content:  fmt.Sprintf("# Benchmark Note %d\nThis is a ==test== note.", i),
			CourseID: course.ID,
		})
		if err != nil {
			panic(err)
		}
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))
	_ = studywise.Close(service.Repository())

	// Each run reopens the vault to simulate a new CLI invocation.
	run := func(label string) (time.Duration, int) {
		svc := open()
		defer studywise.Close(svc.Repository())
		fmt.Printf("Running ListNotes (%s)...\n", label)
		start := time.Now()
		list, err := svc.ListNotes(ctx, studywise.NoteFilter{CourseID: course.ID})
		if err != nil {
			panic(err)
		}
		return time.Since(start), len(list)
	}

	cold, n := run("Run 1 - Cold")
	fmt.Printf("Run 1 Result: %v (Items: %d)\n", cold, n)
	warm, n := run("Run 2 - Warm")
	fmt.Printf("Run 2 Result: %v (Items: %d)\n", warm, n)

	svc := open()
	startSearch := time.Now()
	hits, err := svc.Search(ctx, "note 42", 10)
	if err != nil {
		panic(err)
	}
	search := time.Since(startSearch)
	_ = studywise.Close(svc.Repository())

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d notes, %s):\n", *count, *adapter)
	fmt.Printf("  Cold:   %v\n", cold)
	fmt.Printf("  Warm:   %v\n", warm)
	fmt.Printf("  Search: %v (%d hits)\n", search, len(hits))
	fmt.Printf("--------------------------------------------------\n")
}
