package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// editorCommand returns $VISUAL, then $EDITOR, then vi, split into argv.
func editorCommand() []string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(os.Getenv(env)); len(fields) > 0 {
			return fields
		}
	}
	return []string{"vi"}
}

// editInEditor opens content in the user's editor and returns what was saved.
func editInEditor(content string) (string, error) {
	f, err := os.CreateTemp("", "studywise-*.md")
	if err != nil {
		return "", err
	}
	path := f.Name()
	defer os.Remove(path)

	_, err = f.WriteString(content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}

	argv := editorCommand()
	cmd := exec.Command(argv[0], append(argv[1:], path)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("editor %s exited with status %d", argv[0], exitErr.ExitCode())
		}
		return "", fmt.Errorf("failed to start editor %s: %w", argv[0], err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
