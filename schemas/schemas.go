// Package schemas holds the JSON Schema documents shipped with the binary.
package schemas

import (
	"embed"
	"fmt"
)

// CourseStructure is the schema for AI-extracted course outlines.
const CourseStructure = "course_structure.schema.json"

//go:embed *.schema.json
var files embed.FS

// Get returns the raw schema document with the given file name.
func Get(name string) (string, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("schema %s not found: %w", name, err)
	}
	return string(data), nil
}

// Names lists the embedded schema file names.
func Names() []string {
	entries, err := files.ReadDir(".")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
