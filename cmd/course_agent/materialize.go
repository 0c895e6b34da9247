package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/jonathan/course-ingest/internal/extraction"
	"github.com/jonathan/course-ingest/internal/materialize"
	"github.com/jonathan/course-ingest/internal/observability"
	"github.com/jonathan/course-ingest/internal/pipeline"
	"github.com/jonathan/course-ingest/internal/server"
	"github.com/spf13/cobra"
)

var materializeCmd = &cobra.Command{
	Use:   "materialize",
	Short: "Create the course for a parsed upload",
	Long: "Materializes a parsed upload into a course with ordered modules and lessons. The upload's stored " +
		"structured result is used unless --data points at an edited structure document. An upload that is " +
		"already materialized is reported with its existing course and is not an error.",
	RunE: runMaterialize,
}

var (
	materializeUploadID   string
	materializeData       string
	materializeStartDate  string
	materializeInstructor string
	materializeDBURL      string
)

func init() {
	materializeCmd.Flags().StringVarP(&materializeUploadID, "upload-id", "u", "", "Upload ID (required)")
	materializeCmd.Flags().StringVarP(&materializeData, "data", "d", "", "Path to an edited course structure JSON file")
	materializeCmd.Flags().StringVarP(&materializeStartDate, "start-date", "s", "", "Course start date, YYYY-MM-DD (required)")
	materializeCmd.Flags().StringVar(&materializeInstructor, "instructor-id", "", "Instructor ID")
	materializeCmd.Flags().StringVar(&materializeDBURL, "db-url", "", "Database URL (default DATABASE_URL)")

	for _, name := range []string{"upload-id", "start-date"} {
		if err := materializeCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}

	rootCmd.AddCommand(materializeCmd)
}

func runMaterialize(cmd *cobra.Command, _ []string) error {
	in, err := materializeInput(materializeUploadID, materializeStartDate, materializeInstructor, materializeData)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), appOptions{
		dbURL:     materializeDBURL,
		requireDB: true,
		noLLM:     true,
		verbose:   verboseOut(cmd),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	return materializeAndReport(cmd.Context(), a.pipeline, in, cmd.OutOrStdout(), a.printer)
}

func materializeInput(uploadID, startDate, instructorID, dataPath string) (pipeline.MaterializeInput, error) {
	var in pipeline.MaterializeInput

	id, err := uuid.Parse(uploadID)
	if err != nil {
		return in, fmt.Errorf("invalid --upload-id: %w", err)
	}
	in.UploadID = id

	if in.StartDate, err = server.ParseStartDate(startDate); err != nil {
		return in, err
	}

	if instructorID != "" {
		instructor, err := uuid.Parse(instructorID)
		if err != nil {
			return in, fmt.Errorf("invalid --instructor-id: %w", err)
		}
		in.InstructorID = &instructor
	}

	if dataPath != "" {
		raw, err := os.ReadFile(dataPath)
		if err != nil {
			return in, fmt.Errorf("failed to read data file %s: %w", dataPath, err)
		}
		res, err := extraction.Decode(raw)
		if err != nil {
			return in, fmt.Errorf("data file %s is not a valid course structure: %w", dataPath, err)
		}
		in.Data = res.Data
	}
	return in, nil
}

// materializeAndReport prints the created course, or the existing one when the upload was already done.
func materializeAndReport(ctx context.Context, p *pipeline.Pipeline, in pipeline.MaterializeInput, w io.Writer, printer *observability.Printer) error {
	course, err := p.Materialize(ctx, in)
	var dup *materialize.DuplicateMaterializationError
	switch {
	case errors.As(err, &dup):
		_, _ = fmt.Fprintf(w, "Upload %s is already materialized", in.UploadID)
		if dup.ExistingCourseID != uuid.Nil {
			_, _ = fmt.Fprintf(w, " as course %s", dup.ExistingCourseID)
		}
		_, _ = fmt.Fprintln(w)
		return nil
	case err != nil:
		return fmt.Errorf("failed to materialize upload %s: %w", in.UploadID, err)
	}

	if printer != nil {
		printer.PrintMaterialized(course)
	}
	_, _ = fmt.Fprintf(w, "Created course %s with %d module(s) and %d lesson(s)\n",
		course.ID, len(course.Modules), course.LessonCount())
	return writeJSON(w, course)
}
