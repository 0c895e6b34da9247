package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jonathan/course-ingest/internal/extraction"
	"github.com/jonathan/course-ingest/internal/ingestion"
	"github.com/jonathan/course-ingest/internal/pipeline"
	"github.com/spf13/cobra"
)

var parseCourseCmd = &cobra.Command{
	Use:   "parse-course",
	Short: "Record a course outline file as an upload and extract its structure",
	Long: "Reads a markdown or text course outline, records it as an upload attempt, extracts the course " +
		"structure and prints the upload together with the structured result as JSON.",
	RunE: runParseCourse,
}

var (
	parseCourseIn      string
	parseCourseOut     string
	parseCourseOffline bool
	parseCourseDBURL   string
)

func init() {
	parseCourseCmd.Flags().StringVarP(&parseCourseIn, "in", "i", "", "Path to the course outline (required)")
	parseCourseCmd.Flags().StringVarP(&parseCourseOut, "out", "o", "", "Write the JSON result to this file instead of stdout")
	parseCourseCmd.Flags().BoolVar(&parseCourseOffline, "offline", false, "Extract with markdown heuristics instead of the LLM")
	parseCourseCmd.Flags().StringVar(&parseCourseDBURL, "db-url", "", "Database URL (default DATABASE_URL; in memory when unset)")

	if err := parseCourseCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(parseCourseCmd)
}

func runParseCourse(cmd *cobra.Command, _ []string) error {
	raw, meta, err := ingestion.ReadFile(parseCourseIn)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), appOptions{
		dbURL:   parseCourseDBURL,
		offline: parseCourseOffline,
		verbose: verboseOut(cmd),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	a.log.Info("parsing course file", "file", meta.Filename, "bytes", meta.Bytes, "hash", meta.Hash)
	res, err := a.pipeline.Submit(cmd.Context(), raw, meta.Filename)
	if err != nil {
		var se *pipeline.SubmitError
		if errors.As(err, &se) {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Upload %s recorded with status error\n", se.UploadID)
		}
		if ee, ok := extraction.AsExtractionError(err); ok && ee.Retryable() {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "The extraction service may recover; submitting again can succeed.")
		}
		return err
	}

	out := cmd.OutOrStdout()
	if parseCourseOut != "" {
		f, err := os.Create(parseCourseOut)
		if err != nil {
			return fmt.Errorf("failed to create output file %s: %w", parseCourseOut, err)
		}
		defer f.Close()
		out = f
	}
	if err := writeJSON(out, res); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	if a.printer != nil {
		a.printer.PrintCourse(res.Data)
		a.printer.PrintWarnings(res.Warnings)
	} else {
		for _, w := range res.Warnings {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
		}
	}
	if parseCourseOut != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Parsed %d module(s), %d lesson(s) into upload %s\n",
			len(res.Data.Modules), res.Data.LessonCount(), res.Upload.ID)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Output: %s\n", parseCourseOut)
	}
	return nil
}
