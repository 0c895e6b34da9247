package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/course-ingest/internal/ingestion"
	"github.com/jonathan/course-ingest/internal/logger"
	"github.com/jonathan/course-ingest/internal/pipeline"
	"github.com/jonathan/course-ingest/internal/server"
	"github.com/jonathan/course-ingest/internal/types"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var ingestDirCmd = &cobra.Command{
	Use:   "ingest-dir",
	Short: "Submit every course outline in a directory as its own upload",
	Long: "Submits each .md, .markdown and .txt file in --dir as an independent upload, at most --concurrency " +
		"at a time. Files whose content repeats an earlier file are skipped. With --start-date each parsed " +
		"upload is also materialized.",
	RunE: runIngestDir,
}

var (
	ingestDir         string
	ingestConcurrency int
	ingestOffline     bool
	ingestDBURL       string
	ingestStartDate   string
)

func init() {
	ingestDirCmd.Flags().StringVarP(&ingestDir, "dir", "d", "", "Directory of course outlines (required)")
	ingestDirCmd.Flags().IntVarP(&ingestConcurrency, "concurrency", "c", 4, "Maximum uploads processed at once")
	ingestDirCmd.Flags().BoolVar(&ingestOffline, "offline", false, "Extract with markdown heuristics instead of the LLM")
	ingestDirCmd.Flags().StringVar(&ingestDBURL, "db-url", "", "Database URL (default DATABASE_URL; in memory when unset)")
	ingestDirCmd.Flags().StringVar(&ingestStartDate, "start-date", "", "Materialize parsed uploads starting on this date (YYYY-MM-DD)")

	if err := ingestDirCmd.MarkFlagRequired("dir"); err != nil {
		panic(fmt.Sprintf("failed to mark dir flag as required: %v", err))
	}

	rootCmd.AddCommand(ingestDirCmd)
}

// ingestOutcome is the result for one file of a batch.
type ingestOutcome struct {
	File        string
	DuplicateOf string
	UploadID    uuid.UUID
	Status      types.UploadStatus
	Modules     int
	Lessons     int
	CourseID    uuid.UUID
	Err         error
}

type batchOptions struct {
	Concurrency int
	StartDate   *time.Time
}

func runIngestDir(cmd *cobra.Command, _ []string) error {
	if ingestConcurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}
	opts := batchOptions{Concurrency: ingestConcurrency}
	if ingestStartDate != "" {
		start, err := server.ParseStartDate(ingestStartDate)
		if err != nil {
			return err
		}
		opts.StartDate = &start
	}

	files, err := ingestion.CourseFiles(ingestDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no course files (.md, .markdown, .txt) in %s", ingestDir)
	}

	a, err := newApp(cmd.Context(), appOptions{
		dbURL:   ingestDBURL,
		offline: ingestOffline,
		verbose: verboseOut(cmd),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	outcomes := ingestFiles(cmd.Context(), a.pipeline, files, opts, a.log)
	failed := printOutcomes(cmd.OutOrStdout(), outcomes)
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(outcomes))
	}
	return nil
}

// ingestFiles submits each file as an independent upload. One file failing never stops the others.
func ingestFiles(ctx context.Context, p *pipeline.Pipeline, files []string, opts batchOptions, log *logger.Logger) []ingestOutcome {
	log = logger.OrNop(log)
	outcomes := make([]ingestOutcome, len(files))
	contents := make([]string, len(files))
	seen := make(map[string]string)

	for i, path := range files {
		outcomes[i].File = filepath.Base(path)
		raw, meta, err := ingestion.ReadFile(path)
		if err != nil {
			outcomes[i].Err = err
			continue
		}
		if first, dup := seen[meta.Hash]; dup {
			outcomes[i].DuplicateOf = first
			continue
		}
		seen[meta.Hash] = outcomes[i].File
		contents[i] = raw
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Concurrency, 1))
	for i := range files {
		if outcomes[i].Err != nil || outcomes[i].DuplicateOf != "" {
			continue
		}
		g.Go(func() error {
			outcomes[i] = ingestOne(gctx, p, outcomes[i].File, contents[i], opts)
			if outcomes[i].Err != nil {
				log.Warn("course file failed", "file", outcomes[i].File, "upload_id", outcomes[i].UploadID, "error", outcomes[i].Err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// statusFailed marks an outcome whose upload status could not be read back.
const statusFailed types.UploadStatus = "failed"

func storedStatus(ctx context.Context, p *pipeline.Pipeline, id uuid.UUID) types.UploadStatus {
	upload, err := p.GetUpload(ctx, id)
	if err != nil || upload == nil {
		return statusFailed
	}
	return upload.Status
}

func ingestOne(ctx context.Context, p *pipeline.Pipeline, name, raw string, opts batchOptions) ingestOutcome {
	out := ingestOutcome{File: name}

	res, err := p.Submit(ctx, raw, name)
	if err != nil {
		var se *pipeline.SubmitError
		if errors.As(err, &se) {
			out.UploadID = se.UploadID
			out.Status = storedStatus(ctx, p, se.UploadID)
		}
		out.Err = err
		return out
	}
	out.UploadID = res.Upload.ID
	out.Status = res.Upload.Status
	out.Modules = len(res.Data.Modules)
	out.Lessons = res.Data.LessonCount()

	if opts.StartDate == nil {
		return out
	}
	course, err := p.Materialize(ctx, pipeline.MaterializeInput{
		UploadID:  res.Upload.ID,
		Data:      res.Data,
		StartDate: *opts.StartDate,
	})
	if err != nil {
		out.Err = err
		return out
	}
	out.CourseID = course.ID
	out.Status = types.StatusCreated
	return out
}

// printOutcomes writes a summary table and returns the number of failed files.
func printOutcomes(w io.Writer, outcomes []ingestOutcome) int {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "FILE\tUPLOAD\tSTATUS\tMODULES\tLESSONS\tNOTE")

	failed := 0
	for _, o := range outcomes {
		upload, status, note := "-", string(o.Status), ""
		if o.UploadID != uuid.Nil {
			upload = o.UploadID.String()
		}
		switch {
		case o.DuplicateOf != "":
			status, note = "skipped", "same content as "+o.DuplicateOf
		case o.Err != nil:
			failed++
			if status == "" {
				status = "failed"
			}
			note = o.Err.Error()
		case o.CourseID != uuid.Nil:
			note = "course " + o.CourseID.String()
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", o.File, upload, status, o.Modules, o.Lessons, note)
	}
	_ = tw.Flush()
	return failed
}
