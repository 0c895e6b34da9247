package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/course-ingest/internal/types"
)

// -----------------------------------------------------------------------------
// Course Methods
// -----------------------------------------------------------------------------

const courseColumns = `id, upload_id, title, description, level, schedule_basis, duration_weeks,
		outcomes, start_date, instructor_id, created_at`

// InsertMaterializedCourse writes a course with its modules and lessons in one transaction.
// A second course for the same upload violates courses_upload_id_key and fails with store.ErrConflict.
func (db *DB) InsertMaterializedCourse(ctx context.Context, course *types.MaterializedCourse) error {
	title, err := marshalText(course.Title)
	if err != nil {
		return translate("marshal course", err)
	}
	description, err := marshalText(course.Description)
	if err != nil {
		return translate("marshal course", err)
	}
	var outcomes []byte
	if len(course.Outcomes) > 0 {
		if outcomes, err = json.Marshal(course.Outcomes); err != nil {
			return translate("marshal course", err)
		}
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return translate("begin transaction", err)
	}
	defer rollback(ctx, tx)

	err = tx.QueryRow(ctx,
		`INSERT INTO courses (id, upload_id, title, description, level, schedule_basis,
		                      duration_weeks, outcomes, start_date, instructor_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at`,
		course.ID, course.UploadID, title, description, course.Level, course.ScheduleBasis,
		course.DurationWeeks, outcomes, course.StartDate, course.InstructorID,
	).Scan(&course.CreatedAt)
	if err != nil {
		return translate("insert course", err)
	}

	for _, module := range course.Modules {
		if err := insertModule(ctx, tx, course.ID, module); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return translate("commit course", err)
	}
	return nil
}

func insertModule(ctx context.Context, tx pgx.Tx, courseID uuid.UUID, module types.MaterializedModule) error {
	title, err := marshalText(module.Title)
	if err != nil {
		return translate("marshal module", err)
	}
	description, err := marshalText(module.Description)
	if err != nil {
		return translate("marshal module", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO course_modules (id, course_id, position, title, description, unlock_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		module.ID, courseID, module.Position, title, description, module.UnlockAt,
	)
	if err != nil {
		return translate(fmt.Sprintf("insert module %d", module.Position), err)
	}

	for _, lesson := range module.Lessons {
		title, err := marshalText(lesson.Title)
		if err != nil {
			return translate("marshal lesson", err)
		}
		description, err := marshalText(lesson.Description)
		if err != nil {
			return translate("marshal lesson", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO course_lessons (id, module_id, position, title, description, duration_minutes)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			lesson.ID, module.ID, lesson.Position, title, description, lesson.DurationMinutes,
		)
		if err != nil {
			return translate(fmt.Sprintf("insert lesson %d.%d", module.Position, lesson.Position), err)
		}
	}
	return nil
}

// FindMaterializedByUploadID returns the course created from an upload, or nil when none exists
func (db *DB) FindMaterializedByUploadID(ctx context.Context, uploadID uuid.UUID) (*types.MaterializedCourse, error) {
	return db.getCourse(ctx, "find course by upload", `upload_id = $1`, uploadID)
}

// GetMaterializedCourse returns a course with its ordered curriculum, or nil when it does not exist
func (db *DB) GetMaterializedCourse(ctx context.Context, id uuid.UUID) (*types.MaterializedCourse, error) {
	return db.getCourse(ctx, "get course", `id = $1`, id)
}

func (db *DB) getCourse(ctx context.Context, op, where string, arg any) (*types.MaterializedCourse, error) {
	var c types.MaterializedCourse
	var title, description, outcomes []byte

	err := db.pool.QueryRow(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE `+where,
		arg,
	).Scan(&c.ID, &c.UploadID, &title, &description, &c.Level, &c.ScheduleBasis, &c.DurationWeeks,
		&outcomes, &c.StartDate, &c.InstructorID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translate(op, err)
	}

	c.Title = unmarshalText(title)
	c.Description = unmarshalText(description)
	if len(outcomes) > 0 {
		if err := json.Unmarshal(outcomes, &c.Outcomes); err != nil {
			return nil, translate(op, fmt.Errorf("decode outcomes: %w", err))
		}
	}

	modules, err := db.listCurriculum(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Modules = modules
	return &c, nil
}

// listCurriculum loads modules and lessons ordered by their position keys.
func (db *DB) listCurriculum(ctx context.Context, courseID uuid.UUID) ([]types.MaterializedModule, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT m.id, m.position, m.title, m.description, m.unlock_at,
		        l.id, l.position, l.title, l.description, l.duration_minutes
		 FROM course_modules m
		 LEFT JOIN course_lessons l ON l.module_id = m.id
		 WHERE m.course_id = $1
		 ORDER BY m.position, l.position`,
		courseID,
	)
	if err != nil {
		return nil, translate("list curriculum", err)
	}
	defer rows.Close()

	modules := []types.MaterializedModule{}
	for rows.Next() {
		var m types.MaterializedModule
		var mTitle, mDescription []byte
		var lessonID *uuid.UUID
		var lessonPosition, lessonMinutes *int
		var lTitle, lDescription []byte

		if err := rows.Scan(&m.ID, &m.Position, &mTitle, &mDescription, &m.UnlockAt,
			&lessonID, &lessonPosition, &lTitle, &lDescription, &lessonMinutes); err != nil {
			return nil, translate("scan curriculum", err)
		}

		if len(modules) == 0 || modules[len(modules)-1].ID != m.ID {
			m.Title = unmarshalText(mTitle)
			m.Description = unmarshalText(mDescription)
			m.Lessons = []types.MaterializedLesson{}
			modules = append(modules, m)
		}

		if lessonID == nil {
			continue
		}
		lesson := types.MaterializedLesson{
			ID:          *lessonID,
			Title:       unmarshalText(lTitle),
			Description: unmarshalText(lDescription),
		}
		if lessonPosition != nil {
			lesson.Position = *lessonPosition
		}
		if lessonMinutes != nil {
			lesson.DurationMinutes = *lessonMinutes
		}
		current := &modules[len(modules)-1]
		current.Lessons = append(current.Lessons, lesson)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list curriculum", err)
	}
	return modules, nil
}
