package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jengzang/ifta-backend-go/internal/models"
)

const taskColumns = `id, skill_name, task_type, status, progress_percent, params_json,
		total_items, processed_items, failed_items, start_time, end_time,
		result_summary, error_message, created_by, created_at, updated_at`

// AnalysisTaskRepository handles database operations for analysis tasks
type AnalysisTaskRepository struct {
	db *sqlx.DB
}

// NewAnalysisTaskRepository creates a new analysis task repository
func NewAnalysisTaskRepository(db *sqlx.DB) *AnalysisTaskRepository {
	return &AnalysisTaskRepository{db: db}
}

// Create creates a new analysis task
func (r *AnalysisTaskRepository) Create(ctx context.Context, task *models.AnalysisTask) error {
	query := `
		INSERT INTO analysis_tasks (
			skill_name, task_type, status, progress_percent, params_json,
			total_items, processed_items, failed_items, created_by
		) VALUES (
			:skill_name, :task_type, :status, :progress_percent, :params_json,
			:total_items, :processed_items, :failed_items, :created_by
		)
	`

	result, err := r.db.NamedExecContext(ctx, query, task)
	if err != nil {
		return fmt.Errorf("failed to create analysis task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	task.ID = id
	return nil
}

// GetByID retrieves an analysis task by ID
func (r *AnalysisTaskRepository) GetByID(ctx context.Context, id int64) (*models.AnalysisTask, error) {
	task := &models.AnalysisTask{}
	err := r.db.GetContext(ctx, task, `SELECT `+taskColumns+` FROM analysis_tasks WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis task: %w", err)
	}
	return task, nil
}

// List retrieves analysis tasks with optional filters
func (r *AnalysisTaskRepository) List(ctx context.Context, filter models.TaskFilter) ([]models.AnalysisTask, error) {
	query := `SELECT ` + taskColumns + ` FROM analysis_tasks WHERE 1=1`

	args := []interface{}{}
	if filter.SkillName != "" {
		query += " AND skill_name = ?"
		args = append(args, filter.SkillName)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	tasks := []models.AnalysisTask{}
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list analysis tasks: %w", err)
	}
	return tasks, nil
}

// UpdateProgress updates the progress of an analysis task
func (r *AnalysisTaskRepository) UpdateProgress(ctx context.Context, id int64, processed, total, failed int) error {
	percent := 0
	if total > 0 {
		percent = processed * 100 / total
	}

	query := `
		UPDATE analysis_tasks
		SET processed_items = ?, total_items = ?, failed_items = ?, progress_percent = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, processed, total, failed, percent, id); err != nil {
		return fmt.Errorf("failed to update task progress: %w", err)
	}
	return nil
}

// MarkAsRunning marks a task as running
func (r *AnalysisTaskRepository) MarkAsRunning(ctx context.Context, id int64) error {
	query := `
		UPDATE analysis_tasks
		SET status = ?, start_time = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status IN (?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, models.TaskStatusRunning, time.Now().Unix(), id,
		models.TaskStatusPending, models.TaskStatusRunning); err != nil {
		return fmt.Errorf("failed to mark task as running: %w", err)
	}
	return nil
}

// MarkAsCompleted marks a task as completed with result summary
func (r *AnalysisTaskRepository) MarkAsCompleted(ctx context.Context, id int64, resultSummary string) error {
	query := `
		UPDATE analysis_tasks
		SET status = ?, end_time = ?, result_summary = ?,
			progress_percent = 100, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status IN (?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, models.TaskStatusCompleted, time.Now().Unix(), resultSummary, id,
		models.TaskStatusPending, models.TaskStatusRunning); err != nil {
		return fmt.Errorf("failed to mark task as completed: %w", err)
	}
	return nil
}

// MarkAsFailed marks a pending or running task as failed. A task that has
// already finished keeps its status and message.
func (r *AnalysisTaskRepository) MarkAsFailed(ctx context.Context, id int64, errorMessage string) (bool, error) {
	query := `
		UPDATE analysis_tasks
		SET status = ?, end_time = ?, error_message = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status IN (?, ?)
	`
	res, err := r.db.ExecContext(ctx, query, models.TaskStatusFailed, time.Now().Unix(), errorMessage, id,
		models.TaskStatusPending, models.TaskStatusRunning)
	if err != nil {
		return false, fmt.Errorf("failed to mark task as failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark task as failed: %w", err)
	}
	return n > 0, nil
}
