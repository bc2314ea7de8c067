package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jengzang/ifta-backend-go/internal/analysis"
	"github.com/jengzang/ifta-backend-go/internal/models"
	"github.com/jengzang/ifta-backend-go/internal/repository"
)

// CreateTaskRequest starts an analysis task
type CreateTaskRequest struct {
	SkillName string                 `json:"skill_name"`
	TaskType  string                 `json:"task_type"` // INCREMENTAL (default) or FULL_RECOMPUTE
	Params    map[string]interface{} `json:"params"`
	CreatedBy string                 `json:"created_by"`
}

// AnalysisTaskService handles analysis task business logic
type AnalysisTaskService struct {
	repo   *repository.AnalysisTaskRepository
	deps   analysis.Deps
	logger zerolog.Logger

	mu      sync.Mutex
	cancels map[int64]context.CancelFunc
	wg      sync.WaitGroup
}

// NewAnalysisTaskService creates a new analysis task service
func NewAnalysisTaskService(repo *repository.AnalysisTaskRepository, deps analysis.Deps) *AnalysisTaskService {
	return &AnalysisTaskService{
		repo:    repo,
		deps:    deps,
		logger:  deps.Logger.With().Str("component", "analysis_tasks").Logger(),
		cancels: make(map[int64]context.CancelFunc),
	}
}

// CreateTask creates a new analysis task and starts its worker
func (s *AnalysisTaskService) CreateTask(ctx context.Context, req CreateTaskRequest) (*models.AnalysisTask, error) {
	task, err := s.newTask(ctx, req)
	if err != nil {
		return nil, err
	}
	s.start(func() {
		s.run(task)
	})
	return task, nil
}

// TriggerAnalysisChain creates one task per skill in dependency order and
// runs them one after another: jurisdictions are backfilled before trips are
// rebucketed.
func (s *AnalysisTaskService) TriggerAnalysisChain(ctx context.Context, taskType, createdBy string) ([]int64, error) {
	skillOrder := []string{
		"jurisdiction_backfill",
		"trip_mileage",
	}

	var tasks []*models.AnalysisTask
	for _, skillName := range skillOrder {
		task, err := s.newTask(ctx, CreateTaskRequest{SkillName: skillName, TaskType: taskType, CreatedBy: createdBy})
		if err != nil {
			return nil, fmt.Errorf("failed to create task for %s: %w", skillName, err)
		}
		tasks = append(tasks, task)
	}

	taskIDs := make([]int64, len(tasks))
	for i, t := range tasks {
		taskIDs[i] = t.ID
	}

	s.start(func() {
		for i, t := range tasks {
			if err := s.run(t); err != nil {
				for _, rest := range tasks[i+1:] {
					s.markFailed(rest.ID, fmt.Sprintf("Skipped: %s failed", t.SkillName))
				}
				return
			}
		}
	})
	return taskIDs, nil
}

// GetTask retrieves a task by ID
func (s *AnalysisTaskService) GetTask(ctx context.Context, id int64) (*models.AnalysisTask, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// ListTasks retrieves tasks with optional filters
func (s *AnalysisTaskService) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.AnalysisTask, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// CancelTask cancels a pending or running task
func (s *AnalysisTaskService) CancelTask(ctx context.Context, id int64) error {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if task.Status != models.TaskStatusPending && task.Status != models.TaskStatusRunning {
		return fmt.Errorf("%w: task is not running (status: %s)", ErrInvalidTask, task.Status)
	}

	// written before cancelling: later failure writes from the worker are no-ops
	marked, err := s.repo.MarkAsFailed(ctx, id, "Task cancelled by user")
	if err != nil {
		return err
	}
	if !marked {
		return fmt.Errorf("%w: task already finished", ErrInvalidTask)
	}

	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

// Skills lists the skills that can be run
func (s *AnalysisTaskService) Skills() []string {
	return analysis.Skills()
}

// Wait blocks until every started worker has returned
func (s *AnalysisTaskService) Wait() {
	s.wg.Wait()
}

func (s *AnalysisTaskService) newTask(ctx context.Context, req CreateTaskRequest) (*models.AnalysisTask, error) {
	if !analysis.IsRegistered(req.SkillName) {
		return nil, fmt.Errorf("%w: unknown skill %q", ErrInvalidTask, req.SkillName)
	}
	if req.TaskType == "" {
		req.TaskType = models.TaskTypeIncremental
	}
	if req.TaskType != models.TaskTypeIncremental && req.TaskType != models.TaskTypeFullRecompute {
		return nil, fmt.Errorf("%w: invalid task type %q", ErrInvalidTask, req.TaskType)
	}

	var paramsJSON string
	if req.Params != nil {
		b, err := json.Marshal(req.Params)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to serialize params: %v", ErrInvalidTask, err)
		}
		paramsJSON = string(b)
	}

	task := &models.AnalysisTask{
		SkillName:  req.SkillName,
		TaskType:   req.TaskType,
		Status:     models.TaskStatusPending,
		ParamsJSON: paramsJSON,
		CreatedBy:  req.CreatedBy,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// start runs fn in a worker goroutine tracked by Wait
func (s *AnalysisTaskService) start(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// run executes task under a context that CancelTask(task.ID) can cancel.
// A task cancelled while it was still pending is skipped.
func (s *AnalysisTaskService) run(task *models.AnalysisTask) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[task.ID] = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.cancels, task.ID)
		s.mu.Unlock()
		cancel()
	}()

	current, err := s.repo.GetByID(context.Background(), task.ID)
	if err != nil {
		s.markFailed(task.ID, err.Error())
		return err
	}
	if current == nil || current.Status != models.TaskStatusPending {
		s.logger.Info().Int64("task_id", task.ID).Msg("Skipping cancelled task")
		return nil
	}
	return s.execute(ctx, task.ID, task.SkillName, task.TaskType)
}

// execute runs one skill in-process and records its failure
func (s *AnalysisTaskService) execute(ctx context.Context, taskID int64, skillName, taskType string) error {
	log := s.logger.With().Int64("task_id", taskID).Str("skill", skillName).Logger()
	log.Info().Str("type", taskType).Msg("Executing analysis")

	analyzer := analysis.GetAnalyzer(skillName, s.deps)
	if analyzer == nil {
		s.markFailed(taskID, fmt.Sprintf("Unknown skill: %s", skillName))
		return fmt.Errorf("unknown skill: %s", skillName)
	}

	mode := analysis.ModeIncremental
	if taskType == models.TaskTypeFullRecompute {
		mode = analysis.ModeFull
	}

	if err := analyzer.Analyze(ctx, taskID, mode); err != nil {
		log.Error().Err(err).Msg("Analysis failed")
		s.markFailed(taskID, fmt.Sprintf("Analysis failed: %v", err))
		return err
	}

	log.Info().Msg("Analysis completed")
	return nil
}

func (s *AnalysisTaskService) markFailed(taskID int64, msg string) {
	if _, err := s.repo.MarkAsFailed(context.Background(), taskID, msg); err != nil {
		s.logger.Error().Err(err).Int64("task_id", taskID).Msg("Failed to mark task as failed")
	}
}
