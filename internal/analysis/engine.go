package analysis

import (
	"context"
	"sort"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/jengzang/ifta-backend-go/internal/geocode"
	"github.com/jengzang/ifta-backend-go/internal/repository"
)

// Analysis modes
const (
	ModeIncremental = "incremental"
	ModeFull        = "full"
)

// Analyzer is the interface that all recompute skills must implement
type Analyzer interface {
	// Analyze performs the analysis for a given task
	// taskID: the analysis task ID
	// mode: "incremental" or "full"
	Analyze(ctx context.Context, taskID int64, mode string) error

	// GetName returns the name of the analyzer
	GetName() string
}

// Deps are the collaborators an analyzer may use
type Deps struct {
	DB       *sqlx.DB
	Resolver geocode.Resolver
	Logger   zerolog.Logger
}

// BaseAnalyzer provides common functionality for all analyzers
type BaseAnalyzer struct {
	Deps
	Name  string
	Tasks *repository.AnalysisTaskRepository
	Log   zerolog.Logger
}

// NewBaseAnalyzer creates a new base analyzer
func NewBaseAnalyzer(deps Deps, name string) *BaseAnalyzer {
	return &BaseAnalyzer{
		Deps:  deps,
		Name:  name,
		Tasks: repository.NewAnalysisTaskRepository(deps.DB),
		Log:   deps.Logger.With().Str("component", "analysis").Str("skill", name).Logger(),
	}
}

// GetName returns the analyzer name
func (a *BaseAnalyzer) GetName() string {
	return a.Name
}

// UpdateTaskProgress updates the progress of an analysis task in the database
func (a *BaseAnalyzer) UpdateTaskProgress(ctx context.Context, taskID int64, processed, total, failed int) error {
	return a.Tasks.UpdateProgress(ctx, taskID, processed, total, failed)
}

// MarkTaskAsRunning marks a task as running
func (a *BaseAnalyzer) MarkTaskAsRunning(ctx context.Context, taskID int64) error {
	return a.Tasks.MarkAsRunning(ctx, taskID)
}

// MarkTaskAsCompleted marks a task as completed with a JSON result summary
func (a *BaseAnalyzer) MarkTaskAsCompleted(ctx context.Context, taskID int64, summary string) error {
	return a.Tasks.MarkAsCompleted(ctx, taskID, summary)
}

// AnalyzerFactory is a function that creates an analyzer instance
type AnalyzerFactory func(deps Deps) Analyzer

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AnalyzerFactory)
)

// RegisterAnalyzer registers an analyzer factory for a skill name
func RegisterAnalyzer(skillName string, factory AnalyzerFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[skillName] = factory
}

// GetAnalyzer retrieves an analyzer instance for a skill name
func GetAnalyzer(skillName string, deps Deps) Analyzer {
	registryMu.RLock()
	factory, ok := registry[skillName]
	registryMu.RUnlock()
	if !ok {
		return nil
	}
	return factory(deps)
}

// IsRegistered checks if a skill has an analyzer
func IsRegistered(skillName string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[skillName]
	return ok
}

// Skills lists the registered skill names in order
func Skills() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
