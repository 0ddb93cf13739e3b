package ports

import (
	"context"

	"nullbench/domain/core"
	"nullbench/domain/run"
)

// RunRepository persists evaluation runs and their significance results for
// audit. The validation core works entirely in memory; persistence is the
// collaborator that keeps runs inspectable after the fact.
type RunRepository interface {
	SaveRun(ctx context.Context, r *run.EvaluationRun) error
	GetRun(ctx context.Context, id core.RunID) (*run.EvaluationRun, error)
	ListRuns(ctx context.Context, limit int) ([]*run.EvaluationRun, error)
}
