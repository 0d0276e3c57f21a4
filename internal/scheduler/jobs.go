package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridianlabs/meridian/internal/evaluation"
)

// evaluationTimeout bounds one full watchlist sweep.
const evaluationTimeout = 2 * time.Minute

// EvaluationJob sweeps the watchlist through the scoring pipeline.
type EvaluationJob struct {
	service *evaluation.Service
	log     zerolog.Logger
}

// NewEvaluationJob creates the periodic evaluation job.
func NewEvaluationJob(service *evaluation.Service, log zerolog.Logger) *EvaluationJob {
	return &EvaluationJob{
		service: service,
		log:     log.With().Str("job", "evaluation").Logger(),
	}
}

func (j *EvaluationJob) Name() string { return "evaluation_cycle" }

func (j *EvaluationJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), evaluationTimeout)
	defer cancel()

	j.service.EvaluateAll(ctx)
	return nil
}

// Checkpointer is implemented by the database layer.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
	Name() string
}

// CheckpointJob truncates the WAL so the ledger file on disk stays
// consistent for backups.
type CheckpointJob struct {
	db  Checkpointer
	log zerolog.Logger
}

// NewCheckpointJob creates a WAL checkpoint job for one database.
func NewCheckpointJob(db Checkpointer, log zerolog.Logger) *CheckpointJob {
	return &CheckpointJob{
		db:  db,
		log: log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

func (j *CheckpointJob) Name() string { return "wal_checkpoint_" + j.db.Name() }

func (j *CheckpointJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := j.db.Checkpoint(ctx); err != nil {
		return err
	}
	j.log.Debug().Str("db", j.db.Name()).Msg("WAL checkpoint complete")
	return nil
}
