// Package notify carries grant notifications from the engine to the chat
// transport through a durable job queue, so a grant acknowledged to the admin
// is eventually announced to the target user even across restarts.
package notify

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
	"github.com/sirupsen/logrus"

	"github.com/open-rails/probekit/core"
)

// GrantNotificationArgs is the payload of a queued grant announcement.
type GrantNotificationArgs struct {
	UserID    int64     `json:"user_id"`
	Subject   string    `json:"subject"`
	Tier      core.Tier `json:"tier"`
	Amount    int       `json:"amount"`
	Remaining int       `json:"remaining"`
}

func (GrantNotificationArgs) Kind() string { return "grant_notification" }

// Messenger is implemented by the chat-transport collaborator.
type Messenger interface {
	NotifyGrant(ctx context.Context, n GrantNotificationArgs) error
}

// Enqueuer inserts notification jobs. Satisfied by *river.Client.
type Enqueuer interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// Worker delivers queued grant notifications through the messenger.
type Worker struct {
	river.WorkerDefaults[GrantNotificationArgs]
	messenger Messenger
	log       logrus.FieldLogger
}

func NewWorker(m Messenger, log logrus.FieldLogger) *Worker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Worker{messenger: m, log: log}
}

func (w *Worker) Work(ctx context.Context, job *river.Job[GrantNotificationArgs]) error {
	if err := w.messenger.NotifyGrant(ctx, job.Args); err != nil {
		w.log.WithError(err).WithField("user_id", job.Args.UserID).Warn("notify: grant notification failed")
		return err
	}
	return nil
}

// NewClient builds a river client over the pool with the grant-notification
// worker registered. Callers start and stop it alongside the process.
func NewClient(pool *pgxpool.Pool, m Messenger, log logrus.FieldLogger) (*river.Client[pgx.Tx], error) {
	workers := river.NewWorkers()
	if err := river.AddWorkerSafely(workers, NewWorker(m, log)); err != nil {
		return nil, err
	}
	return river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 4},
		},
		Workers: workers,
	})
}
