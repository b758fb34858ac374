// Package app assembles the domain services over one SQLite database and one
// attachment store.
package app

import (
	"log/slog"

	"github.com/rpggio/teamwork/internal/attachment"
	"github.com/rpggio/teamwork/internal/domain/activity"
	"github.com/rpggio/teamwork/internal/domain/engagement"
	"github.com/rpggio/teamwork/internal/domain/logbook"
	"github.com/rpggio/teamwork/internal/domain/membership"
	"github.com/rpggio/teamwork/internal/domain/project"
	"github.com/rpggio/teamwork/internal/domain/reaction"
	"github.com/rpggio/teamwork/internal/domain/user"
	"github.com/rpggio/teamwork/internal/sqlite"
)

// Options configure New.
type Options struct {
	Store attachment.Store
	// Queue holds released handles; nil uses the SQLite blob_cleanup table.
	Queue   attachment.Queue
	Janitor attachment.JanitorConfig
	// LookupConcurrency bounds concurrent member lookups.
	LookupConcurrency int
	Logger            *slog.Logger
}

// App holds every service of the system.
type App struct {
	Users     *user.Service
	Projects  *project.Service
	Reactions *reaction.Service
	Logbooks  *logbook.Service
	Activity  *activity.Service
	Ledger    *engagement.Ledger
	Janitor   *attachment.Janitor
}

// New wires the services. The engagement ledger is subscribed to reaction
// events before New returns.
func New(db *sqlite.DB, opts Options) *App {
	logger := opts.Logger

	userRepo := sqlite.NewUserRepository(db)
	projectRepo := sqlite.NewProjectRepository(db)
	reactionRepo := sqlite.NewReactionRepository(db)
	logbookRepo := sqlite.NewLogbookRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)

	queue := opts.Queue
	if queue == nil {
		queue = sqlite.NewCleanupQueue(db)
	}
	janitor := attachment.NewJanitor(opts.Store, queue, opts.Janitor, logger)
	attachments := attachment.NewManager(opts.Store, janitor, logger)

	users := user.NewService(userRepo, logger)
	activitySvc := activity.NewService(activityRepo, logger)
	policy := membership.NewPolicy(users, projectRepo, opts.LookupConcurrency)
	projects := project.NewService(projectRepo, policy, attachments, activitySvc, logger)
	ledger := engagement.NewLedger(projectRepo, logger)
	reactions := reaction.NewService(reactionRepo, projectRepo, logger, ledger)
	logbooks := logbook.NewService(logbookRepo, projects, attachments, activitySvc, logger)

	return &App{
		Users:     users,
		Projects:  projects,
		Reactions: reactions,
		Logbooks:  logbooks,
		Activity:  activitySvc,
		Ledger:    ledger,
		Janitor:   janitor,
	}
}
