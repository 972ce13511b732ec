package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"taskmanager/internal/auth"
	"taskmanager/internal/config"
	"taskmanager/internal/db"
	apperrors "taskmanager/internal/errors"
	"taskmanager/internal/logging"
	"taskmanager/internal/mail"
	"taskmanager/internal/repository"
	"taskmanager/internal/service"
)

// FixtureTask is a task created for a fixture user.
type FixtureTask struct {
	Description string
	Completed   bool
}

// FixtureUser is a user created by the seed script.
type FixtureUser struct {
	Name     string
	Email    string
	Password string
	Tasks    []FixtureTask
}

var fixtures = []FixtureUser{
	{
		Name:     "Mike",
		Email:    "mike@example.com",
		Password: "56what!!",
		Tasks: []FixtureTask{
			{Description: "First task", Completed: false},
			{Description: "Second task", Completed: true},
		},
	},
	{
		Name:     "Jess",
		Email:    "jess@example.com",
		Password: "myhouse099@@",
		Tasks: []FixtureTask{
			{Description: "Third task", Completed: true},
		},
	},
}

func main() {
	cfg := config.Load()
	log := logging.New(os.Stdout, cfg.LogLevel)
	ctx := context.Background()

	log.Info(ctx, "starting seed script")

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Error(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Error(ctx, "failed to run migrations", "error", err)
		os.Exit(1)
	}
	log.Info(ctx, "database migrations completed")

	// fixture addresses are not real, so mail is only logged
	mailer, err := mail.NewAsyncMailer(mail.NewLogSender(log), log, len(fixtures))
	if err != nil {
		log.Error(ctx, "failed to build mailer", "error", err)
		os.Exit(1)
	}
	defer mailer.Close()

	userRepo := repository.NewUserRepository(gormDB)
	authService := service.NewAuthService(userRepo, auth.NewJWTService(cfg.JWTSecret), mailer, log)
	taskService := service.NewTaskService(repository.NewTaskRepository(gormDB))

	created, existing, err := seedUsers(ctx, authService, taskService, fixtures, func(s seeded) {
		fmt.Printf("%s\t%s\t%s\n", s.Email, s.UserID, s.Token)
	})
	if err != nil {
		log.Error(ctx, "failed to seed users", "error", err)
		mailer.Close()
		os.Exit(1)
	}

	log.Info(ctx, "seed completed", "created", created, "existing", existing)
}

type seeded struct {
	Email  string
	UserID string
	Token  string
}

// seedUsers creates the fixture users with their tasks. Users that already
// exist are logged in instead and their tasks are left alone.
func seedUsers(ctx context.Context, authService service.AuthService, taskService service.TaskService, users []FixtureUser, report func(seeded)) (created int, existing int, err error) {
	for _, f := range users {
		user, token, err := authService.CreateUser(ctx, service.CreateUserInput{
			Name:     f.Name,
			Email:    f.Email,
			Password: f.Password,
		})
		if errors.Is(err, apperrors.ErrDuplicateCredential) {
			user, token, err = authService.Authenticate(ctx, f.Email, f.Password)
			if err != nil {
				return created, existing, fmt.Errorf("log in existing user %s: %w", f.Email, err)
			}
			existing++
			report(seeded{Email: f.Email, UserID: user.ID.String(), Token: token})
			continue
		}
		if err != nil {
			return created, existing, fmt.Errorf("create user %s: %w", f.Email, err)
		}

		for _, t := range f.Tasks {
			if _, err := taskService.Create(ctx, user.ID, t.Description, t.Completed); err != nil {
				return created, existing, fmt.Errorf("create task for %s: %w", f.Email, err)
			}
		}
		created++
		report(seeded{Email: f.Email, UserID: user.ID.String(), Token: token})
	}
	return created, existing, nil
}
