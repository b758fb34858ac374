// Command admin registers users and issues API keys against the server's database.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rpggio/teamwork/internal/config"
	"github.com/rpggio/teamwork/internal/domain/user"
	"github.com/rpggio/teamwork/internal/sqlite"
)

const usage = `usage: admin <command> [flags]

commands:
  register   create a user; prints its id
  issue-key  issue an API key for a user; prints the key once
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%s", usage)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.RunMigrations(); err != nil {
		return err
	}
	users := user.NewService(sqlite.NewUserRepository(db), slog.New(slog.NewTextHandler(os.Stderr, nil)))

	switch args[0] {
	case "register":
		return register(ctx, users, args[1:], out)
	case "issue-key":
		return issueKey(ctx, users, args[1:], out)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func register(ctx context.Context, users *user.Service, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var req user.RegisterRequest
	var role string
	fs.StringVar(&req.FirstName, "first", "", "first name")
	fs.StringVar(&req.LastName, "last", "", "last name")
	fs.StringVar(&req.Username, "username", "", "unique username")
	fs.StringVar(&req.Email, "email", "", "unique email address")
	fs.StringVar(&role, "role", string(user.RoleStudent), "student or mentor")
	fs.StringVar(&req.SchoolID, "school", "", "school id")
	withKey := fs.Bool("key", false, "also issue an API key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req.Role = user.Role(role)

	u, err := users.Register(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, u.ID)
	if *withKey {
		key, err := users.IssueAPIKey(ctx, u.ID)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, key)
	}
	return nil
}

func issueKey(ctx context.Context, users *user.Service, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("issue-key", flag.ContinueOnError)
	userID := fs.String("user", "", "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return fmt.Errorf("issue-key: -user is required")
	}
	key, err := users.IssueAPIKey(ctx, *userID)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, key)
	return nil
}
