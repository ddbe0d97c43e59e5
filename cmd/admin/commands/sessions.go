package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kidchat/kidchat-api/internal/config"
	"github.com/kidchat/kidchat-api/internal/database"
	"github.com/spf13/cobra"
)

// NewSessionsCmd creates the sessions command with maintenance subcommands.
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage chat sessions",
		Long:  "Maintenance operations on chat sessions",
	}
	cmd.AddCommand(newSessionsCloseIdleCmd())
	cmd.AddCommand(newSessionsPurgeCmd())
	return cmd
}

func newSessionsCloseIdleCmd() *cobra.Command {
	var idleFor time.Duration
	cmd := &cobra.Command{
		Use:   "close-idle",
		Short: "Close sessions with no recent activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := sessionRepo()
			if err != nil {
				return err
			}
			defer closeDB()

			closed, err := repo.CloseIdle(context.Background(), time.Now().Add(-idleFor))
			if err != nil {
				return fmt.Errorf("close idle sessions: %w", err)
			}
			fmt.Printf("Closed %d idle session(s)\n", closed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&idleFor, "idle-for", 30*time.Minute, "Close sessions idle for at least this long")
	return cmd
}

func newSessionsPurgeCmd() *cobra.Command {
	var messageRetention, sessionRetention time.Duration
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete messages and sessions past their retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := sessionRepo()
			if err != nil {
				return err
			}
			defer closeDB()

			ctx := context.Background()
			now := time.Now()
			messages, err := repo.PurgeMessages(ctx, now.Add(-messageRetention))
			if err != nil {
				return fmt.Errorf("purge messages: %w", err)
			}
			sessions, err := repo.PurgeSessions(ctx, now.Add(-sessionRetention))
			if err != nil {
				return fmt.Errorf("purge sessions: %w", err)
			}
			fmt.Printf("Purged %d message(s) and %d session(s)\n", messages, sessions)
			return nil
		},
	}
	cmd.Flags().DurationVar(&messageRetention, "message-retention", 7*24*time.Hour, "Delete messages older than this")
	cmd.Flags().DurationVar(&sessionRetention, "session-retention", 30*24*time.Hour, "Delete ended sessions older than this")
	return cmd
}

func sessionRepo() (*database.SessionRepository, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}
	return database.NewSessionRepository(db), closeDB, nil
}
