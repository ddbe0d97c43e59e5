package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/kidchat/kidchat-api/internal/config"
	"github.com/kidchat/kidchat-api/internal/database"
	"github.com/kidchat/kidchat-api/internal/models"
	"github.com/spf13/cobra"
)

// NewAlertsCmd creates the alerts command
func NewAlertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect parent alerts",
	}
	cmd.AddCommand(newAlertsListCmd())
	return cmd
}

func newAlertsListCmd() *cobra.Command {
	var parentIDStr string
	var unreadOnly bool
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts for a parent",
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, err := uuid.Parse(parentIDStr)
			if err != nil {
				return fmt.Errorf("--parent must be a valid UUID: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			repo := database.NewAlertRepository(db)
			ctx := context.Background()

			var alerts []*models.ParentAlert
			if unreadOnly {
				alerts, err = repo.ListUnread(ctx, parentID)
				if err != nil {
					return fmt.Errorf("list unread alerts: %w", err)
				}
			} else {
				alerts, err = repo.ListAll(ctx, parentID, limit)
				if err != nil {
					return fmt.Errorf("list alerts: %w", err)
				}
			}

			if len(alerts) == 0 {
				fmt.Println("No alerts")
				return nil
			}
			for _, a := range alerts {
				status := "unread"
				if a.WasRead {
					status = "read"
				}
				fmt.Printf("  - %s [%s/%s] %s (%s)\n", a.CreatedAt.Format("2006-01-02 15:04"), a.AlertType, a.Severity, a.Title, status)
				fmt.Printf("    Child: %s\n", a.ChildName)
				fmt.Printf("    Message: %s\n", a.OriginalMessage)
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&parentIDStr, "parent", "", "Parent ID (required)")
	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "Only show unread alerts")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of alerts to show")
	_ = cmd.MarkFlagRequired("parent")
	return cmd
}
