package commands

import (
	"fmt"
	"strings"

	"github.com/kidchat/kidchat-api/internal/safety"
	"github.com/spf13/cobra"
)

// NewClassifyCmd creates the classify command
func NewClassifyCmd() *cobra.Command {
	var rulesPath string
	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Run text through the content filter",
		Long:  "Classify a message with the keyword filter and print the outcome. Useful for curating filter rules.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter safety.Filter
			if rulesPath != "" {
				rules, err := safety.LoadRules(rulesPath)
				if err != nil {
					return fmt.Errorf("load filter rules: %w", err)
				}
				f, err := safety.NewKeywordFilter(rules)
				if err != nil {
					return fmt.Errorf("build filter: %w", err)
				}
				filter = f
			} else {
				filter = safety.NewDefaultFilter()
			}

			text := strings.Join(args, " ")
			c := filter.Classify(text)
			if !c.Blocked {
				fmt.Println("Allowed")
				return nil
			}
			fmt.Println("Blocked")
			fmt.Printf("  Category: %s\n", c.Category)
			fmt.Printf("  Alert type: %s\n", c.AlertType)
			fmt.Printf("  Severity: %s\n", c.Severity)
			fmt.Printf("  Title: %s\n", c.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesPath, "rules", "", "Path to a YAML rules file (defaults to the built-in set)")
	return cmd
}
