package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/roofclaim/internal/model"
	"github.com/sells-group/roofclaim/internal/store"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect review tasks",
	Long:  "Commands for listing and viewing a user's review tasks.",
}

// -- tasks list --

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's tasks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		user, _ := cmd.Flags().GetString("user")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		tasks, err := st.ListTasks(ctx, user, store.TaskFilter{
			Status: model.TaskStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "tasks list")
		}

		if len(tasks) == 0 {
			fmt.Fprintln(os.Stderr, "No tasks found.")
			return nil
		}

		formatTasksList(os.Stdout, tasks)
		return nil
	},
}

// -- tasks show --

var tasksShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show full details of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		user, _ := cmd.Flags().GetString("user")
		task, err := st.GetTask(ctx, user, args[0])
		if err != nil {
			return eris.Wrap(err, "tasks show")
		}
		if task == nil {
			return eris.Errorf("task %s not found", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(task)
	},
}

func init() {
	tasksCmd.PersistentFlags().String("user", "", "owner user ID")
	_ = tasksCmd.MarkPersistentFlagRequired("user")

	tasksListCmd.Flags().String("status", "", "filter by status (created, extracting, review, analyzed, failed)")
	tasksListCmd.Flags().Int("limit", 50, "max number of tasks to display")

	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksShowCmd)
	rootCmd.AddCommand(tasksCmd)
}

// formatTasksList writes a tabular list of tasks to w.
func formatTasksList(out io.Writer, tasks []model.Task) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tSTATUS\tFILES\tRESULT\tUPDATED")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t-----\t------\t-------")

	for _, t := range tasks {
		name := t.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			truncateID(t.ID),
			name,
			t.Status,
			len(t.Files),
			resultSummary(t.Comparison),
			t.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// resultSummary renders pass/failed/missing counts, or "-" without an
// analysis.
func resultSummary(c *model.ComparisonResult) string {
	if c == nil {
		return "-"
	}
	s := c.Summary
	return fmt.Sprintf("%d/%d/%d", s.Pass, s.Failed, s.Missing)
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
