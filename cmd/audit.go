package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/frahmantamala/hrm-access/internal/audit"
	"github.com/frahmantamala/hrm-access/internal/permission"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Browse the audit trail",
}

var auditFlags struct {
	username   string
	action     string
	entityType string
	from       string
	to         string
	limit      string
	offset     string
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit log entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		set := func(key, value string) {
			if value != "" {
				q.Set(key, value)
			}
		}
		set("username", auditFlags.username)
		set("action", auditFlags.action)
		set("entity_type", auditFlags.entityType)
		set("from", auditFlags.from)
		set("to", auditFlags.to)
		set("limit", auditFlags.limit)
		set("offset", auditFlags.offset)

		filter, appErr := audit.ParseFilter(q)
		if appErr != nil {
			return appErr
		}

		return withOperator(cmd, func(ctx context.Context, app *App, session *permission.Session) error {
			result, err := app.Audit.List(ctx, session, filter)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tUSER\tACTION\tENTITY\tID\tDETAILS")
			for _, e := range result.Logs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Username, e.Action, e.EntityType, deref(e.EntityID), deref(e.Details))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("%d of %d entries\n", len(result.Logs), result.TotalCount)
			return nil
		})
	},
}

var auditSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show activity totals and the busiest actions and users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOperator(cmd, func(ctx context.Context, app *App, session *permission.Session) error {
			s, err := app.Audit.Summary(ctx, session)
			if err != nil {
				return err
			}
			fmt.Printf("Total: %d  Today: %d  Last 7 days: %d\n\n", s.TotalLogs, s.TodayLogs, s.WeekLogs)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ACTION\tCOUNT")
			for _, a := range s.ActionBreakdown {
				fmt.Fprintf(w, "%s\t%d\n", a.Action, a.Count)
			}
			fmt.Fprintln(w, "\nUSER (7 DAYS)\tCOUNT")
			for _, u := range s.ActiveUsers {
				fmt.Fprintf(w, "%s\t%d\n", u.Username, u.Count)
			}
			return w.Flush()
		})
	},
}

func init() {
	addOperatorFlags(auditCmd)

	f := auditListCmd.Flags()
	f.StringVar(&auditFlags.username, "username", "", "case-insensitive username substring")
	f.StringVar(&auditFlags.action, "action", "", "exact action, e.g. LOGIN")
	f.StringVar(&auditFlags.entityType, "entity-type", "", "exact entity type, e.g. USER")
	f.StringVar(&auditFlags.from, "from", "", "first day, YYYY-MM-DD")
	f.StringVar(&auditFlags.to, "to", "", "last day, YYYY-MM-DD")
	f.StringVar(&auditFlags.limit, "limit", "", "page size")
	f.StringVar(&auditFlags.offset, "offset", "", "entries to skip")

	auditCmd.AddCommand(auditListCmd, auditSummaryCmd)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
