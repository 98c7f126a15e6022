package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/frahmantamala/ops-portal/internal/rbac"
	"github.com/frahmantamala/ops-portal/internal/workflow"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	listFilter string

	transitionNote     string
	transitionExpected string

	submitTool          string
	submitJustification string
	submitUsers         int
	submitUrgency       string
	submitCost          string
	submitCurrency      string

	leaveStart  string
	leaveEnd    string
	leaveType   string
	leaveReason string
)

var requestsCmd = &cobra.Command{
	Use:     "requests",
	Aliases: []string{"request"},
	Short:   "List, submit and action tool requests",
}

var leaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "List, submit and action leave requests",
}

var listRequestsCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tool requests you can see",
	RunE: withSession(func(ctx context.Context, c *cliSession, _ []string) error {
		p, err := c.principal(ctx)
		if err != nil {
			return err
		}
		filter, err := workflow.ParseFilter(listFilter)
		if err != nil {
			return err
		}
		list, err := c.deps.Workflow.ListToolRequests(ctx, p, filter)
		if err != nil {
			return err
		}

		fmt.Fprintf(c.out, "%s (%s)\n", list.Title, filter)
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTOOL\tREQUESTER\tURGENCY\tSTATUS\tACTIONS")
		for _, r := range list.Items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.RequestID, r.ToolName, r.Requester.Name, r.Urgency, r.Status, joinActions(r.Actions))
		}
		return tw.Flush()
	}),
}

var submitRequestCmd = &cobra.Command{
	Use:   "submit",
	Short: "Request access to a tool",
	RunE: withSession(func(ctx context.Context, c *cliSession, _ []string) error {
		p, err := c.principal(ctx)
		if err != nil {
			return err
		}
		dto := workflow.SubmitToolRequest{
			ToolName:      submitTool,
			Justification: submitJustification,
			ExpectedUsers: submitUsers,
			Urgency:       submitUrgency,
			Currency:      submitCurrency,
		}
		if submitCost != "" {
			cost, err := decimal.NewFromString(submitCost)
			if err != nil {
				return fmt.Errorf("invalid --estimated-cost %q: %w", submitCost, err)
			}
			dto.EstimatedCost = &cost
		}

		view, err := c.deps.Workflow.SubmitToolRequest(ctx, p, dto)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Submitted request %s for %s (%s).\n", view.RequestID, view.ToolName, view.Status)
		return nil
	}),
}

var listLeaveCmd = &cobra.Command{
	Use:   "list",
	Short: "List the leave requests you can see",
	RunE: withSession(func(ctx context.Context, c *cliSession, _ []string) error {
		p, err := c.principal(ctx)
		if err != nil {
			return err
		}
		filter, err := workflow.ParseFilter(listFilter)
		if err != nil {
			return err
		}
		list, err := c.deps.Workflow.ListLeaveRequests(ctx, p, filter)
		if err != nil {
			return err
		}

		fmt.Fprintf(c.out, "%s (%s)\n", list.Title, filter)
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tREQUESTER\tTYPE\tFROM\tTO\tDAYS\tSTATUS\tACTIONS")
		for _, l := range list.Items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
				l.LeaveID, l.Requester.Name, l.LeaveType,
				l.StartDate.Format("2006-01-02"), l.EndDate.Format("2006-01-02"),
				l.Days, l.Status, joinActions(l.Actions))
		}
		return tw.Flush()
	}),
}

var submitLeaveCmd = &cobra.Command{
	Use:   "submit",
	Short: "Request leave",
	RunE: withSession(func(ctx context.Context, c *cliSession, _ []string) error {
		p, err := c.principal(ctx)
		if err != nil {
			return err
		}
		view, err := c.deps.Workflow.SubmitLeaveRequest(ctx, p, workflow.SubmitLeaveRequest{
			StartDate: leaveStart,
			EndDate:   leaveEnd,
			LeaveType: leaveType,
			Reason:    leaveReason,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Submitted leave %s for %d day(s) (%s).\n", view.LeaveID, view.Days, view.Status)
		return nil
	}),
}

// transitionCommand builds one action subcommand. Without --note the note is
// prompted for, and ending input at the prompt cancels the action.
func transitionCommand(use string, action rbac.Action, leave bool) *cobra.Command {
	kind := "tool request"
	if leave {
		kind = "leave request"
	}
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("%s a %s", strings.ReplaceAll(string(action), "_", " "), kind),
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, c *cliSession, args []string) error {
			p, err := c.principal(ctx)
			if err != nil {
				return err
			}
			if err := rbac.Authorize(p, action); err != nil {
				return err
			}

			note := workflow.NoteText(transitionNote)
			if transitionNote == "" {
				if note, err = c.readNote(action); err != nil {
					return err
				}
			}
			in := workflow.TransitionInput{Action: action, Note: note, ExpectedStatus: transitionExpected}

			var (
				result workflow.Result
				status string
			)
			if leave {
				out, err := c.deps.Workflow.TransitionLeave(ctx, p, args[0], in)
				if err != nil {
					return err
				}
				result = out.Result
				if out.Request != nil {
					status = string(out.Request.Status)
				}
			} else {
				out, err := c.deps.Workflow.TransitionToolRequest(ctx, p, args[0], in)
				if err != nil {
					return err
				}
				result = out.Result
				if out.Request != nil {
					status = string(out.Request.Status)
				}
			}
			printOutcome(c.out, args[0], result, status)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&transitionNote, "note", "n", "", "note appended to the request (prompted when absent)")
	cmd.Flags().StringVar(&transitionExpected, "expect", "", "fail unless the request is still in this status")
	return cmd
}

// readNote prompts for the transition note; input ending before anything is
// typed yields a cancelled note.
func (c *cliSession) readNote(action rbac.Action) (workflow.Note, error) {
	text, ok, err := c.prompt(fmt.Sprintf("Note for %s (Ctrl-D to cancel): ", strings.ReplaceAll(string(action), "_", " ")))
	if err != nil {
		return workflow.Note{}, err
	}
	if !ok {
		return workflow.CancelledNote(), nil
	}
	return workflow.NoteText(text), nil
}

func printOutcome(w io.Writer, id string, result workflow.Result, status string) {
	if result == workflow.ResultCancelled {
		fmt.Fprintln(w, "Cancelled; nothing changed.")
		return
	}
	fmt.Fprintf(w, "%s is now %s.\n", id, status)
}

func joinActions(actions []rbac.Action) string {
	if len(actions) == 0 {
		return "-"
	}
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = string(a)
	}
	return strings.Join(parts, ",")
}

func init() {
	for _, c := range []*cobra.Command{listRequestsCmd, listLeaveCmd} {
		c.Flags().StringVarP(&listFilter, "filter", "f", "all", "all, pending or resolved")
	}

	submitRequestCmd.Flags().StringVar(&submitTool, "tool", "", "tool name")
	submitRequestCmd.Flags().StringVar(&submitJustification, "justification", "", "why the tool is needed")
	submitRequestCmd.Flags().IntVar(&submitUsers, "users", 1, "expected number of users")
	submitRequestCmd.Flags().StringVar(&submitUrgency, "urgency", "medium", "low, medium or high")
	submitRequestCmd.Flags().StringVar(&submitCost, "estimated-cost", "", "estimated monthly cost")
	submitRequestCmd.Flags().StringVar(&submitCurrency, "currency", "USD", "currency of the estimated cost")

	submitLeaveCmd.Flags().StringVar(&leaveStart, "start", "", "first day, YYYY-MM-DD")
	submitLeaveCmd.Flags().StringVar(&leaveEnd, "end", "", "last day, YYYY-MM-DD")
	submitLeaveCmd.Flags().StringVar(&leaveType, "type", "Annual", "leave type")
	submitLeaveCmd.Flags().StringVar(&leaveReason, "reason", "", "reason")

	requestsCmd.AddCommand(listRequestsCmd, submitRequestCmd,
		transitionCommand("approve", rbac.ActionApprove, false),
		transitionCommand("reject", rbac.ActionReject, false),
		transitionCommand("need-info", rbac.ActionNeedInfo, false),
		transitionCommand("procure", rbac.ActionProcure, false),
		transitionCommand("grant", rbac.ActionGrantAccess, false),
	)
	leaveCmd.AddCommand(listLeaveCmd, submitLeaveCmd,
		transitionCommand("approve", rbac.ActionApprove, true),
		transitionCommand("reject", rbac.ActionReject, true),
		transitionCommand("need-info", rbac.ActionNeedInfo, true),
	)

	rootCmd.AddCommand(requestsCmd, leaveCmd)
}
