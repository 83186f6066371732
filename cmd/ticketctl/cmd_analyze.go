package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/knowledge"
)

var analyzeFlags struct {
	ticketID    string
	subject     string
	description string
	submitter   string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one ticket analysis and print the JSON result",
	Long: `Analyze a bundled sample ticket or ad-hoc text.

Usage:
  ticketctl analyze --ticket TKT-001
  ticketctl analyze --subject "Outlook crashes" --description "Since this morning..."

The in-memory knowledge base is seeded before the run when KB_BACKEND=memory.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.ticketID, "ticket", "", "Sample ticket id (see 'ticketctl samples')")
	f.StringVar(&analyzeFlags.subject, "subject", "", "Ticket subject")
	f.StringVar(&analyzeFlags.description, "description", "", "Ticket description")
	f.StringVar(&analyzeFlags.submitter, "submitter", "", "Ticket submitter")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ticket, err := resolveTicket(analyzeFlags.ticketID, analyzeFlags.subject, analyzeFlags.description, analyzeFlags.submitter)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.cfg.Knowledge.SeedOnStart {
		if _, err := rt.stack.Seed(ctx, rt.logger); err != nil {
			return fmt.Errorf("seed knowledge base: %w", err)
		}
	}

	analysis, err := rt.stack.Agent.Analyze(ctx, ticket)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), analysis)
}

func resolveTicket(id, subject, description, submitter string) (domain.Ticket, error) {
	if id != "" {
		samples, err := knowledge.LoadSampleTickets()
		if err != nil {
			return domain.Ticket{}, err
		}
		for _, s := range samples {
			if strings.EqualFold(s.ID, id) {
				return s.Ticket, nil
			}
		}
		return domain.Ticket{}, fmt.Errorf("unknown sample ticket %q", id)
	}
	if strings.TrimSpace(subject) == "" && strings.TrimSpace(description) == "" {
		return domain.Ticket{}, fmt.Errorf("--ticket or --subject/--description is required")
	}
	return domain.Ticket{
		ID:          "TKT-ADHOC",
		Subject:     subject,
		Description: description,
		Submitter:   submitter,
		SubmittedAt: time.Now().UTC(),
	}, nil
}
