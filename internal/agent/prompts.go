package agent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/tools"
)

// FinishMarker in a thought ends the loop.
const FinishMarker = "FINISH"

const (
	thoughtSystemPrompt = `You are a ReAct agent analyzing IT support tickets.
Generate a SINGLE thought about what you need to know next.
Be concise and specific.
If you have enough information, say 'FINISH: I have enough information to provide recommendations.'`

	actionSystemPrompt = "You are a tool selector. Return only valid JSON."

	finalSystemPrompt = `You are an expert IT support advisor.
Based on the analysis, provide a structured recommendation.
Include: immediate actions, tools needed, estimated time, and preventive measures.
Be specific and actionable. Format as JSON.`
)

// finishToken matches the marker as a whole word, so "finished" or
// "unfinished" do not end the loop.
var finishToken = regexp.MustCompile(`(?i)\b` + FinishMarker + `\b`)

func hasFinishSignal(thought string) bool {
	return finishToken.MatchString(thought)
}

func thoughtPrompt(s *session, available []domain.ToolName) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket:\n%s\n\n", s.text)

	if used := s.observations.UsedTools(); len(used) > 0 {
		b.WriteString("Previous observations:\n")
		for _, name := range used {
			obs, _ := s.observations.Get(name)
			fmt.Fprintf(&b, "- %s: %s\n", name, obs.Summary())
		}
		b.WriteString("\n")
	}
	if len(available) > 0 {
		fmt.Fprintf(&b, "Tools not yet used: %s\n\n", joinNames(available))
	}

	b.WriteString("What do you need to know next to solve this ticket?")
	return b.String()
}

func actionPrompt(thought, ticketText string, candidates []tools.Tool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on this thought: %q\n\nFor this ticket:\n%s\n\nAvailable tools:\n", thought, ticketText)
	for i, tool := range candidates {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, tool.Name(), tool.Description())
	}
	b.WriteString(`
Which tool should be used? Respond in JSON format:
{
    "tool": "tool_name",
    "reason": "why this tool"
}`)
	return b.String()
}

func finalPrompt(s *session, maxArticles int) string {
	t := s.ticket
	var b strings.Builder
	fmt.Fprintf(&b, "TICKET ANALYSIS COMPLETE\n\nTicket ID: %s\nSubject: %s\nDescription: %s\n\nANALYSIS RESULTS:\n", t.ID, t.Subject, t.Description)

	if cat := s.observations.Category(); cat != nil {
		fmt.Fprintf(&b, "Category: %s (Confidence: %d%%)\n", cat.Category, cat.Confidence)
	}
	if pri := s.observations.Priority(); pri != nil {
		fmt.Fprintf(&b, "Priority: %s\nResponse Time: %s\n", pri.Priority, pri.ResponseTime)
	}
	if kb := s.observations.Search(); kb != nil {
		fmt.Fprintf(&b, "Relevant KB Articles Found: %d\n", len(kb.Articles))
		for _, article := range topArticles(kb.Articles, maxArticles) {
			fmt.Fprintf(&b, "- %s: %s\n", article.KBID, article.Title)
		}
	}

	b.WriteString(`
Please provide a comprehensive recommendation including:
1. immediate_actions: List of steps to resolve
2. tools_required: IT tools needed
3. estimated_time: Time to resolution
4. preventive_measures: How to prevent this in future
5. escalation_needed: true/false
6. notes: Additional important notes`)
	return b.String()
}

func joinNames(names []domain.ToolName) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}
