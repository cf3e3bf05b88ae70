// Package advisor answers spending questions about a workspace with a chat
// model primed with the workspace report.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"tally/internal/core"
	"tally/internal/llm"
)

// Completer is the chat model.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// Reports computes the report the model is primed with.
type Reports interface {
	Compute(ctx context.Context, workspace string, period core.Period, start, end string) (*core.Report, error)
}

type Advisor struct {
	reports Reports
	llm     Completer
}

func New(reports Reports, c Completer) *Advisor {
	return &Advisor{reports: reports, llm: c}
}

// Chat sends message with the session history and the current monthly
// report. Both the message and the reply are remembered only when the
// model answers.
func (a *Advisor) Chat(ctx context.Context, s *Session, workspace, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", core.Validation("message is required")
	}
	report, err := a.reports.Compute(ctx, workspace, core.PeriodMonthly, "", "")
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	user := llm.Message{Role: llm.RoleUser, Content: message}
	messages := []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt(data)}}
	messages = append(messages, s.History()...)
	messages = append(messages, user)

	reply, err := a.llm.Complete(ctx, messages)
	if err != nil {
		return "", core.Upstream(err, "chat completion failed")
	}
	s.Append(user, llm.Message{Role: llm.RoleAssistant, Content: reply})

	slog.InfoContext(ctx, "Advisor replied", "workspace_id", workspace, "history", s.Len())
	return reply, nil
}

// Advice returns saving suggestions drawn from the monthly report,
// optionally steered towards focus.
func (a *Advisor) Advice(ctx context.Context, workspace, focus string) (string, error) {
	report, err := a.reports.Compute(ctx, workspace, core.PeriodMonthly, "", "")
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	answer, err := a.llm.Complete(ctx, []llm.Message{{Role: llm.RoleUser, Content: advicePrompt(data, strings.TrimSpace(focus))}})
	if err != nil {
		return "", core.Upstream(err, "advice completion failed")
	}
	var out struct {
		Suggestions string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(llm.StripFences(answer)), &out); err != nil || out.Suggestions == "" {
		return "", core.Upstream(err, "advice response is not a suggestions object")
	}
	return out.Suggestions, nil
}

func systemPrompt(report []byte) string {
	return "You are a helpful financial assistant. The user has provided the following workspace data:\n\n" +
		string(report) +
		"\n\nUse this data to help answer follow-up questions about their spending, categories, or habits."
}

func advicePrompt(report []byte, focus string) string {
	var focusLine string
	if focus != "" {
		focusLine = fmt.Sprintf("The user's focus is on '%s'. ", focus)
	}
	return fmt.Sprintf(`You are a financial analyst. %sBelow is a summary of my receipts and spending in JSON.

Analyze the spending patterns and give personalized, actionable saving suggestions:
* Identify categories with high or unusual spending.
* Suggest areas to cut down or optimize.
* Recommend behavior or planning changes to improve savings.

Respond with only a JSON object like this:
{"suggestions": "text summarizing key spending insights and specific saving strategies"}

Input JSON:
%s`, focusLine, report)
}
