// Package safety screens generated recommendations with a content-safety
// classifier.
package safety

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-advisor/internal/config"
	"github.com/spec-kit/ticket-advisor/internal/domain"
	"github.com/spec-kit/ticket-advisor/internal/llm"
	"github.com/spec-kit/ticket-advisor/internal/observability"
)

// Roles understood by the classifier prompt.
const (
	RoleAgent = "Agent"
	RoleUser  = "User"
)

// ErrMissingAPIKey disables safety checking when no credentials are configured.
var ErrMissingAPIKey = errors.New("safety: api key not configured")

// Classifier labels a piece of text as safe or unsafe.
type Classifier interface {
	Classify(ctx context.Context, text, role string) (domain.SafetyVerdict, error)
}

var categoryNames = map[string]string{
	"S1":  "Violent Crimes",
	"S2":  "Non-Violent Crimes",
	"S3":  "Sex-Related Crimes",
	"S4":  "Child Sexual Exploitation",
	"S5":  "Defamation",
	"S6":  "Specialized Advice",
	"S7":  "Privacy",
	"S8":  "Intellectual Property",
	"S9":  "Indiscriminate Weapons",
	"S10": "Hate",
	"S11": "Suicide & Self-Harm",
	"S12": "Sexual Content",
	"S13": "Elections",
	"S14": "Code Interpreter Abuse",
}

// CategoryName returns the readable name of a hazard code, or the code itself.
func CategoryName(code string) string {
	if name, ok := categoryNames[strings.ToUpper(code)]; ok {
		return name
	}
	return code
}

// LlamaGuardClassifier calls Llama Guard 3 through an OpenAI-compatible API.
type LlamaGuardClassifier struct {
	completer llm.Completer
}

// NewLlamaGuardClassifier connects to the configured endpoint.
func NewLlamaGuardClassifier(cfg config.SafetyConfig, timeout time.Duration, logger *zap.Logger, metrics *observability.Metrics) (*LlamaGuardClassifier, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	client := llm.NewOpenAIClientWithConfig(clientCfg, cfg.Model, "", timeout, observability.Component(logger, "safety"), metrics)
	return NewClassifierWithCompleter(client), nil
}

// NewClassifierWithCompleter wraps any completer serving a Llama Guard model.
func NewClassifierWithCompleter(completer llm.Completer) *LlamaGuardClassifier {
	return &LlamaGuardClassifier{completer: completer}
}

func (c *LlamaGuardClassifier) Classify(ctx context.Context, text, role string) (domain.SafetyVerdict, error) {
	if role == "" {
		role = RoleAgent
	}
	raw, err := c.completer.Complete(ctx, llm.Request{
		Operation:   "safety_check",
		User:        guardPrompt(text, role),
		Temperature: 0,
		MaxTokens:   100,
	})
	if err != nil {
		return domain.SafetyVerdict{}, err
	}
	return ParseVerdict(raw, role), nil
}

// ParseVerdict reads the classifier reply. The first line is "safe" or
// "unsafe"; an unsafe reply lists violated codes on the second line.
func ParseVerdict(raw, role string) domain.SafetyVerdict {
	result := strings.TrimSpace(raw)
	lines := strings.Split(result, "\n")

	verdict := domain.SafetyVerdict{
		IsSafe:             strings.EqualFold(strings.TrimSpace(lines[0]), "safe"),
		ViolatedCategories: []string{},
		RawResponse:        result,
		Role:               role,
	}
	if !verdict.IsSafe && len(lines) > 1 {
		for _, code := range strings.Split(lines[1], ",") {
			if code = strings.TrimSpace(code); code != "" {
				verdict.ViolatedCategories = append(verdict.ViolatedCategories, code)
			}
		}
	}
	return verdict
}

func guardPrompt(text, role string) string {
	return fmt.Sprintf(`<|begin_of_text|><|start_header_id|>user<|end_header_id|>

Task: Check if there is unsafe content in '%[1]s' messages in conversations according our safety policy with the below categories.

<BEGIN UNSAFE CONTENT CATEGORIES>
%[3]s
<END UNSAFE CONTENT CATEGORIES>

<BEGIN CONVERSATION>

%[1]s: %[2]s

<END CONVERSATION>

Provide your safety assessment for %[1]s in the above conversation:
- First line must read 'safe' or 'unsafe'.
- If unsafe, a second line must include a comma-separated list of violated categories.<|eot_id|><|start_header_id|>assistant<|end_header_id|>`, role, text, categoryList())
}

func categoryList() string {
	lines := make([]string, 0, len(categoryNames))
	for i := 1; i <= len(categoryNames); i++ {
		code := fmt.Sprintf("S%d", i)
		lines = append(lines, code+": "+categoryNames[code])
	}
	return strings.Join(lines, "\n")
}
