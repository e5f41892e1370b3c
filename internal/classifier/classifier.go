// Package classifier labels a free-text request with a task kind and the
// parameters the matching handler needs.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Giopap1991/ai-agents/internal/apperr"
	"github.com/Giopap1991/ai-agents/internal/llm"
	"github.com/Giopap1991/ai-agents/internal/metrics"
	"github.com/Giopap1991/ai-agents/internal/models"
)

const instruction = `Analyze the user request and categorize it as one of these types:
EMAIL: Tasks related to email marketing or campaigns
PRESENTATION: Tasks requiring presentation creation
GENERAL: Other planning or organization tasks

Respond with a JSON object only:
{
  "type": "EMAIL|PRESENTATION|GENERAL",
  "parameters": {
    "subject": "email subject, EMAIL only",
    "body": "email HTML body, EMAIL only",
    "recipients": ["email addresses, EMAIL only"],
    "topic": "presentation topic, PRESENTATION only"
  }
}`

// Parameters are the values extracted for the routed handler. Fields that do
// not apply to the kind stay empty.
type Parameters struct {
	Subject    string   `json:"subject,omitempty"`
	Body       string   `json:"body,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
	Topic      string   `json:"topic,omitempty"`
}

type Classification struct {
	Kind       models.TaskKind `json:"type"`
	Parameters Parameters      `json:"parameters"`
}

// Fallback is used whenever the model output cannot be trusted.
func Fallback() Classification {
	return Classification{Kind: models.KindGeneral}
}

type Classifier struct {
	LLM         llm.Client
	Model       string
	Temperature float32
	Log         *zap.Logger
}

// Classify asks the model for a classification. Malformed output falls back
// to GENERAL with empty parameters; only a failed remote call is an error.
func (c *Classifier) Classify(ctx context.Context, prompt string) (Classification, error) {
	text, err := c.LLM.Complete(ctx, llm.Request{
		Model:       c.Model,
		Temperature: c.Temperature,
		JSON:        true,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: instruction},
			{Role: llm.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		metrics.Classifications.WithLabelValues("error").Inc()
		return Classification{}, apperr.Remote("classification call failed", err)
	}

	cls, err := Parse(text)
	if err != nil {
		metrics.Classifications.WithLabelValues("fallback").Inc()
		c.Log.Warn("classification malformed, falling back to GENERAL",
			zap.Error(err),
		)
		return Fallback(), nil
	}

	metrics.Classifications.WithLabelValues("ok").Inc()
	return cls, nil
}

type envelope struct {
	Type       string          `json:"type"`
	Kind       string          `json:"kind"`
	Parameters json.RawMessage `json:"parameters"`
}

// Parse decodes model output into a Classification. It returns an
// apperr.ClassificationMalformed error when the output is not JSON or names
// no known kind. Parameters that do not fit the expected shape are dropped
// rather than failing the whole classification.
func Parse(text string) (Classification, error) {
	var env envelope
	if err := llm.DecodeJSON(text, &env); err != nil {
		return Classification{}, apperr.Wrap(apperr.ClassificationMalformed, "unparseable classification", err)
	}

	raw := env.Type
	if raw == "" {
		raw = env.Kind
	}
	kind, ok := models.ParseTaskKind(raw)
	if !ok {
		return Classification{}, apperr.Wrap(apperr.ClassificationMalformed, "unknown task kind",
			fmt.Errorf("%w: %q", llm.ErrMalformedOutput, raw))
	}

	cls := Classification{Kind: kind}
	if len(env.Parameters) > 0 && string(env.Parameters) != "null" {
		if err := json.Unmarshal(env.Parameters, &cls.Parameters); err != nil {
			cls.Parameters = Parameters{}
		}
	}
	return cls, nil
}

// IsMalformed reports whether err came from unparseable model output.
func IsMalformed(err error) bool {
	return apperr.Is(err, apperr.ClassificationMalformed) || errors.Is(err, llm.ErrMalformedOutput)
}
