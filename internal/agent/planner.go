package agent

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Giopap1991/ai-agents/internal/apperr"
	"github.com/Giopap1991/ai-agents/internal/llm"
	"github.com/Giopap1991/ai-agents/internal/models"
)

const plannerInstruction = `You are a professional project planner.
Create a clear, actionable plan for the given task.
Break it down into numbered steps with brief explanations.
Focus on practical, achievable steps.`

// Planner produces a free-text action plan for a GENERAL task.
type Planner struct {
	LLM         llm.Client
	Model       string
	Temperature float32
	MaxTokens   int
}

func (p *Planner) Plan(ctx context.Context, prompt string) (string, error) {
	text, err := p.LLM.Complete(ctx, llm.Request{
		Model:       p.Model,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: plannerInstruction},
			{Role: llm.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", apperr.Remote("plan generation failed", err)
	}
	if text == "" {
		text = "No response generated"
	}
	return text, nil
}

type PlanResult struct {
	Plan      string `json:"plan"`
	RequestID string `json:"requestId"`
}

// PlanService answers direct plan requests and records each one as a
// completed GENERAL task.
type PlanService struct {
	Planner *Planner
	Tasks   TaskStore
	Log     *zap.Logger
}

func ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return apperr.Invalid("Prompt is required")
	}
	return nil
}

func (s *PlanService) GeneratePlan(ctx context.Context, userID, prompt string) (*PlanResult, error) {
	if err := ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	plan, err := s.Planner.Plan(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result, err := json.Marshal(TaskResult{Kind: models.KindGeneral, Success: true, Plan: plan})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to encode plan", err)
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      models.KindGeneral,
		Prompt:    prompt,
		Result:    result,
		Status:    models.TaskCompleted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Tasks.CreateTask(ctx, task); err != nil {
		return nil, apperr.Persistence("failed to record plan", err)
	}

	s.Log.Info("plan generated", zap.String("task_id", task.ID), zap.String("user_id", userID))

	return &PlanResult{Plan: plan, RequestID: task.ID}, nil
}
