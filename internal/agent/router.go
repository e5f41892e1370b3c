// Package agent classifies free-text requests and routes them to the
// campaign, presentation or planning handlers.
package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Giopap1991/ai-agents/internal/apperr"
	"github.com/Giopap1991/ai-agents/internal/campaign"
	"github.com/Giopap1991/ai-agents/internal/classifier"
	"github.com/Giopap1991/ai-agents/internal/events"
	"github.com/Giopap1991/ai-agents/internal/metrics"
	"github.com/Giopap1991/ai-agents/internal/models"
	"github.com/Giopap1991/ai-agents/internal/presentation"
)

const defaultCampaignSubject = "Generated Campaign"

type TaskStore interface {
	CreateTask(ctx context.Context, t *models.Task) error
	FinalizeTask(ctx context.Context, id string, status models.TaskStatus, result json.RawMessage) error
}

type Classifier interface {
	Classify(ctx context.Context, prompt string) (classifier.Classification, error)
}

type CampaignSender interface {
	Send(ctx context.Context, req campaign.Request) (*campaign.Result, error)
}

type PresentationCreator interface {
	Create(ctx context.Context, userID, topic string) (*presentation.Result, error)
}

type PlanWriter interface {
	Plan(ctx context.Context, prompt string) (string, error)
}

// TaskResult is the stored and returned outcome of a dispatched task.
// Exactly one of Plan, Campaign or Presentation is set on success; Message
// and Error describe a structured failure.
type TaskResult struct {
	Kind         models.TaskKind      `json:"type"`
	Success      bool                 `json:"success"`
	Plan         string               `json:"plan,omitempty"`
	Campaign     *campaign.Result     `json:"campaign,omitempty"`
	Presentation *presentation.Result `json:"presentation,omitempty"`
	Message      string               `json:"message,omitempty"`
	Error        string               `json:"error,omitempty"`
}

type Response struct {
	TaskID string          `json:"taskId"`
	Kind   models.TaskKind `json:"type"`
	Result TaskResult      `json:"result"`
}

type Router struct {
	Classifier    Classifier
	Tasks         TaskStore
	Campaigns     CampaignSender
	Presentations PresentationCreator
	Planner       PlanWriter
	Events        events.Publisher
	Log           *zap.Logger

	// Finalize retries for the task update after dispatch.
	RetryAttempts int
	RetryInterval time.Duration
}

// Orchestrate classifies prompt, records a PROCESSING task, dispatches it and
// finalizes the task with the serialized result.
func (r *Router) Orchestrate(ctx context.Context, userID, prompt string) (*Response, error) {
	if err := ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	cls, err := r.Classifier.Classify(ctx, prompt)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      cls.Kind,
		Prompt:    prompt,
		Status:    models.TaskProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.Tasks.CreateTask(ctx, task); err != nil {
		return nil, apperr.Persistence("failed to record task", err)
	}

	result := r.Dispatch(ctx, task, cls.Parameters)

	status := models.TaskCompleted
	if !result.Success {
		status = models.TaskFailed
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to encode task result", err)
	}

	if err := r.finalize(context.WithoutCancel(ctx), task.ID, status, payload); err != nil {
		r.Log.Error("task dispatched but not finalized",
			zap.String("task_id", task.ID),
			zap.Error(err),
		)
		return nil, apperr.Persistence("failed to finalize task", err)
	}

	if r.Events != nil {
		if err := r.Events.Publish(ctx, events.Event{
			Type:     events.TaskFinalized,
			UserID:   userID,
			EntityID: task.ID,
			Status:   string(status),
		}); err != nil {
			r.Log.Warn("event publish failed", zap.String("task_id", task.ID), zap.Error(err))
		}
	}

	return &Response{TaskID: task.ID, Kind: task.Kind, Result: result}, nil
}

// Dispatch runs the handler for task.Kind. Handler errors come back as a
// structured failure, never as a Go error.
func (r *Router) Dispatch(ctx context.Context, task *models.Task, params classifier.Parameters) TaskResult {
	start := time.Now()
	kind := task.Kind

	metrics.TasksDispatched.WithLabelValues(string(kind)).Inc()
	defer func() {
		metrics.DispatchDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}()

	res := TaskResult{Kind: kind}
	var err error

	switch kind {
	case models.KindEmail:
		req := campaign.Request{
			UserID:     task.UserID,
			Subject:    params.Subject,
			Body:       params.Body,
			Recipients: params.Recipients,
		}
		if req.Subject == "" {
			req.Subject = defaultCampaignSubject
		}
		res.Campaign, err = r.Campaigns.Send(ctx, req)

	case models.KindPresentation:
		topic := params.Topic
		if topic == "" {
			topic = task.Prompt
		}
		res.Presentation, err = r.Presentations.Create(ctx, task.UserID, topic)

	default:
		res.Kind = models.KindGeneral
		res.Plan, err = r.Planner.Plan(ctx, task.Prompt)
	}

	if err != nil {
		r.Log.Warn("task handler failed",
			zap.String("task_id", task.ID),
			zap.String("task_kind", string(res.Kind)),
			zap.Error(err),
		)
		return TaskResult{
			Kind:    res.Kind,
			Success: false,
			Message: apperr.MessageOf(err),
			Error:   err.Error(),
		}
	}

	res.Success = true
	return res
}

func (r *Router) finalize(ctx context.Context, id string, status models.TaskStatus, payload json.RawMessage) error {
	b := backoff.NewExponentialBackOff()
	if r.RetryInterval > 0 {
		b.InitialInterval = r.RetryInterval
	}

	attempts := r.RetryAttempts
	if attempts < 0 {
		attempts = 0
	}

	op := func() error {
		return r.Tasks.FinalizeTask(ctx, id, status, payload)
	}
	notify := func(err error, wait time.Duration) {
		r.Log.Warn("retrying task finalize",
			zap.String("task_id", id),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	return backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts)), ctx), notify)
}
