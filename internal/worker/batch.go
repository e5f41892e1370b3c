package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Giopap1991/ai-agents/internal/email"
	"github.com/Giopap1991/ai-agents/internal/metrics"
	"github.com/Giopap1991/ai-agents/internal/models"
)

const DefaultChunkSize = 100

// RecipientStore persists each recipient's terminal status as soon as it is
// known, so readers of the campaign see live progress.
type RecipientStore interface {
	MarkRecipientSent(ctx context.Context, id string, at time.Time) error
	MarkRecipientFailed(ctx context.Context, id string, errMsg string) error
}

// Outcome is the terminal result of one recipient's send.
type Outcome struct {
	RecipientID string
	Email       string
	Status      models.RecipientStatus
	SentAt      *time.Time
	Err         string
}

// BatchSender sends one message to many recipients in sequential chunks.
// Every send in a chunk runs concurrently and the chunk is joined before
// the next one starts.
type BatchSender struct {
	Delivery  email.Delivery
	Store     RecipientStore
	Limiter   *rate.Limiter // nil disables throttling
	ChunkSize int
	Log       *zap.Logger

	now func() time.Time
}

// Chunks splits n items into consecutive [start, end) bounds of at most size.
func Chunks(n, size int) [][2]int {
	if size <= 0 {
		size = DefaultChunkSize
	}
	bounds := make([][2]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		bounds = append(bounds, [2]int{start, end})
	}
	return bounds
}

// SendBatch delivers subject/htmlBody to every recipient and returns one
// outcome per recipient, in input order. A failed send never stops its
// siblings; there is no retry.
func (b *BatchSender) SendBatch(
	ctx context.Context,
	recipients []models.Recipient,
	subject string,
	htmlBody string,
) []Outcome {

	outcomes := make([]Outcome, len(recipients))

	for i, bounds := range Chunks(len(recipients), b.ChunkSize) {
		var g errgroup.Group

		for idx := bounds[0]; idx < bounds[1]; idx++ {
			rcpt := recipients[idx]
			g.Go(func() error {
				outcomes[idx] = b.sendOne(ctx, rcpt, subject, htmlBody)
				return nil
			})
		}

		// Sends never return an error to the group; Wait is only the join.
		_ = g.Wait()

		b.Log.Debug("chunk complete",
			zap.Int("chunk", i),
			zap.Int("size", bounds[1]-bounds[0]),
		)
	}

	return outcomes
}

func (b *BatchSender) sendOne(
	ctx context.Context,
	rcpt models.Recipient,
	subject string,
	htmlBody string,
) Outcome {

	out := Outcome{RecipientID: rcpt.ID, Email: rcpt.Email}

	// ----------------------------
	// Rate Limit
	// ----------------------------
	err := b.wait(ctx)

	// ----------------------------
	// Send Email
	// ----------------------------
	if err == nil {
		err = b.Delivery.Send(ctx, email.Message{
			To:          rcpt.Email,
			Subject:     subject,
			HTML:        htmlBody,
			TrackOpens:  true,
			TrackClicks: true,
		})
	}

	if err != nil {
		out.Status = models.RecipientFailed
		out.Err = err.Error()

		b.Log.Error("email send failed",
			zap.String("recipient_id", rcpt.ID),
			zap.String("to", rcpt.Email),
			zap.Error(err),
		)

		if dbErr := b.Store.MarkRecipientFailed(ctx, rcpt.ID, out.Err); dbErr != nil {
			b.Log.Error("failed to update failure status",
				zap.String("recipient_id", rcpt.ID),
				zap.Error(dbErr),
			)
		}

		metrics.RecipientFailures.Inc()
		return out
	}

	// ----------------------------
	// Mark as Sent
	// ----------------------------
	at := b.clock()
	out.Status = models.RecipientSent
	out.SentAt = &at

	if err := b.Store.MarkRecipientSent(ctx, rcpt.ID, at); err != nil {
		b.Log.Error("failed to update sent status",
			zap.String("recipient_id", rcpt.ID),
			zap.Error(err),
		)
	}

	metrics.RecipientsSent.Inc()
	return out
}

func (b *BatchSender) wait(ctx context.Context) error {
	if b.Limiter == nil {
		return nil
	}
	return b.Limiter.Wait(ctx)
}

func (b *BatchSender) clock() time.Time {
	if b.now != nil {
		return b.now()
	}
	return time.Now().UTC()
}

// FailedCount reduces outcomes to the number of failed recipients.
func FailedCount(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == models.RecipientFailed {
			n++
		}
	}
	return n
}
