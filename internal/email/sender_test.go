package email

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackingHeader(t *testing.T) {
	assert.Empty(t, trackingHeader(Message{To: "a@example.com"}))

	h := trackingHeader(Message{TrackOpens: true, TrackClicks: true})

	var decoded struct {
		Filters map[string]struct {
			Settings struct {
				Enable int `json:"enable"`
			} `json:"settings"`
		} `json:"filters"`
	}
	require.NoError(t, json.Unmarshal([]byte(h), &decoded))
	assert.Equal(t, 1, decoded.Filters["opentrack"].Settings.Enable)
	assert.Equal(t, 1, decoded.Filters["clicktrack"].Settings.Enable)
}

func TestSMTPSenderHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &SMTPSender{Host: "127.0.0.1", Port: 1, From: "noreply@example.com"}
	err := s.Send(ctx, Message{To: "a@example.com", Subject: "hi", HTML: "<p>hi</p>"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSMTPSenderReportsDialFailure(t *testing.T) {
	// Port 1 on loopback is closed; the dial must fail rather than hang.
	s := &SMTPSender{Host: "127.0.0.1", Port: 1, From: "noreply@example.com"}
	err := s.Send(context.Background(), Message{To: "a@example.com", Subject: "hi", HTML: "<p>hi</p>"})
	assert.ErrorContains(t, err, "smtp send error")
}

func TestNewSESSenderRequiresFrom(t *testing.T) {
	_, err := NewSESSender(awsConfigForTest(), "", "")
	assert.Error(t, err)
}
