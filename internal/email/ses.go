package email

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESSender delivers through Amazon SES. Open and click tracking are
// configured on the SES configuration set, so the set is only attached to
// messages that ask for tracking.
type SESSender struct {
	client           *sesv2.Client
	from             string
	configurationSet string
}

func NewSESSender(cfg aws.Config, from, configurationSet string) (*SESSender, error) {
	if from == "" {
		return nil, fmt.Errorf("ses: from address is not set")
	}
	return &SESSender{
		client:           sesv2.NewFromConfig(cfg),
		from:             from,
		configurationSet: configurationSet,
	}, nil
}

func (s *SESSender) Send(ctx context.Context, msg Message) error {
	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML)},
				},
			},
		},
	}
	if (msg.TrackOpens || msg.TrackClicks) && s.configurationSet != "" {
		in.ConfigurationSetName = aws.String(s.configurationSet)
	}

	if _, err := s.client.SendEmail(ctx, in); err != nil {
		return fmt.Errorf("ses send error: %w", err)
	}
	return nil
}
