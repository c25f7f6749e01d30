package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailService sends security notifications to account owners.
type EmailService interface {
	SendTwoFactorEnabledAlert(ctx context.Context, email, name string, enabledAt time.Time) error
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// SendTwoFactorEnabledAlert notifies the account owner that two-factor
// authentication was just enabled, so a hijacked enrollment is noticed.
func (s *AWSSESEmailService) SendTwoFactorEnabledAlert(ctx context.Context, email, name string, enabledAt time.Time) error {
	displayName := name
	if displayName == "" {
		displayName = email
	}

	textBody := fmt.Sprintf(
		"Hi %s,\n\n"+
			"Two-factor authentication was enabled on your account at %s.\n\n"+
			"If you made this change, no action is needed. If you did not, "+
			"contact support immediately: your password may be compromised.\n",
		displayName, enabledAt.UTC().Format(time.RFC1123),
	)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String("Two-factor authentication enabled"),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := s.sesClient.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send two-factor enabled alert: %w", err)
	}

	s.logger.Info("two-factor enabled alert sent", slog.String("to", email))
	return nil
}

// NoopEmailService discards alerts. Used when no sender is configured.
type NoopEmailService struct {
	logger *slog.Logger
}

func NewNoopEmailService(logger *slog.Logger) *NoopEmailService {
	return &NoopEmailService{logger: logger}
}

func (s *NoopEmailService) SendTwoFactorEnabledAlert(_ context.Context, email, _ string, _ time.Time) error {
	s.logger.Info("email delivery disabled, skipping two-factor enabled alert", slog.String("to", email))
	return nil
}
