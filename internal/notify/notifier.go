// internal/notify/notifier.go
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smartport-assistant/internal/common/config"
	"smartport-assistant/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier fans detected anomalies out to the ops team over SES email and,
// for the most urgent ones, SNS SMS.
type Notifier struct {
	config    config.NotificationConfig
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
}

var severityRank = map[string]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
}

func NewNotifier(cfg config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Notifier{
		config:    cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "notify"}),
		sesClient: ses.NewFromConfig(awsCfg),
		snsClient: sns.NewFromConfig(awsCfg),
	}, nil
}

// AlertAnomaly delivers an anomaly alert according to channel configuration.
// Email goes out for every alert; SMS only at or above the priority threshold.
func (n *Notifier) AlertAnomaly(ctx context.Context, alert *AnomalyAlert) (*AlertOutcome, error) {
	sentAt := time.Now().UTC().Format(time.RFC3339)
	alertID := uuid.New().String()

	data := map[string]interface{}{
		"anomalyId":   alert.AnomalyID,
		"severity":    alert.Severity,
		"description": alert.Description,
		"terminal":    alert.Terminal,
		"gate":        alert.Gate,
		"detectedAt":  alert.DetectedAt,
	}
	for k, v := range alert.Metadata {
		data[k] = v
	}

	subject := renderTemplate(alertSubjectTemplate, data)
	body := renderTemplate(alertBodyTemplate, data)

	emailSent := false
	smsSent := false

	if n.config.Email.Enabled && n.config.Email.OpsEmail != "" {
		if err := n.sendEmail(ctx, n.config.Email.OpsEmail, subject, body); err != nil {
			n.logger.Error("alert email send failed", map[string]interface{}{
				"error":     err,
				"anomalyId": alert.AnomalyID,
			})
			return &AlertOutcome{AlertID: alertID, Status: StatusFailed, SentAt: sentAt}, nil
		}
		emailSent = true
	}

	if n.config.SMS.Enabled && n.config.SMS.OpsPhone != "" && n.meetsThreshold(alert.Severity) {
		if err := n.sendSMS(ctx, n.config.SMS.OpsPhone, subject); err != nil {
			n.logger.Error("alert SMS send failed", map[string]interface{}{
				"error":     err,
				"anomalyId": alert.AnomalyID,
			})
			return &AlertOutcome{AlertID: alertID, Status: StatusFailed, SentAt: sentAt}, nil
		}
		smsSent = true
	}

	status := StatusDisabled
	if emailSent || smsSent {
		status = StatusSent
	}

	return &AlertOutcome{
		AlertID: alertID,
		Status:  status,
		SentAt:  sentAt,
	}, nil
}

// meetsThreshold reports whether severity reaches the configured SMS threshold.
func (n *Notifier) meetsThreshold(severity string) bool {
	threshold := n.config.SMS.PriorityThreshold
	if threshold == "" {
		threshold = SeverityCritical
	}
	return severityRank[strings.ToLower(severity)] >= severityRank[strings.ToLower(threshold)]
}

func (n *Notifier) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.config.Email.FromEmail),
	})
	return err
}

func (n *Notifier) sendSMS(ctx context.Context, to, message string) error {
	_, err := n.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}

const (
	alertSubjectTemplate = "[{{severity}}] Port anomaly {{anomalyId}} at {{terminal}}"
	alertBodyTemplate    = "Anomaly {{anomalyId}} detected at {{detectedAt}}.\n" +
		"Severity: {{severity}}\nTerminal: {{terminal}} Gate: {{gate}}\n\n{{description}}"
)

// Simplified template rendering with placeholder removal for missing values
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	// First, replace all known placeholders
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if i, ok := v.(int); ok {
			value = fmt.Sprintf("%d", i)
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Remove any remaining placeholders (missing values)
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}
