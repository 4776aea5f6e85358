// internal/notify/notify.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	apperrors "rent-predictor/internal/common/errors"
	"rent-predictor/internal/common/logger"
	"rent-predictor/internal/models"
	"rent-predictor/internal/prediction"
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

const EventPredictionCreated = "rent.prediction.created"

// PredictionEvent is the SNS message body.
type PredictionEvent struct {
	Event         string                `json:"event"`
	PredictionID  string                `json:"predictionId"`
	PredictedRent float64               `json:"predictedRent"`
	Currency      string                `json:"currency"`
	ModelKey      string                `json:"modelKey"`
	Source        string                `json:"source"`
	Unmatched     []string              `json:"unmatchedColumns,omitempty"`
	Input         models.ApartmentInput `json:"input"`
	CreatedAt     time.Time             `json:"createdAt"`
}

// SNSPublisher publishes every prediction to a topic.
type SNSPublisher struct {
	client   SNSService
	topicARN string
	log      logger.Logger
}

func NewSNSPublisher(client SNSService, topicARN string, log logger.Logger) *SNSPublisher {
	return &SNSPublisher{
		client:   client,
		topicARN: topicARN,
		log:      log.WithFields(map[string]interface{}{"component": "sns-publisher"}),
	}
}

func (p *SNSPublisher) Name() string { return "sns" }

func (p *SNSPublisher) Handle(ctx context.Context, req prediction.Request, result *models.PredictionResult) error {
	body, err := json.Marshal(PredictionEvent{
		Event:         EventPredictionCreated,
		PredictionID:  result.ID,
		PredictedRent: result.PredictedRent,
		Currency:      result.Currency,
		ModelKey:      result.ModelKey,
		Source:        result.Source,
		Unmatched:     result.Unmatched,
		Input:         req.Input,
		CreatedAt:     result.CreatedAt,
	})
	if err != nil {
		return apperrors.NewNotificationSendFailedError("sns", err)
	}

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"event":  {DataType: aws.String("String"), StringValue: aws.String(EventPredictionCreated)},
			"source": {DataType: aws.String("String"), StringValue: aws.String(result.Source)},
		},
	})
	if err != nil {
		return apperrors.NewNotificationSendFailedError("sns", err)
	}

	p.log.Debug("prediction event published", map[string]interface{}{
		"predictionId": result.ID,
		"messageId":    aws.ToString(out.MessageId),
	})
	return nil
}

// SESMailer emails the estimate to the address given with the request, if any.
type SESMailer struct {
	client    SESService
	fromEmail string
	log       logger.Logger
}

func NewSESMailer(client SESService, fromEmail string, log logger.Logger) *SESMailer {
	return &SESMailer{
		client:    client,
		fromEmail: fromEmail,
		log:       log.WithFields(map[string]interface{}{"component": "ses-mailer"}),
	}
}

func (m *SESMailer) Name() string { return "ses" }

func (m *SESMailer) Handle(ctx context.Context, req prediction.Request, result *models.PredictionResult) error {
	if req.NotifyEmail == "" {
		return nil
	}

	subject, body := renderEstimate(req.Input, result)
	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(m.fromEmail),
		Destination: &sestypes.Destination{ToAddresses: []string{req.NotifyEmail}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return apperrors.NewNotificationSendFailedError("ses", err)
	}

	m.log.Info("estimate email sent", map[string]interface{}{"predictionId": result.ID})
	return nil
}

func renderEstimate(in models.ApartmentInput, result *models.PredictionResult) (string, string) {
	subject := fmt.Sprintf("Rent estimate: %s", result.Formatted)

	var b strings.Builder
	fmt.Fprintf(&b, "Predicted monthly rent: %s\n\n", result.Formatted)
	fmt.Fprintf(&b, "Neighborhood: %s\n", in.Neighborhood)
	fmt.Fprintf(&b, "Total area: %.0f m2, living area: %.0f m2\n", in.TotalArea, in.LivingArea)
	fmt.Fprintf(&b, "Rooms: %d, bathrooms: %d\n", in.Rooms, in.Bathrooms)
	fmt.Fprintf(&b, "Floor %d of %d, building age %d years\n", in.Floor, in.TotalFloors, in.BuildingAge)
	fmt.Fprintf(&b, "Heating: %s, parking: %s\n", in.HeatingType, in.Parking)
	fmt.Fprintf(&b, "\nReference: %s\n", result.ID)
	return subject, b.String()
}
