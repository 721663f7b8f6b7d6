package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"luminexus/internal/catalog"
	"luminexus/internal/logger"
	"luminexus/internal/models"
)

const defaultSendTimeout = 10 * time.Second

// Notifier is told about milestones worth sharing with a parent
type Notifier interface {
	LevelUp(player *models.Player, level int)
	AchievementUnlocked(player *models.Player, achievement catalog.Achievement)
}

// sesAPI is the part of the SES client used to send mail
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// NotificationService emails parents through Amazon SES. Sends happen in
// the background so progress updates never wait on mail delivery.
type NotificationService struct {
	client    sesAPI
	fromEmail string
	fromName  string
	enabled   bool
	timeout   time.Duration
	log       *logger.Logger
	wg        sync.WaitGroup
}

// NewNotificationService creates the service. An empty fromEmail returns a
// disabled service that only logs.
func NewNotificationService(ctx context.Context, region, fromEmail, fromName string, log *logger.Logger) (*NotificationService, error) {
	log = log.With("component", "notifications")

	if fromEmail == "" {
		log.Info("Parent notifications disabled: email.from not configured")
		return &NotificationService{enabled: false, log: log, timeout: defaultSendTimeout}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("Parent notifications enabled", "from", fromEmail, "region", region)
	return newNotificationService(sesv2.NewFromConfig(cfg), fromEmail, fromName, log), nil
}

func newNotificationService(client sesAPI, fromEmail, fromName string, log *logger.Logger) *NotificationService {
	return &NotificationService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
		timeout:   defaultSendTimeout,
		log:       log,
	}
}

// IsEnabled returns whether emails are actually sent
func (s *NotificationService) IsEnabled() bool {
	return s.enabled
}

// LevelUp tells the parent the player reached a new level
func (s *NotificationService) LevelUp(player *models.Player, level int) {
	subject := fmt.Sprintf("%s reached level %d on Luminexus!", player.DisplayName, level)
	text := fmt.Sprintf(`Hi there,

%s just reached level %d while exploring space weather on Luminexus.
Keep encouraging them to read stories, play games and try activities!

---
This is an automated email from Luminexus. Please do not reply.
`, player.DisplayName, level)
	html := fmt.Sprintf(`<p>Hi there,</p>
<p><strong>%s</strong> just reached <strong>level %d</strong> while exploring space weather on Luminexus.</p>
<p>Keep encouraging them to read stories, play games and try activities!</p>
<p style="font-size:12px;color:#666">This is an automated email from Luminexus. Please do not reply.</p>`,
		player.DisplayName, level)

	s.send(player, "level_up", subject, html, text)
}

// AchievementUnlocked tells the parent about a new achievement
func (s *NotificationService) AchievementUnlocked(player *models.Player, achievement catalog.Achievement) {
	subject := fmt.Sprintf("%s earned \"%s\"", player.DisplayName, achievement.Title)
	text := fmt.Sprintf(`Hi there,

%s unlocked the "%s" achievement: %s.

---
This is an automated email from Luminexus. Please do not reply.
`, player.DisplayName, achievement.Title, achievement.Description)
	html := fmt.Sprintf(`<p>Hi there,</p>
<p><strong>%s</strong> unlocked the <strong>%s</strong> achievement: %s.</p>
<p style="font-size:12px;color:#666">This is an automated email from Luminexus. Please do not reply.</p>`,
		player.DisplayName, achievement.Title, achievement.Description)

	s.send(player, "achievement", subject, html, text)
}

// Wait blocks until queued sends have finished
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func (s *NotificationService) send(player *models.Player, kind, subject, htmlBody, textBody string) {
	if player.ParentEmail == "" {
		return
	}
	if !s.enabled {
		s.log.Debug("Skipping parent email (service disabled)", "kind", kind, "player_id", player.ID)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.sendEmail(ctx, player.ParentEmail, subject, htmlBody, textBody); err != nil {
			s.log.Warn("Failed to send parent email", "kind", kind, "player_id", player.ID, "error", err)
			return
		}
		s.log.Info("Parent email sent", "kind", kind, "player_id", player.ID)
	}()
}

func (s *NotificationService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}
	return nil
}
