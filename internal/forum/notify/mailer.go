package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"stackit/internal/common/mq"
	"stackit/internal/forum/model"
	"stackit/internal/forum/repository"
	"stackit/internal/forum/service"
	"stackit/pkg/utils/logger"

	mail "github.com/go-mail/mail/v2"
	"go.uber.org/zap"
)

// Sender delivers composed messages. *mail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPConfig holds SMTP settings for the outgoing mail relay.
type SMTPConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	StartTLS bool          `yaml:"startTLS"`
	SkipTLS  bool          `yaml:"skipTLSVerify"`
	Timeout  time.Duration `yaml:"timeout"`
}

// NewSMTPSender builds a dialer for cfg.
func NewSMTPSender(cfg SMTPConfig) (*mail.Dialer, error) {
	if cfg.Host == "" {
		return nil, stderrors.New("smtp host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.StartTLS {
		d.StartTLSPolicy = mail.MandatoryStartTLS
	}
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, InsecureSkipVerify: cfg.SkipTLS}
	if cfg.Timeout > 0 {
		d.Timeout = cfg.Timeout
	}
	return d, nil
}

// MailerConfig holds configuration for Mailer.
type MailerConfig struct {
	From          string
	SiteURL       string
	Topic         string
	ConsumerGroup string
	Concurrency   int
}

// Mailer turns moderation events into emails for the people they concern.
type Mailer struct {
	users  repository.UserStore
	sender Sender
	config MailerConfig
}

// NewMailer creates a Mailer.
func NewMailer(users repository.UserStore, sender Sender, cfg MailerConfig) *Mailer {
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	return &Mailer{users: users, sender: sender, config: cfg}
}

// Subscribe registers the mailer on the moderation topic of consumer.
func (m *Mailer) Subscribe(ctx context.Context, consumer mq.Consumer) error {
	if m.config.Topic == "" {
		return stderrors.New("mailer topic is empty")
	}
	return consumer.Subscribe(ctx, m.config.Topic, m.Handle, &mq.SubscribeOptions{
		ConsumerGroup: m.config.ConsumerGroup,
		Concurrency:   m.config.Concurrency,
	})
}

// Handle emails the recipient of one moderation event. Events nobody needs to
// hear about are acknowledged without sending.
func (m *Mailer) Handle(ctx context.Context, msg *mq.Message) error {
	event, err := service.DecodeModerationEvent(msg)
	if err != nil {
		logger.Warn(ctx, "drop undecodable moderation event", zap.Error(err))
		return nil
	}
	if event.AuthorID == "" || event.AuthorID == event.ActorID {
		return nil
	}
	subject, tmpl, ok := mailTemplateFor(event.Type)
	if !ok {
		return nil
	}

	user, err := m.users.GetUser(ctx, event.AuthorID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			logger.Warn(ctx, "moderation event for unknown user", zap.String("user_id", event.AuthorID))
			return nil
		}
		return fmt.Errorf("load recipient failed: %w", err)
	}
	if user.Email == "" {
		return nil
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, mailData{
		Name:   user.Name,
		Title:  event.QuestionTitle,
		Reason: event.Reason,
		Link:   m.questionLink(event.QuestionID),
	}); err != nil {
		return fmt.Errorf("render mail failed: %w", err)
	}

	message := mail.NewMessage()
	message.SetHeader("From", m.config.From)
	message.SetAddressHeader("To", user.Email, user.Name)
	message.SetHeader("Subject", subject)
	message.SetBody("text/html", body.String())

	if err := m.sender.DialAndSend(message); err != nil {
		logger.Warn(ctx, "send moderation mail failed", zap.String("event_id", event.EventID), zap.Error(err))
		return err
	}
	logger.Info(ctx, "moderation mail sent", zap.String("event_id", event.EventID), zap.String("user_id", user.ID))
	return nil
}

func (m *Mailer) questionLink(questionID string) string {
	if m.config.SiteURL == "" {
		return ""
	}
	return m.config.SiteURL + "/questions/" + questionID
}

type mailData struct {
	Name   string
	Title  string
	Reason string
	Link   string
}

var (
	approvedMail = template.Must(template.New("approved").Parse(
		`<p>Hi {{.Name}},</p><p>Your question <strong>{{.Title}}</strong> has been approved and is now public.</p>{{if .Link}}<p><a href="{{.Link}}">View it</a></p>{{end}}`))
	rejectedMail = template.Must(template.New("rejected").Parse(
		`<p>Hi {{.Name}},</p><p>Your question <strong>{{.Title}}</strong> was not approved.</p><p>Reason: {{.Reason}}</p>`))
	answeredMail = template.Must(template.New("answered").Parse(
		`<p>Hi {{.Name}},</p><p>Someone answered your question <strong>{{.Title}}</strong>.</p>{{if .Link}}<p><a href="{{.Link}}">Read the answer</a></p>{{end}}`))
	acceptedMail = template.Must(template.New("accepted").Parse(
		`<p>Hi {{.Name}},</p><p>Your answer to <strong>{{.Title}}</strong> was accepted.</p>{{if .Link}}<p><a href="{{.Link}}">Open the question</a></p>{{end}}`))
)

func mailTemplateFor(t model.ActivityType) (string, *template.Template, bool) {
	switch t {
	case model.ActivityQuestionApproved:
		return "Your question was approved", approvedMail, true
	case model.ActivityQuestionRejected:
		return "Your question was not approved", rejectedMail, true
	case model.ActivityAnswerPosted:
		return "New answer to your question", answeredMail, true
	case model.ActivityAnswerAccepted:
		return "Your answer was accepted", acceptedMail, true
	}
	return "", nil, false
}
