// Package notifier delivers account emails through SMTP, SendGrid, Resend, or
// the log.
package notifier

import (
	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
)

const (
	DriverSMTP     = "smtp"
	DriverSendGrid = "sendgrid"
	DriverResend   = "resend"
	DriverLog      = "log"
)

// Config selects and configures a sender
type Config struct {
	Driver         string `mapstructure:"driver"`
	From           string `mapstructure:"from"`
	FromName       string `mapstructure:"from_name"`
	SMTPHost       string `mapstructure:"smtp_host"`
	SMTPPort       int    `mapstructure:"smtp_port"`
	SMTPUser       string `mapstructure:"smtp_user"`
	SMTPPassword   string `mapstructure:"smtp_password"`
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	ResendAPIKey   string `mapstructure:"resend_api_key"`
}

// Validate checks the settings the selected driver needs
func (c Config) Validate() error {
	switch c.Driver {
	case DriverLog:
		return nil
	case DriverSMTP:
		if c.SMTPHost == "" || c.SMTPPort == 0 {
			return goerrors.New("mail.smtp_host and mail.smtp_port are required", goerrors.CategoryValidation)
		}
	case DriverSendGrid:
		if c.SendGridAPIKey == "" {
			return goerrors.New("mail.sendgrid_api_key is required", goerrors.CategoryValidation)
		}
	case DriverResend:
		if c.ResendAPIKey == "" {
			return goerrors.New("mail.resend_api_key is required", goerrors.CategoryValidation)
		}
	default:
		return goerrors.New("unknown mail driver: "+c.Driver, goerrors.CategoryValidation)
	}

	if c.From == "" {
		return goerrors.New("mail.from is required", goerrors.CategoryValidation)
	}
	return nil
}

// New builds the sender selected by cfg.Driver
func New(cfg Config, logger accounts.Logger) (accounts.Notifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case DriverSMTP:
		return NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.From), nil
	case DriverSendGrid:
		return NewSendGrid(cfg.SendGridAPIKey, cfg.From, cfg.FromName), nil
	case DriverResend:
		return NewResend(cfg.ResendAPIKey, cfg.From), nil
	default:
		return NewLog(logger), nil
	}
}

func sendError(provider string, err error) error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, provider+" send failed")
}
