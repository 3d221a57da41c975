// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package mailer delivers verification and email-change messages. Dispatch is
// fire-and-forget: callers log failures but never roll back the transaction
// that triggered the message.
package mailer

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"codeberg.org/oliverandrich/account-api/internal/config"
	"github.com/wneessen/go-mail"
)

// Gateway is the notification interface consumed by the account service.
type Gateway interface {
	SendVerification(ctx context.Context, toEmail, token string) error
	SendEmailChange(ctx context.Context, toEmail, token string) error
}

// Service sends account mail via SMTP.
type Service struct {
	cfg     *config.SMTPConfig
	baseURL string
}

// NewService creates a new mailer service.
func NewService(cfg *config.SMTPConfig, baseURL string) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// SendVerification sends the account-verification message. The plaintext
// token appears only in this mail; storage holds its hash.
func (s *Service) SendVerification(_ context.Context, toEmail, token string) error {
	verifyURL := fmt.Sprintf("%s/v1/users/verify-account?email=%s&token=%s",
		s.baseURL, url.QueryEscape(toEmail), url.QueryEscape(token))

	body := fmt.Sprintf(
		"Welcome!\n\n"+
			"Your account has been created. Verify it to get access:\n\n"+
			"%s\n\n"+
			"Or submit this token together with your email address: %s\n\n"+
			"The token expires in 2 days. If you did not create an account, ignore this message.\n",
		verifyURL, token)

	return s.send(toEmail, "Verify your account", body)
}

// SendEmailChange sends the email-change confirmation to the new address.
func (s *Service) SendEmailChange(_ context.Context, toEmail, token string) error {
	body := fmt.Sprintf(
		"A change of email address to %s was requested for your account.\n\n"+
			"Confirm the change with this authorization token: %s\n\n"+
			"The token expires in 2 days. If you did not request this change, ignore this message.\n",
		toEmail, token)

	return s.send(toEmail, "Confirm your new email address", body)
}

// send sends an email via SMTP using go-mail.
func (s *Service) send(to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
