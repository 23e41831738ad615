package accounts

import (
	"fmt"
	"html"
)

// Message is a single transactional email
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// HasHTML reports whether the message carries an HTML body
func (m Message) HasHTML() bool {
	return m.HTML != ""
}

const (
	welcomeSubject = "Welcome to Our Platform!"
	kycSubject     = "Complete Your KYC"
)

// WelcomeMessage is sent after an admin creates an account
func WelcomeMessage(user *User) Message {
	return Message{
		To:      user.Email,
		Subject: welcomeSubject,
		Text: fmt.Sprintf("Hello %s,\n\nWelcome to our platform. We're thrilled to have you onboard.\n\nBest regards,\nTeam",
			user.Name),
		HTML: fmt.Sprintf("<p>Hello <strong>%s</strong>,</p><p>Welcome to our platform. We're thrilled to have you onboard.</p><p>Best regards,<br>Team</p>",
			html.EscapeString(user.Name)),
	}
}

// KYCReminderMessage asks a user to finish KYC
func KYCReminderMessage(user *User) Message {
	return Message{
		To:      user.Email,
		Subject: kycSubject,
		Text: fmt.Sprintf("Hello %s,\n\nWe noticed that your KYC is still pending. Please complete the KYC process to fully activate your account.\n\nBest Regards,\nYour Company",
			user.Name),
	}
}
