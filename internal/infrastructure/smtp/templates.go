package smtp

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var otpTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 480px; margin: 0 auto; padding: 24px;">
    <h2 style="color: #2e7d32;">Community Barter</h2>
    <p>Hi {{.Name}},</p>
    <p>{{.Intro}}</p>
    <p style="font-size: 32px; font-weight: bold; letter-spacing: 6px; text-align: center;">{{.Code}}</p>
    <p>This code expires in {{.Minutes}} minutes. If you did not request it, you can ignore this email.</p>
  </div>
</body>
</html>`))

type otpView struct {
	Name    string
	Intro   string
	Code    string
	Minutes int
}

// RegistrationOTP renders the email carrying a sign-up verification code.
func RegistrationOTP(to, firstName, code string, ttl time.Duration) (Message, error) {
	return otpMessage(to, "Your Verification Code - Community Barter", otpView{
		Name:    firstName,
		Intro:   "Use the code below to verify your email and finish creating your account.",
		Code:    code,
		Minutes: minutes(ttl),
	})
}

// PasswordResetOTP renders the email carrying a password-reset code.
func PasswordResetOTP(to, firstName, code string, ttl time.Duration) (Message, error) {
	return otpMessage(to, "Your Password Reset Code - Community Barter", otpView{
		Name:    firstName,
		Intro:   "Use the code below to reset your password.",
		Code:    code,
		Minutes: minutes(ttl),
	})
}

func otpMessage(to, subject string, v otpView) (Message, error) {
	if v.Name == "" {
		v.Name = "there"
	}
	var html bytes.Buffer
	if err := otpTemplate.Execute(&html, v); err != nil {
		return Message{}, fmt.Errorf("render otp email: %w", err)
	}
	text := fmt.Sprintf("Hi %s,\n\n%s\n\n%s\n\nThis code expires in %d minutes.\n", v.Name, v.Intro, v.Code, v.Minutes)
	return Message{To: to, Subject: subject, Text: text, HTML: html.String()}, nil
}

func minutes(d time.Duration) int {
	m := int(d / time.Minute)
	if m < 1 {
		m = 1
	}
	return m
}
