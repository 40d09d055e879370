package orchestrators

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"log/slog"

	emailAdapter "activityboard/internal/adapters/email"
)

var confirmationTmpl = template.Must(template.New("confirmation").Parse(
	`<p>Hi {{.Email}},</p>
<p>You are signed up for <strong>{{.Activity}}</strong>.</p>
<p>If this wasn't you, ask the activities office to remove you from the roster.</p>`))

// SendSignupConfirmationInput carries input for SendSignupConfirmation.
type SendSignupConfirmationInput struct {
	Email    string
	Activity string
}

// SendSignupConfirmationDeps holds dependencies for SendSignupConfirmation.
type SendSignupConfirmationDeps struct {
	EmailSender emailAdapter.Sender
	FromAddress string
	ReplyTo     string
}

// ExecuteSendSignupConfirmation emails the participant that their signup went through.
// PRE: Email and Activity are non-empty; EmailSender is set
// POST: Confirmation handed to the email provider, or an error
func ExecuteSendSignupConfirmation(ctx context.Context, input SendSignupConfirmationInput, deps SendSignupConfirmationDeps) (emailAdapter.SendResult, error) {
	if input.Email == "" || input.Activity == "" {
		return emailAdapter.SendResult{}, errors.New("email and activity are required")
	}
	if deps.EmailSender == nil {
		return emailAdapter.SendResult{}, errors.New("email sender is not configured")
	}

	var body bytes.Buffer
	if err := confirmationTmpl.Execute(&body, input); err != nil {
		return emailAdapter.SendResult{}, err
	}

	res, err := deps.EmailSender.Send(ctx, emailAdapter.SendRequest{
		To:      []string{input.Email},
		From:    deps.FromAddress,
		Subject: "Signed up for " + input.Activity,
		HTML:    body.String(),
		Text:    "You are signed up for " + input.Activity + ".",
		ReplyTo: deps.ReplyTo,
	})
	if err != nil {
		return emailAdapter.SendResult{}, err
	}

	slog.Info("email_event", "event", "signup_confirmation_sent", "message_id", res.MessageID, "activity", input.Activity)
	return res, nil
}
