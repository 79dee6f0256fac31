package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESMailer_SendWelcome(t *testing.T) {
	client := &fakeSES{}
	mailer := newSESMailer(client, "noreply@example.com", slog.Default())

	require.NoError(t, mailer.SendWelcome(context.Background(), "alice@example.com", "alice"))

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "noreply@example.com", aws.ToString(in.Source))
	assert.Equal(t, []string{"alice@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "Welcome", aws.ToString(in.Message.Subject.Data))
	assert.Contains(t, aws.ToString(in.Message.Body.Text.Data), "Hi alice")
	assert.Contains(t, aws.ToString(in.Message.Body.Html.Data), "Hi alice")
}

func TestSESMailer_SendLockNotice(t *testing.T) {
	client := &fakeSES{}
	mailer := newSESMailer(client, "noreply@example.com", slog.Default())
	until := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)

	require.NoError(t, mailer.SendLockNotice(context.Background(), "alice@example.com", "alice", until))

	require.Len(t, client.inputs, 1)
	body := aws.ToString(client.inputs[0].Message.Body.Text.Data)
	assert.Contains(t, body, "locked")
	assert.Contains(t, body, until.Format(time.RFC1123))
}

func TestSESMailer_WrapsSendError(t *testing.T) {
	sendErr := errors.New("throttled")
	mailer := newSESMailer(&fakeSES{err: sendErr}, "noreply@example.com", slog.Default())

	err := mailer.SendWelcome(context.Background(), "alice@example.com", "alice")
	assert.ErrorIs(t, err, sendErr)
}

func TestLogMailer_NeverFails(t *testing.T) {
	mailer := NewLogMailer(slog.Default())
	assert.NoError(t, mailer.SendWelcome(context.Background(), "alice@example.com", "alice"))
	assert.NoError(t, mailer.SendLockNotice(context.Background(), "alice@example.com", "alice", time.Now()))
}
