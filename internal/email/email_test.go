package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/vlogbook/backend/internal/config"
)

func TestResetRendererIncludesCode(t *testing.T) {
	r := NewResetRenderer("Vlogbook", "https://vlogbook.example.com")

	body, err := r.Render("alice", "482913", 10*time.Minute)
	require.NoError(t, err)

	assert.Contains(t, body.Text, "482913")
	assert.Contains(t, body.Text, "10 minutes")
	assert.Contains(t, body.HTML, "482913")
	assert.Contains(t, body.HTML, "Vlogbook")
}

func TestMemoryNotifier(t *testing.T) {
	n := &MemoryNotifier{}
	_, ok := n.Last()
	assert.False(t, ok)

	require.NoError(t, n.Send(context.Background(), "a@example.com", "one", Body{Text: "1"}))
	require.NoError(t, n.Send(context.Background(), "b@example.com", "two", Body{Text: "2"}))

	last, ok := n.Last()
	require.True(t, ok)
	assert.Equal(t, "b@example.com", last.Address)
	assert.Len(t, n.Messages(), 2)

	n.Err = errors.New("smtp down")
	assert.Error(t, n.Send(context.Background(), "c@example.com", "three", Body{}))
	assert.Len(t, n.Messages(), 2)
}

func TestNewNotifierSelectsProvider(t *testing.T) {
	ctx := context.Background()

	n, err := NewNotifier(ctx, config.EmailConfig{Provider: ProviderLog}, "us-east-1")
	require.NoError(t, err)
	assert.IsType(t, LogNotifier{}, n)

	n, err = NewNotifier(ctx, config.EmailConfig{Provider: ProviderSendGrid, SendGridAPIKey: "key", FromAddress: "no-reply@example.com"}, "")
	require.NoError(t, err)
	assert.IsType(t, &SendGridNotifier{}, n)

	_, err = NewNotifier(ctx, config.EmailConfig{Provider: ProviderSendGrid}, "")
	assert.Error(t, err)

	_, err = NewNotifier(ctx, config.EmailConfig{Provider: "pigeon"}, "")
	assert.Error(t, err)
}

func TestLogNotifierNeverFails(t *testing.T) {
	assert.NoError(t, LogNotifier{}.Send(context.Background(), "a@example.com", "hi", Body{Text: "hello"}))
}
