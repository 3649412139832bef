package telegram

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBotAPI struct {
	sent      []tgbotapi.Chattable
	mediaSent []tgbotapi.MediaGroupConfig
	sendErr   error
	mediaErr  error
}

func (f *fakeBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.sendErr
}

func (f *fakeBotAPI) SendMediaGroup(cfg tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error) {
	f.mediaSent = append(f.mediaSent, cfg)
	return nil, f.mediaErr
}

func TestBatchMediaSplitsAtTen(t *testing.T) {
	urls := make([]string, 23)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://cdn.example.com/img-%d.png", i)
	}

	groups := batchMedia(42, urls)

	require.Len(t, groups, 3)
	assert.Len(t, groups[0].Media, 10)
	assert.Len(t, groups[1].Media, 10)
	assert.Len(t, groups[2].Media, 3)
	for _, g := range groups {
		assert.Equal(t, int64(42), g.ChatID)
	}
}

func TestBatchMediaAvoidsTrailingSingleton(t *testing.T) {
	// The Bot API rejects media groups of fewer than two items, so a
	// count of 10n+1 must not leave a one-item final group.
	for _, count := range []int{11, 21, 31} {
		urls := make([]string, count)
		for i := range urls {
			urls[i] = fmt.Sprintf("https://cdn.example.com/img-%d.png", i)
		}

		groups := batchMedia(42, urls)

		total := 0
		for i, g := range groups {
			assert.GreaterOrEqual(t, len(g.Media), 2, "count=%d group=%d", count, i)
			assert.LessOrEqual(t, len(g.Media), 10, "count=%d group=%d", count, i)
			total += len(g.Media)
		}
		assert.Equal(t, count, total, "count=%d must send every url", count)
	}
}

func TestSendResultElevenURLsSendsValidGroups(t *testing.T) {
	api := &fakeBotAPI{}
	s := NewWithAPI(api, nil)

	urls := make([]string, 11)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://cdn.example.com/img-%d.png", i)
	}

	err := s.SendResult(context.Background(), 7, urls)

	require.NoError(t, err)
	require.Len(t, api.mediaSent, 2)
	assert.Len(t, api.mediaSent[0].Media, 9)
	assert.Len(t, api.mediaSent[1].Media, 2)
}

func TestSendResultSingleURLUsesPhoto(t *testing.T) {
	api := &fakeBotAPI{}
	s := NewWithAPI(api, nil)

	err := s.SendResult(context.Background(), 7, []string{"https://cdn.example.com/one.png"})

	require.NoError(t, err)
	require.Len(t, api.sent, 1)
	assert.Empty(t, api.mediaSent)

	photo, ok := api.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok, "expected a photo message, got %T", api.sent[0])
	assert.Equal(t, int64(7), photo.ChatID)
}

func TestSendResultMultipleURLsUsesMediaGroup(t *testing.T) {
	api := &fakeBotAPI{}
	s := NewWithAPI(api, nil)

	err := s.SendResult(context.Background(), 7, []string{
		"https://cdn.example.com/a.png",
		"https://cdn.example.com/b.png",
	})

	require.NoError(t, err)
	assert.Empty(t, api.sent)
	require.Len(t, api.mediaSent, 1)
	assert.Len(t, api.mediaSent[0].Media, 2)
}

func TestSendResultNoURLs(t *testing.T) {
	s := NewWithAPI(&fakeBotAPI{}, nil)

	err := s.SendResult(context.Background(), 7, nil)

	assert.Error(t, err)
}

func TestSendResultPropagatesAPIError(t *testing.T) {
	api := &fakeBotAPI{sendErr: errors.New("bot was blocked by the user")}
	s := NewWithAPI(api, nil)

	err := s.SendResult(context.Background(), 7, []string{"https://cdn.example.com/one.png"})

	assert.ErrorContains(t, err, "bot was blocked")
}

func TestSendResultHonorsCancelledContext(t *testing.T) {
	api := &fakeBotAPI{}
	s := NewWithAPI(api, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.SendResult(ctx, 7, []string{"https://cdn.example.com/one.png"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.sent)
}

func TestSendFailureNotice(t *testing.T) {
	api := &fakeBotAPI{}
	s := NewWithAPI(api, nil)

	err := s.SendFailureNotice(context.Background(), 9, "generation failed")

	require.NoError(t, err)
	require.Len(t, api.sent, 1)

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok, "expected a text message, got %T", api.sent[0])
	assert.Equal(t, int64(9), msg.ChatID)
	assert.Contains(t, msg.Text, "generation failed")
}
