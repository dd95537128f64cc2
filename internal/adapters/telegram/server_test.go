package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// recordingHandler keeps, per chat, the order updates were handled in.
type recordingHandler struct {
	mu     sync.Mutex
	byChat map[int64][]int
	ctxErr []error
}

func (h *recordingHandler) HandleUpdate(ctx context.Context, update *tgbotapi.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byChat == nil {
		h.byChat = make(map[int64][]int)
	}
	id := update.Message.Chat.ID
	h.byChat[id] = append(h.byChat[id], update.UpdateID)
	h.ctxErr = append(h.ctxErr, ctx.Err())
}

func messageUpdate(updateID int, chatID int64) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: updateID,
		Message:  &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: "hi"},
	}
}

func TestWorkerPool_KeepsPerChatOrderAndDrains(t *testing.T) {
	handler := &recordingHandler{}
	pool := newWorkerPool(3, handler, zerolog.Nop())

	updates := make(chan tgbotapi.Update, 30)
	for i := 0; i < 30; i++ {
		updates <- messageUpdate(i, int64(i%4)-1) // includes a negative group chat ID
	}
	close(updates)

	pool.Run(context.Background(), updates)

	total := 0
	for _, ids := range handler.byChat {
		assert.IsIncreasing(t, ids)
		total += len(ids)
	}
	assert.Equal(t, 30, total)
}

func TestWorkerPool_StopsOnContextDone(t *testing.T) {
	handler := &recordingHandler{}
	pool := newWorkerPool(2, handler, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan tgbotapi.Update)
	done := make(chan struct{})
	go func() {
		pool.Run(ctx, updates)
		close(done)
	}()

	updates <- messageUpdate(1, 5)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker pool did not stop")
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Equal(t, []int{1}, handler.byChat[5])
	for _, err := range handler.ctxErr {
		assert.NoError(t, err, "handlers run detached from the shutdown signal")
	}
}

func TestWorkerPool_ShardIgnoresUpdatesWithoutChat(t *testing.T) {
	pool := newWorkerPool(0, &recordingHandler{}, zerolog.Nop())
	assert.Equal(t, 1, pool.size)
	assert.Equal(t, 0, pool.shard(&tgbotapi.Update{}))
}
