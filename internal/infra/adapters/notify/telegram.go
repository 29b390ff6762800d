package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.Notifier = (*TelegramNotifier)(nil)

// TelegramNotifier sends run-terminal messages to one chat. Send-only, no
// update polling.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token empty")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (n *TelegramNotifier) RunCompleted(ctx context.Context, run *model.PipelineRun) error {
	var b strings.Builder
	b.WriteString("Pipeline run completed\n")
	fmt.Fprintf(&b, "Discovered: %d new jobs\n", run.JobsDiscovered)
	fmt.Fprintf(&b, "Processed: %d applications ready\n", run.JobsProcessed)
	if run.CompletedAt != nil {
		fmt.Fprintf(&b, "Duration: %s", run.CompletedAt.Sub(run.StartedAt).Round(time.Second))
	}
	return n.send(ctx, b.String())
}

func (n *TelegramNotifier) RunFailed(ctx context.Context, run *model.PipelineRun, errMsg string) error {
	return n.send(ctx, fmt.Sprintf("Pipeline run failed\n%s", errMsg))
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	_, err := n.bot.Send(msg)
	return err
}
