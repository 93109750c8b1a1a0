package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"linkbrief/internal/classifier"
	"linkbrief/internal/markdown"
	"linkbrief/internal/pipeline"
)

const welcomeText = `🤖 *Send me a link and I will summarize it\.*

I understand:

– web articles and blog posts
– PDF documents and papers
– X / Twitter threads
– LinkedIn posts
– YouTube videos

Only the first link of a message is summarized\.`

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	text := messageText(message)

	switch {
	case strings.HasPrefix(text, "/start"), strings.HasPrefix(text, "/help"):
		return b.sendMessage(ctx, chatID, 0, welcomeText, nil)
	}

	if len(classifier.ExtractURLs(text)) == 0 {
		b.log.DebugContext(ctx, "Message has no link",
			"chatID", chatID,
			"messageID", message.MessageID)

		return nil
	}

	return b.withSpinner(ctx, chatID, func() error {
		return b.summarizeLink(ctx, text, message)
	})
}

func (b *Bot) summarizeLink(ctx context.Context, text string, message *tgbotapi.Message) error {
	chatID := message.Chat.ID

	res, err := b.runner.Run(ctx, text)
	if err != nil {
		reply := pipeline.GenericFailureMessage

		var failure *pipeline.Failure
		if errors.As(err, &failure) {
			reply = failure.UserMessage()
		}

		// The pipeline has already logged the failure.
		if sendErr := b.sendMessage(ctx, chatID, message.MessageID, markdown.EscapeV2(reply), nil); sendErr != nil {
			return fmt.Errorf("send failure message: %w", sendErr)
		}

		return nil
	}

	parts := formatSummary(res)

	var errs []error
	for i, part := range parts {
		var keyboard [][]tgbotapi.InlineKeyboardButton
		if i == len(parts)-1 {
			keyboard = sourceKeyboard(res.URL)
		}

		if err = b.sendMessage(ctx, chatID, message.MessageID, part, keyboard); err != nil {
			errs = append(errs, fmt.Errorf("send summary part %d: %w", i+1, err))
		}
	}

	return errors.Join(errs...)
}

// messageText joins the visible text with targets of text_link entities,
// which Telegram strips from the text itself.
func messageText(message *tgbotapi.Message) string {
	text := message.Text
	entities := message.Entities

	if text == "" {
		text = message.Caption
		entities = message.CaptionEntities
	}

	var links []string
	for _, entity := range entities {
		if entity.Type == "text_link" && entity.URL != "" {
			links = append(links, entity.URL)
		}
	}

	text = strings.TrimSpace(text)
	if len(links) == 0 {
		return text
	}

	return strings.TrimSpace(text + "\n" + strings.Join(links, "\n"))
}
