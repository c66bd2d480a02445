package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"gatherbot/internal/convert"
	appLog "gatherbot/internal/log"
)

// HandleMessage converts office attachments of m to PDF and replies with the
// results. Messages without convertible attachments, messages from bots and
// bots without a converter are ignored.
func (b *Bot) HandleMessage(parent context.Context, m *discordgo.Message) {
	if b.converter == nil || m.Author == nil || m.Author.Bot {
		return
	}

	var docs []*discordgo.MessageAttachment
	for _, a := range m.Attachments {
		if convert.Supported(a.Filename) {
			docs = append(docs, a)
		}
	}
	if len(docs) == 0 {
		return
	}

	ctx := appLog.WithInteraction(parent, uuid.NewString(), m.Author.ID)
	defer func() {
		if r := recover(); r != nil {
			appLog.ErrorContext(ctx, "document handler panicked", fmt.Errorf("%v", r))
		}
	}()

	var (
		files    []*discordgo.File
		failures []string
	)
	for _, a := range docs {
		pdf, err := b.convertAttachment(ctx, a)
		if err != nil {
			appLog.ErrorContext(ctx, "document conversion failed", err, "file", a.Filename)
			failures = append(failures, failureLine(a.Filename, err))
			continue
		}
		files = append(files, &discordgo.File{
			Name:        convert.PDFName(a.Filename),
			ContentType: "application/pdf",
			Reader:      bytes.NewReader(pdf),
		})
	}

	content := ""
	if len(files) > 0 {
		content = fmt.Sprintf("📄 Converted %d document(s) to PDF.", len(files))
	}
	for _, f := range failures {
		if content != "" {
			content += "\n"
		}
		content += f
	}

	_, err := b.session.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content:   content,
		Files:     files,
		Reference: m.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{},
		},
	})
	if err != nil {
		appLog.ErrorContext(ctx, "sending converted documents failed", err)
	}
}

func (b *Bot) convertAttachment(ctx context.Context, a *discordgo.MessageAttachment) ([]byte, error) {
	if int64(a.Size) > b.converter.MaxBytes() {
		return nil, convert.ErrTooLarge
	}

	ctx, cancel := context.WithTimeout(ctx, b.convertTTL)
	defer cancel()

	data, err := b.fetcher.Fetch(ctx, a.URL)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	return b.converter.ConvertBytes(ctx, a.Filename, data)
}

func failureLine(filename string, err error) string {
	switch {
	case errors.Is(err, convert.ErrTooLarge):
		return fmt.Sprintf("❌ %s is too large to convert.", filename)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("❌ Converting %s took too long.", filename)
	default:
		return fmt.Sprintf("❌ Could not convert %s.", filename)
	}
}
