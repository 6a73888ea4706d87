/*
Package notify formats the alert message for one regulation and delivers it
to the single configured recipient through the selected channel.
*/
package notify

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"pixmonitor/internal/types"
)

// maxMessageLen is the hard body limit enforced before sending. The
// transport ceiling is ~1600 characters; staying at 1500 leaves headroom
// for channel-side metadata. Truncation cuts from the tail of the fully
// composed message, so the footer may be sacrificed to fit.
const maxMessageLen = 1500

// Message is the composed envelope handed to a sender. Subject is only used
// by channels that have one (email); WhatsApp delivers the body alone.
type Message struct {
	Subject string
	Body    string
}

// Sender delivers a composed message and returns the channel's delivery
// identifier, used only for logging.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Notifier composes, truncates and sends alerts.
type Notifier struct {
	sender Sender
	logger *zap.Logger
}

func NewNotifier(sender Sender, logger *zap.Logger) *Notifier {
	return &Notifier{sender: sender, logger: logger}
}

// Notify sends the alert for one regulation. A delivery failure is a hard
// error for this item.
func (n *Notifier) Notify(ctx context.Context, item types.Regulation, summary string) error {
	msg := Compose(item, summary)

	deliveryID, err := n.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("send notification for %s: %w", item.ID, err)
	}

	n.logger.Info("notification delivered",
		zap.String("id", item.ID),
		zap.String("delivery_id", deliveryID),
	)
	return nil
}

// Compose assembles the fixed alert envelope and applies the transport
// truncation.
func Compose(item types.Regulation, summary string) Message {
	body := fmt.Sprintf(`🏦 *Nova Normativa BCB — Pix*

📄 *%s nº %s*
_%s_
📅 Publicada em: %s

%s

---
_PixMonitor · Atualização automática_`,
		item.Type,
		item.Number,
		item.Title,
		item.PublishedAt,
		summary,
	)

	return Message{
		Subject: fmt.Sprintf("Nova Normativa BCB — Pix: %s nº %s", item.Type, item.Number),
		Body:    Truncate(body, maxMessageLen),
	}
}

// Truncate cuts s to at most limit characters from the tail. Counted in
// runes, not bytes, so a multi-byte character is never split.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
