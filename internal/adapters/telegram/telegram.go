// Package telegram is the reference kit.Delivery implementation. The
// scheduler core never imports it; the app wires it in.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"postbot/internal/kit"
	logx "postbot/pkg/logx"
)

type Config struct {
	Token string
}

type Delivery struct {
	log logx.Logger
	bot *tele.Bot
}

var _ kit.Delivery = (*Delivery)(nil)

func New(cfg Config, log logx.Logger) (*Delivery, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	return &Delivery{log: log, bot: b}, nil
}

func (d *Delivery) SendText(ctx context.Context, to kit.Target, text string) error {
	return d.fanout(ctx, to, func(chat *tele.Chat) error {
		_, err := d.bot.Send(chat, text)
		return err
	})
}

func (d *Delivery) SendMedia(ctx context.Context, to kit.Target, path, caption string, kind kit.MediaKind) error {
	var payload any
	switch kind {
	case kit.MediaImage:
		payload = &tele.Photo{File: tele.FromDisk(path), Caption: caption}
	case kit.MediaVideo:
		payload = &tele.Video{File: tele.FromDisk(path), Caption: caption}
	default:
		return fmt.Errorf("unsupported media kind %q", kind)
	}
	return d.fanout(ctx, to, func(chat *tele.Chat) error {
		_, err := d.bot.Send(chat, payload)
		return err
	})
}

// fanout sends to the single chat of a direct target, or to every resolved
// recipient of a broadcast target. Per-recipient failures are collected, not
// short-circuited, so one bad recipient does not starve the rest.
func (d *Delivery) fanout(ctx context.Context, to kit.Target, send func(*tele.Chat) error) error {
	ids := to.Recipients
	if !to.Broadcast() {
		ids = []string{to.Chat}
	}
	var errs []error
	for _, raw := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		chatID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("bad chat id %q: %w", raw, err))
			continue
		}
		if err := send(&tele.Chat{ID: chatID}); err != nil {
			d.log.Warn("telegram send failed", logx.String("chat", raw), logx.Err(err))
			errs = append(errs, fmt.Errorf("chat %s: %w", raw, err))
		}
	}
	return errors.Join(errs...)
}
