package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestTelegram(t *testing.T) {
	Convey("Given a telegram notifier", t, func() {
		bot := &fakeBot{}
		tg := &Telegram{bot: bot, chatID: -100123}

		Convey("When a message is sent", func() {
			err := tg.Notify(context.Background(), "✅ Backup completed")

			Convey("It should reach the configured chat", func() {
				So(err, ShouldBeNil)
				So(bot.sent, ShouldHaveLength, 1)
				So(bot.sent[0].ChatID, ShouldEqual, int64(-100123))
				So(bot.sent[0].Text, ShouldEqual, "✅ Backup completed")
			})
		})

		Convey("When the message is too long", func() {
			err := tg.Notify(context.Background(), strings.Repeat("ü", maxMessageLength+10))

			Convey("It should be truncated to the limit", func() {
				So(err, ShouldBeNil)
				So(utf8.RuneCountInString(bot.sent[0].Text), ShouldEqual, maxMessageLength)
				So(bot.sent[0].Text, ShouldEndWith, "…")
			})
		})

		Convey("When the api fails", func() {
			bot.err = errors.New("Bad Request: chat not found")
			err := tg.Notify(context.Background(), "hello")

			Convey("It should wrap the error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "chat not found")
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := tg.Notify(ctx, "hello")

			Convey("It should not send anything", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(bot.sent, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a malformed chat id", t, func() {
		_, err := NewTelegram("token", "not-a-number")

		Convey("It should fail before contacting the api", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "invalid telegram chat id")
		})
	})
}
