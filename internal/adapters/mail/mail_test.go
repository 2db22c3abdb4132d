package mail_test

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/okian/portfolio/internal/adapters/mail"
	"github.com/okian/portfolio/internal/domain/contact"
	"github.com/okian/portfolio/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var submission = contact.Submission{
	Name:    "Ada\r\nBcc: victim@example.com",
	Email:   "ada@example.com",
	Message: "Hello there, let us talk.",
}

func TestLogNotifier(t *testing.T) {
	Convey("Given a log notifier", t, func() {
		var buf bytes.Buffer
		So(logger.Init(logger.WithOutput(&buf)), ShouldBeNil)

		Convey("When notifying without delay", func() {
			n := mail.NewLogNotifier(logger.Get(), 0)
			err := n.Notify(context.Background(), submission)

			Convey("Then the submission should be logged", func() {
				So(err, ShouldBeNil)
				So(buf.String(), ShouldContainSubstring, "contact form submission")
				So(buf.String(), ShouldContainSubstring, "ada@example.com")
			})
		})

		Convey("When the context is cancelled during the delay", func() {
			n := mail.NewLogNotifier(logger.Get(), time.Minute)
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := n.Notify(ctx, submission)

			Convey("Then the cancellation should be returned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestSMTPNotifier(t *testing.T) {
	Convey("Given an SMTP notifier with a recording sender", t, func() {
		So(logger.Init(logger.WithOutput(&bytes.Buffer{})), ShouldBeNil)

		var (
			gotAddr string
			gotFrom string
			gotTo   []string
			gotMsg  []byte
			sendErr error
		)
		send := func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
			return sendErr
		}
		n := mail.NewSMTPNotifier("smtp.example.com", 587, "bot@example.com", "secret", "me@example.com",
			logger.Get(), mail.WithSendFunc(send))

		Convey("When a submission is delivered", func() {
			err := n.Notify(context.Background(), submission)

			Convey("Then the mail should be addressed to the recipient", func() {
				So(err, ShouldBeNil)
				So(gotAddr, ShouldEqual, "smtp.example.com:587")
				So(gotFrom, ShouldEqual, "bot@example.com")
				So(gotTo, ShouldResemble, []string{"me@example.com"})
			})

			Convey("And user input should not inject headers", func() {
				msg := string(gotMsg)
				So(msg, ShouldContainSubstring, "Reply-To: ada@example.com\r\n")
				So(msg, ShouldContainSubstring, "Subject: Portfolio Contact: Ada  Bcc: victim@example.com\r\n")
				So(msg, ShouldNotContainSubstring, "\r\nBcc:")
				So(msg, ShouldContainSubstring, "Hello there, let us talk.")
			})
		})

		Convey("When the server rejects the mail", func() {
			sendErr = errors.New("535 authentication failed")
			err := n.Notify(context.Background(), submission)

			Convey("Then the error should be wrapped", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, sendErr), ShouldBeTrue)
			})
		})

		Convey("When a custom sender address is configured", func() {
			n := mail.NewSMTPNotifier("smtp.example.com", 25, "bot", "secret", "me@example.com",
				logger.Get(), mail.WithSendFunc(send), mail.WithFrom("Portfolio <noreply@example.com>"))
			_ = n.Notify(context.Background(), submission)

			So(gotFrom, ShouldEqual, "Portfolio <noreply@example.com>")
			So(gotAddr, ShouldEqual, "smtp.example.com:25")
		})
	})
}
