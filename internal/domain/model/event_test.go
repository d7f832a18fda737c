package model_test

import (
	"testing"

	"github.com/okian/fanscore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestChatEvent(t *testing.T) {
	Convey("Given a paid chat event", t, func() {
		e := model.ChatEvent{
			ExternalID:   "evt-1",
			Author:       "viewer",
			RawText:      "puntos para gigi",
			Kind:         model.KindPaidMessage,
			AmountMicros: 5_250_000,
			Currency:     "USD",
		}

		Convey("Then it reports as paid", func() {
			So(e.Paid(), ShouldBeTrue)
		})

		Convey("Then Amount converts micros to whole units", func() {
			So(e.Amount(), ShouldEqual, 5.25)
		})
	})

	Convey("Given a plain chat event", t, func() {
		e := model.ChatEvent{ExternalID: "evt-2", Kind: model.KindPlainMessage}

		Convey("Then it is not paid and has no amount", func() {
			So(e.Paid(), ShouldBeFalse)
			So(e.Amount(), ShouldEqual, 0)
		})
	})
}
