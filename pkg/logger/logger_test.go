package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Then Get returns a usable logger", func() {
			So(Get(), ShouldNotBeNil)
			So(func() { Get().Info(context.Background(), "hello", String("k", "v")) }, ShouldNotPanic)
		})

		Convey("And Sync never fails", func() {
			So(Sync(), ShouldBeNil)
		})
	})
}

func TestLoggerJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWith(&buf, FormatJSON), ShouldBeNil)
		defer func() { _ = Init() }()

		Convey("When logging with fields", func() {
			Named("api").With(String("user_id", "demo-user")).Info(context.Background(), "pick stored",
				Int("count", 2),
				Error(errors.New("boom")),
			)

			var line map[string]any
			So(json.Unmarshal(buf.Bytes(), &line), ShouldBeNil)

			Convey("Then the record carries message, group and source", func() {
				So(line["msg"], ShouldEqual, "pick stored")
				group, ok := line["api"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(group["user_id"], ShouldEqual, "demo-user")
				So(group["count"], ShouldEqual, float64(2))
				So(group["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised to error", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Info(context.Background(), "dropped")

			Convey("Then info records are filtered", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "INFO", " warn ", "warning", "error", ""} {
			So(SetLevelString(lvl), ShouldBeNil)
		}

		Convey("Then an unknown level is rejected", func() {
			err := SetLevelString("loud")
			So(err, ShouldNotBeNil)
			So(strings.Contains(err.Error(), "loud"), ShouldBeTrue)
		})
	})
}

func TestInitWithRejectsBadInput(t *testing.T) {
	Convey("Given invalid logger setup", t, func() {
		So(InitWith(nil, FormatText), ShouldNotBeNil)
		So(InitWith(&bytes.Buffer{}, Format("xml")), ShouldNotBeNil)
	})
}
