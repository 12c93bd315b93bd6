package site

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSiteHandler(t *testing.T) {
	Convey("Given a web directory", t, func() {
		dir := t.TempDir()
		So(os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>eldercare</html>"), 0o600), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o600), ShouldBeNil)
		mux := http.NewServeMux()

		Convey("When registering the site handler", func() {
			err := Register(context.Background(), mux, dir)
			So(err, ShouldBeNil)

			Convey("Then / serves index.html", func() {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
				So(w.Body.String(), ShouldContainSubstring, "eldercare")
			})

			Convey("And assets are served", func() {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest("GET", "/app.js", nil))
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And unknown files are 404", func() {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest("GET", "/missing.css", nil))
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})

	Convey("Given a missing web directory", t, func() {
		mux := http.NewServeMux()

		Convey("Then nothing is mounted and ErrNoWebDir is returned", func() {
			err := Register(context.Background(), mux, filepath.Join(t.TempDir(), "nope"))
			So(errors.Is(err, ErrNoWebDir), ShouldBeTrue)

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSiteHandlerWithNilMux(t *testing.T) {
	Convey("Given a nil mux", t, func() {
		Convey("Then registering panics", func() {
			So(func() {
				_ = Register(context.Background(), nil, ".")
			}, ShouldPanic)
		})
	})
}
