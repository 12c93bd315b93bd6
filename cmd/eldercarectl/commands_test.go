package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/eldercare-platform/eldercare/internal/config"
)

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	_ = os.Unsetenv(config.EnvFile)
	t.Setenv("ELDERCARE_LOG_LEVEL", "error")

	Convey("Given a scored CSV", t, func() {
		path := filepath.Join(t.TempDir(), "merged.csv")
		body := "subject_id,independence_index\nA,-1\nB,0\nC,1\nD,\n"
		So(os.WriteFile(path, []byte(body), 0o600), ShouldBeNil)

		Convey("classify prints levels and thresholds", func() {
			out, err := execute("classify", "--method", "fixed", path)
			So(err, ShouldBeNil)

			var got struct {
				Levels []struct {
					SubjectID string `json:"subject_id"`
					RiskLevel string `json:"risk_level"`
				} `json:"risk_levels"`
				Meta struct {
					Method string `json:"method"`
				} `json:"meta"`
			}
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got.Levels, ShouldHaveLength, 3)
			So(got.Levels[0].RiskLevel, ShouldEqual, "Low")
			So(got.Levels[1].RiskLevel, ShouldEqual, "Medium")
			So(got.Levels[2].RiskLevel, ShouldEqual, "High")
			So(got.Meta.Method, ShouldEqual, "fixed")
		})

		Convey("an unknown method is rejected", func() {
			_, err := execute("classify", "--method", "median", path)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("classify needs an existing file", t, func() {
		_, err := execute("classify", filepath.Join(t.TempDir(), "missing.csv"))
		So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
	})
}

func TestDatabaseCommandsWithoutDatabase(t *testing.T) {
	_ = os.Unsetenv(config.EnvFile)
	t.Setenv("ELDERCARE_DATABASE_URL", "")
	t.Setenv("ELDERCARE_LOG_LEVEL", "error")

	Convey("database commands require a database", t, func() {
		_, err := execute("migrate")
		So(errors.Is(err, config.ErrNoDatabase), ShouldBeTrue)

		_, err = execute("seed")
		So(errors.Is(err, config.ErrNoDatabase), ShouldBeTrue)

		path := filepath.Join(t.TempDir(), "merged.csv")
		So(os.WriteFile(path, []byte("subject_id,independence_index\n1,0.5\n"), 0o600), ShouldBeNil)
		_, err = execute("import-scores", path)
		So(errors.Is(err, config.ErrNoDatabase), ShouldBeTrue)
	})
}

func TestLoadgenCommand(t *testing.T) {
	_ = os.Unsetenv(config.EnvFile)
	t.Setenv("ELDERCARE_LOG_LEVEL", "error")

	Convey("loadgen reports the tally", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/ingest" {
				w.WriteHeader(http.StatusAccepted)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		out, err := execute("loadgen", "--url", srv.URL, "--readings", "5", "--workers", "2")
		So(err, ShouldBeNil)
		So(out, ShouldContainSubstring, "submitted=5 accepted=5")
	})
}
