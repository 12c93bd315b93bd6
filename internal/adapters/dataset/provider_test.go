package dataset_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/eldercare-platform/eldercare/internal/adapters/dataset"
	. "github.com/smartystreets/goconvey/convey"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestProviderLoad(t *testing.T) {
	Convey("Given an outputs directory", t, func() {
		dir := t.TempDir()
		writeFile(t, dir, dataset.MergedScored, mergedCSV)

		Convey("When only one of the configured files exists", func() {
			p := dataset.NewProvider(dir)
			So(p.Load(context.Background()), ShouldBeNil)

			Convey("Then the missing file is skipped", func() {
				So(p.Len(), ShouldEqual, 1)
				So(p.Names(), ShouldResemble, []string{dataset.MergedScored})
				_, ok := p.Table(dataset.QCSensorCounts)
				So(ok, ShouldBeFalse)
			})

			Convey("Then Lookup reports the missing dataset", func() {
				_, err := p.Lookup(dataset.QCSensorCounts)
				So(errors.Is(err, dataset.ErrMissingDataset), ShouldBeTrue)
				tbl, err := p.Lookup(dataset.MergedScored)
				So(err, ShouldBeNil)
				So(tbl.Len(), ShouldEqual, 5)
			})
		})

		Convey("When a file is malformed", func() {
			writeFile(t, dir, dataset.QCSensorCounts, "a,b\n1,2,3\n")
			p := dataset.NewProvider(dir)

			Convey("Then loading still succeeds without it", func() {
				So(p.Load(context.Background()), ShouldBeNil)
				So(p.Names(), ShouldResemble, []string{dataset.MergedScored})
			})
		})

		Convey("When both files load", func() {
			writeFile(t, dir, dataset.QCSensorCounts, "sensor,count\nmotion,10\ndoor,4\n")
			p := dataset.NewProvider(dir, dataset.WithParallelism(1))
			So(p.Load(context.Background()), ShouldBeNil)

			Convey("Then names are sorted", func() {
				So(p.Names(), ShouldResemble, []string{dataset.MergedScored, dataset.QCSensorCounts})
			})
		})

		Convey("When Load is called repeatedly", func() {
			p := dataset.NewProvider(dir)
			So(p.Load(context.Background()), ShouldBeNil)
			writeFile(t, dir, dataset.QCSensorCounts, "sensor,count\nmotion,10\n")
			So(p.Load(context.Background()), ShouldBeNil)

			Convey("Then the first load wins", func() {
				So(p.Len(), ShouldEqual, 1)
			})
		})

		Convey("When readers race with each other", func() {
			p := dataset.NewProvider(dir)
			So(p.Load(context.Background()), ShouldBeNil)

			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					tbl, _ := p.Table(dataset.MergedScored)
					_ = tbl.Head(3).Records()
					_ = p.Names()
				}()
			}
			wg.Wait()
			So(p.Len(), ShouldEqual, 1)
		})

		Convey("When custom files are configured", func() {
			writeFile(t, dir, "other.csv", "subject_id\nx\n")
			p := dataset.NewProvider(dir, dataset.WithFiles("other.csv"))
			So(p.Load(context.Background()), ShouldBeNil)
			So(p.Names(), ShouldResemble, []string{"other.csv"})
		})
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := dataset.NewProvider(t.TempDir())

		Convey("Then Load returns the cancellation", func() {
			So(errors.Is(p.Load(ctx), context.Canceled), ShouldBeTrue)
		})
	})

	Convey("Given a static provider", t, func() {
		tbl := mustRead(t, "static.csv", "subject_id\na\n")
		p := dataset.NewStatic(tbl)

		Convey("Then it is already loaded and Load is a no-op", func() {
			So(p.Load(context.Background()), ShouldBeNil)
			So(p.Names(), ShouldResemble, []string{"static.csv"})
		})
	})
}
