package dataset_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/eldercare-platform/eldercare/internal/adapters/dataset"
	. "github.com/smartystreets/goconvey/convey"
)

const mergedCSV = `subject_id,independence_index,steps_sum,active_minutes,notes
1001,0.9,5000,30,ok
1002,-0.9,1200,,low
1003,NaN,800,10,
1004,0,4000,25,nan
,0.3,100,1,orphan
`

func mustRead(t *testing.T, name, body string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.ReadCSV(name, strings.NewReader(body))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return tbl
}

func TestReadCSV(t *testing.T) {
	Convey("Given a merged scores file", t, func() {
		tbl := mustRead(t, dataset.MergedScored, mergedCSV)

		Convey("Then header and rows are loaded", func() {
			So(tbl.Name(), ShouldEqual, dataset.MergedScored)
			So(tbl.Columns(), ShouldResemble, []string{"subject_id", "independence_index", "steps_sum", "active_minutes", "notes"})
			So(tbl.Len(), ShouldEqual, 5)
			So(tbl.Has("steps_sum"), ShouldBeTrue)
			So(tbl.Has("missing"), ShouldBeFalse)
		})

		Convey("Then cells are typed", func() {
			recs := tbl.Records()
			So(recs[0]["subject_id"], ShouldEqual, "1001")
			So(recs[0]["independence_index"], ShouldEqual, 0.9)
			So(recs[0]["notes"], ShouldEqual, "ok")
			So(recs[1]["active_minutes"], ShouldBeNil)
			So(recs[2]["independence_index"], ShouldBeNil)
			So(recs[3]["notes"], ShouldBeNil)
			So(recs[4]["subject_id"], ShouldBeNil)
		})
	})

	Convey("Given non-finite literals", t, func() {
		tbl := mustRead(t, "x.csv", "subject_id,v\na,inf\nb,-Infinity\n")

		Convey("Then they are kept as strings", func() {
			recs := tbl.Records()
			So(recs[0]["v"], ShouldEqual, "inf")
			So(recs[1]["v"], ShouldEqual, "-Infinity")
		})
	})

	Convey("Given a file with a byte order mark", t, func() {
		tbl := mustRead(t, "bom.csv", "\ufeffsubject_id,v\na,1\n")

		Convey("Then the first column name is clean", func() {
			So(tbl.Has("subject_id"), ShouldBeTrue)
		})
	})

	Convey("Given broken input", t, func() {
		Convey("Then an empty file is malformed", func() {
			_, err := dataset.ReadCSV("empty.csv", strings.NewReader(""))
			So(errors.Is(err, dataset.ErrMalformed), ShouldBeTrue)
		})

		Convey("Then ragged rows are malformed", func() {
			_, err := dataset.ReadCSV("ragged.csv", strings.NewReader("a,b\n1,2,3\n"))
			So(errors.Is(err, dataset.ErrMalformed), ShouldBeTrue)
		})

		Convey("Then a header-only file has zero rows", func() {
			tbl := mustRead(t, "header.csv", "subject_id,independence_index\n")
			So(tbl.Len(), ShouldEqual, 0)
		})
	})
}

func TestTableOperations(t *testing.T) {
	Convey("Given a loaded table", t, func() {
		tbl := mustRead(t, dataset.MergedScored, mergedCSV)

		Convey("When taking the head", func() {
			So(tbl.Head(2).Len(), ShouldEqual, 2)
			So(tbl.Head(100).Len(), ShouldEqual, 5)
			So(tbl.Head(-1).Len(), ShouldEqual, 0)
		})

		Convey("When selecting columns", func() {
			sel, err := tbl.Select("independence_index", "subject_id")
			So(err, ShouldBeNil)
			So(sel.Columns(), ShouldResemble, []string{"independence_index", "subject_id"})
			So(sel.Records()[0], ShouldResemble, map[string]any{"independence_index": 0.9, "subject_id": "1001"})

			_, err = tbl.Select("subject_id", "nope")
			So(errors.Is(err, dataset.ErrMissingColumn), ShouldBeTrue)
		})

		Convey("When listing available columns", func() {
			So(tbl.Available("subject_id", "nope", "steps_sum"), ShouldResemble, []string{"subject_id", "steps_sum"})
		})

		Convey("When renaming a column", func() {
			sel, _ := tbl.Select("subject_id", "independence_index")
			r := sel.Rename("independence_index", "score")
			So(r.Columns(), ShouldResemble, []string{"subject_id", "score"})
			So(sel.Has("independence_index"), ShouldBeTrue)
		})

		Convey("When filtering rows", func() {
			So(tbl.Where("subject_id", "1002").Len(), ShouldEqual, 1)
			So(tbl.Where("steps_sum", "4000").Len(), ShouldEqual, 1)
			So(tbl.Where("subject_id", "9999").Len(), ShouldEqual, 0)
			So(tbl.Where("nope", "1").Len(), ShouldEqual, 0)
		})

		Convey("When listing distinct values", func() {
			ids, err := tbl.Distinct("subject_id")
			So(err, ShouldBeNil)
			So(ids, ShouldResemble, []string{"1001", "1002", "1003", "1004"})

			notes, _ := tbl.Distinct("notes")
			So(notes, ShouldResemble, []string{"ok", "low", "orphan"})

			_, err = tbl.Distinct("nope")
			So(errors.Is(err, dataset.ErrMissingColumn), ShouldBeTrue)
		})

		Convey("When writing CSV", func() {
			var buf bytes.Buffer
			So(tbl.Head(2).WriteCSV(&buf), ShouldBeNil)
			So(buf.String(), ShouldEqual,
				"subject_id,independence_index,steps_sum,active_minutes,notes\n"+
					"1001,0.9,5000,30,ok\n"+
					"1002,-0.9,1200,,low\n")
		})

		Convey("When extracting wellness records", func() {
			recs, err := tbl.WellnessRecords("subject_id", "independence_index")
			So(err, ShouldBeNil)

			Convey("Then null ids are dropped and null indices are kept as missing", func() {
				So(len(recs), ShouldEqual, 4)
				So(recs[0].SubjectID, ShouldEqual, "1001")
				So(*recs[0].Index, ShouldEqual, 0.9)
				So(recs[2].Index, ShouldBeNil)
				So(*recs[3].Index, ShouldEqual, 0.0)
			})

			Convey("Then a missing column is reported", func() {
				_, err := tbl.WellnessRecords("subject_id", "score")
				So(errors.Is(err, dataset.ErrMissingColumn), ShouldBeTrue)
			})
		})
	})
}
