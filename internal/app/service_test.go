package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/eldercare-platform/eldercare/internal/adapters/dataset"
	service "github.com/eldercare-platform/eldercare/internal/app"
	"github.com/eldercare-platform/eldercare/internal/domain/risk"
	. "github.com/smartystreets/goconvey/convey"
)

const mergedCSV = `subject_id,independence_index,steps_sum,active_minutes
1,0.9,1200,30
2,-0.9,300,5
3,0.0,800,20
4,,100,1
`

const qcCSV = `sensor,count
door,10
motion,12
`

func table(t *testing.T, name, body string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.ReadCSV(name, strings.NewReader(body))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return tbl
}

func offlineService(t *testing.T, tables ...*dataset.Table) *service.Service {
	t.Helper()
	svc, err := service.New(dataset.NewStatic(tables...), service.WithOffline(true))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestService_Health(t *testing.T) {
	Convey("Given an offline service with both datasets", t, func() {
		svc := offlineService(t, table(t, dataset.MergedScored, mergedCSV), table(t, dataset.QCSensorCounts, qcCSV))

		Convey("Then health reports the loaded datasets", func() {
			h := svc.Health(context.Background())
			So(h.Status, ShouldEqual, "healthy")
			So(h.Mode, ShouldEqual, "offline")
			So(h.CacheLoaded, ShouldEqual, 2)
			So(h.AvailableData, ShouldResemble, []string{dataset.MergedScored, dataset.QCSensorCounts})
			So(h.Database, ShouldBeEmpty)
		})
	})

	Convey("Given an online service whose database is down", t, func() {
		store := newFakeStore()
		store.pingErr = errors.New("refused")
		svc, err := service.New(nil, service.WithStore(store))
		So(err, ShouldBeNil)

		Convey("Then health is still served and flags the database", func() {
			h := svc.Health(context.Background())
			So(h.Mode, ShouldEqual, "online")
			So(h.CacheLoaded, ShouldEqual, 0)
			So(h.Database, ShouldEqual, "unavailable")
		})
	})
}

func TestService_ClassifyRisk(t *testing.T) {
	ctx := context.Background()

	Convey("Given the merged dataset", t, func() {
		svc := offlineService(t, table(t, dataset.MergedScored, mergedCSV))

		Convey("When classifying with the fixed method", func() {
			got, err := svc.ClassifyRisk(ctx, "fixed")
			So(err, ShouldBeNil)

			Convey("Then null rows are dropped and labels follow the fixed cut points", func() {
				So(got.Meta, ShouldNotBeNil)
				So(got.Meta.Method, ShouldEqual, risk.MethodFixed)
				So(got.Levels, ShouldHaveLength, 3)
				So(got.Levels[0].Level, ShouldEqual, risk.LevelHigh)
				So(got.Levels[1].Level, ShouldEqual, risk.LevelLow)
				So(got.Levels[2].Level, ShouldEqual, risk.LevelMedium)
				So(got.Levels[0].SubjectID, ShouldEqual, "1")
			})
		})

		Convey("When the method defaults to quantile", func() {
			got, err := svc.ClassifyRisk(ctx, "")
			So(err, ShouldBeNil)

			Convey("Then three distinct values are enough for quantile thresholds", func() {
				So(got.Meta.Method, ShouldEqual, risk.MethodQuantile)
				So(got.Meta.LowThreshold, ShouldBeLessThanOrEqualTo, got.Meta.HighThreshold)
			})
		})

		Convey("When the method is unknown", func() {
			_, err := svc.ClassifyRisk(ctx, "median")

			Convey("Then it is rejected as invalid input", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(err, risk.ErrInvalidMethod), ShouldBeTrue)
			})
		})
	})

	Convey("Given no merged dataset", t, func() {
		svc := offlineService(t)

		Convey("Then the result is empty and carries no meta", func() {
			got, err := svc.ClassifyRisk(ctx, "quantile")
			So(err, ShouldBeNil)
			So(got.Levels, ShouldBeEmpty)
			So(got.Meta, ShouldBeNil)
		})
	})

	Convey("Given a dataset without the index column", t, func() {
		svc := offlineService(t, table(t, dataset.MergedScored, "subject_id,steps_sum\n1,10\n"))

		Convey("Then the result is empty and carries no meta", func() {
			got, err := svc.ClassifyRisk(ctx, "quantile")
			So(err, ShouldBeNil)
			So(got.Levels, ShouldBeEmpty)
			So(got.Meta, ShouldBeNil)
		})
	})

	Convey("Given a dataset where every index is null", t, func() {
		svc := offlineService(t, table(t, dataset.MergedScored, "subject_id,independence_index\n1,\n2,NaN\n"))

		Convey("Then the result is empty but meta reports the fixed fallback", func() {
			got, err := svc.ClassifyRisk(ctx, "quantile")
			So(err, ShouldBeNil)
			So(got.Levels, ShouldBeEmpty)
			So(got.Meta, ShouldNotBeNil)
			So(got.Meta.Method, ShouldEqual, risk.MethodFixed)
		})
	})

	Convey("Given an online service", t, func() {
		svc, err := service.New(dataset.NewStatic(table(t, dataset.MergedScored, mergedCSV)))
		So(err, ShouldBeNil)

		Convey("Then offline views are disabled", func() {
			_, err := svc.ClassifyRisk(ctx, "fixed")
			So(errors.Is(err, service.ErrOfflineDisabled), ShouldBeTrue)
			_, err = svc.Subjects(ctx)
			So(errors.Is(err, service.ErrOfflineDisabled), ShouldBeTrue)
			_, err = svc.RiskScores(ctx)
			So(errors.Is(err, service.ErrOfflineDisabled), ShouldBeTrue)
		})
	})
}

func TestService_OfflineViews(t *testing.T) {
	ctx := context.Background()

	Convey("Given an offline service", t, func() {
		svc := offlineService(t, table(t, dataset.MergedScored, mergedCSV), table(t, dataset.QCSensorCounts, qcCSV))

		Convey("When listing subjects", func() {
			subjects, err := svc.Subjects(ctx)
			So(err, ShouldBeNil)

			Convey("Then every row carries the subject columns", func() {
				So(subjects, ShouldHaveLength, 4)
				So(subjects[0]["subject_id"], ShouldEqual, "1")
				So(subjects[0]["steps_sum"], ShouldEqual, 1200.0)
				So(subjects[3]["independence_index"], ShouldBeNil)
			})
		})

		Convey("When listing risk scores", func() {
			scores, err := svc.RiskScores(ctx)
			So(err, ShouldBeNil)

			Convey("Then the index is renamed to score", func() {
				So(scores, ShouldHaveLength, 4)
				So(scores[1]["score"], ShouldEqual, -0.9)
				_, hasIndex := scores[1]["independence_index"]
				So(hasIndex, ShouldBeFalse)
			})
		})

		Convey("When reading a dashboard", func() {
			d, err := svc.Dashboard(ctx, 2)
			So(err, ShouldBeNil)
			dash, ok := d.(service.OfflineDashboard)
			So(ok, ShouldBeTrue)

			Convey("Then only the user's merged rows and the QC head are returned", func() {
				So(dash.Offline, ShouldBeTrue)
				So(dash.UserID, ShouldEqual, int64(2))
				So(dash.MergedRows, ShouldHaveLength, 1)
				So(dash.MergedRows[0]["steps_sum"], ShouldEqual, 300.0)
				So(dash.QCSummaryRows, ShouldHaveLength, 2)
			})
		})

		Convey("When building a report", func() {
			rep, err := svc.BuildReport(ctx, 7, "")

			Convey("Then it is a csv report over the merged head", func() {
				So(err, ShouldBeNil)
				So(rep.Type, ShouldEqual, service.ReportCSV)
				So(rep.Table, ShouldNotBeNil)
				So(rep.Table.Len(), ShouldEqual, 4)
			})
		})

		Convey("When the report type is unknown", func() {
			_, err := svc.BuildReport(ctx, 7, "pdf")

			Convey("Then it is invalid input", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When logging in", func() {
			res, err := svc.Login(ctx, "anyone@example.com", "x")
			So(err, ShouldBeNil)

			Convey("Then the demo token is returned and resolves to admin", func() {
				So(res.AccessToken, ShouldEqual, service.OfflineToken)
				So(res.Role, ShouldEqual, "admin")
				So(res.UserID, ShouldEqual, int64(1))
				So(res.Message, ShouldNotBeEmpty)

				sess, err := svc.Me(ctx, res.AccessToken)
				So(err, ShouldBeNil)
				So(sess.Role, ShouldEqual, "admin")
			})
		})
	})

	Convey("Given an offline service without datasets", t, func() {
		svc := offlineService(t)

		Convey("Then views are empty rather than failing", func() {
			subjects, err := svc.Subjects(ctx)
			So(err, ShouldBeNil)
			So(subjects, ShouldBeEmpty)

			rep, err := svc.BuildReport(ctx, 1, "csv")
			So(err, ShouldBeNil)
			So(rep.Table, ShouldBeNil)

			d, err := svc.Dashboard(ctx, 1)
			So(err, ShouldBeNil)
			So(d.(service.OfflineDashboard).MergedRows, ShouldBeEmpty)
		})
	})
}
