package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/exam"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/student"
)

type reportApi struct {
	stdSvc  student.Service
	examSvc exam.Service
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, stdSvc student.Service, examSvc exam.Service) {
	api := reportApi{stdSvc: stdSvc, examSvc: examSvc}

	rg := g.Group("/reports", jwt)
	rg.GET("/test-toppers", api.testToppers)
	rg.GET("/top-performers", api.topPerformers)
	rg.GET("/achievements", api.achievements)
}

// snapshot fetches the three record sets once; the engine works off this
// single consistent view for the whole request.
func (api *reportApi) snapshot(ctx context.Context) (report.Snapshot, error) {
	students, err := api.stdSvc.QueryAll(ctx)
	if err != nil {
		return report.Snapshot{}, errors.Wrap(err, "querying students")
	}
	tests, err := api.examSvc.QueryAllTests(ctx)
	if err != nil {
		return report.Snapshot{}, errors.Wrap(err, "querying tests")
	}
	marks, err := api.examSvc.QueryAllMarks(ctx)
	if err != nil {
		return report.Snapshot{}, errors.Wrap(err, "querying marks")
	}
	return report.Snapshot{Students: students, Tests: tests, Marks: marks}, nil
}

type TestToppersResponse struct {
	Test    exam.Test       `json:"test"`
	Toppers []report.Topper `json:"toppers"`
}

func (api *reportApi) testToppers(ctx echo.Context) error {
	c := ctx.Request().Context()

	tst, err := api.examSvc.GetTestByID(c, ctx.QueryParam("test_id"))
	if err != nil {
		if errors.Cause(err) == exam.ErrTestNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding test by ID")
	}

	snap, err := api.snapshot(c)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, TestToppersResponse{
		Test:    tst,
		Toppers: snap.TestToppers(tst.ID),
	})
}

type TopPerformersRequest struct {
	Class string `query:"class"`
	Limit int    `query:"limit"`
}

func (api *reportApi) topPerformers(ctx echo.Context) error {
	var query TopPerformersRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to TopPerformersRequest")
	}

	snap, err := api.snapshot(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, snap.TopPerformers(query.Class, query.Limit))
}

func (api *reportApi) achievements(ctx echo.Context) error {
	snap, err := api.snapshot(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, snap.Achievements())
}
