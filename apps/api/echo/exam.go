package echoapi

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/exam"
)

type examApi struct {
	svc exam.Service
}

func registerExamAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc exam.Service) {
	api := examApi{svc: svc}

	tg := g.Group("/tests", jwt)
	tg.GET("", api.queryTests)
	tg.POST("", api.createTest, adminMiddleware())
	tg.DELETE("", api.destroyTests, adminMiddleware())

	tdg := tg.Group("/:id", api.testObjectMiddleware)
	tdg.GET("", api.retrieveTest)
	tdg.PUT("", api.updateTest, adminMiddleware())
	tdg.DELETE("", api.destroyTest, adminMiddleware())

	mg := g.Group("/marks", jwt)
	mg.GET("", api.queryMarks)
	mg.POST("", api.createMark, adminMiddleware())
	mg.DELETE("", api.destroyMarks, adminMiddleware())

	mdg := mg.Group("/:id", api.markObjectMiddleware)
	mdg.GET("", api.retrieveMark)
	mdg.PUT("", api.updateMark, adminMiddleware())
	mdg.DELETE("", api.destroyMark, adminMiddleware())
}

func (api *examApi) testObjectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		tst, err := api.svc.GetTestByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == exam.ErrTestNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding test by ID")
		}
		ctx.Set("object", tst)
		return next(ctx)
	}
}

func (api *examApi) markObjectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		mrk, err := api.svc.GetMarkByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == exam.ErrMarkNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding mark by ID")
		}
		ctx.Set("object", mrk)
		return next(ctx)
	}
}

// Test handlers

func (api *examApi) createTest(ctx echo.Context) error {
	var data exam.NewTest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	tst, err := api.svc.CreateTest(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating test")
	}
	return ctx.JSON(http.StatusCreated, tst)
}

func (api *examApi) queryTests(ctx echo.Context) error {
	filter := new(exam.TestQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []exam.Test{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	tests, err := api.svc.FilterTests(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying tests")
	}
	if tests == nil {
		tests = []exam.Test{}
	}
	sortTests(tests, ordering.Orderings)
	return ctx.JSON(http.StatusOK, tests)
}

func (api *examApi) retrieveTest(ctx echo.Context) error {
	tst, ok := ctx.Get("object").(exam.Test)
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, tst)
}

func (api *examApi) updateTest(ctx echo.Context) error {
	tst, ok := ctx.Get("object").(exam.Test)
	if !ok {
		return errHttpNotFound
	}

	var data exam.UpdateTest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTest")
	}
	if err := data.Validate(tst); err != nil {
		return err
	}

	tst, err := api.svc.UpdateTest(ctx.Request().Context(), tst.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating test")
	}
	return ctx.JSON(http.StatusOK, tst)
}

func (api *examApi) destroyTest(ctx echo.Context) error {
	tst, ok := ctx.Get("object").(exam.Test)
	if !ok {
		return errHttpNotFound
	}
	if err := api.svc.DeleteTests(ctx.Request().Context(), tst.ID); err != nil {
		return errors.Wrap(err, "deleting test")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *examApi) destroyTests(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.DeleteTests(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting tests")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Mark handlers

func (api *examApi) createMark(ctx echo.Context) error {
	var data exam.NewMark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMark")
	}
	if err := data.Validate(api.svc); err != nil {
		return err
	}

	mrk, err := api.svc.CreateMark(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating mark")
	}
	return ctx.JSON(http.StatusCreated, mrk)
}

func (api *examApi) queryMarks(ctx echo.Context) error {
	filter := new(exam.MarkQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []exam.Mark{})
	}

	marks, err := api.svc.FilterMarks(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying marks")
	}
	if marks == nil {
		marks = []exam.Mark{}
	}
	return ctx.JSON(http.StatusOK, marks)
}

func (api *examApi) retrieveMark(ctx echo.Context) error {
	mrk, ok := ctx.Get("object").(exam.Mark)
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, mrk)
}

func (api *examApi) updateMark(ctx echo.Context) error {
	mrk, ok := ctx.Get("object").(exam.Mark)
	if !ok {
		return errHttpNotFound
	}

	var data exam.UpdateMark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMark")
	}
	if err := data.Validate(mrk, api.svc); err != nil {
		return err
	}

	mrk, err := api.svc.UpdateMark(ctx.Request().Context(), mrk.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating mark")
	}
	return ctx.JSON(http.StatusOK, mrk)
}

func (api *examApi) destroyMark(ctx echo.Context) error {
	mrk, ok := ctx.Get("object").(exam.Mark)
	if !ok {
		return errHttpNotFound
	}
	if err := api.svc.DeleteMarks(ctx.Request().Context(), mrk.ID); err != nil {
		return errors.Wrap(err, "deleting mark")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *examApi) destroyMarks(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.DeleteMarks(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting marks")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func sortTests(tests []exam.Test, orderings []core.DBOrdering) {
	for i := len(orderings) - 1; i >= 0; i-- {
		ord := orderings[i]
		less := testLessFunc(tests, ord.Field)
		if less == nil {
			continue
		}
		if !ord.Ascending {
			asc := less
			less = func(i, j int) bool { return asc(j, i) }
		}
		sort.SliceStable(tests, less)
	}
}

func testLessFunc(tests []exam.Test, field string) func(i, j int) bool {
	switch field {
	case "name":
		return func(i, j int) bool { return tests[i].Name < tests[j].Name }
	case "date":
		return func(i, j int) bool { return tests[i].Date.Before(tests[j].Date.Time) }
	case "student_count":
		return func(i, j int) bool { return tests[i].StudentCount < tests[j].StudentCount }
	}
	return nil
}
