package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Nono8Six/ia-learning-sub000/core/admin"
)

type adminApi struct {
	svc      *admin.Service
	validate *validator.Validate
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := adminApi{
		svc:      deps.AdminSvc,
		validate: deps.Validate,
	}

	ag := g.Group("/admin", jwt)

	// privilege resolution; reachable from any privilege state
	ag.GET("/privilege", api.privilege)
	ag.POST("/privilege", api.checkPrivilege)

	// everything below requires a granted privilege
	dg := ag.Group("", api.privilegeMiddleware())
	dg.GET("/state", api.state)
	dg.POST("/reload", api.reload)
	dg.GET("/dashboard", api.dashboard)

	dg.GET("/users", api.queryUsers)
	dg.PATCH("/users/:id/role", api.updateUserRole)

	dg.GET("/courses", api.queryCourses)
	dg.POST("/courses", api.createCourse)
	dg.PATCH("/courses/:id", api.updateCourse)
	dg.DELETE("/courses/:id", api.destroyCourse)
	dg.GET("/courses/:id/modules", api.queryModules)

	dg.POST("/modules", api.createModule)
	dg.PATCH("/modules/:id", api.updateModule)
	dg.DELETE("/modules/:id", api.destroyModule)

	dg.GET("/coupons", api.queryCoupons)
	dg.POST("/coupons", api.createCoupon)
	dg.PATCH("/coupons/:id", api.updateCoupon)
	dg.DELETE("/coupons/:id", api.destroyCoupon)
}

// privilegeMiddleware resolves the admin privilege on first use and fails
// closed on every state but granted.
func (api *adminApi) privilegeMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			st := api.svc.Privilege()
			if st == admin.PrivilegeUnknown {
				st = api.svc.ResolvePrivilege(ctx.Request().Context())
			}
			if !st.Granted() {
				return echo.NewHTTPError(http.StatusForbidden, echo.Map{"privilege": st})
			}
			return next(ctx)
		}
	}
}

// Handlers

func (api *adminApi) privilege(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"privilege": api.svc.Privilege()})
}

func (api *adminApi) checkPrivilege(ctx echo.Context) error {
	st := api.svc.RetryPrivilege(ctx.Request().Context())
	return ctx.JSON(http.StatusOK, echo.Map{"privilege": st})
}

func (api *adminApi) state(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.State())
}

func (api *adminApi) reload(ctx echo.Context) error {
	api.svc.ReloadAll(ctx.Request().Context())
	return ctx.JSON(http.StatusOK, api.svc.State())
}

func (api *adminApi) dashboard(ctx echo.Context) error {
	dash, err := api.svc.LoadDashboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *adminApi) queryUsers(ctx echo.Context) error {
	users, err := api.svc.LoadUsers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading users")
	}
	return ctx.JSON(http.StatusOK, users)
}

type updateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=student admin"`
}

func (api *adminApi) updateUserRole(ctx echo.Context) error {
	var data updateUserRoleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to updateUserRoleRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	usr, err := api.svc.UpdateUserRole(ctx.Request().Context(), ctx.Param("id"), data.Role)
	if err != nil {
		return errors.Wrap(err, "updating user role")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminApi) queryCourses(ctx echo.Context) error {
	courses, err := api.svc.LoadCourses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *adminApi) createCourse(ctx echo.Context) error {
	var data admin.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}

	crs, err := api.svc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *adminApi) updateCourse(ctx echo.Context) error {
	var data admin.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}

	crs, err := api.svc.UpdateCourse(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *adminApi) destroyCourse(ctx echo.Context) error {
	if err := api.svc.DeleteCourse(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) queryModules(ctx echo.Context) error {
	modules, err := api.svc.LoadModules(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "loading modules")
	}
	return ctx.JSON(http.StatusOK, modules)
}

func (api *adminApi) createModule(ctx echo.Context) error {
	var data admin.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}

	mod, err := api.svc.CreateModule(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, mod)
}

func (api *adminApi) updateModule(ctx echo.Context) error {
	var data admin.UpdateModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateModule")
	}

	mod, err := api.svc.UpdateModule(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating module")
	}
	return ctx.JSON(http.StatusOK, mod)
}

func (api *adminApi) destroyModule(ctx echo.Context) error {
	if err := api.svc.DeleteModule(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) queryCoupons(ctx echo.Context) error {
	coupons, err := api.svc.LoadCoupons(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading coupons")
	}
	return ctx.JSON(http.StatusOK, coupons)
}

func (api *adminApi) createCoupon(ctx echo.Context) error {
	var data admin.NewCoupon
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCoupon")
	}

	cpn, err := api.svc.CreateCoupon(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating coupon")
	}
	return ctx.JSON(http.StatusCreated, cpn)
}

func (api *adminApi) updateCoupon(ctx echo.Context) error {
	var data admin.UpdateCoupon
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCoupon")
	}

	cpn, err := api.svc.UpdateCoupon(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating coupon")
	}
	return ctx.JSON(http.StatusOK, cpn)
}

func (api *adminApi) destroyCoupon(ctx echo.Context) error {
	if err := api.svc.DeleteCoupon(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting coupon")
	}
	return ctx.NoContent(http.StatusNoContent)
}
