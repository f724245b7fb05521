package routes

import (
	"github.com/labstack/echo/v4"

	"hr-backoffice/internal/controllers"
)

func runDepartmentRouter(api *echo.Group, ctrl *controllers.DepartmentController) {
	departments := api.Group("/departments")

	departments.GET("", ctrl.GetChildren)
	departments.GET("/tree", ctrl.GetTree)
	departments.GET("/search", ctrl.Search)
	departments.GET("/level/:level", ctrl.GetByLevel)
	departments.GET("/code/:code", ctrl.FindDepartmentByCode)
	departments.GET("/:id", ctrl.FindDepartment)
	departments.GET("/:id/subtree", ctrl.GetSubtree)
	departments.GET("/:id/ancestors", ctrl.GetAncestors)
	departments.GET("/:id/descendants", ctrl.GetDescendants)

	departments.POST("", ctrl.CreateDepartment)
	departments.PUT("/:id", ctrl.UpdateDepartment)
	departments.PUT("/:id/parent", ctrl.MoveDepartment)
	departments.PUT("/:id/enabled", ctrl.SetDepartmentEnabled)
	departments.PUT("/:id/sort-order", ctrl.UpdateSortOrder)
	departments.DELETE("/:id", ctrl.DeleteDepartment)

	departments.POST("/maintenance/rebuild-paths", ctrl.RebuildDepartmentPaths)
}
