package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"hr-backoffice/internal/dto"
	"hr-backoffice/internal/services"
	"hr-backoffice/pkg/api"
	apperrors "hr-backoffice/pkg/errors"
)

type DepartmentController struct {
	departmentService services.DepartmentServiceInterface
	logger            *zap.Logger
}

func NewDepartmentController(service services.DepartmentServiceInterface, logger *zap.Logger) *DepartmentController {
	return &DepartmentController{departmentService: service, logger: logger}
}

func (c *DepartmentController) GetTree(ctx echo.Context) error {
	forest, err := c.departmentService.GetTree(ctx.Request().Context())
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "department tree", forest)
}

// GetChildren lists roots, or the children of ?parent_id= when given.
func (c *DepartmentController) GetChildren(ctx echo.Context) error {
	var parentID *uint64
	if raw := ctx.QueryParam("parent_id"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return api.ErrorResponse(ctx, err)
		}
		parentID = &id
	}
	children, err := c.departmentService.GetChildren(ctx.Request().Context(), parentID)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "departments", children)
}

func (c *DepartmentController) Search(ctx echo.Context) error {
	found, err := c.departmentService.Search(ctx.Request().Context(), ctx.QueryParam("q"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "departments found", found)
}

func (c *DepartmentController) GetByLevel(ctx echo.Context) error {
	level, err := strconv.Atoi(ctx.Param("level"))
	if err != nil {
		return api.ErrorResponse(ctx, apperrors.NewInvalidInputError("level must be an integer"))
	}
	departments, err := c.departmentService.GetByLevel(ctx.Request().Context(), level)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "departments", departments)
}

func (c *DepartmentController) FindDepartmentByCode(ctx echo.Context) error {
	department, err := c.departmentService.FindDepartmentByCode(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "department found", department)
}

func (c *DepartmentController) FindDepartment(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	department, err := c.departmentService.FindDepartment(ctx.Request().Context(), id)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "department found", department)
}

func (c *DepartmentController) GetSubtree(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	subtree, err := c.departmentService.GetSubtree(ctx.Request().Context(), id)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "department subtree", subtree)
}

func (c *DepartmentController) GetAncestors(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	ancestors, err := c.departmentService.GetAncestors(ctx.Request().Context(), id)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "department ancestors", ancestors)
}

func (c *DepartmentController) GetDescendants(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	descendants, err := c.departmentService.GetDescendants(ctx.Request().Context(), id)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "department descendants", descendants)
}

func (c *DepartmentController) CreateDepartment(ctx echo.Context) error {
	var payload dto.CreateDepartmentDTO
	if err := ctx.Bind(&payload); err != nil {
		return api.ErrorResponse(ctx, apperrors.NewInvalidInputError("invalid request body"))
	}
	if err := ctx.Validate(&payload); err != nil {
		return api.ErrorResponse(ctx, err)
	}
	department, err := c.departmentService.CreateDepartment(ctx.Request().Context(), payload)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "department created", department)
}

func (c *DepartmentController) UpdateDepartment(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	var payload dto.UpdateDepartmentDTO
	if err := ctx.Bind(&payload); err != nil {
		return api.ErrorResponse(ctx, apperrors.NewInvalidInputError("invalid request body"))
	}
	if err := ctx.Validate(&payload); err != nil {
		return api.ErrorResponse(ctx, err)
	}
	department, err := c.departmentService.UpdateDepartment(ctx.Request().Context(), id, payload)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "department updated", department)
}

func (c *DepartmentController) MoveDepartment(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	var payload dto.MoveDepartmentDTO
	if err := ctx.Bind(&payload); err != nil {
		return api.ErrorResponse(ctx, apperrors.NewInvalidInputError("invalid request body"))
	}
	if err := ctx.Validate(&payload); err != nil {
		return api.ErrorResponse(ctx, err)
	}
	department, err := c.departmentService.MoveDepartment(ctx.Request().Context(), id, payload.ParentID.Ptr())
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "department moved", department)
}

func (c *DepartmentController) SetDepartmentEnabled(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	var payload dto.SetDepartmentEnabledDTO
	if err := ctx.Bind(&payload); err != nil {
		return api.ErrorResponse(ctx, apperrors.NewInvalidInputError("invalid request body"))
	}
	if err := ctx.Validate(&payload); err != nil {
		return api.ErrorResponse(ctx, err)
	}
	department, err := c.departmentService.SetDepartmentEnabled(ctx.Request().Context(), id, *payload.Enabled)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "department updated", department)
}

func (c *DepartmentController) UpdateSortOrder(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	var payload dto.UpdateSortOrderDTO
	if err := ctx.Bind(&payload); err != nil {
		return api.ErrorResponse(ctx, apperrors.NewInvalidInputError("invalid request body"))
	}
	if err := ctx.Validate(&payload); err != nil {
		return api.ErrorResponse(ctx, err)
	}
	department, err := c.departmentService.UpdateSortOrder(ctx.Request().Context(), id, *payload.SortOrder)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "department updated", department)
}

func (c *DepartmentController) DeleteDepartment(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	if err := c.departmentService.DeleteDepartment(ctx.Request().Context(), id); err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne[any](ctx, http.StatusOK, "department deleted", nil)
}

func (c *DepartmentController) RebuildDepartmentPaths(ctx echo.Context) error {
	report, err := c.departmentService.RebuildDepartmentPaths(ctx.Request().Context())
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "department paths rebuilt", report)
}

func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewInvalidInputError("invalid id %q", raw)
	}
	return id, nil
}
