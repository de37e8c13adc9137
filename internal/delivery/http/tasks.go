package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"gitea-reporter/internal/dto"
	"gitea-reporter/internal/model"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupTasks(base *echo.Group) {
	v1 := base.Group("/v1/tasks")
	{
		v1.POST("", h.CreateTask)
		v1.GET("", h.ListTasks)
		v1.PUT("/:id", h.UpdateTask)
		v1.DELETE("/:id", h.DeleteTask)
		v1.POST("/:id/run", h.RunTaskNow)
		v1.GET("/:id/logs", h.ListTaskLogs)
	}
}

func (h *HttpAPIHandler) CreateTask(c echo.Context) error {
	var req dto.TaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	task, err := taskFromRequest(&req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	ctx := c.Request().Context()
	if err := h.repo.TaskRepo.Create(ctx, task); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}

	if task.IsActive {
		if err := h.service.SchedulerService.UpsertTask(task.ID, task.CronExpression); err != nil {
			return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
		}
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Task created", task))
}

func (h *HttpAPIHandler) ListTasks(c echo.Context) error {
	tasks, err := h.repo.TaskRepo.GetAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Tasks", tasks))
}

func (h *HttpAPIHandler) UpdateTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid task id"))
	}

	var req dto.TaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	ctx := c.Request().Context()
	task, err := h.repo.TaskRepo.FindByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, dto.NewNotFoundResponse("Task not found"))
	}

	updated, err := taskFromRequest(&req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}
	updated.ID = task.ID
	updated.LastRunAt = task.LastRunAt
	updated.CreatedAt = task.CreatedAt

	if err := h.repo.TaskRepo.Update(ctx, updated); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}

	if updated.IsActive {
		if err := h.service.SchedulerService.UpsertTask(updated.ID, updated.CronExpression); err != nil {
			return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
		}
	} else {
		h.service.SchedulerService.RemoveTask(updated.ID)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Task updated", updated))
}

func (h *HttpAPIHandler) DeleteTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid task id"))
	}

	h.service.SchedulerService.RemoveTask(id)
	if err := h.repo.TaskRepo.Delete(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Task deleted", nil))
}

// RunTaskNow schedules an immediate one-shot execution. The response only
// acknowledges the trigger; the outcome lands in the task's logs.
func (h *HttpAPIHandler) RunTaskNow(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid task id"))
	}

	if _, err := h.repo.TaskRepo.FindByID(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusNotFound, dto.NewNotFoundResponse("Task not found"))
	}

	h.service.SchedulerService.RunNow(id)
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Task execution triggered", nil))
}

func (h *HttpAPIHandler) ListTaskLogs(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid task id"))
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	logs, err := h.repo.TaskLogRepo.FindByTask(c.Request().Context(), id, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Task logs", logs))
}

func taskFromRequest(req *dto.TaskRequest) (*model.ReportTask, error) {
	targetRepos, err := json.Marshal(req.TargetRepos)
	if err != nil {
		return nil, err
	}
	reportDays := req.ReportDays
	if reportDays == 0 {
		reportDays = 1
	}
	return &model.ReportTask{
		Name:           req.Name,
		CronExpression: req.CronExpression,
		ScopeType:      model.ScopeType(req.ScopeType),
		TargetRepos:    targetRepos,
		ReportDays:     reportDays,
		IsAIEnabled:    req.IsAIEnabled,
		AISystemPrompt: req.AISystemPrompt,
		IsActive:       req.IsActive,
		GiteaConfigID:  req.GiteaConfigID,
		NotifyConfigID: req.NotifyConfigID,
		AIConfigID:     req.AIConfigID,
	}, nil
}

func pathID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
