package http

import (
	"net/http"

	"gitea-reporter/internal/dto"
	"gitea-reporter/internal/model"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupConfigs(base *echo.Group) {
	gitea := base.Group("/v1/gitea-configs")
	{
		gitea.POST("", h.CreateGiteaConfig)
		gitea.GET("", h.ListGiteaConfigs)
		gitea.DELETE("/:id", h.DeleteGiteaConfig)
		gitea.POST("/:id/test", h.TestGiteaConfig)
	}

	notify := base.Group("/v1/notify-configs")
	{
		notify.POST("", h.CreateNotifyConfig)
		notify.GET("", h.ListNotifyConfigs)
		notify.DELETE("/:id", h.DeleteNotifyConfig)
	}

	ai := base.Group("/v1/ai-configs")
	{
		ai.POST("", h.CreateAIConfig)
		ai.GET("", h.ListAIConfigs)
		ai.DELETE("/:id", h.DeleteAIConfig)
	}
}

func (h *HttpAPIHandler) CreateGiteaConfig(c echo.Context) error {
	var req dto.GiteaConfigRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	cfg := &model.GiteaConfig{Name: req.Name, BaseURL: req.BaseURL, Token: req.Token}
	if err := h.repo.ConfigRepo.SaveGitea(c.Request().Context(), cfg); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Gitea config created", cfg))
}

func (h *HttpAPIHandler) ListGiteaConfigs(c echo.Context) error {
	cfgs, err := h.repo.ConfigRepo.ListGitea(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Gitea configs", cfgs))
}

func (h *HttpAPIHandler) DeleteGiteaConfig(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid config id"))
	}
	if err := h.repo.ConfigRepo.DeleteGitea(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Gitea config deleted", nil))
}

// TestGiteaConfig verifies the stored credential by fetching the token
// owner's identity.
func (h *HttpAPIHandler) TestGiteaConfig(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid config id"))
	}

	ctx := c.Request().Context()
	cfg, err := h.repo.ConfigRepo.FindGiteaByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, dto.NewNotFoundResponse("Gitea config not found"))
	}

	self := h.repo.GiteaFactory(cfg.BaseURL, cfg.Token).GetSelf(ctx)
	if self.Login == "" {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("Connection failed"))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Connection ok", self))
}

func (h *HttpAPIHandler) CreateNotifyConfig(c echo.Context) error {
	var req dto.NotifyConfigRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	cfg := &model.NotifyConfig{Name: req.Name, WebhookURL: req.WebhookURL}
	if err := h.repo.ConfigRepo.SaveNotify(c.Request().Context(), cfg); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Notify config created", cfg))
}

func (h *HttpAPIHandler) ListNotifyConfigs(c echo.Context) error {
	cfgs, err := h.repo.ConfigRepo.ListNotify(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Notify configs", cfgs))
}

func (h *HttpAPIHandler) DeleteNotifyConfig(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid config id"))
	}
	if err := h.repo.ConfigRepo.DeleteNotify(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Notify config deleted", nil))
}

func (h *HttpAPIHandler) CreateAIConfig(c echo.Context) error {
	var req dto.AIConfigRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	cfg := &model.AIConfig{
		Name:         req.Name,
		APIBase:      req.APIBase,
		APIKey:       req.APIKey,
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
	}
	if err := h.repo.ConfigRepo.SaveAI(c.Request().Context(), cfg); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("AI config created", cfg))
}

func (h *HttpAPIHandler) ListAIConfigs(c echo.Context) error {
	cfgs, err := h.repo.ConfigRepo.ListAI(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("AI configs", cfgs))
}

func (h *HttpAPIHandler) DeleteAIConfig(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid config id"))
	}
	if err := h.repo.ConfigRepo.DeleteAI(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("AI config deleted", nil))
}
