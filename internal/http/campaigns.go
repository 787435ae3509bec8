package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jmehdipour/salon-campaigns/internal/dispatcher"
	"github.com/jmehdipour/salon-campaigns/internal/generator"
	"github.com/jmehdipour/salon-campaigns/internal/http/middleware"
	"github.com/jmehdipour/salon-campaigns/internal/repository"
	"github.com/jmehdipour/salon-campaigns/internal/service/campaign"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type previewReq struct {
	Salon       string `json:"salon"`
	Intent      string `json:"intent"`
	RecipientID string `json:"recipient_id,omitempty"`
	Name        string `json:"name,omitempty"`
	LastService string `json:"last_service,omitempty"`
}

// generationResponse always carries the prompt so a failed call can still be inspected.
func generationResponse(c echo.Context, res generator.Result, err error) error {
	body := map[string]any{
		"text":   res.Text,
		"prompt": res.Prompt,
		"tone":   res.Tone,
	}
	if err != nil {
		body["error"] = err.Error()
		return c.JSON(http.StatusBadGateway, body)
	}
	return c.JSON(http.StatusOK, body)
}

func previewHandler(gen dispatcher.TextGenerator, repo repository.RecipientsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok {
			return jsonError(c, http.StatusUnauthorized, "unauthorized")
		}
		if gen == nil {
			return jsonError(c, http.StatusServiceUnavailable, generator.ErrMissingAPIKey.Error())
		}

		var req previewReq
		if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Salon) == "" {
			return jsonError(c, http.StatusBadRequest, "salon is required")
		}

		if req.RecipientID != "" {
			rs, err := repo.GetByIDs(c.Request().Context(), tenantID, []string{req.RecipientID})
			if err != nil {
				log.Errorf("load recipient failed: %v", err)
				return jsonError(c, http.StatusInternalServerError, "db error")
			}
			if len(rs) == 0 {
				return jsonError(c, http.StatusNotFound, "recipient not found")
			}
			req.Name, req.LastService = rs[0].Name, rs[0].LastService
		}
		if strings.TrimSpace(req.Name) == "" {
			return jsonError(c, http.StatusBadRequest, "recipient_id or name is required")
		}

		res, err := gen.Generate(c.Request().Context(), generator.Request{
			Salon:         req.Salon,
			Intent:        req.Intent,
			RecipientName: req.Name,
			LastService:   req.LastService,
		})
		return generationResponse(c, res, err)
	}
}

func templateHandler(gen dispatcher.TextGenerator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if gen == nil {
			return jsonError(c, http.StatusServiceUnavailable, generator.ErrMissingAPIKey.Error())
		}
		var req previewReq
		if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Salon) == "" {
			return jsonError(c, http.StatusBadRequest, "salon is required")
		}
		res, err := gen.Generate(c.Request().Context(), generator.Request{
			Salon:    req.Salon,
			Intent:   req.Intent,
			Template: true,
		})
		return generationResponse(c, res, err)
	}
}

func enqueueCampaignHandler(svc CampaignService) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok {
			return jsonError(c, http.StatusUnauthorized, "unauthorized")
		}
		var req campaign.Request
		if err := c.Bind(&req); err != nil {
			return jsonError(c, http.StatusBadRequest, "bad request")
		}
		if req.Salon == "" {
			if sess, ok := middleware.SessionFromCtx(c); ok {
				req.Salon = sess.SalonName
			}
		}

		// campaigns row + outbox event in one TX
		cp, err := svc.Enqueue(c.Request().Context(), tenantID, req)
		if errors.Is(err, campaign.ErrInvalidRequest) {
			return jsonError(c, http.StatusBadRequest, err.Error())
		}
		if err != nil {
			log.Errorf("enqueue campaign failed: %v", err)
			return jsonError(c, http.StatusInternalServerError, "db error")
		}

		return c.JSON(http.StatusAccepted, map[string]any{
			"enqueued": true,
			"campaign": cp,
		})
	}
}

func campaignStatusHandler(svc CampaignService) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok {
			return jsonError(c, http.StatusUnauthorized, "unauthorized")
		}
		cp, progress, err := svc.Status(c.Request().Context(), tenantID, c.Param("id"))
		if errors.Is(err, campaign.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "campaign not found")
		}
		if err != nil {
			log.Errorf("campaign status failed: %v", err)
			return jsonError(c, http.StatusInternalServerError, "db error")
		}
		return c.JSON(http.StatusOK, map[string]any{
			"campaign": cp,
			"progress": progress,
		})
	}
}
