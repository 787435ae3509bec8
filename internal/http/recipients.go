package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmehdipour/salon-campaigns/internal/http/middleware"
	"github.com/jmehdipour/salon-campaigns/internal/importer"
	"github.com/jmehdipour/salon-campaigns/internal/model"
	"github.com/jmehdipour/salon-campaigns/internal/repository"
	"github.com/jmehdipour/salon-campaigns/internal/util"
	"github.com/labstack/echo/v4"
)

type recipientReq struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	LastService string `json:"last_service"`
	VisitDate   string `json:"visit_date,omitempty"` // YYYY-MM-DD
}

// toRecipient normalizes and validates one roster row.
func (r recipientReq) toRecipient(tenantID string) (model.Recipient, string) {
	rec := model.Recipient{
		ID:          strings.TrimSpace(r.ID),
		TenantID:    tenantID,
		Name:        strings.Join(strings.Fields(r.Name), " "),
		Phone:       util.NormalizePhone(r.Phone),
		LastService: strings.TrimSpace(r.LastService),
	}
	if rec.Name == "" || rec.Phone == "" {
		return rec, "name and phone are required"
	}
	if v := strings.TrimSpace(r.VisitDate); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return rec, "visit_date must be YYYY-MM-DD"
		}
		rec.VisitDate = &d
	}
	return rec, ""
}

func listRecipientsHandler(repo repository.RecipientsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok {
			return jsonError(c, http.StatusUnauthorized, "unauthorized")
		}
		rows, err := repo.ListByTenant(c.Request().Context(), tenantID)
		if err != nil {
			c.Logger().Errorf("list recipients failed: %v", err)
			return jsonError(c, http.StatusInternalServerError, "db error")
		}
		if rows == nil {
			rows = []model.Recipient{}
		}
		return c.JSON(http.StatusOK, map[string]any{"count": len(rows), "results": rows})
	}
}

func createRecipientHandler(repo repository.RecipientsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok {
			return jsonError(c, http.StatusUnauthorized, "unauthorized")
		}
		var req recipientReq
		if err := c.Bind(&req); err != nil {
			return jsonError(c, http.StatusBadRequest, "bad request")
		}
		rec, msg := req.toRecipient(tenantID)
		if msg != "" {
			return jsonError(c, http.StatusBadRequest, msg)
		}
		rec, err := repo.Insert(c.Request().Context(), rec)
		if err != nil {
			c.Logger().Errorf("insert recipient failed: %v", err)
			return jsonError(c, http.StatusInternalServerError, "db error")
		}
		return c.JSON(http.StatusCreated, rec)
	}
}

type upsertReq struct {
	Recipients []recipientReq `json:"recipients"`
}

func upsertRecipientsHandler(repo repository.RecipientsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok {
			return jsonError(c, http.StatusUnauthorized, "unauthorized")
		}
		var req upsertReq
		if err := c.Bind(&req); err != nil {
			return jsonError(c, http.StatusBadRequest, "bad request")
		}

		rs := make([]model.Recipient, 0, len(req.Recipients))
		for i, r := range req.Recipients {
			rec, msg := r.toRecipient(tenantID)
			if msg != "" {
				return jsonError(c, http.StatusBadRequest, "recipients["+strconv.Itoa(i)+"]: "+msg)
			}
			rs = append(rs, rec)
		}

		n, err := repo.UpsertBulk(c.Request().Context(), tenantID, rs)
		if err != nil {
			c.Logger().Errorf("upsert recipients failed: %v", err)
			return jsonError(c, http.StatusInternalServerError, "db error")
		}
		return c.JSON(http.StatusOK, map[string]int{"upserted": n})
	}
}

type deleteReq struct {
	IDs []string `json:"ids"`
}

func deleteRecipientsHandler(repo repository.RecipientsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok {
			return jsonError(c, http.StatusUnauthorized, "unauthorized")
		}
		var req deleteReq
		if err := c.Bind(&req); err != nil || len(req.IDs) == 0 {
			return jsonError(c, http.StatusBadRequest, "ids are required")
		}
		n, err := repo.DeleteWhere(c.Request().Context(), tenantID, req.IDs)
		if err != nil {
			c.Logger().Errorf("delete recipients failed: %v", err)
			return jsonError(c, http.StatusInternalServerError, "db error")
		}
		return c.JSON(http.StatusOK, map[string]int64{"deleted": n})
	}
}

// importRecipientsHandler takes a multipart "file" (.vcf or .csv). With
// ?dry_run=true the decoded contacts are returned without being stored.
func importRecipientsHandler(repo repository.RecipientsRepository, maxSize int64) echo.HandlerFunc {
	if maxSize <= 0 {
		maxSize = 5 << 20
	}
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok {
			return jsonError(c, http.StatusUnauthorized, "unauthorized")
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return jsonError(c, http.StatusBadRequest, "file is required")
		}
		if fh.Size > maxSize {
			return jsonError(c, http.StatusRequestEntityTooLarge, "file too large")
		}
		f, err := fh.Open()
		if err != nil {
			return jsonError(c, http.StatusBadRequest, "cannot read file")
		}
		defer f.Close()

		res, err := importer.Parse(fh.Filename, f)
		if err != nil {
			return jsonError(c, http.StatusBadRequest, err.Error())
		}

		stored := 0
		if dry, _ := strconv.ParseBool(c.QueryParam("dry_run")); !dry && len(res.Contacts) > 0 {
			rs := make([]model.Recipient, 0, len(res.Contacts))
			for _, ct := range res.Contacts {
				rs = append(rs, ct.Recipient(tenantID))
			}
			stored, err = repo.UpsertBulk(c.Request().Context(), tenantID, rs)
			if err != nil {
				c.Logger().Errorf("import recipients failed: %v", err)
				return jsonError(c, http.StatusInternalServerError, "db error")
			}
		}

		return c.JSON(http.StatusOK, map[string]any{
			"total":    res.Total,
			"imported": res.Imported,
			"skipped":  res.Skipped,
			"errors":   res.Errors,
			"stored":   stored,
			"contacts": res.Contacts,
		})
	}
}
