package handlers

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"checkbox/internal/analytics"
	"checkbox/internal/caching"
	"checkbox/internal/common"
	"checkbox/internal/models"
	"checkbox/internal/repositories"
	"checkbox/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

//go:embed templates/check.html
var templateFS embed.FS

var checkTemplate = template.Must(template.ParseFS(templateFS, "templates/check.html"))

const renderCacheTTL = 10 * time.Minute

// CheckHandlers handles check creation, retrieval, export and the public
// receipt page.
type CheckHandlers struct {
	checkService services.CheckService
	analyticsSvc *analytics.Service
	cacheSvc     caching.CacheService
	storage      services.ReceiptStorage
	bucket       string
}

func NewCheckHandlers(checkService services.CheckService, analyticsSvc *analytics.Service, cacheSvc caching.CacheService, storage services.ReceiptStorage, bucket string) *CheckHandlers {
	return &CheckHandlers{
		checkService: checkService,
		analyticsSvc: analyticsSvc,
		cacheSvc:     cacheSvc,
		storage:      storage,
		bucket:       bucket,
	}
}

// ProductResponse is one serialized line item.
type ProductResponse struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Total    float64 `json:"total"`
}

// CheckResponse is the full check representation returned by the API.
type CheckResponse struct {
	ID         int64             `json:"id"`
	Products   []ProductResponse `json:"products"`
	Payment    models.Payment    `json:"payment"`
	Total      float64           `json:"total"`
	Rest       float64           `json:"rest"`
	PublicUUID string            `json:"public_uuid"`
	CreatedAt  string            `json:"created_at"`
}

func newCheckResponse(check *models.Check) *CheckResponse {
	products := make([]ProductResponse, 0, len(check.Items))
	for _, item := range check.Items {
		products = append(products, ProductResponse{
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Total:    item.Total,
		})
	}
	return &CheckResponse{
		ID:       check.ID,
		Products: products,
		Payment: models.Payment{
			Type:   check.Type,
			Amount: check.Amount,
		},
		Total:      check.Total,
		Rest:       check.Rest,
		PublicUUID: check.PublicUUID.String(),
		CreatedAt:  check.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// fieldError carries the offending field alongside the message so the handler
// can build the validation response.
type fieldError struct {
	field   string
	message string
}

func (e *fieldError) Error() string {
	return e.field + ": " + e.message
}

func validateCheckCreate(req *models.CheckCreate) *fieldError {
	if len(req.Products) == 0 {
		return &fieldError{"products", "at least one product is required"}
	}
	for _, product := range req.Products {
		if err := common.ValidateStringLength(product.Name, "name", 2, 32); err != nil {
			return &fieldError{"name", err.Error()}
		}
		if err := common.ValidatePositiveFloat(product.Price, "price", 10000000.00); err != nil {
			return &fieldError{"price", err.Error()}
		}
		if err := common.ValidatePositiveInteger(product.Quantity, "quantity", 1000000); err != nil {
			return &fieldError{"quantity", err.Error()}
		}
	}
	if !req.Payment.Type.Valid() {
		return &fieldError{"payment.type", "payment type must be either 'cash' or 'cashless'"}
	}
	if err := common.ValidatePositiveFloat(req.Payment.Amount, "payment.amount", 100000000.00); err != nil {
		return &fieldError{"payment.amount", err.Error()}
	}
	return nil
}

// CreateCheck handles POST /checks
func (h *CheckHandlers) CreateCheck(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req models.CheckCreate
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if verr := validateCheckCreate(&req); verr != nil {
		return common.SendValidationError(c, verr.field, verr.message)
	}

	check, err := h.checkService.CreateCheck(ctx, userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrInsufficientPayment) {
			return common.SendValidationError(c, "payment.amount", "payment amount does not cover the check total")
		}
		c.Logger().Errorf("Failed to create check: %v", err)
		return common.SendServerError(c, "Failed to create check")
	}

	return c.JSON(http.StatusCreated, newCheckResponse(check))
}

// ListChecks handles GET /checks
func (h *CheckHandlers) ListChecks(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	filter := &models.CheckFilter{}

	if v := c.QueryParam("created_at__lt"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return common.SendValidationError(c, "created_at__lt", "must be an RFC3339 timestamp")
		}
		filter.CreatedAtLT = &t
	}
	if v := c.QueryParam("created_at__gte"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return common.SendValidationError(c, "created_at__gte", "must be an RFC3339 timestamp")
		}
		filter.CreatedAtGTE = &t
	}
	if v := c.QueryParam("amount__lt"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return common.SendValidationError(c, "amount__lt", "must be a number")
		}
		filter.AmountLT = &f
	}
	if v := c.QueryParam("amount__gte"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return common.SendValidationError(c, "amount__gte", "must be a number")
		}
		filter.AmountGTE = &f
	}
	if v := c.QueryParam("type"); v != "" {
		paymentType := models.PaymentType(v)
		if !paymentType.Valid() {
			return common.SendValidationError(c, "type", "must be either 'cash' or 'cashless'")
		}
		filter.Type = &paymentType
	}

	// Paging is opt-in: without a limit the full result set comes back.
	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return common.SendValidationError(c, "limit", "must be an integer")
		}
		offset, _ := strconv.Atoi(c.QueryParam("offset"))
		filter.Limit, filter.Offset = common.ValidatePaginationParams(limit, offset)
	}

	checks, err := h.checkService.ListChecks(ctx, userID, filter)
	if err != nil {
		c.Logger().Errorf("Failed to list checks: %v", err)
		return common.SendServerError(c, "Failed to list checks")
	}

	responses := make([]*CheckResponse, 0, len(checks))
	for _, check := range checks {
		responses = append(responses, newCheckResponse(check))
	}
	return c.JSON(http.StatusOK, responses)
}

// GetCheck handles GET /checks/:id
func (h *CheckHandlers) GetCheck(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	checkID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return common.SendValidationError(c, "id", "must be an integer")
	}

	check, err := h.checkService.GetCheckByID(ctx, checkID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrCheckNotFound) {
			return common.SendNotFoundError(c, "Check")
		}
		c.Logger().Errorf("Failed to get check: %v", err)
		return common.SendServerError(c, "Failed to get check")
	}

	return c.JSON(http.StatusOK, newCheckResponse(check))
}

// GetCheckPDF handles GET /checks/:id/pdf
func (h *CheckHandlers) GetCheckPDF(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	checkID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return common.SendValidationError(c, "id", "must be an integer")
	}

	check, err := h.checkService.GetCheckByID(ctx, checkID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrCheckNotFound) {
			return common.SendNotFoundError(c, "Check")
		}
		c.Logger().Errorf("Failed to get check: %v", err)
		return common.SendServerError(c, "Failed to get check")
	}

	pdfBytes, err := renderCheckPDF(check)
	if err != nil {
		c.Logger().Errorf("Failed to render check PDF: %v", err)
		return common.SendServerError(c, "Failed to render check PDF")
	}

	// Archive a copy; the download still succeeds if storage is down.
	objectName := fmt.Sprintf("checks/%d.pdf", check.ID)
	if err := h.storage.UploadPDF(ctx, h.bucket, objectName, pdfBytes); err != nil {
		log.Printf("Failed to archive receipt PDF %s: %v", objectName, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="check-%d.pdf"`, check.ID))
	return c.Blob(http.StatusOK, "application/pdf", pdfBytes)
}

// GetStats handles GET /checks/stats
func (h *CheckHandlers) GetStats(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	stats, err := h.analyticsSvc.GetUserStats(ctx, userID)
	if err != nil {
		c.Logger().Errorf("Failed to get stats: %v", err)
		return common.SendServerError(c, "Failed to get stats")
	}

	return c.JSON(http.StatusOK, stats)
}

type checkPageData struct {
	Check       *CheckResponse
	CreatedAt   string
	PaymentType string
}

// PublicCheck handles GET /checks/public/:uuid, the unauthenticated shareable
// HTML receipt. Rendered pages are cached; checks are immutable so staleness
// is not a concern.
func (h *CheckHandlers) PublicCheck(c echo.Context) error {
	ctx := c.Request().Context()

	publicUUID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		return common.SendNotFoundError(c, "Check")
	}

	if cached, err := h.cacheSvc.GetRenderedCheck(ctx, publicUUID.String()); err == nil && cached != "" {
		return c.HTML(http.StatusOK, cached)
	}

	check, err := h.checkService.GetCheckByPublicUUID(ctx, publicUUID)
	if err != nil {
		if errors.Is(err, repositories.ErrCheckNotFound) {
			return common.SendNotFoundError(c, "Check")
		}
		c.Logger().Errorf("Failed to get check: %v", err)
		return common.SendServerError(c, "Failed to get check")
	}

	data := checkPageData{
		Check:       newCheckResponse(check),
		CreatedAt:   check.CreatedAt.Format("02.01.2006 15:04"),
		PaymentType: capitalize(string(check.Type)),
	}

	var buf bytes.Buffer
	if err := checkTemplate.Execute(&buf, data); err != nil {
		c.Logger().Errorf("Failed to render check template: %v", err)
		return common.SendServerError(c, "Failed to render check")
	}
	html := buf.String()

	if err := h.cacheSvc.SetRenderedCheck(ctx, publicUUID.String(), html, renderCacheTTL); err != nil {
		log.Printf("Failed to cache rendered check: %v", err)
	}

	return c.HTML(http.StatusOK, html)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
