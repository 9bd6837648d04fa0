package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"checkbox/internal/common"
	"checkbox/internal/models"
	"checkbox/internal/repositories"
	"checkbox/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCheckService struct {
	check  *models.Check
	checks []*models.Check
	err    error

	lastUserID int64
	lastCreate *models.CheckCreate
}

func (s *stubCheckService) CreateCheck(_ context.Context, userID int64, data *models.CheckCreate) (*models.Check, error) {
	s.lastUserID = userID
	s.lastCreate = data
	return s.check, s.err
}

func (s *stubCheckService) GetCheckByID(_ context.Context, checkID, userID int64) (*models.Check, error) {
	s.lastUserID = userID
	return s.check, s.err
}

func (s *stubCheckService) GetCheckByPublicUUID(context.Context, uuid.UUID) (*models.Check, error) {
	return s.check, s.err
}

func (s *stubCheckService) ListChecks(_ context.Context, userID int64, _ *models.CheckFilter) ([]*models.Check, error) {
	s.lastUserID = userID
	return s.checks, s.err
}

type noopCache struct{}

func (noopCache) SetRefreshToken(context.Context, string, int64, time.Duration) error { return nil }
func (noopCache) GetRefreshToken(context.Context, string) (int64, bool, error)        { return 0, false, nil }
func (noopCache) DeleteRefreshToken(context.Context, string) error                    { return nil }
func (noopCache) GetRenderedCheck(context.Context, string) (string, error)            { return "", nil }
func (noopCache) SetRenderedCheck(context.Context, string, string, time.Duration) error {
	return nil
}
func (noopCache) DeleteRenderedCheck(context.Context, string) error { return nil }
func (noopCache) GetUserStats(context.Context, int64) (*models.CheckStats, error) {
	return nil, nil
}
func (noopCache) SetUserStats(context.Context, int64, *models.CheckStats, time.Duration) error {
	return nil
}
func (noopCache) SetGlobalStats(context.Context, *models.CheckStats, time.Duration) error {
	return nil
}
func (noopCache) IsRateLimited(context.Context, string, int, time.Duration) (bool, error) {
	return false, nil
}
func (noopCache) Ping(context.Context) error { return nil }

func sampleCheck() *models.Check {
	return &models.Check{
		ID:         12,
		Type:       models.PaymentCashless,
		Amount:     60000,
		Total:      40000,
		Rest:       20000,
		PublicUUID: uuid.New(),
		UserID:     1,
		CreatedAt:  time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC),
		Items: []*models.CheckItem{
			{ID: 31, Name: "Dji Mavic Air 2", Price: 20000, Quantity: 2, Total: 40000, CheckID: 12},
		},
	}
}

func newCheckRequest(t *testing.T, method, path, body string, userID int64) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != 0 {
		ctx := context.WithValue(req.Context(), common.UserIDKey, userID)
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestCreateCheck_Success(t *testing.T) {
	svc := &stubCheckService{check: sampleCheck()}
	h := NewCheckHandlers(svc, nil, noopCache{}, nil, "receipts")

	body := `{"products":[{"name":"Dji Mavic Air 2","price":20000,"quantity":2}],"payment":{"type":"cashless","amount":60000}}`
	c, rec := newCheckRequest(t, http.MethodPost, "/checks", body, 1)

	require.NoError(t, h.CreateCheck(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(1), svc.lastUserID)

	var resp CheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(12), resp.ID)
	assert.Equal(t, 40000.0, resp.Total)
	assert.Equal(t, 20000.0, resp.Rest)
	assert.Equal(t, "2024-03-15T12:30:00Z", resp.CreatedAt)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, 40000.0, resp.Products[0].Total)
}

func TestCreateCheck_NoProducts(t *testing.T) {
	svc := &stubCheckService{}
	h := NewCheckHandlers(svc, nil, noopCache{}, nil, "receipts")

	body := `{"products":[],"payment":{"type":"cash","amount":100}}`
	c, rec := newCheckRequest(t, http.MethodPost, "/checks", body, 1)

	require.NoError(t, h.CreateCheck(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	// The service must never see a request that failed validation
	assert.Nil(t, svc.lastCreate)
}

func TestCreateCheck_BadPaymentType(t *testing.T) {
	svc := &stubCheckService{}
	h := NewCheckHandlers(svc, nil, noopCache{}, nil, "receipts")

	body := `{"products":[{"name":"Dji Mavic Air 2","price":20000,"quantity":2}],"payment":{"type":"card","amount":60000}}`
	c, rec := newCheckRequest(t, http.MethodPost, "/checks", body, 1)

	require.NoError(t, h.CreateCheck(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.lastCreate)
}

func TestCreateCheck_ZeroQuantity(t *testing.T) {
	svc := &stubCheckService{}
	h := NewCheckHandlers(svc, nil, noopCache{}, nil, "receipts")

	body := `{"products":[{"name":"Dji Mavic Air 2","price":20000,"quantity":0}],"payment":{"type":"cash","amount":60000}}`
	c, rec := newCheckRequest(t, http.MethodPost, "/checks", body, 1)

	require.NoError(t, h.CreateCheck(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "quantity")
	assert.Nil(t, svc.lastCreate)
}

func TestCreateCheck_CyrillicProductName(t *testing.T) {
	check := sampleCheck()
	check.Items[0].Name = "Квадрокоптер з камерою"
	svc := &stubCheckService{check: check}
	h := NewCheckHandlers(svc, nil, noopCache{}, nil, "receipts")

	// 22 characters but 42 bytes in UTF-8; must pass the 32-character name cap
	body := `{"products":[{"name":"Квадрокоптер з камерою","price":20000,"quantity":2}],"payment":{"type":"cash","amount":60000}}`
	c, rec := newCheckRequest(t, http.MethodPost, "/checks", body, 1)

	require.NoError(t, h.CreateCheck(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.lastCreate)
	assert.Equal(t, "Квадрокоптер з камерою", svc.lastCreate.Products[0].Name)
}

func TestCreateCheck_InsufficientPayment(t *testing.T) {
	svc := &stubCheckService{err: services.ErrInsufficientPayment}
	h := NewCheckHandlers(svc, nil, noopCache{}, nil, "receipts")

	body := `{"products":[{"name":"Dji Mavic Air 2","price":20000,"quantity":2}],"payment":{"type":"cash","amount":100}}`
	c, rec := newCheckRequest(t, http.MethodPost, "/checks", body, 1)

	require.NoError(t, h.CreateCheck(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCheck_Unauthenticated(t *testing.T) {
	h := NewCheckHandlers(&stubCheckService{}, nil, noopCache{}, nil, "receipts")

	body := `{"products":[{"name":"Dji Mavic Air 2","price":20000,"quantity":2}],"payment":{"type":"cash","amount":60000}}`
	c, rec := newCheckRequest(t, http.MethodPost, "/checks", body, 0)

	require.NoError(t, h.CreateCheck(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListChecks_BadFilterValue(t *testing.T) {
	h := NewCheckHandlers(&stubCheckService{}, nil, noopCache{}, nil, "receipts")

	c, rec := newCheckRequest(t, http.MethodGet, "/checks?created_at__gte=yesterday", "", 1)

	require.NoError(t, h.ListChecks(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCheck_NotFound(t *testing.T) {
	svc := &stubCheckService{err: repositories.ErrCheckNotFound}
	h := NewCheckHandlers(svc, nil, noopCache{}, nil, "receipts")

	c, rec := newCheckRequest(t, http.MethodGet, "/checks/12", "", 1)
	c.SetParamNames("id")
	c.SetParamValues("12")

	require.NoError(t, h.GetCheck(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicCheck_RendersHTML(t *testing.T) {
	check := sampleCheck()
	svc := &stubCheckService{check: check}
	h := NewCheckHandlers(svc, nil, noopCache{}, nil, "receipts")

	c, rec := newCheckRequest(t, http.MethodGet, "/checks/public/"+check.PublicUUID.String(), "", 0)
	c.SetParamNames("uuid")
	c.SetParamValues(check.PublicUUID.String())

	require.NoError(t, h.PublicCheck(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML)

	html := rec.Body.String()
	assert.Contains(t, html, "Check #12")
	assert.Contains(t, html, "Dji Mavic Air 2")
	assert.Contains(t, html, "Cashless")
	assert.Contains(t, html, "15.03.2024 12:30")
}

func TestPublicCheck_InvalidUUID(t *testing.T) {
	h := NewCheckHandlers(&stubCheckService{}, nil, noopCache{}, nil, "receipts")

	c, rec := newCheckRequest(t, http.MethodGet, "/checks/public/not-a-uuid", "", 0)
	c.SetParamNames("uuid")
	c.SetParamValues("not-a-uuid")

	require.NoError(t, h.PublicCheck(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicCheck_NotFound(t *testing.T) {
	svc := &stubCheckService{err: repositories.ErrCheckNotFound}
	h := NewCheckHandlers(svc, nil, noopCache{}, nil, "receipts")

	id := uuid.New().String()
	c, rec := newCheckRequest(t, http.MethodGet, "/checks/public/"+id, "", 0)
	c.SetParamNames("uuid")
	c.SetParamValues(id)

	require.NoError(t, h.PublicCheck(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
