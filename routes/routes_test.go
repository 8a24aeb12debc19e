package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mansatask/mansatask-api/controllers"
	"github.com/mansatask/mansatask-api/gateways"
	"github.com/mansatask/mansatask-api/models"
	"github.com/mansatask/mansatask-api/repository"
	"github.com/mansatask/mansatask-api/services"
	"github.com/mansatask/mansatask-api/storage"
	"github.com/mansatask/mansatask-api/utils"
)

const webhookSecret = "whsec-routes"

type testApp struct {
	router *gin.Engine
	db     *gorm.DB
	redis  *miniredis.Miniredis
	tokens *utils.TokenManager
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + uuid.New().String() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	redisStore := services.NewRedisStore(client)

	files, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:8080/v1/products/image")
	require.NoError(t, err)

	users := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	products := repository.NewProductRepository(db)
	links := repository.NewPaymentLinkRepository(db)
	txns := repository.NewTransactionRepository(db)
	mailer := utils.NewSMTPMailer(utils.EmailConfig{})
	tokens := utils.NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, time.Hour)

	receiptService := services.NewReceiptService(repository.NewReceiptRepository(db), txns, users, files, services.PDFReceiptRenderer{}, mailer, "http://localhost:8080")
	paymentService := services.NewPaymentService(services.PaymentServiceDeps{
		Links:         links,
		Transactions:  txns,
		Webhooks:      repository.NewWebhookRepository(db),
		Gateways:      gateways.NewRegistry(gateways.NewMobileMoneyGateway(), nil),
		Locks:         redisStore,
		Throttle:      redisStore,
		Receipts:      receiptService,
		WebhookSecret: webhookSecret,
	})

	router := SetupRouter(Dependencies{
		Tokens:       tokens,
		Auth:         controllers.NewAuthController(services.NewAuthService(users, tokenRepo, tokens, mailer, "http://localhost:3000")),
		Users:        controllers.NewUserController(services.NewUserService(users)),
		Products:     controllers.NewProductController(services.NewProductService(products, files)),
		PaymentLinks: controllers.NewPaymentLinkController(services.NewPaymentLinkService(links, products, "http://localhost:3000")),
		Payments:     controllers.NewPaymentController(paymentService),
		Transactions: controllers.NewTransactionController(services.NewTransactionService(txns)),
		Receipts:     controllers.NewReceiptController(receiptService),
		Health:       controllers.NewHealthController(db, redisStore),
	})

	return &testApp{router: router, db: db, redis: mr, tokens: tokens}
}

// register creates a merchant through the API and returns its access token
func (a *testApp) register(t *testing.T, email string) string {
	t.Helper()
	resp := utils.MakeTestRequest(t, a.router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/v1/auth/register",
		Body: map[string]string{
			"name":          "Awa Traore",
			"email":         email,
			"password":      "Passw0rdOK",
			"business_name": "Awa Couture",
		},
	})
	utils.AssertResponse(t, resp, http.StatusCreated, "Registration successful")
	tokens := resp.Data()["tokens"].(map[string]interface{})
	return tokens["access_token"].(string)
}

func (a *testApp) createLink(t *testing.T, token string, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	resp := utils.MakeTestRequest(t, a.router, utils.TestRequest{
		Method:  http.MethodPost,
		Path:    "/v1/payment-links",
		Body:    body,
		Headers: utils.BearerHeader(token),
	})
	utils.AssertResponse(t, resp, http.StatusCreated, "")
	return resp.Data()["payment_link"].(map[string]interface{})
}

func (a *testApp) initiate(t *testing.T, slug, key string) utils.TestResponse {
	t.Helper()
	headers := map[string]string{}
	if key != "" {
		headers[utils.IdempotencyHeader] = key
	}
	return utils.MakeTestRequest(t, a.router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/v1/payments/initiate",
		Body: map[string]string{
			"slug":           slug,
			"customer_name":  "Kofi Mensah",
			"customer_phone": "+233241234567",
			"provider":       "MTN_MOMO",
		},
		Headers: headers,
	})
}

func (a *testApp) webhook(t *testing.T, provider string, payload map[string]string, signature string) utils.TestResponse {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	if signature == "" {
		signature = services.SignWebhook(webhookSecret, body)
	}
	return utils.MakeTestRequest(t, a.router, utils.TestRequest{
		Method:  http.MethodPost,
		Path:    "/v1/payments/webhook/" + provider,
		RawBody: body,
		Headers: map[string]string{utils.WebhookSignatureHeader: signature},
	})
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	resp := utils.MakeTestRequest(t, app.router, utils.TestRequest{Method: http.MethodGet, Path: "/health"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "up", resp.Body["database"])
	assert.Equal(t, "up", resp.Body["redis"])

	app.redis.Close()
	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{Method: http.MethodGet, Path: "/health"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "down", resp.Body["redis"])
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "Awa@Example.com")

	resp := utils.MakeTestRequest(t, app.router, utils.TestRequest{Method: http.MethodGet, Path: "/v1/users/profile"})
	utils.AssertResponse(t, resp, http.StatusUnauthorized, utils.ErrUnauthorized)

	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{
		Method:  http.MethodGet,
		Path:    "/v1/users/profile",
		Headers: utils.BearerHeader(token),
	})
	utils.AssertResponse(t, resp, http.StatusOK, "")
	user := resp.Data()["user"].(map[string]interface{})
	assert.Equal(t, "awa@example.com", user["email"])
	assert.NotContains(t, user, "password")

	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/v1/auth/login",
		Body:   map[string]string{"email": "awa@example.com", "password": "WrongPass1"},
	})
	utils.AssertResponse(t, resp, http.StatusUnauthorized, utils.ErrInvalidCredentials)

	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/v1/auth/login",
		Body:   map[string]string{"email": "AWA@example.com", "password": "Passw0rdOK"},
	})
	utils.AssertResponse(t, resp, http.StatusOK, "Login successful")
	refresh := resp.Data()["tokens"].(map[string]interface{})["refresh_token"].(string)

	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/v1/auth/refresh",
		Body:   map[string]string{"refresh_token": refresh},
	})
	utils.AssertResponse(t, resp, http.StatusOK, "Token refreshed")

	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/v1/auth/refresh",
		Body:   map[string]string{"refresh_token": refresh},
	})
	utils.AssertResponse(t, resp, http.StatusUnauthorized, utils.ErrInvalidToken)

	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/v1/auth/forgot-password",
		Body:   map[string]string{"email": "nobody@example.com"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBindingErrors(t *testing.T) {
	app := newTestApp(t)

	resp := utils.MakeTestRequest(t, app.router, utils.TestRequest{
		Method: http.MethodPost,
		Path:   "/v1/auth/register",
		Body:   map[string]string{"email": "a@b.com"},
	})
	utils.AssertResponse(t, resp, http.StatusBadRequest, "Invalid request format")
	assert.NotEmpty(t, resp.Data()["error"])
}

func TestProfileEmailConflict(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "first@example.com")
	token := app.register(t, "second@example.com")

	resp := utils.MakeTestRequest(t, app.router, utils.TestRequest{
		Method:  http.MethodPut,
		Path:    "/v1/users/profile",
		Body:    map[string]string{"email": "FIRST@example.com"},
		Headers: utils.BearerHeader(token),
	})
	utils.AssertResponse(t, resp, http.StatusConflict, utils.ErrEmailTaken)

	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{
		Method:  http.MethodPut,
		Path:    "/v1/users/profile",
		Body:    map[string]string{"email": "Second@Example.com", "name": "Awa T."},
		Headers: utils.BearerHeader(token),
	})
	utils.AssertResponse(t, resp, http.StatusOK, "Profile updated successfully")
}

func TestPaymentFlow(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "merchant@example.com")

	link := app.createLink(t, token, map[string]interface{}{"title": "Braids", "amount": "7500", "max_uses": 2})
	slug := link["slug"].(string)
	assert.Equal(t, "ACTIVE", link["status"])
	assert.Equal(t, "http://localhost:3000/pay/"+slug, link["url"])

	resp := utils.MakeTestRequest(t, app.router, utils.TestRequest{Method: http.MethodGet, Path: "/v1/payment-links/public/" + slug})
	utils.AssertResponse(t, resp, http.StatusOK, "")
	assert.Equal(t, "Awa Couture", resp.Data()["payment_link"].(map[string]interface{})["merchant_name"])

	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{Method: http.MethodGet, Path: "/v1/payment-links/public/" + slug + "/qr"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Headers.Get("Content-Type"))

	first := app.initiate(t, slug, "checkout-1")
	utils.AssertResponse(t, first, http.StatusCreated, "Payment initiated")
	payment := first.Data()["payment"].(map[string]interface{})
	ref := payment["external_reference"].(string)
	assert.Equal(t, "PROCESSING", payment["status"])

	again := app.initiate(t, slug, "checkout-1")
	utils.AssertResponse(t, again, http.StatusCreated, "")
	assert.Equal(t, ref, again.Data()["payment"].(map[string]interface{})["external_reference"])

	var stored models.PaymentLink
	require.NoError(t, app.db.Where("slug = ?", slug).First(&stored).Error)
	assert.Equal(t, 1, stored.CurrentUses)

	resp = app.webhook(t, "mtn_momo", map[string]string{"eventId": "evt-1", "externalReference": ref, "status": "SUCCESS"}, "00ff")
	utils.AssertResponse(t, resp, http.StatusUnauthorized, "")

	resp = app.webhook(t, "mtn_momo", map[string]string{"eventId": "evt-1", "externalReference": ref, "status": "SUCCESS"}, "")
	utils.AssertResponse(t, resp, http.StatusOK, "Webhook processed")
	assert.Equal(t, "SUCCESS", resp.Data()["status"])

	resp = app.webhook(t, "mtn_momo", map[string]string{"eventId": "evt-1", "externalReference": ref, "status": "SUCCESS"}, "")
	utils.AssertResponse(t, resp, http.StatusOK, "")
	assert.Equal(t, true, resp.Data()["duplicate"])

	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{Method: http.MethodGet, Path: "/v1/payments/status/" + ref})
	utils.AssertResponse(t, resp, http.StatusOK, "")
	status := resp.Data()["payment"].(map[string]interface{})
	assert.Equal(t, "SUCCESS", status["status"])
	assert.Equal(t, true, status["receipt_available"])

	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{Method: http.MethodGet, Path: "/v1/receipts/public/" + ref + "/download"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Headers.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(resp.Raw, []byte("%PDF")))

	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{
		Method:  http.MethodGet,
		Path:    "/v1/transactions?status=success",
		Headers: utils.BearerHeader(token),
	})
	utils.AssertResponse(t, resp, http.StatusOK, "Transactions retrieved successfully")
	txns := resp.Data()["transactions"].([]interface{})
	require.Len(t, txns, 1)
	txnID := uint(txns[0].(map[string]interface{})["ID"].(float64))

	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{
		Method:  http.MethodGet,
		Path:    fmt.Sprintf("/v1/receipts/%d", txnID),
		Headers: utils.BearerHeader(token),
	})
	utils.AssertResponse(t, resp, http.StatusOK, "")
	assert.Regexp(t, `^RCP-\d{8}-`, resp.Data()["receipt"].(map[string]interface{})["receipt_number"])

	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{
		Method:  http.MethodGet,
		Path:    "/v1/transactions/stats",
		Headers: utils.BearerHeader(token),
	})
	utils.AssertResponse(t, resp, http.StatusOK, "")

	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{
		Method:  http.MethodGet,
		Path:    "/v1/transactions/export",
		Headers: utils.BearerHeader(token),
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Headers.Get("Content-Disposition"), ".xlsx")
}

func TestMerchantDataIsIsolated(t *testing.T) {
	app := newTestApp(t)
	owner := app.register(t, "owner@example.com")
	other := app.register(t, "other@example.com")

	link := app.createLink(t, owner, map[string]interface{}{"title": "Private", "amount": "100"})
	path := fmt.Sprintf("/v1/payment-links/%d", int(link["ID"].(float64)))

	resp := utils.MakeTestRequest(t, app.router, utils.TestRequest{Method: http.MethodGet, Path: path, Headers: utils.BearerHeader(other)})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{Method: http.MethodDelete, Path: path, Headers: utils.BearerHeader(other)})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{Method: http.MethodGet, Path: "/v1/payment-links/abc", Headers: utils.BearerHeader(owner)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "merchant@example.com")

	resp := utils.MakeTestRequest(t, app.router, utils.TestRequest{
		Method:  http.MethodPost,
		Path:    "/v1/admin/payment-links/expire",
		Headers: utils.BearerHeader(token),
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := &models.User{Name: "Ops", Email: "ops@example.com", Password: "x", Role: models.RoleAdmin}
	require.NoError(t, app.db.Create(admin).Error)
	pair, err := app.tokens.IssuePair(admin)
	require.NoError(t, err)

	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{
		Method:  http.MethodPost,
		Path:    "/v1/admin/payment-links/expire",
		Headers: utils.BearerHeader(pair.AccessToken),
	})
	utils.AssertResponse(t, resp, http.StatusOK, "Expired payment links deactivated")
}

func TestProductImageUploadAndServe(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "shop@example.com")

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var picture bytes.Buffer
	require.NoError(t, png.Encode(&picture, img))

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image", "dress.png")
	require.NoError(t, err)
	_, err = part.Write(picture.Bytes())
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/products/upload-image", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var uploaded struct {
		Data services.UploadedImage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))

	resp := utils.MakeTestRequest(t, app.router, utils.TestRequest{Method: http.MethodGet, Path: "/v1/products/image/" + uploaded.Data.Key})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Headers.Get("Content-Type"))
	assert.Equal(t, picture.Bytes(), resp.Raw)

	resp = utils.MakeTestRequest(t, app.router, utils.TestRequest{
		Method:  http.MethodPost,
		Path:    "/v1/products",
		Body:    map[string]interface{}{"name": "Wax dress", "price": "15000", "image_url": uploaded.Data.URL, "image_key": uploaded.Data.Key},
		Headers: utils.BearerHeader(token),
	})
	utils.AssertResponse(t, resp, http.StatusCreated, "Product created successfully")
}
