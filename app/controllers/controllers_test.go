package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/checkout"
	"github.com/ManuelReschke/CourseFox/internal/pkg/database"
	"github.com/ManuelReschke/CourseFox/internal/pkg/middleware"
	"github.com/ManuelReschke/CourseFox/internal/pkg/security"
)

const (
	testJWTSecret     = "controller-test-secret"
	testWebhookSecret = "whsec_controller_test"
)

type stubGateway struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*checkout.Session
}

func (g *stubGateway) CreateSession(_ context.Context, req checkout.SessionRequest) (*checkout.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	id := fmt.Sprintf("cs_ctrl_%d", g.seq)
	s := &checkout.Session{
		ID:            id,
		URL:           "https://checkout.stripe.test/" + id,
		PaymentStatus: "unpaid",
		Metadata: map[string]string{
			checkout.MetadataUserID:   fmt.Sprint(req.UserID),
			checkout.MetadataCourseID: fmt.Sprint(req.CourseID),
		},
	}
	g.sessions[id] = s
	cp := *s
	return &cp, nil
}

func (g *stubGateway) GetSession(_ context.Context, id string) (*checkout.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return nil, checkout.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (g *stubGateway) pay(id string, amountMinor int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[id].PaymentStatus = checkout.PaymentStatusPaid
	g.sessions[id].AmountTotal = amountMinor
}

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	gw  *stubGateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := database.NewTestDB(t)
	repos := repository.NewFactory(db).GetRepositories()
	gw := &stubGateway{sessions: map[string]*checkout.Session{}}
	svc := checkout.NewServiceFromDB(db, gw, checkout.Config{
		FrontendBaseURL: "https://app.coursefox.test",
		Currency:        "inr",
		WebhookSecret:   testWebhookSecret,
	})

	authCtrl := NewAuthController(repos.User, AuthSettings{Secret: testJWTSecret, TokenTTL: time.Hour})
	courseCtrl := NewCourseController(repos.Course, repos.Lecture)
	purchaseCtrl := NewPurchaseController(svc)
	auth := middleware.RequireAPIAuth(testJWTSecret)

	app := fiber.New()
	user := app.Group("/user")
	user.Post("/register", authCtrl.HandleRegister)
	user.Post("/login", authCtrl.HandleLogin)
	user.Get("/logout", authCtrl.HandleLogout)
	user.Get("/profile", auth, authCtrl.HandleProfile)
	user.Put("/profile/update", auth, authCtrl.HandleUpdateProfile)

	course := app.Group("/course", auth)
	course.Post("/", courseCtrl.HandleCreateCourse)
	course.Get("/published-courses", courseCtrl.HandlePublishedCourses)
	course.Get("/search", courseCtrl.HandleSearchCourses)
	course.Put("/:courseId", courseCtrl.HandleEditCourse)
	course.Patch("/:courseId", courseCtrl.HandleTogglePublish)
	course.Get("/:courseId", courseCtrl.HandleGetCourse)
	course.Post("/:courseId/lecture", courseCtrl.HandleCreateLecture)
	course.Post("/:courseId/lecture/:lectureId", courseCtrl.HandleEditLecture)

	purchase := app.Group("/purchase")
	purchase.Post("/webhook", purchaseCtrl.HandleWebhook)
	purchase.Post("/checkout/create-checkout-session", auth, purchaseCtrl.HandleCreateCheckoutSession)
	purchase.Post("/checkout/session/:sessionId/verify", auth, purchaseCtrl.HandleVerifyCheckoutSession)
	purchase.Get("/course/:courseId/detail-with-status", auth, purchaseCtrl.HandleCourseDetailWithStatus)
	purchase.Get("/", auth, purchaseCtrl.HandleListPurchases)

	return &testEnv{app: app, db: db, gw: gw}
}

func (e *testEnv) seedUser(t *testing.T, email, role string) (*models.User, string) {
	t.Helper()
	u, err := models.CreateUser("Test "+role, email, "secret123", role)
	require.NoError(t, err)
	require.NoError(t, e.db.Create(u).Error)
	token, err := security.GenerateAuthToken(u.ID, time.Hour, testJWTSecret)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (e *testEnv) webhook(t *testing.T, payload []byte, header string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/purchase/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if header != "" {
		req.Header.Set("Stripe-Signature", header)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func signed(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	}).Header
}

func completedEvent(eventID, sessionID string, amountMinor int64) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"object":"event","type":"checkout.session.completed","data":{"object":{"id":%q,"object":"checkout.session","payment_status":"paid","amount_total":%d}}}`,
		eventID, sessionID, amountMinor))
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv(t)

	status, body := e.do(t, http.MethodPost, "/user/register", "", fiber.Map{"name": "Sam", "email": "sam@coursefox.test", "password": "secret123"})
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["success"])

	status, _ = e.do(t, http.MethodPost, "/user/register", "", fiber.Map{"name": "Sam", "email": "SAM@coursefox.test", "password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.do(t, http.MethodPost, "/user/register", "", fiber.Map{"name": "Sam"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.do(t, http.MethodPost, "/user/login", "", fiber.Map{"email": "sam@coursefox.test", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, status)

	req := httptest.NewRequest(http.MethodPost, "/user/login", bytes.NewReader([]byte(`{"email":"sam@coursefox.test","password":"secret123"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var tokenCookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == "token" {
			tokenCookie = ck
		}
	}
	require.NotNil(t, tokenCookie)
	assert.True(t, tokenCookie.HttpOnly)

	var login map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	user := login["user"].(map[string]interface{})
	assert.NotContains(t, user, "password")

	profileReq := httptest.NewRequest(http.MethodGet, "/user/profile", nil)
	profileReq.AddCookie(tokenCookie)
	resp, err = e.app.Test(profileReq, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status, body = e.do(t, http.MethodPut, "/user/profile/update", tokenCookie.Value, fiber.Map{"name": "Samuel", "photoUrl": "https://img.coursefox.test/sam.png"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Samuel", body["user"].(map[string]interface{})["name"])

	status, _ = e.do(t, http.MethodPut, "/user/profile/update", tokenCookie.Value, fiber.Map{"photoUrl": "not-a-url"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.do(t, http.MethodGet, "/user/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = e.do(t, http.MethodGet, "/user/logout", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
}

func TestCourseManagement(t *testing.T) {
	e := newTestEnv(t)
	_, owner := e.seedUser(t, "ada@coursefox.test", models.ROLE_INSTRUCTOR)
	_, stranger := e.seedUser(t, "rita@coursefox.test", models.ROLE_INSTRUCTOR)

	status, body := e.do(t, http.MethodPost, "/course", owner, fiber.Map{"courseTitle": "Go for Backends", "category": "Programming"})
	require.Equal(t, http.StatusCreated, status)
	courseID := uint(body["course"].(map[string]interface{})["id"].(float64))
	path := fmt.Sprintf("/course/%d", courseID)

	status, _ = e.do(t, http.MethodPost, "/course", owner, fiber.Map{"courseTitle": "Go"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = e.do(t, http.MethodPut, path, owner, fiber.Map{"coursePrice": 999, "courseLevel": "Beginner", "subTitle": "Ship it"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "999", body["course"].(map[string]interface{})["coursePrice"])

	status, _ = e.do(t, http.MethodPut, path, owner, fiber.Map{"courseLevel": "Expert"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.do(t, http.MethodPut, path, stranger, fiber.Map{"coursePrice": 1})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = e.do(t, http.MethodGet, "/course/4242", owner, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = e.do(t, http.MethodGet, "/course/published-courses", owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["courses"])

	status, _ = e.do(t, http.MethodPatch, path+"?publish=true", owner, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = e.do(t, http.MethodGet, "/course/published-courses", owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["courses"], 1)

	status, body = e.do(t, http.MethodGet, "/course/search?query=backend&sortByPrice=low", owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["courses"], 1)

	status, body = e.do(t, http.MethodPost, path+"/lecture", owner, fiber.Map{"lectureTitle": "Intro"})
	require.Equal(t, http.StatusCreated, status)
	lectureID := uint(body["lecture"].(map[string]interface{})["id"].(float64))

	status, _ = e.do(t, http.MethodPost, path+"/lecture", stranger, fiber.Map{"lectureTitle": "Hijack"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = e.do(t, http.MethodPost, fmt.Sprintf("%s/lecture/%d", path, lectureID), owner, fiber.Map{
		"lectureTitle":  "Intro to Go",
		"videoInfo":     fiber.Map{"videoUrl": "https://video.coursefox.test/1.mp4", "publicId": "v1"},
		"isPreviewFree": true,
	})
	require.Equal(t, http.StatusOK, status)
	lecture := body["lecture"].(map[string]interface{})
	assert.Equal(t, "Intro to Go", lecture["lectureTitle"])
	assert.Equal(t, true, lecture["isPreviewFree"])

	status, _ = e.do(t, http.MethodPost, fmt.Sprintf("%s/lecture/%d", path, 999), owner, fiber.Map{"lectureTitle": "x"})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = e.do(t, http.MethodGet, path, owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["course"].(map[string]interface{})["lectures"], 1)
}

func TestCourseListingsHideCreatorContact(t *testing.T) {
	e := newTestEnv(t)
	instructor, owner := e.seedUser(t, "secret.instructor@coursefox.test", models.ROLE_INSTRUCTOR)
	_, student := e.seedUser(t, "sam@coursefox.test", models.ROLE_STUDENT)

	status, body := e.do(t, http.MethodPost, "/course", owner, fiber.Map{"courseTitle": "Go for Backends", "category": "Programming"})
	require.Equal(t, http.StatusCreated, status)
	courseID := uint(body["course"].(map[string]interface{})["id"].(float64))
	status, _ = e.do(t, http.MethodPatch, fmt.Sprintf("/course/%d?publish=true", courseID), owner, nil)
	require.Equal(t, http.StatusOK, status)

	for _, path := range []string{"/course/published-courses", "/course/search?query=go"} {
		t.Run(path, func(t *testing.T) {
			status, body := e.do(t, http.MethodGet, path, student, nil)
			require.Equal(t, http.StatusOK, status)
			courses := body["courses"].([]interface{})
			require.Len(t, courses, 1)

			creator := courses[0].(map[string]interface{})["creator"].(map[string]interface{})
			assert.Equal(t, float64(instructor.ID), creator["id"])
			assert.Equal(t, instructor.Name, creator["name"])
			assert.NotContains(t, creator, "email")
			assert.NotContains(t, creator, "role")
		})
	}
}

func TestPurchaseFlow(t *testing.T) {
	e := newTestEnv(t)
	instructor, instructorToken := e.seedUser(t, "ada@coursefox.test", models.ROLE_INSTRUCTOR)
	_, studentToken := e.seedUser(t, "sam@coursefox.test", models.ROLE_STUDENT)
	_, otherToken := e.seedUser(t, "olive@coursefox.test", models.ROLE_STUDENT)

	course := &models.Course{Title: "Go for Backends", Category: "Programming", Price: decimal.NewFromInt(999), CreatorID: instructor.ID, IsPublished: true}
	require.NoError(t, e.db.Create(course).Error)
	require.NoError(t, e.db.Create(&[]models.Lecture{
		{CourseID: course.ID, Position: 1, Title: "L1", VideoURL: "https://video.coursefox.test/1.mp4", IsPreviewFree: true},
		{CourseID: course.ID, Position: 2, Title: "L2", VideoURL: "https://video.coursefox.test/2.mp4"},
	}).Error)
	detailPath := fmt.Sprintf("/purchase/course/%d/detail-with-status", course.ID)

	status, body := e.do(t, http.MethodGet, detailPath, studentToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["purchased"])
	lectures := body["course"].(map[string]interface{})["lectures"].([]interface{})
	assert.NotEmpty(t, lectures[0].(map[string]interface{})["videoUrl"])
	assert.Empty(t, lectures[1].(map[string]interface{})["videoUrl"])

	status, _ = e.do(t, http.MethodPost, "/purchase/checkout/create-checkout-session", studentToken, fiber.Map{"courseId": 4242})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = e.do(t, http.MethodPost, "/purchase/checkout/create-checkout-session", studentToken, fiber.Map{"courseId": course.ID})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "https://checkout.stripe.test/cs_ctrl_1", body["url"])

	verifyPath := "/purchase/checkout/session/cs_ctrl_1/verify"
	status, _ = e.do(t, http.MethodPost, verifyPath, studentToken, nil)
	assert.Equal(t, http.StatusBadRequest, status, "unpaid session")

	e.gw.pay("cs_ctrl_1", 99900)
	status, _ = e.do(t, http.MethodPost, verifyPath, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	payload := completedEvent("evt_ctrl_1", "cs_ctrl_1", 99900)
	assert.Equal(t, http.StatusBadRequest, e.webhook(t, payload, ""))
	assert.Equal(t, http.StatusBadRequest, e.webhook(t, payload, signed(payload, "whsec_wrong")))

	var p models.Purchase
	require.NoError(t, e.db.Where("payment_id = ?", "cs_ctrl_1").First(&p).Error)
	assert.Equal(t, models.PURCHASE_PENDING, p.Status)

	assert.Equal(t, http.StatusOK, e.webhook(t, payload, signed(payload, testWebhookSecret)))
	assert.Equal(t, http.StatusOK, e.webhook(t, completedEvent("evt_ctrl_2", "cs_unknown", 100), signed(completedEvent("evt_ctrl_2", "cs_unknown", 100), testWebhookSecret)))

	status, body = e.do(t, http.MethodPost, verifyPath, studentToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, body = e.do(t, http.MethodGet, detailPath, studentToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["purchased"])
	lectures = body["course"].(map[string]interface{})["lectures"].([]interface{})
	assert.NotEmpty(t, lectures[1].(map[string]interface{})["videoUrl"])

	status, _ = e.do(t, http.MethodPost, "/purchase/checkout/create-checkout-session", studentToken, fiber.Map{"courseId": course.ID})
	assert.Equal(t, http.StatusBadRequest, status, "already purchased")

	status, body = e.do(t, http.MethodGet, "/purchase", instructorToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["purchasedCourse"], 1)
	assert.Equal(t, "999", body["totalRevenue"])
	assert.Equal(t, float64(1), body["totalSales"])

	status, body = e.do(t, http.MethodGet, "/purchase", otherToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["purchasedCourse"])
}

func TestCheckoutErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{checkout.ErrNotFound, http.StatusNotFound},
		{gorm.ErrRecordNotFound, http.StatusNotFound},
		{checkout.ErrForbidden, http.StatusForbidden},
		{checkout.ErrUnprocessable, http.StatusBadRequest},
		{checkout.ErrConfiguration, http.StatusInternalServerError},
		{checkout.ErrGateway, http.StatusBadRequest},
		{checkout.ErrSignatureInvalid, http.StatusBadRequest},
		{checkout.ErrAlreadyPurchased, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", checkout.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, checkoutErrorStatus(tt.err), tt.err.Error())
	}
}
