package checkout

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/database"
)

const testWebhookSecret = "whsec_test_secret"

// fakeGateway hands out sequential session ids and lets tests flip a session
// to paid.
type fakeGateway struct {
	mu        sync.Mutex
	seq       int
	sessions  map[string]*Session
	requests  []SessionRequest
	createErr error
	noURL     bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]*Session{}}
}

func (g *fakeGateway) CreateSession(_ context.Context, req SessionRequest) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.seq++
	g.requests = append(g.requests, req)

	s := &Session{
		ID:            fmt.Sprintf("cs_test_%d", g.seq),
		PaymentStatus: "unpaid",
		Metadata: map[string]string{
			MetadataCourseID: strconv.FormatUint(uint64(req.CourseID), 10),
			MetadataUserID:   strconv.FormatUint(uint64(req.UserID), 10),
		},
	}
	if !g.noURL {
		s.URL = "https://checkout.stripe.test/pay/" + s.ID
	}
	g.sessions[s.ID] = s
	cp := *s
	return &cp, nil
}

func (g *fakeGateway) GetSession(_ context.Context, id string) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return nil, fmt.Errorf("fake session %s: %w", id, ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (g *fakeGateway) markPaid(id string, amountMinor int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.sessions[id]
	s.PaymentStatus = PaymentStatusPaid
	s.AmountTotal = amountMinor
}

func (g *fakeGateway) lastRequest() SessionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

type fixture struct {
	db         *gorm.DB
	gw         *fakeGateway
	svc        *Service
	student    *models.User
	other      *models.User
	instructor *models.User
	course     *models.Course
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := database.NewTestDB(t)
	gw := newFakeGateway()

	f := &fixture{
		db: db,
		gw: gw,
		svc: NewServiceFromDB(db, gw, Config{
			FrontendBaseURL:  "https://app.coursefox.test/",
			Currency:         "inr",
			AllowedCountries: []string{"IN"},
			WebhookSecret:    testWebhookSecret,
		}),
	}
	f.instructor = seedUser(t, db, "Ada Instructor", "ada@coursefox.test", models.ROLE_INSTRUCTOR)
	f.student = seedUser(t, db, "Sam Student", "sam@coursefox.test", models.ROLE_STUDENT)
	f.other = seedUser(t, db, "Olive Other", "olive@coursefox.test", models.ROLE_STUDENT)
	f.course = seedCourse(t, db, f.instructor.ID, "Go for Backends", decimal.NewFromInt(999))
	return f
}

func seedUser(t *testing.T, db *gorm.DB, name, email, role string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: email, Password: "hashed", Role: role}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedCourse(t *testing.T, db *gorm.DB, creatorID uint, title string, price decimal.Decimal) *models.Course {
	t.Helper()
	c := &models.Course{
		Title:       title,
		Category:    "Programming",
		Price:       price,
		CreatorID:   creatorID,
		IsPublished: true,
		Thumbnail:   "https://img.coursefox.test/" + strconv.Itoa(len(title)) + ".png",
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// checkout creates a session for user/course and returns the purchase.
func (f *fixture) checkout(t *testing.T, userID, courseID uint) *models.Purchase {
	t.Helper()
	_, err := f.svc.CreateCheckoutSession(context.Background(), userID, courseID)
	require.NoError(t, err)

	var p models.Purchase
	require.NoError(t, f.db.Where("user_id = ? AND course_id = ?", userID, courseID).Order("id DESC").First(&p).Error)
	return &p
}

func (f *fixture) reload(t *testing.T, id uint) *models.Purchase {
	t.Helper()
	var p models.Purchase
	require.NoError(t, f.db.First(&p, id).Error)
	return &p
}

func (f *fixture) countEnrollments(t *testing.T, userID, courseID uint) (userSide, courseSide int64) {
	t.Helper()
	require.NoError(t, f.db.Model(&models.UserEnrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).Count(&userSide).Error)
	require.NoError(t, f.db.Model(&models.CourseEnrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).Count(&courseSide).Error)
	return userSide, courseSide
}

func completedEventPayload(eventID, sessionID string, userID, courseID uint, amountMinor int64) []byte {
	return []byte(fmt.Sprintf(`{
  "id": %q,
  "object": "event",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": %q,
      "object": "checkout.session",
      "payment_status": "paid",
      "amount_total": %d,
      "metadata": {"courseId": "%d", "userId": "%d"}
    }
  }
}`, eventID, sessionID, amountMinor, courseID, userID))
}

func signedHeader(payload []byte, secret string) string {
	return signPayload(payload, secret, time.Now())
}
