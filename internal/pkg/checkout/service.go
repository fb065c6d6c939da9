package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/entitlements"
)

// Service reconciles checkout intents, gateway sessions and enrollments.
type Service struct {
	repo    Repository
	gateway Gateway
	cfg     Config
	now     func() time.Time
}

// NewService creates a checkout service from injected collaborators.
func NewService(repo Repository, gateway Gateway, cfg Config) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "inr"
	}
	return &Service{repo: repo, gateway: gateway, cfg: cfg, now: time.Now}
}

// NewServiceFromDB creates a checkout service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, gateway Gateway, cfg Config) *Service {
	return NewService(NewRepository(db), gateway, cfg)
}

// CreateCheckoutSession records a pending purchase for the course at its
// current price and returns the hosted checkout URL.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID, courseID uint) (string, error) {
	if userID == 0 || courseID == 0 {
		return "", fmt.Errorf("user and course are required: %w", ErrInvalidInput)
	}

	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return "", notFoundOr(err, "course %d", courseID)
	}

	base, err := redirectBase(s.cfg.FrontendBaseURL)
	if err != nil {
		CheckoutSessions.WithLabelValues("config_error").Inc()
		return "", err
	}

	purchased, err := s.repo.HasCompletedPurchase(ctx, userID, courseID)
	if err != nil {
		return "", err
	}
	if purchased {
		return "", ErrAlreadyPurchased
	}

	purchase := &models.Purchase{
		CourseID: course.ID,
		UserID:   userID,
		Amount:   course.Price,
		Status:   models.PURCHASE_PENDING,
	}
	if err := s.repo.CreatePurchase(ctx, purchase); err != nil {
		return "", fmt.Errorf("create purchase: %w", err)
	}

	courseRef := strconv.FormatUint(uint64(course.ID), 10)
	sess, err := s.gateway.CreateSession(ctx, SessionRequest{
		CourseID:         course.ID,
		UserID:           userID,
		ProductName:      course.Title,
		ProductImage:     course.Thumbnail,
		UnitAmount:       course.PriceMinorUnits(),
		Currency:         s.cfg.Currency,
		SuccessURL:       base + "/course-progress/" + courseRef + "?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:        base + "/course-detail/" + courseRef,
		AllowedCountries: s.cfg.AllowedCountries,
		IdempotencyKey:   uuid.NewString(),
	})
	if err != nil {
		CheckoutSessions.WithLabelValues("gateway_error").Inc()
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if sess == nil || sess.ID == "" || sess.URL == "" {
		CheckoutSessions.WithLabelValues("gateway_error").Inc()
		return "", ErrGateway
	}

	if err := s.repo.SetPurchasePaymentID(ctx, purchase.ID, sess.ID); err != nil {
		return "", fmt.Errorf("store session id: %w", err)
	}

	CheckoutSessions.WithLabelValues("created").Inc()
	log.WithFields(log.Fields{
		"purchase_id": purchase.ID,
		"session_id":  sess.ID,
		"user_id":     userID,
		"course_id":   course.ID,
	}).Info("Checkout session created")
	return sess.URL, nil
}

// VerifyCheckoutSession re-reads the session from the gateway on behalf of the
// paying user and finalizes the purchase when it is paid.
func (s *Service) VerifyCheckoutSession(ctx context.Context, userID uint, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required: %w", ErrInvalidInput)
	}

	sess, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}

	caller := strconv.FormatUint(uint64(userID), 10)
	if owner := sess.Metadata[MetadataUserID]; owner != "" && owner != caller {
		return fmt.Errorf("session %s belongs to another user: %w", sessionID, ErrForbidden)
	}
	if !sess.Paid() {
		return ErrUnprocessable
	}

	purchase, err := s.repo.GetPurchaseBySessionID(ctx, sess.ID)
	if err != nil {
		return notFoundOr(err, "purchase for session %s", sess.ID)
	}
	if purchase.UserID != userID {
		return fmt.Errorf("purchase %d belongs to another user: %w", purchase.ID, ErrForbidden)
	}

	_, err = s.Finalize(ctx, purchase, sess.AmountTotal, SourceVerify)
	return err
}

// HandleWebhook verifies and processes one gateway notification. Only an
// unverifiable or malformed delivery returns an error; business level problems
// end up in WebhookResult.ProcessingError and are acknowledged.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error) {
	event, err := VerifyStripeWebhook(payload, signatureHeader, s.cfg.WebhookSecret, s.cfg.WebhookTolerance)
	if err != nil {
		WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		return nil, err
	}

	res := &WebhookResult{EventID: event.ID, EventType: event.Type}
	logger := log.WithFields(log.Fields{"event_id": event.ID, "event_type": event.Type})

	stored, duplicate := s.recordWebhook(ctx, event, logger)
	if duplicate {
		res.Duplicate = true
		WebhookEvents.WithLabelValues(event.Type, "duplicate").Inc()
		return res, nil
	}

	if !isCompletionEvent(event.Type) || event.Session == nil {
		res.Ignored = true
		s.markWebhook(ctx, stored, nil, logger)
		WebhookEvents.WithLabelValues(event.Type, "ignored").Inc()
		return res, nil
	}

	logger = logger.WithField("session_id", event.Session.ID)
	purchase, err := s.repo.GetPurchaseBySessionID(ctx, event.Session.ID)
	if err != nil {
		res.ProcessingError = notFoundOr(err, "purchase for session %s", event.Session.ID)
		if errors.Is(res.ProcessingError, ErrNotFound) {
			logger.Warn("Purchase not found for webhook session")
		} else {
			logger.WithError(err).Error("Purchase lookup failed for webhook session")
		}
		s.markWebhook(ctx, stored, res.ProcessingError, logger)
		WebhookEvents.WithLabelValues(event.Type, "unmatched").Inc()
		return res, nil
	}
	res.PurchaseFound = true

	res.Transitioned, res.ProcessingError = s.Finalize(ctx, purchase, event.Session.AmountTotal, SourceWebhook)
	s.markWebhook(ctx, stored, res.ProcessingError, logger)
	if res.ProcessingError != nil {
		logger.WithError(res.ProcessingError).Error("Finalize from webhook failed")
		WebhookEvents.WithLabelValues(event.Type, "failed").Inc()
		return res, nil
	}

	WebhookEvents.WithLabelValues(event.Type, "processed").Inc()
	logger.WithField("user_id", purchase.UserID).Info("Purchase processed and enrollment updated")
	return res, nil
}

// Finalize is the single place where a purchase becomes completed and both
// enrollment sets grow. Every step is repeatable, so concurrent or duplicate
// calls converge on the same state. It reports whether this call performed
// the status transition.
func (s *Service) Finalize(ctx context.Context, purchase *models.Purchase, amountMinor int64, source string) (bool, error) {
	if purchase == nil {
		return false, fmt.Errorf("purchase is required: %w", ErrInvalidInput)
	}
	plan := PlanFinalize(*purchase, amountMinor)

	if plan.Amount != nil {
		if err := s.repo.UpdatePurchaseAmount(ctx, plan.PurchaseID, *plan.Amount); err != nil {
			return false, fmt.Errorf("update purchase amount: %w", err)
		}
	}

	transitioned := false
	if plan.Transition {
		var err error
		transitioned, err = s.repo.MarkPurchaseCompleted(ctx, plan.PurchaseID, s.now())
		if err != nil {
			return false, fmt.Errorf("complete purchase: %w", err)
		}
	}

	for _, effect := range plan.Effects {
		var err error
		switch effect.Kind {
		case EffectUserEnrollment:
			err = s.repo.AddUserEnrollment(ctx, effect.UserID, effect.CourseID)
		case EffectCourseEnrollment:
			err = s.repo.AddCourseEnrollment(ctx, effect.CourseID, effect.UserID)
		}
		if err != nil {
			return transitioned, fmt.Errorf("enroll user %d in course %d: %w", effect.UserID, effect.CourseID, err)
		}
	}

	*purchase = plan.Apply(*purchase)
	Finalizations.WithLabelValues(source, strconv.FormatBool(transitioned)).Inc()
	log.WithFields(log.Fields{
		"purchase_id":  purchase.ID,
		"user_id":      purchase.UserID,
		"course_id":    purchase.CourseID,
		"source":       source,
		"transitioned": transitioned,
	}).Debug("Purchase finalized")
	return transitioned, nil
}

// CourseDetailWithStatus returns the course with lectures redacted for users
// who have not bought it, plus the purchase flag.
func (s *Service) CourseDetailWithStatus(ctx context.Context, userID, courseID uint) (*models.Course, bool, error) {
	course, err := s.repo.GetCourseWithLectures(ctx, courseID)
	if err != nil {
		return nil, false, notFoundOr(err, "course %d", courseID)
	}

	purchased, err := s.repo.HasCompletedPurchase(ctx, userID, courseID)
	if err != nil {
		return nil, false, err
	}

	students, err := s.repo.ListEnrolledStudentIDs(ctx, courseID)
	if err != nil {
		return nil, false, err
	}
	course.EnrolledStudents = students
	return entitlements.SanitizeCourse(course, purchased), purchased, nil
}

// ListPurchases returns the sales of an instructor's own courses, or the
// caller's own completed purchases for students.
func (s *Service) ListPurchases(ctx context.Context, userID uint) (*PurchaseListing, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user %d", userID)
	}

	var purchases []models.Purchase
	if user.IsInstructor() {
		purchases, err = s.repo.ListCompletedSalesByCreator(ctx, userID)
	} else {
		purchases, err = s.repo.ListCompletedPurchasesByUser(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	if purchases == nil {
		purchases = []models.Purchase{}
	}

	listing := &PurchaseListing{Purchases: purchases, TotalRevenue: decimal.Zero, TotalSales: len(purchases)}
	for _, p := range purchases {
		listing.TotalRevenue = listing.TotalRevenue.Add(p.Amount)
	}
	return listing, nil
}

// ReconcilePending asks the gateway about purchases that stayed pending longer
// than minAge and finalizes the paid ones.
func (s *Service) ReconcilePending(ctx context.Context, minAge time.Duration, limit int) (ReconcileReport, error) {
	var report ReconcileReport

	purchases, err := s.repo.ListStalePendingPurchases(ctx, s.now().Add(-minAge), limit)
	if err != nil {
		return report, err
	}

	for i := range purchases {
		p := &purchases[i]
		report.Checked++
		logger := log.WithFields(log.Fields{"purchase_id": p.ID, "session_id": p.SessionID()})

		sess, err := s.gateway.GetSession(ctx, p.SessionID())
		if err != nil {
			report.Failed++
			logger.WithError(err).Warn("Reconcile could not load gateway session")
			continue
		}
		if !sess.Paid() {
			report.Unpaid++
			continue
		}
		if _, err := s.Finalize(ctx, p, sess.AmountTotal, SourceReconcile); err != nil {
			report.Failed++
			logger.WithError(err).Error("Reconcile finalize failed")
			continue
		}
		report.Finalized++
	}
	return report, nil
}

func (s *Service) recordWebhook(ctx context.Context, event *WebhookEvent, logger *log.Entry) (*models.PaymentWebhookEvent, bool) {
	eventID := strings.TrimSpace(event.ID)
	if eventID == "" {
		sum := sha256.Sum256(event.Payload)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	created, stored, err := s.repo.CreateWebhookEventIfNotExists(ctx, &models.PaymentWebhookEvent{
		Provider:        models.PaymentProviderStripe,
		ProviderEventID: eventID,
		EventType:       event.Type,
		PayloadJSON:     string(event.Payload),
		SignatureValid:  true,
	})
	if err != nil {
		// Processing continues without deduplication; Finalize is idempotent.
		logger.WithError(err).Error("Failed to persist webhook event")
		return nil, false
	}
	if !created && stored.ProcessedAt != nil {
		return stored, true
	}
	return stored, false
}

func (s *Service) markWebhook(ctx context.Context, stored *models.PaymentWebhookEvent, processingErr error, logger *log.Entry) {
	if stored == nil {
		return
	}
	msg := ""
	if processingErr != nil {
		msg = processingErr.Error()
	}
	if err := s.repo.MarkWebhookProcessed(ctx, stored.ID, msg); err != nil {
		logger.WithError(err).Warn("Failed to mark webhook event processed")
	}
}

func redirectBase(raw string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: frontend base url %q", ErrConfiguration, raw)
	}
	return base, nil
}

func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return err
}
