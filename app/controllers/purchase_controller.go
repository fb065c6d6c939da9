package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/checkout"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

const gatewayTimeout = 20 * time.Second

// PurchaseController exposes checkout, verification, access status and
// purchase listings
type PurchaseController struct {
	svc *checkout.Service
}

// NewPurchaseController creates a new purchase controller
func NewPurchaseController(svc *checkout.Service) *PurchaseController {
	return &PurchaseController{svc: svc}
}

type createCheckoutRequest struct {
	CourseID uint `json:"courseId" validate:"required"`
}

// HandleCreateCheckoutSession starts a hosted checkout for a course
func (pc *PurchaseController) HandleCreateCheckoutSession(c *fiber.Ctx) error {
	var req createCheckoutRequest
	if err := c.BodyParser(&req); err != nil || validate.Struct(req) != nil {
		return jsonError(c, fiber.StatusBadRequest, "Course id is required")
	}

	userID := usercontext.GetUserID(c)
	ctx, cancel := context.WithTimeout(c.UserContext(), gatewayTimeout)
	defer cancel()

	url, err := pc.svc.CreateCheckoutSession(ctx, userID, req.CourseID)
	if err != nil {
		return respondCheckoutError(c, err, "Failed to create checkout session", log.Fields{
			"user_id":   userID,
			"course_id": req.CourseID,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"url":     url,
	})
}

// HandleVerifyCheckoutSession lets the paying client confirm a session after
// the gateway redirect
func (pc *PurchaseController) HandleVerifyCheckoutSession(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	userID := usercontext.GetUserID(c)

	ctx, cancel := context.WithTimeout(c.UserContext(), gatewayTimeout)
	defer cancel()

	if err := pc.svc.VerifyCheckoutSession(ctx, userID, sessionID); err != nil {
		return respondCheckoutError(c, err, "Failed to verify payment", log.Fields{
			"user_id":    userID,
			"session_id": sessionID,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Payment verified and course access granted",
	})
}

// HandleCourseDetailWithStatus returns the course with lecture videos
// redacted unless the caller bought it
func (pc *PurchaseController) HandleCourseDetailWithStatus(c *fiber.Ctx) error {
	courseID, ok := paramID(c, "courseId")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "Invalid course id")
	}
	userID := usercontext.GetUserID(c)

	course, purchased, err := pc.svc.CourseDetailWithStatus(c.UserContext(), userID, courseID)
	if err != nil {
		return respondCheckoutError(c, err, "Failed to get course details", log.Fields{
			"user_id":   userID,
			"course_id": courseID,
		})
	}

	return c.JSON(fiber.Map{
		"course":    course,
		"purchased": purchased,
	})
}

// HandleListPurchases returns own purchases for students and sales for
// instructors
func (pc *PurchaseController) HandleListPurchases(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	listing, err := pc.svc.ListPurchases(c.UserContext(), userID)
	if err != nil {
		status := checkoutErrorStatus(err)
		log.WithError(err).WithField("user_id", userID).Warn("Failed to list purchases")
		return c.Status(status).JSON(fiber.Map{
			"success":         false,
			"message":         checkoutErrorMessage(err, "Failed to get purchased courses"),
			"purchasedCourse": []models.Purchase{},
		})
	}

	return c.JSON(fiber.Map{
		"purchasedCourse": listing.Purchases,
		"totalRevenue":    listing.TotalRevenue,
		"totalSales":      listing.TotalSales,
	})
}

// HandleWebhook consumes gateway notifications. The raw body is needed for
// signature verification.
func (pc *PurchaseController) HandleWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")

	ctx, cancel := context.WithTimeout(context.Background(), gatewayTimeout)
	defer cancel()

	res, err := pc.svc.HandleWebhook(ctx, rawBody, signature)
	if err != nil {
		log.WithError(err).Warn("Rejected webhook delivery")
		return c.Status(checkoutErrorStatus(err)).JSON(fiber.Map{
			"success": false,
			"message": checkoutErrorMessage(err, "Webhook Error"),
		})
	}

	return c.JSON(fiber.Map{
		"received":  true,
		"duplicate": res.Duplicate,
		"ignored":   res.Ignored,
	})
}
