package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/security"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

// AuthSettings controls how login tokens are issued.
type AuthSettings struct {
	Secret         string
	TokenTTL       time.Duration
	SecureCookies  bool
	CookieSameSite string
}

// AuthController handles account related API requests
type AuthController struct {
	users    repository.UserRepository
	settings AuthSettings
}

// NewAuthController creates a new auth controller with repository
func NewAuthController(users repository.UserRepository, settings AuthSettings) *AuthController {
	if settings.TokenTTL <= 0 {
		settings.TokenTTL = 24 * time.Hour
	}
	return &AuthController{users: users, settings: settings}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=150"`
	PhotoURL *string `json:"photoUrl" validate:"omitempty,url,max=255"`
}

// HandleRegister creates a new account
func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return jsonError(c, fiber.StatusBadRequest, "All fields are required.")
	}

	if _, err := ac.users.GetByEmail(req.Email); err == nil {
		return jsonError(c, fiber.StatusBadRequest, "User already exist with this email.")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.WithError(err).Error("Failed to look up user by email")
		return jsonError(c, fiber.StatusInternalServerError, "Failed to register")
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid registration data")
	}
	if err := ac.users.Create(user); err != nil {
		log.WithError(err).WithField("email", user.Email).Error("Failed to create user")
		return jsonError(c, fiber.StatusInternalServerError, "Failed to register")
	}

	log.WithField("user_id", user.ID).Info("User registered")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Account created successfully.",
	})
}

// HandleLogin verifies credentials and sets the auth cookie
func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return jsonError(c, fiber.StatusBadRequest, "All fields are required.")
	}

	user, err := ac.users.GetByEmail(req.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.WithError(err).Error("Failed to look up user by email")
			return jsonError(c, fiber.StatusInternalServerError, "Failed to login")
		}
		return jsonError(c, fiber.StatusBadRequest, "Incorrect email or password")
	}
	if !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusBadRequest, "Incorrect email or password")
	}

	token, err := security.GenerateAuthToken(user.ID, ac.settings.TokenTTL, ac.settings.Secret)
	if err != nil {
		log.WithError(err).Error("Failed to issue auth token")
		return jsonError(c, fiber.StatusInternalServerError, "Failed to login")
	}

	c.Cookie(ac.authCookie(token, ac.settings.TokenTTL))
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Welcome back " + user.Name,
		"user":    user,
	})
}

// HandleLogout clears the auth cookie
func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	cookie := ac.authCookie("", 0)
	cookie.Expires = time.Unix(0, 0)
	cookie.MaxAge = -1
	c.Cookie(cookie)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully.",
	})
}

// HandleProfile returns the caller with their enrolled courses
func (ac *AuthController) HandleProfile(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	user, err := ac.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Profile not found")
		}
		log.WithError(err).WithField("user_id", userID).Error("Failed to load profile")
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load user")
	}

	courses, err := ac.users.GetEnrolledCourses(userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Failed to load enrolled courses")
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load user")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	user.EnrolledCourses = courses

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// HandleUpdateProfile changes name and photo of the caller
func (ac *AuthController) HandleUpdateProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid profile data")
	}

	userID := usercontext.GetUserID(c)
	user, err := ac.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "User not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "Failed to update profile")
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.PhotoURL != nil {
		user.PhotoURL = strings.TrimSpace(*req.PhotoURL)
	}
	if err := ac.users.Update(user); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Failed to update profile")
		return jsonError(c, fiber.StatusInternalServerError, "Failed to update profile")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
		"message": "Profile updated successfully.",
	})
}

func (ac *AuthController) authCookie(value string, ttl time.Duration) *fiber.Cookie {
	sameSite := ac.settings.CookieSameSite
	if sameSite == "" {
		sameSite = fiber.CookieSameSiteLaxMode
	}
	return &fiber.Cookie{
		Name:     usercontext.AuthCookieName,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   ac.settings.SecureCookies,
		SameSite: sameSite,
		MaxAge:   int(ttl.Seconds()),
	}
}
