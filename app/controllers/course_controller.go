package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/cache"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

const (
	publishedCoursesCacheKey = "courses:published"
	publishedCoursesCacheTTL = 60 * time.Second
)

// CourseController handles course and lecture management for instructors
type CourseController struct {
	courses  repository.CourseRepository
	lectures repository.LectureRepository
}

// NewCourseController creates a new course controller with repositories
func NewCourseController(courses repository.CourseRepository, lectures repository.LectureRepository) *CourseController {
	return &CourseController{courses: courses, lectures: lectures}
}

type createCourseRequest struct {
	Title    string `json:"courseTitle" validate:"required,min=3,max=255"`
	Category string `json:"category" validate:"required,max=100"`
}

type editCourseRequest struct {
	Title       *string          `json:"courseTitle" validate:"omitempty,min=3,max=255"`
	SubTitle    *string          `json:"subTitle" validate:"omitempty,max=255"`
	Description *string          `json:"description"`
	Category    *string          `json:"category" validate:"omitempty,max=100"`
	Level       *string          `json:"courseLevel" validate:"omitempty,oneof=Beginner Medium Advance"`
	Price       *decimal.Decimal `json:"coursePrice"`
	Thumbnail   *string          `json:"courseThumbnail" validate:"omitempty,url,max=500"`
}

// HandleCreateCourse creates a draft course owned by the caller
func (cc *CourseController) HandleCreateCourse(c *fiber.Ctx) error {
	var req createCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.TrimSpace(req.Category)
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Course title and category is required.")
	}

	course := &models.Course{
		Title:     req.Title,
		Category:  req.Category,
		CreatorID: usercontext.GetUserID(c),
		Price:     decimal.Zero,
	}
	if err := cc.courses.Create(course); err != nil {
		log.WithError(err).Error("Failed to create course")
		return jsonError(c, fiber.StatusInternalServerError, "Failed to create course")
	}
	invalidatePublishedCourses()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"course":  course,
		"message": "Course created.",
	})
}

// HandleSearchCourses searches published courses
func (cc *CourseController) HandleSearchCourses(c *fiber.Ctx) error {
	search := repository.CourseSearch{
		Query:       c.Query("query"),
		SortByPrice: strings.ToLower(c.Query("sortByPrice")),
	}
	if raw := c.Query("categories"); raw != "" {
		search.Categories = strings.Split(raw, ",")
	}

	courses, err := cc.courses.Search(search)
	if err != nil {
		log.WithError(err).Error("Failed to search courses")
		return jsonError(c, fiber.StatusInternalServerError, "Failed to search courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"courses": courses,
	})
}

// HandlePublishedCourses lists published courses, served from cache when possible
func (cc *CourseController) HandlePublishedCourses(c *fiber.Ctx) error {
	var courses []models.Course
	err := cache.GetJSON(publishedCoursesCacheKey, &courses)
	if err == nil {
		return c.JSON(fiber.Map{"success": true, "courses": courses})
	}
	if !errors.Is(err, redis.Nil) && !errors.Is(err, cache.ErrUnavailable) {
		log.WithError(err).Warn("Published courses cache read failed")
	}

	courses, err = cc.courses.ListPublished()
	if err != nil {
		log.WithError(err).Error("Failed to load published courses")
		return jsonError(c, fiber.StatusInternalServerError, "Failed to get published courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	if err := cache.SetJSON(publishedCoursesCacheKey, courses, publishedCoursesCacheTTL); err != nil && !errors.Is(err, cache.ErrUnavailable) {
		log.WithError(err).Warn("Published courses cache write failed")
	}

	return c.JSON(fiber.Map{"success": true, "courses": courses})
}

// HandleCreatorCourses lists the caller's own courses
func (cc *CourseController) HandleCreatorCourses(c *fiber.Ctx) error {
	courses, err := cc.courses.ListByCreator(usercontext.GetUserID(c))
	if err != nil {
		log.WithError(err).Error("Failed to load creator courses")
		return jsonError(c, fiber.StatusInternalServerError, "Failed to get courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return c.JSON(fiber.Map{"success": true, "courses": courses})
}

// HandleEditCourse updates the given fields of an owned course
func (cc *CourseController) HandleEditCourse(c *fiber.Ctx) error {
	course, err := cc.ownedCourse(c, "courseId", false)
	if err != nil {
		return handled(err)
	}

	var req editCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid course data")
	}
	if req.Price != nil && req.Price.IsNegative() {
		return jsonError(c, fiber.StatusBadRequest, "Course price must not be negative")
	}

	applyCourseEdit(course, req)
	if err := cc.courses.Update(course); err != nil {
		log.WithError(err).WithField("course_id", course.ID).Error("Failed to update course")
		return jsonError(c, fiber.StatusInternalServerError, "Failed to update course")
	}
	invalidatePublishedCourses()

	return c.JSON(fiber.Map{
		"success": true,
		"course":  course,
		"message": "Course updated successfully.",
	})
}

// HandleGetCourse returns an owned course with its lectures
func (cc *CourseController) HandleGetCourse(c *fiber.Ctx) error {
	course, err := cc.ownedCourse(c, "courseId", true)
	if err != nil {
		return handled(err)
	}
	return c.JSON(fiber.Map{"success": true, "course": course})
}

// HandleDeleteCourse removes an owned course and its lectures
func (cc *CourseController) HandleDeleteCourse(c *fiber.Ctx) error {
	course, err := cc.ownedCourse(c, "courseId", false)
	if err != nil {
		return handled(err)
	}
	if err := cc.courses.Delete(course.ID); err != nil {
		log.WithError(err).WithField("course_id", course.ID).Error("Failed to delete course")
		return jsonError(c, fiber.StatusInternalServerError, "Failed to delete course")
	}
	invalidatePublishedCourses()

	return c.JSON(fiber.Map{"success": true, "message": "Course deleted successfully."})
}

// HandleTogglePublish publishes or unpublishes an owned course
func (cc *CourseController) HandleTogglePublish(c *fiber.Ctx) error {
	course, err := cc.ownedCourse(c, "courseId", false)
	if err != nil {
		return handled(err)
	}

	publish := strings.EqualFold(c.Query("publish"), "true")
	if err := cc.courses.SetPublished(course.ID, publish); err != nil {
		log.WithError(err).WithField("course_id", course.ID).Error("Failed to update publish state")
		return jsonError(c, fiber.StatusInternalServerError, "Failed to update status")
	}
	invalidatePublishedCourses()

	message := "Course is unpublished."
	if publish {
		message = "Course is published."
	}
	return c.JSON(fiber.Map{"success": true, "message": message})
}

// ownedCourse loads the course named by the route param and writes a 400,
// 403 or 404 response when the caller may not manage it.
func (cc *CourseController) ownedCourse(c *fiber.Ctx, param string, withLectures bool) (*models.Course, error) {
	courseID, ok := paramID(c, param)
	if !ok {
		return nil, respondHandled(jsonError(c, fiber.StatusBadRequest, "Invalid course id"))
	}

	var (
		course *models.Course
		err    error
	)
	if withLectures {
		course, err = cc.courses.GetByIDWithLectures(courseID)
	} else {
		course, err = cc.courses.GetByID(courseID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, respondHandled(jsonError(c, fiber.StatusNotFound, "Course not found!"))
		}
		log.WithError(err).WithField("course_id", courseID).Error("Failed to load course")
		return nil, respondHandled(jsonError(c, fiber.StatusInternalServerError, "Failed to load course"))
	}
	if !course.IsOwnedBy(usercontext.GetUserID(c)) {
		return nil, respondHandled(jsonError(c, fiber.StatusForbidden, "You are not the creator of this course"))
	}
	return course, nil
}

func applyCourseEdit(course *models.Course, req editCourseRequest) {
	if req.Title != nil {
		course.Title = strings.TrimSpace(*req.Title)
	}
	if req.SubTitle != nil {
		course.SubTitle = strings.TrimSpace(*req.SubTitle)
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Category != nil {
		course.Category = strings.TrimSpace(*req.Category)
	}
	if req.Level != nil {
		course.Level = *req.Level
	}
	if req.Price != nil {
		course.Price = req.Price.Round(2)
	}
	if req.Thumbnail != nil {
		course.Thumbnail = strings.TrimSpace(*req.Thumbnail)
	}
}

func invalidatePublishedCourses() {
	if err := cache.Delete(publishedCoursesCacheKey); err != nil && !errors.Is(err, cache.ErrUnavailable) {
		log.WithError(err).Warn("Failed to invalidate published courses cache")
	}
}

// respondHandled wraps the result of writing a response so callers can
// return it unchanged.
func respondHandled(writeErr error) error {
	if writeErr != nil {
		return writeErr
	}
	return errResponseHandled
}

// handled turns errResponseHandled back into a nil handler result.
func handled(err error) error {
	if errors.Is(err, errResponseHandled) {
		return nil
	}
	return err
}
