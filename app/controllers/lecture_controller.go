package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

type createLectureRequest struct {
	Title string `json:"lectureTitle" validate:"required,min=1,max=255"`
}

type videoInfo struct {
	VideoURL string `json:"videoUrl" validate:"omitempty,url,max=500"`
	PublicID string `json:"publicId" validate:"max=255"`
}

type editLectureRequest struct {
	Title         *string    `json:"lectureTitle" validate:"omitempty,min=1,max=255"`
	VideoInfo     *videoInfo `json:"videoInfo"`
	IsPreviewFree *bool      `json:"isPreviewFree"`
}

// HandleCreateLecture appends a lecture to an owned course
func (cc *CourseController) HandleCreateLecture(c *fiber.Ctx) error {
	course, err := cc.ownedCourse(c, "courseId", false)
	if err != nil {
		return handled(err)
	}

	var req createLectureRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Lecture title is required")
	}

	lecture := &models.Lecture{CourseID: course.ID, Title: req.Title}
	if err := cc.lectures.Create(lecture); err != nil {
		log.WithError(err).WithField("course_id", course.ID).Error("Failed to create lecture")
		return jsonError(c, fiber.StatusInternalServerError, "Failed to create lecture")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"lecture": lecture,
		"message": "Lecture created successfully.",
	})
}

// HandleCourseLectures lists the lectures of an owned course
func (cc *CourseController) HandleCourseLectures(c *fiber.Ctx) error {
	course, err := cc.ownedCourse(c, "courseId", false)
	if err != nil {
		return handled(err)
	}

	lectures, err := cc.lectures.ListByCourse(course.ID)
	if err != nil {
		log.WithError(err).WithField("course_id", course.ID).Error("Failed to load lectures")
		return jsonError(c, fiber.StatusInternalServerError, "Failed to get lectures")
	}
	if lectures == nil {
		lectures = []models.Lecture{}
	}
	return c.JSON(fiber.Map{"success": true, "lectures": lectures})
}

// HandleEditLecture updates a lecture of an owned course
func (cc *CourseController) HandleEditLecture(c *fiber.Ctx) error {
	course, err := cc.ownedCourse(c, "courseId", false)
	if err != nil {
		return handled(err)
	}
	lecture, err := cc.lectureOf(c, course.ID)
	if err != nil {
		return handled(err)
	}

	var req editLectureRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid lecture data")
	}
	if req.VideoInfo != nil {
		if err := validate.Struct(req.VideoInfo); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "Invalid video data")
		}
	}

	if req.Title != nil {
		lecture.Title = strings.TrimSpace(*req.Title)
	}
	if req.VideoInfo != nil {
		lecture.VideoURL = req.VideoInfo.VideoURL
		lecture.PublicID = req.VideoInfo.PublicID
	}
	if req.IsPreviewFree != nil {
		lecture.IsPreviewFree = *req.IsPreviewFree
	}
	if err := cc.lectures.Update(lecture); err != nil {
		log.WithError(err).WithField("lecture_id", lecture.ID).Error("Failed to update lecture")
		return jsonError(c, fiber.StatusInternalServerError, "Failed to edit lecture")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"lecture": lecture,
		"message": "Lecture updated successfully.",
	})
}

// HandleGetLecture returns one lecture of a course owned by the caller
func (cc *CourseController) HandleGetLecture(c *fiber.Ctx) error {
	lecture, err := cc.ownedLecture(c)
	if err != nil {
		return handled(err)
	}
	return c.JSON(fiber.Map{"success": true, "lecture": lecture})
}

// HandleDeleteLecture removes one lecture of a course owned by the caller
func (cc *CourseController) HandleDeleteLecture(c *fiber.Ctx) error {
	lecture, err := cc.ownedLecture(c)
	if err != nil {
		return handled(err)
	}
	if err := cc.lectures.Delete(lecture.ID); err != nil {
		log.WithError(err).WithField("lecture_id", lecture.ID).Error("Failed to delete lecture")
		return jsonError(c, fiber.StatusInternalServerError, "Failed to remove lecture")
	}
	return c.JSON(fiber.Map{"success": true, "message": "Lecture removed successfully."})
}

// lectureOf loads the lectureId param and checks it belongs to courseID.
func (cc *CourseController) lectureOf(c *fiber.Ctx, courseID uint) (*models.Lecture, error) {
	lectureID, ok := paramID(c, "lectureId")
	if !ok {
		return nil, respondHandled(jsonError(c, fiber.StatusBadRequest, "Invalid lecture id"))
	}
	lecture, err := cc.lectures.GetByID(lectureID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, respondHandled(jsonError(c, fiber.StatusNotFound, "Lecture not found!"))
		}
		log.WithError(err).WithField("lecture_id", lectureID).Error("Failed to load lecture")
		return nil, respondHandled(jsonError(c, fiber.StatusInternalServerError, "Failed to load lecture"))
	}
	if lecture.CourseID != courseID {
		return nil, respondHandled(jsonError(c, fiber.StatusNotFound, "Lecture not found!"))
	}
	return lecture, nil
}

// ownedLecture resolves the lectureId param through its course owner.
func (cc *CourseController) ownedLecture(c *fiber.Ctx) (*models.Lecture, error) {
	lectureID, ok := paramID(c, "lectureId")
	if !ok {
		return nil, respondHandled(jsonError(c, fiber.StatusBadRequest, "Invalid lecture id"))
	}
	lecture, err := cc.lectures.GetByID(lectureID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, respondHandled(jsonError(c, fiber.StatusNotFound, "Lecture not found!"))
		}
		log.WithError(err).WithField("lecture_id", lectureID).Error("Failed to load lecture")
		return nil, respondHandled(jsonError(c, fiber.StatusInternalServerError, "Failed to load lecture"))
	}

	course, err := cc.courses.GetByID(lecture.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, respondHandled(jsonError(c, fiber.StatusNotFound, "Course not found!"))
		}
		return nil, respondHandled(jsonError(c, fiber.StatusInternalServerError, "Failed to load course"))
	}
	if !course.IsOwnedBy(usercontext.GetUserID(c)) {
		return nil, respondHandled(jsonError(c, fiber.StatusForbidden, "You are not the creator of this course"))
	}
	return lecture, nil
}
