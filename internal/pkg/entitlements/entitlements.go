package entitlements

import "github.com/ManuelReschke/CourseFox/app/models"

// CanViewLecture reports whether a lecture's video may be shown. Buyers see
// everything, everybody else only the free previews.
func CanViewLecture(l models.Lecture, purchased bool) bool {
	return purchased || l.IsPreviewFree
}

// SanitizeLectures returns a copy of lectures with the video URL and its
// public id blanked for every lecture the viewer may not watch. The input is
// left untouched.
func SanitizeLectures(lectures []models.Lecture, purchased bool) []models.Lecture {
	out := make([]models.Lecture, len(lectures))
	for i, l := range lectures {
		if !CanViewLecture(l, purchased) {
			l.VideoURL = ""
			l.PublicID = ""
		}
		out[i] = l
	}
	return out
}

// SanitizeCourse applies SanitizeLectures to a copy of the course.
func SanitizeCourse(c *models.Course, purchased bool) *models.Course {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Lectures = SanitizeLectures(c.Lectures, purchased)
	return &cp
}
