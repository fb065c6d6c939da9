package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CourseFox/app/controllers"
	"github.com/ManuelReschke/CourseFox/internal/pkg/middleware"
)

type ApiRouter struct {
	deps Deps
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	cfg := h.deps.Config
	repos := h.deps.Repositories

	authCtrl := controllers.NewAuthController(repos.GetUserRepository(), controllers.AuthSettings{
		Secret:         cfg.Auth.JWTSecret,
		TokenTTL:       cfg.Auth.TokenTTL,
		SecureCookies:  cfg.SecureCookies(),
		CookieSameSite: cfg.CookieSameSite(),
	})
	courseCtrl := controllers.NewCourseController(repos.GetCourseRepository(), repos.GetLectureRepository())
	purchaseCtrl := controllers.NewPurchaseController(h.deps.Checkout)
	requireAuth := middleware.RequireAPIAuth(cfg.Auth.JWTSecret)

	api := app.Group("/api")
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	user := v1.Group("/user")
	user.Post("/register", authCtrl.HandleRegister)
	user.Post("/login", authCtrl.HandleLogin)
	user.Get("/logout", authCtrl.HandleLogout)
	user.Get("/profile", requireAuth, authCtrl.HandleProfile)
	user.Put("/profile/update", requireAuth, authCtrl.HandleUpdateProfile)

	course := v1.Group("/course", requireAuth)
	course.Post("/", courseCtrl.HandleCreateCourse)
	course.Get("/search", courseCtrl.HandleSearchCourses)
	course.Get("/published-courses", courseCtrl.HandlePublishedCourses)
	course.Get("/", courseCtrl.HandleCreatorCourses)
	course.Get("/lecture/:lectureId", courseCtrl.HandleGetLecture)
	course.Delete("/lecture/:lectureId", courseCtrl.HandleDeleteLecture)
	course.Put("/:courseId", courseCtrl.HandleEditCourse)
	course.Get("/:courseId", courseCtrl.HandleGetCourse)
	course.Delete("/:courseId", courseCtrl.HandleDeleteCourse)
	course.Patch("/:courseId", courseCtrl.HandleTogglePublish)
	course.Post("/:courseId/lecture", courseCtrl.HandleCreateLecture)
	course.Get("/:courseId/lecture", courseCtrl.HandleCourseLectures)
	course.Post("/:courseId/lecture/:lectureId", courseCtrl.HandleEditLecture)

	purchase := v1.Group("/purchase")
	// signature verified, no session
	purchase.Post("/webhook", purchaseCtrl.HandleWebhook)
	purchase.Post("/checkout/create-checkout-session", requireAuth, purchaseCtrl.HandleCreateCheckoutSession)
	purchase.Post("/checkout/session/:sessionId/verify", requireAuth, purchaseCtrl.HandleVerifyCheckoutSession)
	purchase.Get("/course/:courseId/detail-with-status", requireAuth, purchaseCtrl.HandleCourseDetailWithStatus)
	purchase.Get("/", requireAuth, purchaseCtrl.HandleListPurchases)
}

func NewApiRouter(deps Deps) *ApiRouter {
	return &ApiRouter{deps: deps}
}
