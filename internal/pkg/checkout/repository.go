package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/CourseFox/app/models"
)

// Repository provides DB operations used by the checkout service.
type Repository interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetCourse(ctx context.Context, id uint) (*models.Course, error)
	GetCourseWithLectures(ctx context.Context, id uint) (*models.Course, error)
	ListEnrolledStudentIDs(ctx context.Context, courseID uint) ([]uint, error)
	CreatePurchase(ctx context.Context, p *models.Purchase) error
	SetPurchasePaymentID(ctx context.Context, purchaseID uint, sessionID string) error
	GetPurchaseBySessionID(ctx context.Context, sessionID string) (*models.Purchase, error)
	HasCompletedPurchase(ctx context.Context, userID, courseID uint) (bool, error)
	UpdatePurchaseAmount(ctx context.Context, purchaseID uint, amount decimal.Decimal) error
	MarkPurchaseCompleted(ctx context.Context, purchaseID uint, at time.Time) (bool, error)
	AddUserEnrollment(ctx context.Context, userID, courseID uint) error
	AddCourseEnrollment(ctx context.Context, courseID, userID uint) error
	ListCompletedPurchasesByUser(ctx context.Context, userID uint) ([]models.Purchase, error)
	ListCompletedSalesByCreator(ctx context.Context, creatorID uint) ([]models.Purchase, error)
	ListStalePendingPurchases(ctx context.Context, createdBefore time.Time, limit int) ([]models.Purchase, error)
	CreateWebhookEventIfNotExists(ctx context.Context, event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a checkout repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) GetCourse(ctx context.Context, id uint) (*models.Course, error) {
	var c models.Course
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) GetCourseWithLectures(ctx context.Context, id uint) (*models.Course, error) {
	var c models.Course
	err := r.db.WithContext(ctx).
		Preload("Lectures", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Creator", models.PublicProfile).
		First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) ListEnrolledStudentIDs(ctx context.Context, courseID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.CourseEnrollment{}).
		Where("course_id = ?", courseID).
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *gormRepository) CreatePurchase(ctx context.Context, p *models.Purchase) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *gormRepository) SetPurchasePaymentID(ctx context.Context, purchaseID uint, sessionID string) error {
	return r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ?", purchaseID).
		Update("payment_id", sessionID).Error
}

func (r *gormRepository) GetPurchaseBySessionID(ctx context.Context, sessionID string) (*models.Purchase, error) {
	var p models.Purchase
	err := r.db.WithContext(ctx).Preload("Course").Where("payment_id = ?", sessionID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) HasCompletedPurchase(ctx context.Context, userID, courseID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, models.PURCHASE_COMPLETED).
		Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) UpdatePurchaseAmount(ctx context.Context, purchaseID uint, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ?", purchaseID).
		Update("amount", amount).Error
}

// MarkPurchaseCompleted transitions the purchase only when it is not completed
// yet and reports whether this call did it.
func (r *gormRepository) MarkPurchaseCompleted(ctx context.Context, purchaseID uint, at time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ? AND status <> ?", purchaseID, models.PURCHASE_COMPLETED).
		Updates(map[string]interface{}{
			"status":       models.PURCHASE_COMPLETED,
			"completed_at": at,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) AddUserEnrollment(ctx context.Context, userID, courseID uint) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserEnrollment{UserID: userID, CourseID: courseID}).Error
}

func (r *gormRepository) AddCourseEnrollment(ctx context.Context, courseID, userID uint) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.CourseEnrollment{CourseID: courseID, UserID: userID}).Error
}

func (r *gormRepository) ListCompletedPurchasesByUser(ctx context.Context, userID uint) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.WithContext(ctx).Preload("Course").
		Where("user_id = ? AND status = ?", userID, models.PURCHASE_COMPLETED).
		Order("id DESC").
		Find(&purchases).Error
	return purchases, err
}

// ListCompletedSalesByCreator joins on the course creator, the single
// authoritative ownership relation.
func (r *gormRepository) ListCompletedSalesByCreator(ctx context.Context, creatorID uint) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.WithContext(ctx).Preload("Course").
		Joins("JOIN courses ON courses.id = purchases.course_id").
		Where("purchases.status = ? AND courses.creator_id = ?", models.PURCHASE_COMPLETED, creatorID).
		Order("purchases.id DESC").
		Find(&purchases).Error
	return purchases, err
}

func (r *gormRepository) ListStalePendingPurchases(ctx context.Context, createdBefore time.Time, limit int) ([]models.Purchase, error) {
	var purchases []models.Purchase
	q := r.db.WithContext(ctx).
		Where("status = ? AND payment_id IS NOT NULL AND payment_id <> '' AND created_at < ?", models.PURCHASE_PENDING, createdBefore).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&purchases).Error
	return purchases, err
}

func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentWebhookEvent
	if err := r.db.WithContext(ctx).Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.PaymentWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
