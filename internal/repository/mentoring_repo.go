package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/dropout-watch-api/internal/models"
)

// MentoringFilter narrows intervention and meeting listings.
type MentoringFilter struct {
	MentorID  string
	StudentID string
	Status    string
}

func (f MentoringFilter) apply(query *gorm.DB) *gorm.DB {
	if f.MentorID != "" {
		query = query.Where("mentor_id = ?", f.MentorID)
	}
	if f.StudentID != "" {
		query = query.Where("student_id = ?", f.StudentID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	return query
}

// InterventionRepository persists mentor interventions.
type InterventionRepository interface {
	Create(ctx context.Context, intervention *models.Intervention) error
	List(ctx context.Context, filter MentoringFilter) ([]models.Intervention, error)
	GetByID(ctx context.Context, id uint) (models.Intervention, error)
	UpdateStatus(ctx context.Context, id uint, status string) (models.Intervention, error)
}

type interventionRepository struct {
	db *gorm.DB
}

// NewInterventionRepository constructs an intervention repository.
func NewInterventionRepository(db *gorm.DB) InterventionRepository {
	return &interventionRepository{db: db}
}

func (r *interventionRepository) Create(ctx context.Context, intervention *models.Intervention) error {
	return r.db.WithContext(ctx).Create(intervention).Error
}

func (r *interventionRepository) List(ctx context.Context, filter MentoringFilter) ([]models.Intervention, error) {
	query := filter.apply(r.db.WithContext(ctx).Model(&models.Intervention{}))

	var items []models.Intervention
	if err := query.Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *interventionRepository) GetByID(ctx context.Context, id uint) (models.Intervention, error) {
	var item models.Intervention
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return models.Intervention{}, err
	}
	return item, nil
}

func (r *interventionRepository) UpdateStatus(ctx context.Context, id uint, status string) (models.Intervention, error) {
	update := r.db.WithContext(ctx).Model(&models.Intervention{}).Where("id = ?", id).Update("status", status)
	if update.Error != nil {
		return models.Intervention{}, update.Error
	}
	if update.RowsAffected == 0 {
		return models.Intervention{}, gorm.ErrRecordNotFound
	}
	return r.GetByID(ctx, id)
}

// MeetingRepository persists scheduled meetings.
type MeetingRepository interface {
	Create(ctx context.Context, meeting *models.Meeting) error
	List(ctx context.Context, filter MentoringFilter) ([]models.Meeting, error)
	UpdateStatus(ctx context.Context, id uint, status string) (models.Meeting, error)
}

type meetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository constructs a meeting repository.
func NewMeetingRepository(db *gorm.DB) MeetingRepository {
	return &meetingRepository{db: db}
}

func (r *meetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	return r.db.WithContext(ctx).Create(meeting).Error
}

func (r *meetingRepository) List(ctx context.Context, filter MentoringFilter) ([]models.Meeting, error) {
	query := filter.apply(r.db.WithContext(ctx).Model(&models.Meeting{}))

	var items []models.Meeting
	if err := query.Order("date ASC").Order("time ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *meetingRepository) UpdateStatus(ctx context.Context, id uint, status string) (models.Meeting, error) {
	update := r.db.WithContext(ctx).Model(&models.Meeting{}).Where("id = ?", id).Update("status", status)
	if update.Error != nil {
		return models.Meeting{}, update.Error
	}
	if update.RowsAffected == 0 {
		return models.Meeting{}, gorm.ErrRecordNotFound
	}

	var meeting models.Meeting
	if err := r.db.WithContext(ctx).First(&meeting, id).Error; err != nil {
		return models.Meeting{}, err
	}
	return meeting, nil
}
