package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/dropout-watch-api/internal/models"
)

// StudentFilter narrows the student listing. Zero values match everything.
type StudentFilter struct {
	Department string
	Risk       *int
	MentorID   string
}

// StudentRepository provides access to student records.
type StudentRepository interface {
	List(ctx context.Context, filter StudentFilter) ([]models.Student, error)
	GetByStudentID(ctx context.Context, studentID string) (models.Student, error)
	Save(ctx context.Context, student *models.Student) error
	ReplaceAll(ctx context.Context, students []models.Student) error
	Count(ctx context.Context) (int64, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) List(ctx context.Context, filter StudentFilter) ([]models.Student, error) {
	query := r.db.WithContext(ctx).Model(&models.Student{})

	if filter.Department != "" {
		query = query.Where("department = ?", filter.Department)
	}
	if filter.Risk != nil {
		query = query.Where("dropout_risk = ?", *filter.Risk)
	}
	if filter.MentorID != "" {
		query = query.Where("mentor_id = ?", filter.MentorID)
	}

	var students []models.Student
	if err := query.Order("id ASC").Find(&students).Error; err != nil {
		return nil, err
	}

	return students, nil
}

func (r *studentRepository) GetByStudentID(ctx context.Context, studentID string) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Where("student_id = ?", studentID).First(&student).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) Save(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Save(student).Error
}

// ReplaceAll swaps the whole collection in one transaction. Readers see either
// the previous set or the new one.
func (r *studentRepository) ReplaceAll(ctx context.Context, students []models.Student) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Student{}).Error; err != nil {
			return err
		}
		if len(students) == 0 {
			return nil
		}

		rows := make([]models.Student, len(students))
		copy(rows, students)
		for i := range rows {
			rows[i].ID = 0
		}

		return tx.CreateInBatches(rows, 200).Error
	})
}

func (r *studentRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Student{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
