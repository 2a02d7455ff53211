// Package gormstore is the live store.Store backed by GORM (postgres in production).
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitquest-api/models"
	"fitquest-api/store"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Store struct {
	DB *gorm.DB
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// Open connects to postgres and pings within timeout. There is no retry
// loop here: a failed connect is retried by calling Open again.
func Open(ctx context.Context, dsn string, timeout time.Duration) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError:       true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(db), nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Mission{},
		&models.CompletedMission{},
		&models.Workout{},
		&models.WorkoutCompletion{},
		&models.UserAchievement{},
	)
}

func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}

func (s *Store) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

// --- missions ---

func (s *Store) ListMissions(ctx context.Context, f store.MissionFilter) ([]models.Mission, error) {
	q := s.DB.WithContext(ctx).Model(&models.Mission{})
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	var missions []models.Mission
	if err := q.Order("created_at ASC").Find(&missions).Error; err != nil {
		return nil, translate(err)
	}
	return missions, nil
}

func (s *Store) GetMission(ctx context.Context, id string) (*models.Mission, error) {
	var m models.Mission
	if err := s.DB.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *Store) LockMission(ctx context.Context, id string) (*models.Mission, error) {
	var m models.Mission
	if err := s.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *Store) CreateMission(ctx context.Context, m *models.Mission) error {
	return translate(s.DB.WithContext(ctx).Create(m).Error)
}

func (s *Store) SaveMission(ctx context.Context, m *models.Mission) error {
	return translate(s.DB.WithContext(ctx).Save(m).Error)
}

func (s *Store) DeleteMission(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Delete(&models.Mission{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- completion ledger ---

func (s *Store) CreateCompletedMission(ctx context.Context, cm *models.CompletedMission) error {
	return translate(s.DB.WithContext(ctx).Create(cm).Error)
}

func (s *Store) ListCompletedMissions(ctx context.Context, userID string, since time.Time) ([]models.CompletedMission, error) {
	q := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	if !since.IsZero() {
		q = q.Where("completed_at >= ?", since)
	}
	var out []models.CompletedMission
	if err := q.Order("completed_at ASC").Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// --- users ---

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) LockUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.DB.WithContext(ctx).Create(u).Error)
}

func (s *Store) SaveUser(ctx context.Context, u *models.User) error {
	return translate(s.DB.WithContext(ctx).Save(u).Error)
}

// --- workouts ---

func (s *Store) ListWorkouts(ctx context.Context, f store.WorkoutFilter) ([]models.Workout, error) {
	q := s.DB.WithContext(ctx).Preload("CompletedBy", func(db *gorm.DB) *gorm.DB {
		return db.Order("completed_at ASC")
	})
	if f.Difficulty != "" {
		q = q.Where("difficulty = ?", f.Difficulty)
	}
	var workouts []models.Workout
	if err := q.Order("created_at ASC").Find(&workouts).Error; err != nil {
		return nil, translate(err)
	}
	// categories is a JSON column; filter here to stay dialect-neutral
	if f.Category == "" {
		return workouts, nil
	}
	out := workouts[:0]
	for i := range workouts {
		if f.Match(&workouts[i]) {
			out = append(out, workouts[i])
		}
	}
	return out, nil
}

func (s *Store) GetWorkout(ctx context.Context, id string) (*models.Workout, error) {
	var w models.Workout
	err := s.DB.WithContext(ctx).
		Preload("CompletedBy", func(db *gorm.DB) *gorm.DB {
			return db.Order("completed_at ASC")
		}).
		First(&w, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

func (s *Store) CreateWorkout(ctx context.Context, w *models.Workout) error {
	return translate(s.DB.WithContext(ctx).Omit(clause.Associations).Create(w).Error)
}

func (s *Store) SaveWorkout(ctx context.Context, w *models.Workout) error {
	return translate(s.DB.WithContext(ctx).Omit(clause.Associations).Save(w).Error)
}

func (s *Store) CreateWorkoutCompletion(ctx context.Context, wc *models.WorkoutCompletion) error {
	return translate(s.DB.WithContext(ctx).Create(wc).Error)
}

// --- achievements ---

func (s *Store) ListUserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	var out []models.UserAchievement
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("unlocked_at ASC").
		Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) CreateUserAchievement(ctx context.Context, ua *models.UserAchievement) error {
	return translate(s.DB.WithContext(ctx).Create(ua).Error)
}
