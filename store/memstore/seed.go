package memstore

import (
	"context"
	"time"

	"fitquest-api/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DemoPassword is the login password of the seeded demo user.
const DemoPassword = "fitquest-demo"

// DemoUserID is stable across restarts so a client can hard-code it in mock mode.
var DemoUserID = seedID("user:demo")

func seedID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("fitquest:"+name)).String()
}

// NewSeeded returns a store holding the mock dataset served when the app
// runs with DATA_SOURCE=mock or falls back from an unreachable database.
func NewSeeded() (*Store, error) {
	s := New()
	ctx := context.Background()
	now := s.now()

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	demo := &models.User{
		ID:           DemoUserID,
		Name:         "Demo Athlete",
		Email:        "demo@fitquest.app",
		PasswordHash: string(hash),
		Level:        3,
		XP:           models.XPProgress{Current: 420, Max: 1210},
		Stats:        models.UserStats{Streak: 2, Missions: 4, Badges: 1, Workouts: 6, TotalSteps: 8450},
	}
	if err := s.CreateUser(ctx, demo); err != nil {
		return nil, err
	}

	owner := DemoUserID
	activated := now.Add(-48 * time.Hour)
	missions := []models.Mission{
		{ID: seedID("mission:hydrate"), Title: "Hydration Hero", Description: "Drink 8 glasses of water every day", Category: "nutrition", Difficulty: models.DifficultyEasy, XP: 100, Duration: 7, Status: models.MissionStatusAvailable},
		{ID: seedID("mission:5k"), Title: "Run a 5K", Description: "Finish a continuous 5 kilometre run", Category: "cardio", Difficulty: models.DifficultyMedium, XP: 250, Duration: 14, Status: models.MissionStatusAvailable},
		{ID: seedID("mission:pushups"), Title: "Push-up Ladder", Description: "Reach 50 push-ups in a single set", Category: "strength", Difficulty: models.DifficultyHard, XP: 400, Duration: 30, Status: models.MissionStatusAvailable},
		{ID: seedID("mission:steps"), Title: "10K a Day", Description: "Walk 10,000 steps every day for a week", Category: "walking", Difficulty: models.DifficultyMedium, XP: 300, Duration: 7,
			IsActive: true, Progress: 40, UserID: &owner, Status: models.MissionStatusActive, ActivatedAt: &activated},
		{ID: seedID("mission:marathon"), Title: "Marathon Prep", Description: "Complete a 16 week marathon training block", Category: "cardio", Difficulty: models.DifficultyEpic, XP: 2000, Duration: 112, Status: models.MissionStatusAvailable},
	}
	for i := range missions {
		if err := s.CreateMission(ctx, &missions[i]); err != nil {
			return nil, err
		}
	}

	workouts := []models.Workout{
		{
			ID: seedID("workout:full-body"), Title: "Full Body Starter", Difficulty: models.WorkoutBeginner, Duration: 25,
			Categories: []string{"strength", "full-body"},
			Exercises: []models.Exercise{
				{Name: "Bodyweight Squat", Sets: 3, Reps: 12, RestSeconds: 60},
				{Name: "Push-up", Sets: 3, Reps: 8, RestSeconds: 60},
				{Name: "Plank", Sets: 3, Reps: 1, RestSeconds: 45},
			},
		},
		{
			ID: seedID("workout:hiit"), Title: "HIIT Burner", Difficulty: models.WorkoutIntermediate, Duration: 20,
			Categories: []string{"cardio", "hiit"},
			Exercises: []models.Exercise{
				{Name: "Burpee", Sets: 4, Reps: 10, RestSeconds: 30},
				{Name: "Mountain Climber", Sets: 4, Reps: 20, RestSeconds: 30},
				{Name: "Jump Squat", Sets: 4, Reps: 12, RestSeconds: 30},
			},
		},
		{
			ID: seedID("workout:power"), Title: "Power Lifting Block", Difficulty: models.WorkoutAdvanced, Duration: 60,
			Categories: []string{"strength"},
			Exercises: []models.Exercise{
				{Name: "Deadlift", Sets: 5, Reps: 5, RestSeconds: 180},
				{Name: "Bench Press", Sets: 5, Reps: 5, RestSeconds: 150},
			},
		},
	}
	for i := range workouts {
		if err := s.CreateWorkout(ctx, &workouts[i]); err != nil {
			return nil, err
		}
	}

	if err := s.CreateUserAchievement(ctx, &models.UserAchievement{
		ID:               seedID("achievement:demo:workout-first"),
		UserID:           DemoUserID,
		AchievementID:    "workout-first",
		ProgressAtUnlock: 1,
		XPAwarded:        50,
		UnlockedAt:       activated,
	}); err != nil {
		return nil, err
	}
	return s, nil
}
