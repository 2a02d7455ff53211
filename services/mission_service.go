package services

import (
	"context"
	"strings"
	"time"

	"fitquest-api/models"
	"fitquest-api/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type MissionService struct {
	Store  store.Store
	Events Notifier
	Stats  StatsObserver // optional
	Logger *zap.Logger
	Now    func() time.Time
}

func NewMissionService(st store.Store, events Notifier, logger *zap.Logger) *MissionService {
	return &MissionService{Store: st, Events: events, Logger: logger.Named("missions"), Now: time.Now}
}

type CreateMissionInput struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Difficulty  models.Difficulty `json:"difficulty"`
	XP          int64             `json:"xp"`
	Duration    int               `json:"duration"`
	UserID      *string           `json:"user_id"`
	IsActive    bool              `json:"is_active"`
}

// MissionPatch carries the optional fields of a partial update. XP is not
// patchable: the reward is fixed at creation.
type MissionPatch struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Category    *string            `json:"category"`
	Difficulty  *models.Difficulty `json:"difficulty"`
	Duration    *int               `json:"duration"`
	IsActive    *bool              `json:"is_active"`
	UserID      *string            `json:"user_id"`
	Progress    *int               `json:"progress"`
}

// MissionResult is what an update returns. Completed and User are set only
// when the update was the completion transition.
type MissionResult struct {
	Mission   *models.Mission          `json:"mission"`
	Completed *models.CompletedMission `json:"completed_mission,omitempty"`
	User      *models.User             `json:"user,omitempty"`
}

// normalizeCategory trims a tag and rejects one with no matchable content.
func normalizeCategory(raw string) (string, error) {
	c := strings.TrimSpace(raw)
	if models.CategoryKey(c) == "" {
		return "", invalid("category", "is required")
	}
	return c, nil
}

func (s *MissionService) List(ctx context.Context, f store.MissionFilter) ([]models.Mission, error) {
	if f.UserID != nil {
		if err := requireID("user_id", *f.UserID); err != nil {
			return nil, err
		}
	}
	missions, err := s.Store.ListMissions(ctx, f)
	if err != nil {
		return nil, storeErr("list missions", "mission", "", err)
	}
	return missions, nil
}

func (s *MissionService) Get(ctx context.Context, id string) (*models.Mission, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	m, err := s.Store.GetMission(ctx, id)
	if err != nil {
		return nil, storeErr("get mission", "mission", id, err)
	}
	return m, nil
}

func (s *MissionService) Create(ctx context.Context, in CreateMissionInput) (*models.Mission, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title", "is required")
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, invalid("description", "is required")
	}
	if in.XP <= 0 {
		return nil, invalid("xp", "must be greater than 0")
	}
	if err := checkReward("xp", in.XP); err != nil {
		return nil, err
	}
	if in.Duration <= 0 {
		return nil, invalid("duration", "must be greater than 0")
	}
	category, err := normalizeCategory(in.Category)
	if err != nil {
		return nil, err
	}
	difficulty := in.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}
	if !difficulty.Valid() {
		return nil, invalid("difficulty", "must be one of easy, medium, hard, epic")
	}

	m := &models.Mission{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Category:    category,
		Difficulty:  difficulty,
		XP:          in.XP,
		Duration:    in.Duration,
		Status:      models.MissionStatusAvailable,
	}

	if in.UserID != nil {
		if err := requireID("user_id", *in.UserID); err != nil {
			return nil, err
		}
		if _, err := s.Store.GetUser(ctx, *in.UserID); err != nil {
			return nil, storeErr("get user", "user", *in.UserID, err)
		}
		owner := *in.UserID
		m.UserID = &owner
	} else if in.IsActive {
		return nil, invalid("user_id", "is required for an active mission")
	}
	if in.IsActive {
		now := s.Now()
		m.IsActive = true
		m.Status = models.MissionStatusActive
		m.ActivatedAt = &now
	}

	if err := s.Store.CreateMission(ctx, m); err != nil {
		return nil, storeErr("create mission", "mission", m.ID, err)
	}
	s.Logger.Info("mission created", zap.String("mission_id", m.ID), zap.String("user_id", m.OwnerID()))
	s.Events.Emit(m.OwnerID(), EventMissionCreated, m)
	return m, nil
}

// Accept activates a mission for a user. An empty userID keeps the
// current owner.
func (s *MissionService) Accept(ctx context.Context, id, userID string) (*MissionResult, error) {
	active := true
	patch := MissionPatch{IsActive: &active}
	if userID != "" {
		patch.UserID = &userID
	}
	return s.Update(ctx, id, patch)
}

func (s *MissionService) UpdateProgress(ctx context.Context, id string, progress int) (*MissionResult, error) {
	return s.Update(ctx, id, MissionPatch{Progress: &progress})
}

func validatePatch(p *MissionPatch) error {
	if p.Progress != nil && (*p.Progress < 0 || *p.Progress > models.MaxProgress) {
		return invalid("progress", "must be between 0 and %d", models.MaxProgress)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return invalid("title", "must not be empty")
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return invalid("description", "must not be empty")
	}
	if p.Difficulty != nil && !p.Difficulty.Valid() {
		return invalid("difficulty", "must be one of easy, medium, hard, epic")
	}
	if p.Duration != nil && *p.Duration <= 0 {
		return invalid("duration", "must be greater than 0")
	}
	if p.UserID != nil {
		if err := requireID("user_id", *p.UserID); err != nil {
			return err
		}
	}
	return nil
}

// Update applies a partial update. When progress moves from below 100 to
// 100 on an owned mission, the same transaction appends the ledger record,
// bumps the owner's mission count and streak, and awards the mission XP.
// Completion is detected by that transition, so resending progress=100
// never completes twice.
func (s *MissionService) Update(ctx context.Context, id string, patch MissionPatch) (*MissionResult, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	if err := validatePatch(&patch); err != nil {
		return nil, err
	}

	now := s.Now()
	res := &MissionResult{}
	var activated bool

	err := s.Store.Transaction(ctx, func(tx store.Store) error {
		m, err := tx.LockMission(ctx, id)
		if err != nil {
			return storeErr("load mission", "mission", id, err)
		}
		prevProgress := m.Progress
		wasActive := m.IsActive

		if patch.Title != nil {
			m.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			m.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Category != nil {
			if m.Category, err = normalizeCategory(*patch.Category); err != nil {
				return err
			}
		}
		if patch.Difficulty != nil {
			m.Difficulty = *patch.Difficulty
		}
		if patch.Duration != nil {
			m.Duration = *patch.Duration
		}
		if patch.UserID != nil && *patch.UserID != m.OwnerID() {
			if m.Completed() {
				return invalid("user_id", "cannot reassign a completed mission")
			}
			if _, err := tx.GetUser(ctx, *patch.UserID); err != nil {
				return storeErr("get user", "user", *patch.UserID, err)
			}
			owner := *patch.UserID
			m.UserID = &owner
		}
		if patch.IsActive != nil {
			m.IsActive = *patch.IsActive
			if m.IsActive && m.UserID == nil {
				return invalid("user_id", "is required to accept a mission")
			}
			if !m.Completed() {
				if m.IsActive {
					m.Status = models.MissionStatusActive
					if !wasActive {
						m.ActivatedAt = &now
					}
				} else {
					m.Status = models.MissionStatusAvailable
				}
			}
		}
		activated = m.IsActive && !wasActive

		if patch.Progress != nil {
			if prevProgress >= models.MaxProgress && *patch.Progress < models.MaxProgress {
				return invalid("progress", "mission already completed; progress cannot go back")
			}
			m.Progress = *patch.Progress
			if m.Progress == models.MaxProgress && prevProgress < models.MaxProgress && m.UserID != nil {
				cm, u, err := s.complete(ctx, tx, m, now)
				if err != nil {
					return err
				}
				res.Completed, res.User = cm, u
			}
		}

		if err := tx.SaveMission(ctx, m); err != nil {
			return storeErr("save mission", "mission", id, err)
		}
		res.Mission = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	owner := res.Mission.OwnerID()
	switch {
	case res.Completed != nil:
		s.Logger.Info("mission completed",
			zap.String("mission_id", id),
			zap.String("user_id", owner),
			zap.Int64("xp", res.Completed.XP),
			zap.Int("level", res.User.Level))
		s.Events.Emit(owner, EventMissionCompleted, res)
		if s.Stats != nil {
			s.Stats.StatsChanged(ctx, res.User)
		}
	case activated:
		s.Events.Emit(owner, EventMissionActivated, res.Mission)
	default:
		s.Events.Emit(owner, EventMissionUpdated, res.Mission)
	}
	return res, nil
}

// complete runs the completion side effects inside tx.
func (s *MissionService) complete(ctx context.Context, tx store.Store, m *models.Mission, now time.Time) (*models.CompletedMission, *models.User, error) {
	owner := m.OwnerID()
	cm := &models.CompletedMission{
		ID:            uuid.NewString(),
		UserID:        owner,
		MissionID:     m.ID,
		Source:        models.CompletionSourceMission,
		CompletionKey: models.MissionCompletionKey(m.ID),
		Title:         m.Title,
		Description:   m.Description,
		Difficulty:    string(m.Difficulty),
		XP:            m.XP,
		Category:      m.Category,
		CompletedAt:   now,
	}
	if err := tx.CreateCompletedMission(ctx, cm); err != nil {
		return nil, nil, storeErr("record completion", "mission", m.ID, err)
	}

	u, err := tx.LockUser(ctx, owner)
	if err != nil {
		return nil, nil, storeErr("load user", "user", owner, err)
	}
	u.Stats.Missions++
	touchStreak(u, now)
	applyXP(u, m.XP, now)
	if err := tx.SaveUser(ctx, u); err != nil {
		return nil, nil, storeErr("save user", "user", owner, err)
	}

	m.Status = models.MissionStatusCompleted
	m.CompletedAt = &now
	return cm, u, nil
}

func (s *MissionService) Delete(ctx context.Context, id string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	m, err := s.Store.GetMission(ctx, id)
	if err != nil {
		return storeErr("get mission", "mission", id, err)
	}
	if err := s.Store.DeleteMission(ctx, id); err != nil {
		return storeErr("delete mission", "mission", id, err)
	}
	s.Logger.Info("mission deleted", zap.String("mission_id", id))
	s.Events.Emit(m.OwnerID(), EventMissionDeleted, map[string]string{"id": id})
	return nil
}
