package services

import "go.uber.org/zap"

// Sessions owns the per-user state that lives as long as a login:
// real-time streams, the achievement snapshot and the step detector.
type Sessions struct {
	Hub     *Hub
	Watcher *AchievementWatcher
	Steps   *StepService
	Logger  *zap.Logger
}

func NewSessions(hub *Hub, watcher *AchievementWatcher, steps *StepService, logger *zap.Logger) *Sessions {
	return &Sessions{Hub: hub, Watcher: watcher, Steps: steps, Logger: logger.Named("sessions")}
}

// End tears the session down on logout.
func (s *Sessions) End(userID string) {
	streams := s.Hub.RoomSize(userID)
	s.Hub.CloseRoom(userID)
	s.Watcher.Forget(userID)
	s.Steps.Reset(userID)
	s.Logger.Info("session ended", zap.String("user_id", userID), zap.Int("streams_closed", streams))
}
