package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"fitquest-api/middleware"
	"fitquest-api/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const keepAliveInterval = 15 * time.Second

// SetupEventRoutes mounts GET /events, the user's real-time room as a
// server-sent event stream.
func SetupEventRoutes(app fiber.Router, hub *services.Hub, auth fiber.Handler, logger *zap.Logger) {
	logger = logger.Named("sse")

	app.Get("/events", auth, func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no") // nginx

		sub := hub.Subscribe(userID)
		done := c.Context().Done()
		logger.Info("stream opened", zap.String("user_id", userID))

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer func() {
				sub.Close()
				logger.Info("stream closed", zap.String("user_id", userID))
			}()

			ticker := time.NewTicker(keepAliveInterval)
			defer ticker.Stop()

			fmt.Fprintf(w, "event: ready\ndata: {\"user_id\":%q}\n\n", userID)
			if err := w.Flush(); err != nil {
				return
			}

			for {
				select {
				case ev, ok := <-sub.C:
					if !ok {
						// room closed on logout
						return
					}
					payload, err := json.Marshal(ev)
					if err != nil {
						logger.Error("encode event", zap.String("event", ev.Name), zap.Error(err))
						continue
					}
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, payload)
					if err := w.Flush(); err != nil {
						// client disconnected
						return
					}

				case <-ticker.C:
					w.WriteString(":\n\n")
					if err := w.Flush(); err != nil {
						return
					}

				case <-done:
					return
				}
			}
		})
		return nil
	})
}
