package websocket

import (
	"context"
	"log"

	"listening-review/internal/models"
	"listening-review/internal/render"
	"listening-review/internal/review"
)

// screenNotifier renders each finished section and publishes it to the
// screen's sockets.
type screenNotifier struct {
	hub *Hub
	ctx context.Context
	l   render.Locale
}

func (n *screenNotifier) SectionDone(s *review.Screen, sec review.Section, err error) {
	html, rerr := n.hub.renderer.Section(n.l, s, sec)
	if rerr != nil {
		log.Printf("WebSocket: %v", rerr)
		return
	}
	n.hub.publish(n.ctx, s.ID, models.WSMessage{
		Type: models.EventSection,
		Payload: models.SectionUpdate{
			ScreenID: s.ID,
			Section:  string(sec),
			Status:   string(s.Sections[sec]),
			HTML:     string(html),
		},
	})
}

func (n *screenNotifier) StatsReady(s *review.Screen) {
	if msg, ok := statsMessage(n.hub.renderer, n.l, s); ok {
		n.hub.publish(n.ctx, s.ID, msg)
	}
	n.hub.publish(n.ctx, s.ID, completedMessage(s))
}

func statsMessage(r *render.Renderer, l render.Locale, s *review.Screen) (models.WSMessage, bool) {
	html, err := r.Stats(l, s.Stats)
	if err != nil {
		log.Printf("WebSocket: %v", err)
		return models.WSMessage{}, false
	}
	return models.WSMessage{
		Type: models.EventStats,
		Payload: models.StatsUpdate{
			ScreenID: s.ID,
			Stats:    s.Stats,
			Trend:    s.Trend,
			HTML:     string(html),
		},
	}, true
}

func completedMessage(s *review.Screen) models.WSMessage {
	return models.WSMessage{
		Type:    models.EventCompleted,
		Payload: models.CompletedEvent{ScreenID: s.ID, State: string(s.State)},
	}
}
