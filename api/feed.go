package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	eventsdb "github.com/EmberTeam/ember-go-engine/core/events"
)

var (
	clientsMu sync.Mutex
	clients   = make(map[*websocket.Conn]bool)
	upgrader  = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
)

// FeedMessage is one websocket push: every audit event of one sealed
// height.
type FeedMessage struct {
	Height uint64          `json:"height"`
	Events eventsdb.Events `json:"events"`
}

// Feed upgrades the connection and subscribes it to the trade and
// graduation event stream.
func Feed(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("feed upgrade error", "err", err)
		return
	}

	clientsMu.Lock()
	clients[ws] = true
	clientsMu.Unlock()
}

// broadcastEvents follows the sealed height and pushes each new
// height's events to every subscriber. Runs for the life of the API.
func broadcastEvents() {
	lastSent := ember.Height()

	for {
		time.Sleep(time.Second)

		height := ember.Height()
		for lastSent < height {
			lastSent++

			events := ember.GetEventsDB().LoadEvents(lastSent)
			if len(events) == 0 {
				continue
			}

			push(FeedMessage{Height: lastSent, Events: events})
		}
	}
}

func push(msg FeedMessage) {
	clientsMu.Lock()
	defer clientsMu.Unlock()

	for client := range clients {
		if err := client.WriteJSON(msg); err != nil {
			logger.Info("feed client dropped", "err", err)
			_ = client.Close()
			delete(clients, client)
		}
	}
}
