package handlers

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

var activityUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are restricted by the CORS layer and the token check.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	activityPongWait   = 90 * time.Second
	activityPingPeriod = 30 * time.Second
	activityWriteWait  = 10 * time.Second
)

// ListActivity pages through the admin activity feed. ?before=RFC3339
// returns events older than that instant.
func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	if h.Activity == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "activity": []models.Activity{}, "has_more": false})
		return
	}
	var before *time.Time
	if v := r.URL.Query().Get("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "before must be an RFC3339 timestamp")
			return
		}
		before = &t
	}
	limit := int64(50)
	if v, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil && v > 0 {
		limit = v
	}

	ctx, cancel := h.ctx(r)
	defer cancel()
	events, hasMore, err := h.Activity.Recent(ctx, before, limit)
	if err != nil {
		log.Printf("list activity: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch activity")
		return
	}
	if events == nil {
		events = []models.Activity{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"activity": events,
		"has_more": hasMore,
	})
}

// wsConn serializes writes: the hub broadcasts from the subscriber
// goroutine while this handler sends pings.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(activityWriteWait))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(activityWriteWait))
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// ActivityWebSocket streams live activity events to an admin panel. The
// connection is receive-only; client messages are read and discarded.
func (h *Handler) ActivityWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.Hub == nil {
		writeError(w, http.StatusServiceUnavailable, "Live activity is not available")
		return
	}
	conn, err := activityUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &wsConn{conn: conn}
	id := h.Hub.Register(c)
	defer func() {
		h.Hub.Unregister(id)
		_ = c.Close()
	}()

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(activityPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := c.ping(); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadLimit(4 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(activityPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(activityPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
