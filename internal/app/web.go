package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/si6gma/laserturret/internal/config"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// wsCommand is one control message from a websocket client.
type wsCommand struct {
	Action string  `json:"action"` // manual, manual_off, center, toggle_stab, toggle_track
	Pitch  float64 `json:"pitch,omitempty"`
	Yaw    float64 `json:"yaw,omitempty"`
}

// RunWeb serves the JSON control API, a websocket status stream and
// the static dashboard. It blocks until the listener fails.
func RunWeb(cfg *config.Config, ctrl *Controller) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(ctrl.Status()); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	mux.HandleFunc("/api/manual", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Pitch float64 `json:"pitch"`
			Yaw   float64 `json:"yaw"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}
		ctrl.SetManualPosition(req.Pitch, req.Yaw)
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/api/manual/disable", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		ctrl.DisableManual()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/api/toggle/stabilization", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, map[string]bool{"enabled": ctrl.ToggleStabilization()})
	})

	mux.HandleFunc("/api/toggle/tracking", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, map[string]bool{"enabled": ctrl.ToggleTracking()})
	})

	mux.HandleFunc("/api/center", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		if err := ctrl.Center(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		handleWS(w, r, ctrl)
	})

	// Static dashboard from ./web as the root
	mux.Handle("/", http.FileServer(http.Dir("web")))

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// handleWS pushes status snapshots to the client and applies control
// commands it sends back.
func handleWS(w http.ResponseWriter, r *http.Request, ctrl *Controller) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	done := make(chan struct{})

	// Reader: control commands from the client.
	go func() {
		defer close(done)
		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			switch cmd.Action {
			case "manual":
				ctrl.SetManualPosition(cmd.Pitch, cmd.Yaw)
			case "manual_off":
				ctrl.DisableManual()
			case "center":
				if err := ctrl.Center(); err != nil {
					log.Printf("web: center error: %v", err)
				}
			case "toggle_stab":
				ctrl.ToggleStabilization()
			case "toggle_track":
				ctrl.ToggleTracking()
			default:
				log.Printf("web: unknown websocket action %q", cmd.Action)
			}
		}
	}()

	// Writer: status stream.
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteJSON(ctrl.Status()); err != nil {
				return
			}
		}
	}
}
