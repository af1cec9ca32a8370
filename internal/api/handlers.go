package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"ice-ref/internal/rink"
	"ice-ref/internal/rules"
)

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the full Server.

// positionRequest is the common body shape for position-carrying endpoints
type positionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p positionRequest) toPosition() rink.Position {
	return rink.Position{X: p.X, Y: p.Y, Z: p.Z}
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.world.Snapshot())
}

func (h *routerHandlers) handleGetDebug(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.DebugInfo())
}

func (h *routerHandlers) handleGetZone(w http.ResponseWriter, r *http.Request) {
	var pos rink.Position
	q := r.URL.Query()
	if err := parseFloat(q.Get("x"), &pos.X); err != nil {
		writeError(w, "Invalid x coordinate", http.StatusBadRequest)
		return
	}
	if err := parseFloat(q.Get("y"), &pos.Y); err != nil {
		writeError(w, "Invalid y coordinate", http.StatusBadRequest)
		return
	}
	if err := parseFloat(q.Get("z"), &pos.Z); err != nil {
		writeError(w, "Invalid z coordinate", http.StatusBadRequest)
		return
	}

	zone := h.engine.ZoneFromPosition(pos)
	writeJSON(w, map[string]interface{}{
		"position": pos,
		"zone":     zone.String(),
	})
}

func (h *routerHandlers) handleGetFaceoffs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.AllFaceoffPositions())
}

func (h *routerHandlers) handleGetEventStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.EventStats())
}

func (h *routerHandlers) handleMonitorStart(w http.ResponseWriter, r *http.Request) {
	h.engine.StartMonitoring()
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleMonitorStop(w http.ResponseWriter, r *http.Request) {
	h.engine.StopMonitoring()
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleFaceoffReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Location *positionRequest `json:"location"`
	}
	// Empty body means reset without a seed position
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	var pos *rink.Position
	if req.Location != nil {
		p := req.Location.toPosition()
		pos = &p
	}
	h.engine.ResetAfterFaceoff(pos)
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleSetPhase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phase string `json:"phase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	phase, ok := rules.ParseGamePhase(req.Phase)
	if !ok {
		writeError(w, "Unknown phase: "+req.Phase, http.StatusBadRequest)
		return
	}
	h.world.SetPhase(phase)
	log.Printf("🕐 Phase set to %s", phase)
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handlePlayerJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string          `json:"id"`
		Team     string          `json:"team"`
		Position positionRequest `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		writeError(w, "Player id is required", http.StatusBadRequest)
		return
	}

	team, ok := rink.ParseTeam(req.Team)
	if !ok {
		writeError(w, "Unknown team: "+req.Team, http.StatusBadRequest)
		return
	}

	player, err := h.world.AddPlayer(req.ID, team, req.Position.toPosition())
	if err != nil {
		// Roster full (DoS protection)
		writeError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, player)
}

func (h *routerHandlers) handlePlayerLeave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	h.world.RemovePlayer(req.ID)
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handlePlayerMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string           `json:"id"`
		Position *positionRequest `json:"position"`
		Velocity *positionRequest `json:"velocity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Position != nil {
		h.world.MovePlayer(req.ID, req.Position.toPosition())
	}
	if req.Velocity != nil {
		h.world.SetPlayerVelocity(req.ID, req.Velocity.toPosition())
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handlePuckSpawn(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	h.world.SpawnPuck(req.toPosition())
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handlePuckMove(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	h.world.MovePuck(req.toPosition())
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handlePuckShoot(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	// A shot releases possession before the velocity takes effect
	h.world.ReleaseControl()
	h.world.SetPuckVelocity(req.toPosition())
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handlePuckControl(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	h.world.GiveControl(req.ID, time.Now())
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handlePuckRelease(w http.ResponseWriter, r *http.Request) {
	h.world.ReleaseControl()
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleRinkPNG(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		http.NotFound(w, r)
		return
	}

	started := time.Now()
	png, err := h.renderer.RenderPNG(h.world.Snapshot())
	if err != nil {
		writeError(w, "Render failed", http.StatusInternalServerError)
		return
	}
	RecordRender(time.Since(started))

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func parseFloat(s string, out *float64) error {
	return json.Unmarshal([]byte(s), out)
}
