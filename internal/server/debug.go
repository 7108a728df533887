package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/internal/session"
	"github.com/hopper1357/VTT/internal/systems"
	"github.com/hopper1357/VTT/pkg/geometry"
	"github.com/hopper1357/VTT/pkg/logger"
)

// DebugHandler предоставляет доступ к внутреннему состоянию сессии.
// Все чтения идут через session.Query, то есть внутри рабочего цикла.
type DebugHandler struct {
	Session *session.Coordinator
}

func NewDebugHandler(s *session.Coordinator) *DebugHandler {
	return &DebugHandler{Session: s}
}

// RegisterRoutes регистрирует debug-эндпоинты
func (h *DebugHandler) RegisterRoutes(r chi.Router) {
	r.Route("/debug", func(r chi.Router) {
		r.Get("/maps", h.handleListMaps)
		r.Get("/maps/{name}", h.handleDumpMap)
		r.Get("/users", h.handleUsers)
		r.Get("/fov", h.handleFOV)
	})
}

// /debug/maps - список карт и количество объектов на них
func (h *DebugHandler) handleListMaps(w http.ResponseWriter, r *http.Request) {
	type MapSummary struct {
		Name        string `json:"name"`
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		Grid        string `json:"grid_type"`
		ObjectCount int    `json:"object_count"`
		IsActive    bool   `json:"is_active"`
	}

	summary, err := session.Query(r.Context(), h.Session, func(v session.View) ([]MapSummary, error) {
		store := v.Engine.State().Maps
		active := store.ActiveName()
		out := []MapSummary{}
		for _, m := range store.Maps() {
			out = append(out, MapSummary{
				Name:        m.Name,
				Width:       m.Width,
				Height:      m.Height,
				Grid:        m.Grid.String(),
				ObjectCount: len(m.Objects),
				IsActive:    m.Name == active,
			})
		}
		return out, nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, summary)
}

// /debug/maps/{name} - карта целиком, в том же формате, что и в снапшоте
func (h *DebugHandler) handleDumpMap(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := session.Query(r.Context(), h.Session, func(v session.View) ([]byte, error) {
		m, err := v.Engine.State().Maps.GetMap(name)
		if err != nil {
			return nil, err
		}
		// Сериализуем внутри цикла: после возврата карта может измениться
		return json.Marshal(m)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// /debug/users - кто подключен и кто ГМ
func (h *DebugHandler) handleUsers(w http.ResponseWriter, r *http.Request) {
	type UserView struct {
		ID       string `json:"user_id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	type UsersDump struct {
		Seq     uint64     `json:"seq"`
		Clients int        `json:"clients"`
		Users   []UserView `json:"users"`
	}

	dump, err := session.Query(r.Context(), h.Session, func(v session.View) (UsersDump, error) {
		d := UsersDump{Seq: v.Seq, Clients: v.Clients, Users: []UserView{}}
		for _, u := range v.Users.List() {
			d.Users = append(d.Users, UserView{ID: u.ID, Username: u.Username, Role: string(u.Role)})
		}
		return d, nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, dump)
}

// /debug/fov?map=cave&x=3&y=4&radius=5 - видимые клетки
func (h *DebugHandler) handleFOV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, errX := strconv.Atoi(q.Get("x"))
	y, errY := strconv.Atoi(q.Get("y"))
	radius, errR := strconv.Atoi(q.Get("radius"))
	if errX != nil || errY != nil || errR != nil {
		writeError(w, apperr.Invalid("x, y and radius must be integers"))
		return
	}

	cells, err := session.Query(r.Context(), h.Session, func(v session.View) ([]geometry.Point, error) {
		m, err := v.Engine.State().Maps.GetMap(q.Get("map"))
		if err != nil {
			return nil, err
		}
		set, err := systems.VisibleCells(m, x, y, radius)
		if err != nil {
			return nil, err
		}
		return set.Sorted(), nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, cells)
}

var statusByCode = map[apperr.Code]int{
	apperr.CodeNotFound:         http.StatusNotFound,
	apperr.CodeInvalidArgument:  http.StatusBadRequest,
	apperr.CodeMalformedMessage: http.StatusBadRequest,
	apperr.CodeDuplicateName:    http.StatusConflict,
	apperr.CodeUnauthorized:     http.StatusForbidden,
}

func writeError(w http.ResponseWriter, err error) {
	status, ok := statusByCode[apperr.CodeOf(err)]
	if !ok {
		status = http.StatusServiceUnavailable
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	// Пустой результат - пустой массив [], а не null
	if data == nil {
		_, _ = w.Write([]byte("[]"))
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.WithError(err).Warn("failed to encode debug response")
	}
}
