package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/okankilic/LisconVT-sub001/internal/models"
	"github.com/okankilic/LisconVT-sub001/internal/storage"
)

// ========== Auth handlers ==========

// HandleLogin handles user login
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !s.auth.VerifyPassword(req.Password, user.PasswordHash) {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !user.IsActive {
		s.respondError(w, http.StatusForbidden, "account is disabled")
		return
	}

	accessToken, refreshToken, err := s.auth.GenerateTokenPair(user)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(time.Duration(s.config.JWT.AccessTokenTTL).Seconds()),
		"token_type":    "Bearer",
	})
}

// HandleRefresh handles token refresh
func (s *RESTServer) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := s.auth.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	accessToken, refreshToken, err := s.auth.GenerateTokenPair(user)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(time.Duration(s.config.JWT.AccessTokenTTL).Seconds()),
		"token_type":    "Bearer",
	})
}

// ========== Device handlers ==========

// HandleListDevices lists devices
func (s *RESTServer) HandleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	devices, total, err := s.store.ListDevices(ctx, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"devices": devices,
		"total":   total,
	})
}

// HandleCreateDevice creates a device
func (s *RESTServer) HandleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID    string `json:"deviceId" validate:"required,min=3,max=32"`
		Name        string `json:"name" validate:"required,min=3,max=100"`
		Description string `json:"description"`
		DeviceType  string `json:"deviceType"`
		Plate       string `json:"plate"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	device := &models.Device{
		DeviceID:    req.DeviceID,
		Name:        req.Name,
		Description: req.Description,
		DeviceType:  req.DeviceType,
		Plate:       req.Plate,
	}

	if err := s.store.CreateDevice(r.Context(), device); err != nil {
		if err == storage.ErrDuplicateKey {
			s.respondError(w, http.StatusConflict, "device already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, device)
}

// HandleGetDevice gets a device
func (s *RESTServer) HandleGetDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "device_id")

	device, err := s.store.GetDevice(r.Context(), deviceID)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "device not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, device)
}

// HandleUpdateDevice updates a device
func (s *RESTServer) HandleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := chi.URLParam(r, "device_id")

	var req struct {
		Name        string `json:"name" validate:"required,min=3,max=100"`
		Description string `json:"description"`
		DeviceType  string `json:"deviceType"`
		Plate       string `json:"plate"`
		IsDisabled  bool   `json:"isDisabled"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	device, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "device not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	device.Name = req.Name
	device.Description = req.Description
	device.DeviceType = req.DeviceType
	device.Plate = req.Plate
	device.IsDisabled = req.IsDisabled

	if err := s.store.UpdateDevice(ctx, device); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, device)
}

// HandleDeleteDevice deletes a device
func (s *RESTServer) HandleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "device_id")

	if err := s.store.DeleteDevice(r.Context(), deviceID); err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "device not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleGetDeviceRuntime gets the last persisted runtime snapshot
func (s *RESTServer) HandleGetDeviceRuntime(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "device_id")

	rt, err := s.store.GetRuntime(r.Context(), deviceID)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "runtime not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, rt)
}

// HandleListGPSLogs lists a device's stored GPS fixes
func (s *RESTServer) HandleListGPSLogs(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "device_id")

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 100
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	logs, total, err := s.store.ListGPSLogs(r.Context(), deviceID, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
	})
}

// HandleListDeviceAlarms lists a device's stored alarms
func (s *RESTServer) HandleListDeviceAlarms(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "device_id")

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	alarms, total, err := s.store.ListAlarms(r.Context(), deviceID, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"alarms": alarms,
		"total":  total,
	})
}

// HandleGetMediaStatus reports whether the device has a negotiated media
// session
func (s *RESTServer) HandleGetMediaStatus(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "device_id")

	_, connected := s.media.Session(deviceID)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"deviceId":  deviceID,
		"connected": connected,
	})
}

// ========== Command handlers ==========

// HandlePushConfig pushes configuration parameters to a live device
func (s *RESTServer) HandlePushConfig(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "device_id")

	var req struct {
		Params []string `json:"params" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !s.gateway.PushConfig(deviceID, req.Params) {
		s.respondError(w, http.StatusConflict, "device is offline")
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"deviceId": deviceID,
		"params":   len(req.Params),
	})
}

// HandleVideoControl starts or stops a device's video stream
func (s *RESTServer) HandleVideoControl(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "device_id")

	var req struct {
		Start   bool `json:"start"`
		Channel int  `json:"channel"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !s.gateway.VideoControl(deviceID, req.Start, req.Channel) {
		s.respondError(w, http.StatusConflict, "device is offline")
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"deviceId": deviceID,
		"start":    req.Start,
		"channel":  req.Channel,
	})
}

// ========== Session and alarm handlers ==========

// HandleListSessions lists live device sessions
func (s *RESTServer) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.gateway.Sessions().Snapshot()

	out := make([]*models.DeviceRuntime, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.Runtime())
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": out,
		"total":    len(out),
	})
}

// HandleListAlarms lists alarms tracked since the gateway started
func (s *RESTServer) HandleListAlarms(w http.ResponseWriter, r *http.Request) {
	alarms := s.gateway.Alarms().List()

	open := r.URL.Query().Get("open") == "true"
	if open {
		filtered := alarms[:0]
		for _, a := range alarms {
			if !a.Closed() {
				filtered = append(filtered, a)
			}
		}
		alarms = filtered
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"alarms": alarms,
		"total":  len(alarms),
	})
}

// ========== Event handlers ==========

// HandleListEvents lists event logs
func (s *RESTServer) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var filters storage.EventLogFilters

	if deviceID := r.URL.Query().Get("device_id"); deviceID != "" {
		filters.DeviceID = &deviceID
	}
	if typ := r.URL.Query().Get("type"); typ != "" {
		t := models.EventType(typ)
		filters.Type = &t
	}
	if level := r.URL.Query().Get("level"); level != "" {
		l := models.EventLevel(level)
		filters.Level = &l
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 50
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	events, total, err := s.store.ListEventLogs(ctx, filters, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  total,
	})
}

// ========== Helper methods ==========

// HandleHealth health check
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// HandleRoot root handler
func (s *RESTServer) HandleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": s.config.Server.Name,
		"version": s.config.Server.Version,
		"health":  "/api/v1/health",
	})
}

// respondJSON responds with JSON
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError responds with error
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}
