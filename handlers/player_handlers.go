package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"swinglab-backend/apperrors"
	"swinglab-backend/models"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CreatePlayerRequest is the request body for registering a player.
type CreatePlayerRequest struct {
	Name string `json:"name"`
}

// PlayerStore is the slice of the metadata store the player endpoints
// need. *database.DB satisfies it.
type PlayerStore interface {
	CreatePlayer(ctx context.Context, player *models.Player) error
}

// PlayerHandler contains dependencies for the player API endpoints.
type PlayerHandler struct {
	db     PlayerStore
	logger *zap.Logger
}

// NewPlayerHandler creates a new player handler.
func NewPlayerHandler(db PlayerStore, logger *zap.Logger) *PlayerHandler {
	return &PlayerHandler{db: db, logger: logger}
}

// SetupPlayerRoutes registers the player API endpoints.
func SetupPlayerRoutes(router *mux.Router, h *PlayerHandler) {
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/players", h.CreatePlayerHandler()).Methods("POST")
}

// CreatePlayerHandler registers a player under the caller's tenant.
// Videos hang off players, so this seeds the ownership check made at
// upload initiation.
func (h *PlayerHandler) CreatePlayerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := tenantID(r)
		if err != nil {
			apperrors.WriteError(w, err)
			return
		}

		var req CreatePlayerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteError(w, apperrors.BadRequest("invalid request body"))
			return
		}
		if req.Name == "" {
			apperrors.WriteError(w, apperrors.BadRequest("name is required"))
			return
		}

		player := &models.Player{TenantID: tenant, Name: req.Name}
		if err := h.db.CreatePlayer(r.Context(), player); err != nil {
			apperrors.WriteError(w, apperrors.Internal("failed to create player", err))
			return
		}

		h.logger.Info("Created player",
			zap.String("player_id", player.ID), zap.String("tenant_id", tenant))

		writeJSON(w, http.StatusCreated, player)
	}
}
