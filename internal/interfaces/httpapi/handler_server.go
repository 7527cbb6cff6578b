package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/rwrpulse/rwrpulse/internal/domain/gamemap"
	"github.com/rwrpulse/rwrpulse/internal/domain/server"
)

func (h *Handler) ListServers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListServers")
	defer span.End()

	items, err := h.serverService.ListServers(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list servers failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	dtos := make([]serverDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, serverToDTO(ctx, item))
	}

	writeSuccess(ctx, w, http.StatusOK, dtos)
}

func (h *Handler) GetServer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetServer")
	defer span.End()

	serverID := strings.TrimSpace(r.PathValue("serverID"))
	item, err := h.serverService.GetServer(ctx, serverID)
	if err != nil {
		h.logger.WarnContext(ctx, "get server failed", "server_id", serverID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, serverToDTO(ctx, item))
}

type serverDTO struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	IPAddress      string   `json:"ipAddress"`
	Port           int      `json:"port"`
	MapID          string   `json:"mapId"`
	MapLeaf        string   `json:"mapLeaf"`
	MapName        *string  `json:"mapName"`
	Bots           int      `json:"bots"`
	Country        string   `json:"country"`
	CurrentPlayers int      `json:"currentPlayers"`
	MaxPlayers     int      `json:"maxPlayers"`
	Occupancy      float64  `json:"occupancy"`
	TimeStamp      *int64   `json:"timeStamp"`
	Version        int      `json:"version"`
	Dedicated      bool     `json:"dedicated"`
	Mod            *string  `json:"mod"`
	PlayerList     []string `json:"playerList"`
	Comment        *string  `json:"comment"`
	URL            *string  `json:"url"`
	Mode           string   `json:"mode"`
	Realm          *string  `json:"realm"`
}

func serverToDTO(ctx context.Context, v server.Item) serverDTO {
	ctx, span := startSpan(ctx, "httpapi.serverToDTO")
	defer span.End()

	return serverDTO{
		ID:             v.ID,
		Name:           v.Name,
		IPAddress:      v.IPAddress,
		Port:           v.Port,
		MapID:          v.MapID,
		MapLeaf:        gamemap.LeafName(v.MapID),
		MapName:        v.MapName,
		Bots:           v.Bots,
		Country:        v.Country,
		CurrentPlayers: v.CurrentPlayers,
		MaxPlayers:     v.MaxPlayers,
		Occupancy:      v.Occupancy(),
		TimeStamp:      v.TimeStamp,
		Version:        v.Version,
		Dedicated:      v.Dedicated,
		Mod:            v.Mod,
		PlayerList:     append([]string(nil), v.PlayerList...),
		Comment:        v.Comment,
		URL:            v.URL,
		Mode:           v.Mode,
		Realm:          v.Realm,
	}
}
