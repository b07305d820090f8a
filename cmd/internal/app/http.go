package app

import (
	"encoding/json"
	"net/http"
	"time"

	"ripple/cmd/internal/realtime"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerHTTP mounts the monitoring surface and the websocket endpoint.
func registerHTTP(mux *http.ServeMux, a *App) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		conns, rooms := a.gw.Registry().Counts()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":        "ok",
			"connections":   conns,
			"rooms":         rooms,
			"subscriptions": a.gw.SubscriptionCount(),
		})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.ReadinessRequireDB && !a.dbEnabled {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if a.dbEnabled && a.dbPool != nil {
			if err := PingDB(r.Context(), a.dbPool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				a.log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		if a.redisEnabled && a.rdb != nil {
			if err := PingRedis(r.Context(), a.rdb, 2*time.Second); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				a.log.Info("readyz.redis.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		rooms, err := a.gw.Rooms().ListRooms(r.Context())
		if err != nil {
			a.log.Error("rooms.list.fail", "err", err)
			http.Error(w, "room listing failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		rooms, err := a.gw.Rooms().ListRooms(r.Context())
		if err != nil {
			a.log.Error("stats.rooms.fail", "err", err)
			http.Error(w, "stats failed", http.StatusInternalServerError)
			return
		}

		perRoom := make(map[string]realtime.RoomStats, len(rooms))
		for _, room := range rooms {
			st, err := a.gw.Store().Stats(r.Context(), room.ID)
			if err != nil {
				a.log.Warn("stats.room.fail", "room_id", room.ID, "err", err)
				continue
			}
			perRoom[room.ID] = st
		}

		conns, _ := a.gw.Registry().Counts()
		writeJSON(w, http.StatusOK, map[string]any{
			"instanceId":  a.gw.InstanceID(),
			"connections": conns,
			"rooms":       perRoom,
		})
	})

	mux.Handle("/metrics", promhttp.HandlerFor(a.promReg, promhttp.HandlerOpts{
		Registry: a.promReg,
	}))

	mux.Handle("/ws/{conn_id}", a.gw)
	mux.Handle("/ws", a.gw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
