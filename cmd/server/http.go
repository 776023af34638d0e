package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"loopclaim.app/internal/persistence/indexdb"
	"loopclaim.app/internal/sim/world"
	"loopclaim.app/internal/transport/natsbus"
	"loopclaim.app/internal/transport/ws"
)

type httpDeps struct {
	World       *world.World
	WS          *ws.Server
	Sinks       *runtimeSinks
	EnableAdmin bool
}

func newMux(d httpDeps, logger *log.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, d)
	})

	wsHandler := d.WS.Handler()
	mux.HandleFunc("/v1/ws", wsHandler)
	mux.HandleFunc("/socket", wsHandler)

	if !d.EnableAdmin {
		logger.Printf("admin endpoints disabled (LOOPCLAIM_ENABLE_ADMIN_HTTP=false)")
		return mux
	}
	// Local-only admin endpoints.
	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		st, err := d.World.RequestState(ctx)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(st)
	})
	mux.HandleFunc("/admin/v1/history", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		if d.Sinks == nil || d.Sinks.index == nil {
			http.Error(rw, "history index disabled", http.StatusServiceUnavailable)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		events, err := d.Sinks.index.History(r.Context(), limit)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		leaders, err := d.Sinks.index.Leaderboard(r.Context(), 20)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(struct {
			Events      []indexdb.EventRow  `json:"events"`
			Leaderboard []indexdb.LeaderRow `json:"leaderboard"`
		}{events, leaders})
	})
	return mux
}

// writeMetrics renders a minimal Prometheus exposition.
func writeMetrics(rw http.ResponseWriter, d httpDeps) {
	m := d.World.Metrics()

	gauge := func(name, help string, v int) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
		fmt.Fprintf(rw, "%s %d\n", name, v)
	}
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s counter\n", name)
		fmt.Fprintf(rw, "%s %d\n", name, v)
	}

	gauge("loopclaim_players", "Registered players.", m.Players)
	gauge("loopclaim_connections", "Connections attached to the world.", m.Connections)
	gauge("loopclaim_territories", "Claimed territories.", m.Territories)
	gauge("loopclaim_active_races", "Races in progress.", m.ActiveRaces)
	gauge("loopclaim_inbox_depth", "World inbox backlog.", m.InboxDepth)

	counter("loopclaim_inputs_total", "Inputs processed by the world loop.", m.Processed)
	counter("loopclaim_joins_total", "Processed joins.", m.Joins)
	counter("loopclaim_leaves_total", "Removed players.", m.Leaves)
	counter("loopclaim_conquests_total", "Created territories.", m.Conquests)
	counter("loopclaim_transfers_total", "Ownership transfers.", m.Transfers)
	counter("loopclaim_frames_sent_total", "Frames queued to connections.", m.Sent)
	counter("loopclaim_evictions_total", "Connections evicted for a full outbound queue.", m.Evicted)

	codes := make([]string, 0, len(m.Rejected))
	for c := range m.Rejected {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	fmt.Fprintf(rw, "# HELP loopclaim_rejected_total Inputs dropped by the world, by code.\n")
	fmt.Fprintf(rw, "# TYPE loopclaim_rejected_total counter\n")
	for _, c := range codes {
		fmt.Fprintf(rw, "loopclaim_rejected_total{code=%q} %d\n", c, m.Rejected[c])
	}

	if d.WS != nil {
		st := d.WS.Stats()
		gauge("loopclaim_ws_active", "Open websocket connections.", int(st.Active))
		counter("loopclaim_ws_accepted_total", "Accepted websocket connections.", st.Accepted)
		fmt.Fprintf(rw, "# HELP loopclaim_ws_dropped_total Inbound frames dropped before the world, by reason.\n")
		fmt.Fprintf(rw, "# TYPE loopclaim_ws_dropped_total counter\n")
		fmt.Fprintf(rw, "loopclaim_ws_dropped_total{reason=%q} %d\n", "rate", st.DroppedRate)
		fmt.Fprintf(rw, "loopclaim_ws_dropped_total{reason=%q} %d\n", "decode", st.DroppedDecode)
		fmt.Fprintf(rw, "loopclaim_ws_dropped_total{reason=%q} %d\n", "version", st.DroppedVersion)
		fmt.Fprintf(rw, "loopclaim_ws_dropped_total{reason=%q} %d\n", "schema", st.DroppedSchema)
	}

	if d.Sinks != nil && d.Sinks.index != nil {
		writeIndexMetrics(rw, d.Sinks.index.Stats())
	}
	if d.Sinks != nil && d.Sinks.nats != nil {
		writeNATSMetrics(rw, d.Sinks.nats.Stats())
	}
}

func writeIndexMetrics(rw http.ResponseWriter, s indexdb.Stats) {
	fmt.Fprintf(rw, "# HELP loopclaim_index_queue_depth History index queue depth.\n")
	fmt.Fprintf(rw, "# TYPE loopclaim_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "loopclaim_index_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP loopclaim_index_rows_total History index rows by outcome.\n")
	fmt.Fprintf(rw, "# TYPE loopclaim_index_rows_total counter\n")
	fmt.Fprintf(rw, "loopclaim_index_rows_total{outcome=%q} %d\n", "written", s.Written)
	fmt.Fprintf(rw, "loopclaim_index_rows_total{outcome=%q} %d\n", "dropped", s.Dropped)
	fmt.Fprintf(rw, "loopclaim_index_rows_total{outcome=%q} %d\n", "failed", s.Failed)
}

func writeNATSMetrics(rw http.ResponseWriter, s natsbus.Stats) {
	fmt.Fprintf(rw, "# HELP loopclaim_nats_messages_total Journal entries published to NATS by outcome.\n")
	fmt.Fprintf(rw, "# TYPE loopclaim_nats_messages_total counter\n")
	fmt.Fprintf(rw, "loopclaim_nats_messages_total{outcome=%q} %d\n", "published", s.Published)
	fmt.Fprintf(rw, "loopclaim_nats_messages_total{outcome=%q} %d\n", "failed", s.Failed)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
