// Command pokersrv runs a single process hosting any number of
// real-time Texas Hold'em tables: one websocket listener, one
// TableRegistry, and one sqlite-backed settlement ledger.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/coder/quartz"
	"github.com/decred/slog"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/riverrake/holdem/pkg/engine"
	"github.com/riverrake/holdem/pkg/ledger"
	"github.com/riverrake/holdem/pkg/registry"
	"github.com/riverrake/holdem/pkg/server"
)

var (
	listenAddr  string
	dbPath      string
	smallBlind  int64
	bigBlind    int64
	rakePercent int64
	turnTimeout int64
	maxSeats    int
	buyIn       int64
	debugLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "pokersrv",
	Short: "Hosts real-time Texas Hold'em cash-game tables over websocket",
	Long: `pokersrv serves the per-table game core (hand lifecycle, betting
rounds, side pots, showdown) to seated clients over a websocket
connection per seat. Tables are created on first join; settlements are
persisted to a local sqlite ledger as they complete.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:8777", "address to listen on")
	rootCmd.Flags().StringVar(&dbPath, "db", "pokersrv.sqlite", "path to the sqlite settlement ledger")
	rootCmd.Flags().Int64Var(&smallBlind, "small-blind", 5, "small blind, in chip minor units")
	rootCmd.Flags().Int64Var(&bigBlind, "big-blind", 10, "big blind, in chip minor units")
	rootCmd.Flags().Int64Var(&rakePercent, "rake-percent", 3, "rake percentage, 1-100 (0 selects the default 3)")
	rootCmd.Flags().Int64Var(&turnTimeout, "turn-timeout", 30, "seconds before an idle actor is auto-folded")
	rootCmd.Flags().IntVar(&maxSeats, "max-seats", 9, "seats per table, 2-10")
	rootCmd.Flags().Int64Var(&buyIn, "buy-in", 10000, "default starting stack for a seat joining a fresh table")
	rootCmd.Flags().StringVar(&debugLevel, "debuglevel", "info", "logging level: trace, debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	backend := slog.NewBackend(os.Stdout)
	log := backend.Logger("POKERSRV")
	level, ok := slog.LevelFromString(debugLevel)
	if !ok {
		level = slog.LevelInfo
	}
	log.SetLevel(level)

	store, err := ledger.Open(dbPath)
	if err != nil {
		return fmt.Errorf("pokersrv: open ledger: %w", err)
	}
	defer store.Close()

	clock := quartz.NewReal()
	bridge := registry.NewBridge(backend.Logger("BRIDGE"))
	reg := registry.NewTableRegistry(bridge, clock, backend.Logger("REGISTRY"))
	facade := server.NewFacade(reg)

	cfg := engine.Config{
		SmallBlind:         smallBlind,
		BigBlind:           bigBlind,
		RakePercent:        rakePercent,
		TurnTimeoutSeconds: turnTimeout,
		MaxSeats:           maxSeats,
	}

	h := &httpHandlers{
		facade:  facade,
		bridge:  bridge,
		store:   store,
		cfg:     cfg,
		log:     log,
		started: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.HandleFunc("/start", h.handleStartHand)

	log.Infof("listening on %s", listenAddr)
	return http.ListenAndServe(listenAddr, mux)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type httpHandlers struct {
	facade *server.Facade
	bridge *registry.Bridge
	store  *ledger.Ledger
	cfg    engine.Config
	log    slog.Logger

	started map[string]bool
}

// ensureTable creates tableID on first sight and wires its settlement
// stream to the sqlite ledger (SPEC_FULL.md §6.2); later calls for the
// same table are no-ops.
func (h *httpHandlers) ensureTable(tableID string) {
	if h.started[tableID] {
		return
	}
	if err := h.facade.CreateTable(tableID, h.cfg); err != nil {
		return // already created by a racing request; fine
	}
	h.started[tableID] = true

	settlements, err := h.facade.SettlementStream(tableID)
	if err != nil {
		h.log.Errorf("pokersrv: settlement stream for %s: %v", tableID, err)
		return
	}
	go h.persistSettlements(tableID, settlements)
}

func (h *httpHandlers) persistSettlements(tableID string, settlements <-chan engine.SettlementRecord) {
	for rec := range settlements {
		handID, err := h.store.Record(tableID, rec, time.Now())
		if err != nil {
			h.log.Errorf("pokersrv: persist settlement for %s: %v", tableID, err)
			continue
		}
		h.log.Infof("pokersrv: table %s hand %s settled: %d winners, rake %d, aborted=%v",
			tableID, handID, len(rec.Winners), rec.Rake, rec.Aborted)
	}
}

// handleWebSocket upgrades the connection and joins it to a table
// seat named by the "table" and "seat" query parameters, seating the
// player with the configured default buy-in if not already seated.
func (h *httpHandlers) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	tableID := r.URL.Query().Get("table")
	seat := queryInt(r, "seat", 0)
	if tableID == "" || seat <= 0 {
		http.Error(w, "table and seat query parameters are required", http.StatusBadRequest)
		return
	}

	h.ensureTable(tableID)
	if err := h.facade.AttachSeat(tableID, seat, buyIn); err != nil {
		if _, ok := err.(*engine.SeatTakenError); !ok {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("pokersrv: websocket upgrade failed: %v", err)
		return
	}

	h.bridge.Join(tableID, seat, conn, func(msg registry.ActionMessage) {
		kind, err := engine.ParseActionKind(msg.Kind)
		if err != nil {
			h.log.Warnf("pokersrv: table %s seat %d: %v", tableID, seat, err)
			return
		}
		if err := h.facade.SubmitAction(tableID, seat, kind, msg.Amount); err != nil {
			h.log.Debugf("pokersrv: table %s seat %d action rejected: %v", tableID, seat, err)
		}
	})
}

// handleStartHand is the HTTP stand-in for the external lobby's
// "start a hand now" trigger (spec.md §2's coarse external signal).
func (h *httpHandlers) handleStartHand(w http.ResponseWriter, r *http.Request) {
	tableID := r.URL.Query().Get("table")
	if tableID == "" {
		http.Error(w, "table query parameter is required", http.StatusBadRequest)
		return
	}
	outcome, err := h.facade.StartHand(tableID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"table_id": tableID,
		"outcome":  startOutcomeString(outcome),
	})
}

func startOutcomeString(o engine.HandOutcome) string {
	switch o {
	case engine.Started:
		return "Started"
	case engine.NotEnoughPlayers:
		return "NotEnoughPlayers"
	case engine.HandInProgress:
		return "HandInProgress"
	default:
		return "Unknown"
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	return n
}
