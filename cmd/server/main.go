package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ice-ref/internal/api"
	"ice-ref/internal/config"
	"ice-ref/internal/render"
	"ice-ref/internal/rules"
	"ice-ref/internal/sim"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🏒 ================================")
	log.Println("🏒  ICE REF - RULE ENGINE")
	log.Println("🏒 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	serverCfg := appConfig.Server
	simCfg := appConfig.Sim
	renderCfg := appConfig.Render

	port := strconv.Itoa(serverCfg.Port)
	log.Printf("🎮 Config: %d TPS, render %dx%d", simCfg.TickRate, renderCfg.Width, renderCfg.Height)

	// World first, then the engine over its query surface
	rink := sim.NewRink(simCfg.TickRate)
	engine := rules.NewEngine(rink)
	rink.AttachEngine(engine)

	// Rule-event audit log
	if appConfig.EventLog.Enabled {
		if err := engine.StartEventLog(appConfig.EventLog.Path); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		} else {
			log.Printf("📝 Event log: %s", appConfig.EventLog.Path)
		}
	}

	// Start debug server
	debugCfg := api.ObservabilityConfig{
		Enabled:       appConfig.Observability.Enabled,
		ListenAddr:    appConfig.Observability.ListenAddr,
		BasicAuthUser: appConfig.Observability.BasicAuthUser,
		BasicAuthPass: appConfig.Observability.BasicAuthPass,
	}
	if err := api.StartDebugServer(debugCfg); err != nil {
		log.Printf("⚠️ Debug server disabled: %v", err)
	}

	// API server over the engine and the world
	renderer := render.NewRenderer(renderCfg.Width, renderCfg.Height)
	api.SetAllowedWSOrigins(serverCfg.CORSOrigins)
	server := api.NewServer(engine, rink, renderer)

	// Rule events fan out to WebSocket clients and metrics
	hub := server.Hub()
	engine.OnGoal = func(g rules.GoalResult) {
		log.Printf("🥅 GOAL %s (own goal: %v, scorer: %s)", g.ScoringTeam, g.IsOwnGoal, g.LastTouchedBy)
		api.RecordGoal(g.ScoringTeam.String(), g.IsOwnGoal)
		hub.Broadcast("rules:goal", g)
	}
	engine.OnOffside = func(v rules.OffsideViolation) {
		kind := "immediate"
		if v.Delayed {
			kind = "delayed"
		}
		log.Printf("🚨 OFFSIDE %s (players: %v, %s)", v.ViolatingTeam, v.ViolatingPlayerIDs, kind)
		api.RecordOffside(v.ViolatingTeam.String(), kind)
		hub.Broadcast("rules:offside", v)
	}

	// Per-tick metrics
	rink.OnTick = api.RecordTick

	// Gauges refresh on a slower cadence than the tick loop
	go func() {
		for range time.Tick(time.Second) {
			snap := rink.Snapshot()
			api.UpdateRosterSize(len(snap.Players))
			api.UpdateTrackedPlayers(len(snap.Tracked))
		}
	}()

	// Start the world and arm detection
	rink.Start()
	engine.StartMonitoring()
	log.Println("✅ Rule engine armed")

	// Start API server in goroutine
	go func() {
		addr := ":" + port
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	engine.StopMonitoring()
	rink.Stop()
	engine.StopEventLog()
	server.Stop()
	log.Println("👋 Goodbye!")
}
