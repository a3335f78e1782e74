package main

import (
	"os"
	"time"

	"github.com/1804crypto/protect-the-streams-sub000/internal/api"
	"github.com/1804crypto/protect-the-streams-sub000/internal/channel"
	"github.com/1804crypto/protect-the-streams-sub000/internal/config"
	"github.com/1804crypto/protect-the-streams-sub000/internal/constants"
	"github.com/1804crypto/protect-the-streams-sub000/internal/logging"
	"github.com/1804crypto/protect-the-streams-sub000/internal/service"
	"github.com/1804crypto/protect-the-streams-sub000/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load the game configuration file (required). Path may be provided via
	// PTS_CONFIG env var or defaults to ./pts_config.json in the current
	// working directory.
	configPath := os.Getenv(constants.EnvConfigPath)
	if configPath == "" {
		configPath = "./pts_config.json"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logging.Fatal("Missing or invalid game configuration", err, logging.Fields{"config_path": configPath, "hint": "create a pts_config.json with 'streamer_list', 'mission_list' and 'item_list' arrays and optional keys: server.address, difficulty_multiplier, stale_match_minutes"})
	}

	// Allow the DB path to be configured via PTS_DB. Default to a `data/`
	// directory inside the backend module for local development.
	dbPath := os.Getenv(constants.EnvDBPath)
	if dbPath == "" {
		dbPath = "./data/pts.db"
	}
	db, err := storage.OpenDB(dbPath)
	if err != nil {
		logging.Fatal("Failed to initialize database", err, nil)
	}

	repo := storage.NewSQLiteRepository(db)
	inventory := service.NewMemoryInventory(map[string]int{
		"energy_drink":    2,
		"signal_repeater": 1,
	})
	hub := channel.NewHub(channel.Deps{Repo: repo, Config: cfg, Inventory: inventory})
	handler := api.NewHandler(repo, cfg, hub, inventory)

	// Background sweeper: void ACTIVE matches nobody has touched within the
	// configured TTL, refunding both escrowed wagers. This is the server-side
	// backstop behind the clients' own disconnect timers.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			service.ExpireStaleMatches(repo, time.Now(), cfg.StaleMatchTTL)
		}
	}()

	router := gin.Default()

	apiRoutes := router.Group(constants.RouteAPIPrefix)
	{
		// Public endpoints
		apiRoutes.GET(constants.RouteStreamers, handler.ListStreamers)
		apiRoutes.GET(constants.RouteItems, handler.ListItems)
		apiRoutes.GET(constants.RouteLeaderboard, handler.ListLeaderboard)
		apiRoutes.GET("/version", api.Version)
		apiRoutes.POST(constants.RouteSession, handler.CreateSession)

		// Authenticated endpoints
		protected := apiRoutes.Group("")
		protected.Use(api.AuthRequired())

		protected.DELETE(constants.RouteSession, handler.DeleteSession)
		protected.GET(constants.RouteProfile, handler.GetProfile)
		protected.GET(constants.RouteItems+"/inventory", handler.GetInventory)
		protected.POST(constants.RouteMatches, handler.CreateMatch)
		protected.GET(constants.RouteMatchByID, handler.GetMatch)
		protected.POST(constants.RouteMatchMove, handler.SubmitMove)
		protected.POST(constants.RouteMissions, handler.CompleteMission)
		protected.GET(constants.RouteMissions, handler.MissionProgress)
		protected.GET(constants.RouteMissionByID, handler.GetMission)
		protected.GET(constants.RouteChannelSocket, handler.ChannelSocket)
	}

	// Start server on configured address
	addr := cfg.ServerAddress
	logging.Info("Server started", logging.Fields{constants.LogFieldAddr: addr})
	if err := router.Run(addr); err != nil {
		logging.Fatal("Failed to start server", err, nil)
	}
}
