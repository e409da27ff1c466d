package main

import (
	"log"

	"listpad/models"
	"listpad/web"

	"github.com/rohanthewiz/logger"
)

func main() {
	// Initialize logger
	logger.SetLogLevel("info")

	cfg, err := models.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	if cfg.EncryptionKey != "" {
		if err := models.InitEncryption(cfg.EncryptionKey); err != nil {
			log.Fatal("Failed to initialize encryption:", err)
		}
	}

	// Initialize the dual-database local store
	if err := models.InitDB(cfg.DBPath); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer models.CloseDB()

	// Restore (or mint) the client identity for this backend
	state, err := models.GetOrCreateClientState(cfg.APIURL)
	if err != nil {
		log.Fatal("Failed to load client state:", err)
	}
	logger.Info("Client state ready", "client_id", state.ClientID)

	if cfg.AuthToken != "" {
		if err := models.SetSessionToken(cfg.APIURL, cfg.AuthToken); err != nil {
			logger.LogErr(err, "failed to persist initial session token")
		}
	}
	if cfg.Username != "" {
		models.SetCurrentUser(cfg.Username)
	}

	// Wire backend client, sync engine, and connectivity monitor
	api := models.NewAPIClient(cfg.APIURL, models.CurrentToken)
	engine := models.NewSyncEngine(api)
	models.NewMonitor(engine, cfg.SyncEnabled)

	// Start the local UI server
	srv := web.NewServer(cfg.HTTPAddr)
	logger.Info("Starting ListPad client", "addr", cfg.HTTPAddr, "backend", cfg.APIURL)
	log.Fatal(web.Run(srv, cfg.HTTPAddr))
}
