package cmd

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"songdrop/config"
	"songdrop/handlers"
	"songdrop/library"
	"songdrop/middleware"
	"songdrop/services"
	"songdrop/websocket"
)

// StartServer runs the LAN upload listener and its control API until the
// process is signalled.
func StartServer(port int) {
	// Set production mode if not specified
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize services
	hub := websocket.NewHub()
	go hub.Run()

	lib, err := library.NewDiskLibrary(config.GetLibraryLocation())
	if err != nil {
		log.Fatalf("Failed to open library: %v", err)
	}

	inbox, err := services.NewInbox(config.GetStagingLocation(), config.GetNameLimit())
	if err != nil {
		log.Fatalf("Failed to open staging directory: %v", err)
	}

	session := services.NewSession(lib, inbox, hub)

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(inbox, hub)
	receivedHandler := handlers.NewReceivedHandler(inbox)
	importHandler := handlers.NewImportHandler(session)
	libraryHandler := handlers.NewLibraryHandler(lib)
	eventsHandler := handlers.NewEventsHandler(hub)
	healthHandler := handlers.NewHealthHandler()
	settingsHandler := handlers.NewSettingsHandler()

	// Setup router
	r := gin.New()
	r.Use(gin.Recovery())

	// Apply middleware
	r.Use(middleware.CORS())
	r.Use(middleware.Logging())
	r.Use(middleware.Security())

	if serverPort := os.Getenv("SERVER_PORT"); serverPort != "" {
		if p, err := strconv.Atoi(serverPort); err == nil {
			port = p
		}
	}

	listener := services.NewListener(port, r)
	session.Listener = listener
	pairingHandler := handlers.NewPairingHandler(listener)

	// Setup routes
	setupRoutes(r, uploadHandler, receivedHandler, importHandler, libraryHandler, pairingHandler, eventsHandler, healthHandler, settingsHandler)

	// Start the LAN listener
	addr, err := listener.Start()
	if err != nil {
		var bindErr *services.BindError
		if errors.As(err, &bindErr) {
			log.Fatalf("Failed to start upload listener: %v", bindErr)
		}
		log.Fatalf("Failed to start upload listener: %v", err)
	}

	log.Printf("Songdrop listening on %s — scan to pair:", addr)
	if qr, err := qrcode.New(addr, qrcode.Medium); err == nil {
		log.Print("\n" + qr.ToSmallString(false))
	}

	// Serve until signalled, then unbind; staged files stay on disk.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Printf("Shutting down")
	session.Close()
}

// setupRoutes configures all the HTTP routes
func setupRoutes(r *gin.Engine,
	uploadHandler *handlers.UploadHandler,
	receivedHandler *handlers.ReceivedHandler,
	importHandler *handlers.ImportHandler,
	libraryHandler *handlers.LibraryHandler,
	pairingHandler *handlers.PairingHandler,
	eventsHandler *handlers.EventsHandler,
	healthHandler *handlers.HealthHandler,
	settingsHandler *handlers.SettingsHandler) {

	// Upload surface: what other devices on the LAN talk to
	r.GET("/", uploadHandler.UploadPage)
	r.POST("/upload", uploadHandler.Upload)

	// Health check endpoint
	r.GET("/health", healthHandler.HealthCheck)

	// API routes group
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/status", healthHandler.APIStatus)

		// Received-files management
		receivedGroup := apiGroup.Group("/received")
		{
			receivedGroup.GET("", receivedHandler.ListReceived)
			receivedGroup.POST("/:id/select", receivedHandler.SelectReceived)
			receivedGroup.GET("/:id/stream", receivedHandler.StreamReceived)
			receivedGroup.DELETE("/:id", receivedHandler.RemoveReceived)
		}

		// Import sequencer control
		importsGroup := apiGroup.Group("/imports")
		{
			importsGroup.POST("", importHandler.StartImport)
			importsGroup.GET("", importHandler.CurrentImport)
			importsGroup.POST("/decision", importHandler.Decide)
			importsGroup.DELETE("", importHandler.CancelImport)
		}

		// Library catalog
		apiGroup.GET("/library", libraryHandler.ListSongs)
		apiGroup.POST("/library/refresh", libraryHandler.Refresh)

		// Pairing surface
		apiGroup.GET("/pairing", pairingHandler.Info)
		apiGroup.GET("/pairing/qr", pairingHandler.QR)

		// WebSocket endpoint for the ingestion event stream
		apiGroup.GET("/ws", eventsHandler.HandleWebSocket)

		// Settings endpoints
		apiGroup.GET("/settings", settingsHandler.GetSettings)
		apiGroup.POST("/settings", settingsHandler.UpdateSettings)
	}
}
