package api

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/moyoez/gesubridge-go/adb"
	"github.com/moyoez/gesubridge-go/api/controllers"
	"github.com/moyoez/gesubridge-go/api/middlewares"
	"github.com/moyoez/gesubridge-go/api/notifyhub"
	"github.com/moyoez/gesubridge-go/session"
	"github.com/moyoez/gesubridge-go/tool"
	"github.com/moyoez/gesubridge-go/transfer"
)

// Server is the local HTTP API the desktop UI drives.
type Server struct {
	port   int
	engine *gin.Engine
	server *http.Server
	mu     sync.RWMutex

	registry *session.Registry
	queue    *transfer.Queue
	archive  *transfer.Archive
	adb      *adb.Client
	hub      *notifyhub.Hub
}

func NewServer(port int, registry *session.Registry, queue *transfer.Queue, archive *transfer.Archive, client *adb.Client, hub *notifyhub.Hub) *Server {
	return &Server{
		port:     port,
		registry: registry,
		queue:    queue,
		archive:  archive,
		adb:      client,
		hub:      hub,
	}
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.Default()
	engine.Use(gin.Recovery())

	sessionCtrl := controllers.NewSessionController(s.registry)
	transferCtrl := controllers.NewTransferController(s.queue, s.archive)
	deviceCtrl := controllers.NewDeviceController(s.adb)
	statusCtrl := controllers.NewStatusController(s.registry, s.queue)

	self := engine.Group("/api/self/v1", middlewares.OnlyAllowLocal)
	{
		self.GET("/devices", deviceCtrl.HandleList)            // Enumerate connected devices
		self.GET("/device/files", deviceCtrl.HandleFiles)      // Browse device-side paths
		self.GET("/device/pair-qr", deviceCtrl.HandlePairQR)   // Wireless-debugging pairing QR PNG
		self.POST("/session/start", sessionCtrl.HandleStart)   // Start mirror/camera session
		self.POST("/session/stop", sessionCtrl.HandleStop)     // Stop session
		self.GET("/sessions", sessionCtrl.HandleList)          // Snapshot of sessions, ?mode= filter
		self.POST("/transfer/submit", transferCtrl.HandleSubmit)
		self.POST("/transfer/cancel", transferCtrl.HandleCancel)
		self.GET("/transfers/active", transferCtrl.HandleActive)
		self.GET("/transfers/history", transferCtrl.HandleHistory)
		self.GET("/transfers/archive", transferCtrl.HandleArchive) // Persisted history across restarts
		self.GET("/status", statusCtrl.HandleStatus)
		self.GET("/config", controllers.UserConfigGet)
		self.PATCH("/config", controllers.UserConfigPatch)
		if s.hub != nil {
			self.GET("/notify-ws", notifyhub.HandleNotifyWS(s.hub))
		}
	}

	return engine
}

// Start starts the HTTP server on loopback only.
func (s *Server) Start() error {
	engine := s.setupRoutes()

	s.mu.Lock()
	s.engine = engine
	s.server = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler: engine,
	}
	s.mu.Unlock()

	tool.DefaultLogger.Infof("[Server] Starting API server on http://127.0.0.1:%d", s.port)
	return s.server.ListenAndServe()
}

// Close shuts the listener down.
func (s *Server) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.server == nil {
		return nil
	}
	return s.server.Close()
}
