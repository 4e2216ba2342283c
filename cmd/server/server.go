package server

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/ssolovyev/tetatet/internal/database"
	"github.com/ssolovyev/tetatet/internal/handlers"
	"github.com/ssolovyev/tetatet/internal/session"
	"github.com/ssolovyev/tetatet/internal/websocket"
	"github.com/ssolovyev/tetatet/pkg/auth"
)

type Server struct {
	Router     *gin.Engine
	DB         *database.Database
	Hub        *websocket.Hub
	Sessions   session.Store
	JWTManager *auth.JWTManager
}

func NewServer() *Server {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println(".env not found, using environment variables")
		}
	}

	dbConn := &database.Database{}
	if err := dbConn.Connect(); err != nil {
		log.Fatalf("Postgres connect failed: %v", err)
	}

	// Реестр сессий — best-effort состояние: без REDIS_URL работаем
	// на fallback в памяти процесса
	var sessions session.Store
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		rdb := redis.NewClient(redisOpts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Redis connect failed: %v", err)
		}
		sessions = session.NewRedisStore(rdb)
	} else {
		log.Println("REDIS_URL not set, using in-memory session store")
		sessions = session.NewMemoryStore()
	}

	jwtMgr := auth.NewJWTManager(
		os.Getenv("JWT_SECRET"),
		24*time.Hour,
	)

	hub := websocket.NewHub()
	go hub.Run()

	conversationH := handlers.NewConversationHandler(dbConn, hub, sessions)
	wsH := handlers.NewWebSocketHandler(hub, conversationH)
	httpConversationH := handlers.NewHTTPConversationHandler(dbConn, sessions)
	httpMessageH := handlers.NewHTTPMessageHandler(dbConn, hub)

	router := gin.Default()
	APIEndpoints(router, jwtMgr, wsH, httpConversationH, httpMessageH)

	return &Server{
		Router:     router,
		DB:         dbConn,
		Hub:        hub,
		Sessions:   sessions,
		JWTManager: jwtMgr,
	}
}

func (s *Server) Run() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server starting on port %s", port)
	if err := s.Router.Run(":" + port); err != nil {
		log.Fatalf("Server run error: %v", err)
	}
}
