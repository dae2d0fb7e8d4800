package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/mathquest/backend/internal/auth"
	"github.com/mathquest/backend/internal/classroom"
	"github.com/mathquest/backend/internal/database"
	"github.com/mathquest/backend/internal/feedback"
	"github.com/mathquest/backend/internal/leaderboard"
	"github.com/mathquest/backend/internal/middleware"
	"github.com/mathquest/backend/internal/models"
	"github.com/mathquest/backend/internal/quiz"
	"github.com/mathquest/backend/internal/stats"
	"github.com/mathquest/backend/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize redis
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}

	// Initialize services
	profileStore := store.New(db)
	board := leaderboard.NewBoard(rdb, profileStore)
	if err := board.Seed(ctx); err != nil {
		log.Printf("Leaderboard seed failed, continuing with live updates only: %v", err)
	}

	statsService := stats.NewService(profileStore, board)
	feedbackService := feedback.NewService()
	registry := quiz.NewRegistry()

	// Initialize handlers
	authHandler := auth.NewHandler(db, profileStore)
	quizHandler := quiz.NewHandler(ctx, registry, statsService, feedbackService)
	statsHandler := stats.NewHandler(statsService)
	leaderboardHandler := leaderboard.NewHandler(board)
	classroomHandler := classroom.NewHandler(db, profileStore)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")

	protected.HandleFunc("/quiz/sessions", quizHandler.Start).Methods("POST")
	protected.HandleFunc("/quiz/sessions/{id}", quizHandler.Get).Methods("GET")
	protected.HandleFunc("/quiz/sessions/{id}", quizHandler.Abandon).Methods("DELETE")
	protected.HandleFunc("/quiz/sessions/{id}/answer", quizHandler.Answer).Methods("POST")
	protected.HandleFunc("/quiz/sessions/{id}/skip", quizHandler.Skip).Methods("POST")
	protected.HandleFunc("/quiz/sessions/{id}/restart", quizHandler.Restart).Methods("POST")

	protected.HandleFunc("/stats/me", statsHandler.Me).Methods("GET")
	protected.HandleFunc("/leaderboard", leaderboardHandler.Get).Methods("GET")
	protected.HandleFunc("/leaderboard/live", leaderboardHandler.Live).Methods("GET")

	class := protected.PathPrefix("/class").Subrouter()
	class.Use(middleware.RequireRole(models.RoleTeacher))
	class.HandleFunc("", classroomHandler.GetClass).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","live_sessions":%d}`, registry.Count())
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:    ":" + port,
		Handler: c.Handler(r),
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		registry.StartReaper(gCtx, time.Minute, 10*time.Minute)
		return nil
	})

	g.Go(func() error {
		board.StartRefresher(gCtx, 15*time.Second)
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("Server stopped")
}
