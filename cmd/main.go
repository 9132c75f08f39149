package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/pluvial233/WHU-teamwork/internal/config"
	"github.com/pluvial233/WHU-teamwork/internal/database"
	"github.com/pluvial233/WHU-teamwork/internal/handlers"
	"github.com/pluvial233/WHU-teamwork/internal/middleware"
	"github.com/pluvial233/WHU-teamwork/internal/reporting"
	"github.com/pluvial233/WHU-teamwork/internal/repositories"
	"github.com/pluvial233/WHU-teamwork/internal/services"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	if err := database.Seed(db); err != nil {
		log.Fatalf("failed to seed database: %v", err)
	}

	userRepo := repositories.NewUserRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	recordRepo := repositories.NewBorrowRecordRepository(db)

	accounts := services.NewAccountService(userRepo)
	loans := services.NewLoanService(db, bookRepo, recordRepo)
	reports := reporting.NewGenerator(userRepo, bookRepo, recordRepo)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID())
	router.Use(sessions.Sessions("library_session", cookie.NewStore([]byte(cfg.SessionSecret))))

	handlers.RegisterRoutes(router, accounts, loans, reports, cfg.DocsPath)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Printf("Starting server on %s", cfg.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
