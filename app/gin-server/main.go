package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/educlove/educlove-backend/config"
	"github.com/educlove/educlove-backend/internal/api/handlers"
	"github.com/educlove/educlove-backend/internal/api/middleware"
	"github.com/educlove/educlove-backend/internal/api/routes"
	"github.com/educlove/educlove-backend/internal/cache"
	"github.com/educlove/educlove-backend/internal/logger"
	"github.com/educlove/educlove-backend/internal/models"
	mongorepo "github.com/educlove/educlove-backend/internal/repositories/mongo"
	"github.com/educlove/educlove-backend/internal/repositories/postgres"
	"github.com/educlove/educlove-backend/internal/services"
	"github.com/educlove/educlove-backend/internal/services/geocoding"
	"github.com/educlove/educlove-backend/internal/storage"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()

	mongoDB, err := config.InitMongo()
	if err != nil {
		log.WithError(err).Fatal("mongo connection failed")
	}
	if err := config.EnsureMongoIndexes(mongoDB); err != nil {
		log.WithError(err).Fatal("mongo index creation failed")
	}

	pg, err := config.InitPostgres()
	if err != nil {
		log.WithError(err).Fatal("postgres connection failed")
	}
	if err := pg.AutoMigrate(&models.User{}); err != nil {
		log.WithError(err).Fatal("postgres migration failed")
	}

	rdb, err := config.InitRedis()
	if err != nil {
		log.WithError(err).Fatal("redis connection failed")
	}
	rc := cache.NewRedisCache(rdb)

	authCfg, err := middleware.AuthConfigFromEnv()
	if err != nil {
		log.WithError(err).Fatal("auth configuration invalid")
	}

	var uploader storage.Uploader
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		gcs, err := storage.NewGCSUploader(context.Background(), bucket)
		if err != nil {
			log.WithError(err).Fatal("gcs client failed")
		}
		defer gcs.Close()
		uploader = gcs
	} else {
		log.Warn("GCS_BUCKET not set, photo uploads disabled")
	}

	var geoOpts []geocoding.Option
	if base := os.Getenv("NOMINATIM_BASE_URL"); base != "" {
		geoOpts = append(geoOpts, geocoding.WithBaseURL(base))
	}
	geocoder := geocoding.NewClient(geoOpts...)

	profileRepo := mongorepo.NewProfileRepo(mongoDB)
	criteriaRepo := mongorepo.NewCriteriaRepo(mongoDB)
	visitRepo := mongorepo.NewVisitRepo(mongoDB)
	matchRepo := mongorepo.NewMatchRepo(mongoDB)
	conversationRepo := mongorepo.NewConversationRepo(mongoDB)
	userRepo := postgres.NewUserRepo(pg)

	userSvc := services.NewUserService(userRepo, log)
	profileSvc := services.NewProfileService(profileRepo, userRepo, geocoder, rc, uploader, log)
	criteriaSvc := services.NewCriteriaService(criteriaRepo, geocoder, rc, log)
	visitSvc := services.NewVisitService(visitRepo, profileRepo, rc, log)
	discoverySvc := services.NewDiscoveryService(userRepo, profileRepo, criteriaRepo, visitRepo, log)
	conversationSvc := services.NewConversationService(conversationRepo, matchRepo, rc, log)
	matchSvc := services.NewMatchService(matchRepo, profileRepo, conversationSvc, log)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	routes.Register(r, middleware.Auth(authCfg, userSvc, log), routes.Handlers{
		Profiles:      handlers.NewProfileHandler(discoverySvc, profileSvc, criteriaSvc, visitSvc, log),
		Matches:       handlers.NewMatchHandler(matchSvc, log),
		Visits:        handlers.NewVisitHandler(visitSvc, log),
		Conversations: handlers.NewConversationHandler(conversationSvc, profileSvc, log),
		WS:            handlers.NewWSHandler(matchSvc, rc, log),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.WithField("port", port).Info("server starting")
	if err := r.Run(":" + port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
