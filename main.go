package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"pulse-cms-backend/config"
	"pulse-cms-backend/controllers/recommendations"
	"pulse-cms-backend/models/content"
	"pulse-cms-backend/models/recommend"
	"pulse-cms-backend/models/tracking"
	"pulse-cms-backend/services"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080" // Устанавливаем порт по умолчанию
	}

	// Инициализируем базу данных
	if err := config.InitDB(); err != nil {
		log.Fatalf("Ошибка инициализации базы данных: %v", err)
	}

	// Выполняем миграцию базы данных
	err := config.DB.AutoMigrate(
		&content.Post{},
		&content.Page{},
		&content.Product{},
		&content.Course{},
		&tracking.Interaction{},
		&tracking.RecommendationClick{},
		&recommend.CacheEntry{},
	)
	if err != nil {
		log.Fatalf("Ошибка миграции базы данных: %v", err)
	}

	// Проверка подключения к базе данных
	sqlDB, err := config.DB.DB()
	if err != nil {
		log.Fatalf("Ошибка получения подключения к базе данных: %v", err)
	}
	if err = sqlDB.Ping(); err != nil {
		log.Fatalf("Ошибка подключения к базе данных: %v", err)
	}
	log.Println("Подключение к базе данных успешно")

	if err := config.InitRedis(); err != nil {
		log.Fatalf("Ошибка инициализации Redis: %v", err)
	}

	// Кэш рекомендаций: Redis, если настроен, иначе таблица в Postgres
	var cache services.CacheStore
	if config.Redis != nil {
		cache = &services.RedisCacheStore{Client: config.Redis}
		log.Println("Recommendation cache backed by Redis")
	} else {
		cache = &services.DBCacheStore{DB: config.DB}
		log.Println("Recommendation cache backed by the database")
	}

	trackingService := &services.TrackingService{DB: config.DB}
	engine := &services.RecommendationEngine{DB: config.DB}
	recommendationService := &services.RecommendationService{
		DB:       config.DB,
		Engine:   engine,
		Cache:    cache,
		Tracking: trackingService,
	}

	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}).Methods("GET")

	recommendations.RegisterRecommendationRoutes(r, recommendationService, trackingService, cache)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	// Запускаем сервер
	log.Printf("Сервер запущен на порту %s", port)
	if err := http.ListenAndServe(":"+port, corsHandler.Handler(r)); err != nil {
		log.Fatalf("Ошибка запуска сервера: %v", err)
	}
}
