package routes

import (
	"database/sql"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/alfaref/referral_backend/config"
	notifyHandlers "github.com/alfaref/referral_backend/internal/handlers/notify"
	referralHandlers "github.com/alfaref/referral_backend/internal/handlers/referral"
	"github.com/alfaref/referral_backend/internal/middleware"
	"github.com/alfaref/referral_backend/internal/pkg/promocode"
	"github.com/alfaref/referral_backend/internal/pkg/response"
	"github.com/alfaref/referral_backend/internal/repositories"
	"github.com/alfaref/referral_backend/internal/services"
)

// Setup собирает зависимости и возвращает настроенный маршрутизатор.
func Setup(cfg *config.Config, database *sql.DB) *chi.Mux {
	repo := repositories.NewReferralRepository(database)
	codes := promocode.NewGenerator(rand.New(rand.NewSource(time.Now().UnixNano())))
	sink := services.NewNotifyClient(cfg.NotifyURL, cfg.NotifyTimeout)
	referralService := services.NewReferralService(repo, sink, codes)
	referralHandler := referralHandlers.NewHandler(referralService)

	var sender services.MessageSender
	if cfg.TelegramBotToken != "" {
		tg, err := services.NewTelegramSender(cfg.TelegramBotToken)
		if err != nil {
			log.Printf("⚠️ Telegram недоступен, уведомления отключены: %v", err)
		} else {
			sender = tg
		}
	} else {
		log.Println("⚠️ TELEGRAM_BOT_TOKEN не задан, уведомления отключены")
	}
	notifyHandler := notifyHandlers.NewHandler(sender)

	router := chi.NewRouter()
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(middleware.CORS)

	// Оба сервиса диспетчеризуют методы сами, поэтому HandleFunc
	router.HandleFunc("/api/referral", referralHandler.Handle)
	router.HandleFunc("/api/notify", notifyHandler.Handle)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return router
}
