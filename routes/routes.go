package routes

import (
	"net/http"

	"github.com/CustomZone1/customzone/handlers"
	"github.com/CustomZone1/customzone/middleware"
	"github.com/CustomZone1/customzone/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret []byte,
	authHandler *handlers.AuthHandler,
	walletHandler *handlers.WalletHandler,
	withdrawalHandler *handlers.WithdrawalHandler,
	tournamentHandler *handlers.TournamentHandler,
	bookingHandler *handlers.BookingHandler,
	notificationHandler *handlers.NotificationHandler,
	adminHandler *handlers.AdminHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	router.Post("/auth/signup", authHandler.Register)
	router.Post("/auth/signin", authHandler.Login)

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты; комната видна только администраторам
		// и забронировавшим, поэтому токен разбирается опционально.
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthenticateOptional(jwtSecret))
			r.Get("/", tournamentHandler.List)
			r.Get("/{id}", tournamentHandler.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))

			r.Post("/{id}/bookings", bookingHandler.Create)
			r.Get("/{id}/bookings/me", bookingHandler.GetOwn)
			r.Put("/{id}/bookings/{bookingID}/members", bookingHandler.UpdateMembers)
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))

		r.Get("/wallet", walletHandler.GetBalance)
		r.Get("/wallet/transactions", walletHandler.ListTransactions)
		r.Post("/wallet/claim", walletHandler.ClaimDeposit)

		r.Post("/withdrawals", withdrawalHandler.Request)
		r.Get("/withdrawals", withdrawalHandler.ListOwn)

		r.Get("/notifications", notificationHandler.List)
		r.Post("/notifications/read", notificationHandler.MarkAllRead)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Use(middleware.Authorize(models.RoleAdmin))

		r.Post("/deposits", adminHandler.RegisterDeposit)
		r.Get("/deposits", adminHandler.ListDeposits)

		r.Get("/withdrawals", adminHandler.ListWithdrawals)
		r.Post("/withdrawals/{id}/paid", adminHandler.MarkWithdrawalPaid)

		r.Post("/tournaments", tournamentHandler.Create)
		r.Put("/tournaments/{id}", tournamentHandler.Update)
		r.Delete("/tournaments/{id}", tournamentHandler.Delete)
		r.Post("/tournaments/{id}/room", tournamentHandler.PublishRoom)
		r.Put("/tournaments/{id}/manual-slots", tournamentHandler.SetManualSlots)
		r.Post("/tournaments/{id}/recalc", tournamentHandler.Recalc)
		r.Post("/tournaments/{id}/banner", tournamentHandler.UploadBanner)
		r.Get("/tournaments/{id}/bookings", bookingHandler.ListByTournament)
	})
}
