package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"retroim/internal/pkg/auth/jwt"
	"retroim/internal/pkg/limiter"
	"retroim/internal/pkg/logx"
	"retroim/internal/pkg/req"
	"retroim/internal/pkg/resp"
)

// NewRouter builds the chi router with the shared middleware stack and all
// application routes.
func NewRouter(deps *AppDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   deps.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(corsMiddleware.Handler)

	r.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))
	r.Use(req.LimitBody)

	// Credential endpoints get a tight per-IP budget; everything else shares a
	// looser one. Upgrades have their own so a reconnect loop cannot starve the
	// API budget.
	authLimiter := limiter.NewIPRateLimiter(rate.Limit(0.5), 5)
	apiLimiter := limiter.NewIPRateLimiter(rate.Limit(20), 40)
	wsLimiter := limiter.NewIPRateLimiter(rate.Limit(1), 5)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"status":      "ok",
			"onlineUsers": deps.Hub.OnlineCount(),
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(apiLimiter.Middleware)

		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter.Middleware).Post("/register", HandleRegister(deps))
			r.With(authLimiter.Middleware).Post("/login", HandleLogin(deps))
			r.Put("/password", HandleChangePassword(deps))
		})

		r.Route("/user", func(r chi.Router) {
			r.Get("/me", HandleGetMe(deps))
			r.Put("/profile", HandleUpdateProfile(deps))
			r.Put("/status", HandleUpdateStatus(deps))
		})

		r.Route("/buddies", func(r chi.Router) {
			r.Get("/", HandleListBuddies(deps))
			r.Post("/", HandleAddBuddy(deps))
			r.Delete("/{buddyID}", HandleRemoveBuddy(deps))
			r.Get("/{buddyID}/alerts", HandleGetAlertSettings(deps))
			r.Put("/{buddyID}/alerts", HandleUpdateAlertSettings(deps))
		})

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", HandleSendMessage(deps))
			r.Get("/{buddyID}", HandleGetConversation(deps))
			r.Post("/read", HandleMarkRead(deps))
		})

		r.Route("/file", func(r chi.Router) {
			r.Post("/presign-upload", HandlePresignUpload(deps))
			r.Get("/download", HandleDownloadFile(deps))
		})
	})

	r.With(wsLimiter.Middleware).Get("/ws", HandleWebSocket(deps))

	return r
}
