package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/palitan-tayo-api/internal/application/recovery"
	"github.com/palitan-tayo-api/internal/application/registration"
	"github.com/palitan-tayo-api/internal/application/session"
	"github.com/palitan-tayo-api/internal/config"
	"github.com/palitan-tayo-api/internal/infrastructure/smtp"
	"github.com/palitan-tayo-api/internal/infrastructure/sns"
	"github.com/palitan-tayo-api/internal/transport/http/handler"
	appmiddleware "github.com/palitan-tayo-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

const bcryptCost = 10

// Deps holds all infrastructure dependencies for the router.
// Images, SMS and Tokens may be nil.
type Deps struct {
	Users         UserRepository
	Registrations PendingStore
	Resets        PendingStore
	Images        ImageHost
	Mailer        smtp.Mailer
	SMS           sns.SMSSender
	Tokens        TokenIssuer
	DefaultImage  []byte
}

// NewRouter builds and returns the application router.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustedProxy {
		// Client address comes from the proxy's forwarding headers.
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 per client IP.
	authRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	sessionSvc := session.NewService(session.ServiceDeps{
		UserRepo: deps.Users,
		Tokens:   deps.Tokens,
	})
	registrationSvc := registration.NewService(registration.ServiceDeps{
		Pending:      deps.Registrations,
		Users:        deps.Users,
		Mailer:       deps.Mailer,
		Images:       deps.Images,
		Sessions:     sessionSvc,
		DefaultImage: deps.DefaultImage,
		OTPDigits:    cfg.OTPDigits,
		OTPTTL:       cfg.OTPTTL,
		ProfileTTL:   cfg.ProfileTTL,
		BcryptCost:   bcryptCost,
	})
	recoverySvc := recovery.NewService(recovery.ServiceDeps{
		Pending:    deps.Resets,
		Users:      deps.Users,
		Mailer:     deps.Mailer,
		SMS:        deps.SMS,
		OTPDigits:  cfg.OTPDigits,
		OTPTTL:     cfg.OTPTTL,
		BcryptCost: bcryptCost,
	})

	authH := handler.NewAuthHandler(sessionSvc, registrationSvc, recoverySvc, handler.CookiePolicy{
		Secure:     cfg.Production(),
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	messageH := handler.NewMessageHandler()

	r.Route("/api", func(r chi.Router) {
		r.Get("/message", messageH.Hello)
		r.With(authRL.Limit).Post("/auth", authH.Action)
		r.Get("/auth/session", authH.Session)
	})

	return r
}
