package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/rewear/internal/model"
	"github.com/erazemk/rewear/internal/swap"
)

// Options configures the API router.
type Options struct {
	DB        *sql.DB
	JWTSecret string
	Swaps     *swap.Service

	// Moderation holds new listings for admin approval.
	Moderation bool

	// AuthLimiter throttles register and login. Nil disables limiting.
	AuthLimiter *RateLimiter
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(opts Options) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: opts.DB, JWTSecret: opts.JWTSecret}
	itemsHandler := &ItemsHandler{DB: opts.DB, Swaps: opts.Swaps, Moderation: opts.Moderation}
	imagesHandler := &ImagesHandler{DB: opts.DB}
	swapsHandler := &SwapsHandler{DB: opts.DB, Swaps: opts.Swaps}
	adminHandler := &AdminHandler{DB: opts.DB, Swaps: opts.Swaps}

	authMW := AuthMiddleware(opts.JWTSecret, opts.DB)
	optionalAuth := OptionalAuthMiddleware(opts.JWTSecret, opts.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	limit := opts.AuthLimiter.Middleware

	// Public: account creation and login, rate limited.
	mux.Handle("POST /api/auth/register", limit(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/auth/login", limit(http.HandlerFunc(authHandler.Login)))

	// Account.
	mux.Handle("GET /api/auth/profile", authMW(http.HandlerFunc(authHandler.Profile)))
	mux.Handle("GET /api/auth/ledger", authMW(http.HandlerFunc(authHandler.Ledger)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Items: browsing is public, listing requires an account.
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("GET /api/items/featured", itemsHandler.Featured)
	mux.Handle("GET /api/items/mine", authMW(http.HandlerFunc(itemsHandler.Mine)))
	mux.Handle("GET /api/items/{id}", optionalAuth(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("PUT /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))
	mux.HandleFunc("GET /api/images/{id}", imagesHandler.Get)

	// Swaps.
	mux.Handle("POST /api/swaps", authMW(http.HandlerFunc(swapsHandler.Create)))
	mux.Handle("GET /api/swaps/my-requests", authMW(http.HandlerFunc(swapsHandler.MyRequests)))
	mux.Handle("GET /api/swaps/my-items", authMW(http.HandlerFunc(swapsHandler.MyItems)))
	mux.Handle("GET /api/swaps/{id}", authMW(http.HandlerFunc(swapsHandler.Get)))
	mux.Handle("PUT /api/swaps/{id}/accept", authMW(http.HandlerFunc(swapsHandler.Accept)))
	mux.Handle("PUT /api/swaps/{id}/reject", authMW(http.HandlerFunc(swapsHandler.Reject)))
	mux.Handle("PUT /api/swaps/{id}/cancel", authMW(http.HandlerFunc(swapsHandler.Cancel)))

	// Admin only.
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }
	mux.Handle("GET /api/admin/pending-items", admin(adminHandler.PendingItems))
	mux.Handle("PUT /api/admin/approve-item/{id}", admin(adminHandler.Approve))
	mux.Handle("PUT /api/admin/reject-item/{id}", admin(adminHandler.Reject))
	mux.Handle("DELETE /api/admin/remove-item/{id}", admin(adminHandler.Remove))
	mux.Handle("GET /api/admin/stats", admin(adminHandler.Stats))
	mux.Handle("GET /api/admin/users", admin(adminHandler.Users))
	mux.Handle("PUT /api/admin/users/{id}/role", admin(adminHandler.SetRole))
	mux.Handle("POST /api/admin/users/{id}/points", admin(adminHandler.AdjustPoints))
	mux.Handle("GET /api/admin/recent-swaps", admin(adminHandler.RecentSwaps))

	return mux
}
