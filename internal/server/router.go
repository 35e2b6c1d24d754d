package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qlndemo/coffeerun/backend/internal/auth"
	"github.com/qlndemo/coffeerun/backend/internal/cache"
	"github.com/qlndemo/coffeerun/backend/internal/catalog"
	"github.com/qlndemo/coffeerun/backend/internal/orders"
	"github.com/qlndemo/coffeerun/backend/internal/roster"
	"github.com/qlndemo/coffeerun/backend/internal/users"
)

const sessionContextKey = "coffeerun_session"

var (
	errMissingSessions = errors.New("server: sessions dependency required")
	errMissingMagic    = errors.New("server: magic link dependency required")
	errMissingMailer   = errors.New("server: mailer dependency required")
	errMissingAccounts = errors.New("server: accounts dependency required")
	errMissingCatalog  = errors.New("server: catalog dependency required")
	errMissingRoster   = errors.New("server: roster dependency required")
	errMissingOrders   = errors.New("server: orders dependency required")
)

// Dependencies wires the HTTP layer to the services it fronts.
type Dependencies struct {
	Sessions      *auth.Sessions
	MagicLinks    *auth.MagicLinks
	Mailer        auth.Mailer
	Accounts      *users.Service
	Catalog       *catalog.Service
	Roster        *roster.Service
	Orders        *orders.Service
	SharedCache   cache.SharedOrderCache
	Logger        *zap.Logger
	FrontendURL   string
	SecureCookies bool
}

type httpHandler struct {
	sessions      *auth.Sessions
	magicLinks    *auth.MagicLinks
	mailer        auth.Mailer
	accounts      *users.Service
	catalog       *catalog.Service
	roster        *roster.Service
	orders        *orders.Service
	sharedCache   cache.SharedOrderCache
	logger        *zap.Logger
	frontendURL   string
	secureCookies bool
}

// NewHTTPHandler builds the gin router for the API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Sessions == nil {
		return nil, errMissingSessions
	}
	if deps.MagicLinks == nil {
		return nil, errMissingMagic
	}
	if deps.Mailer == nil {
		return nil, errMissingMailer
	}
	if deps.Accounts == nil {
		return nil, errMissingAccounts
	}
	if deps.Catalog == nil {
		return nil, errMissingCatalog
	}
	if deps.Roster == nil {
		return nil, errMissingRoster
	}
	if deps.Orders == nil {
		return nil, errMissingOrders
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := &httpHandler{
		sessions:      deps.Sessions,
		magicLinks:    deps.MagicLinks,
		mailer:        deps.Mailer,
		accounts:      deps.Accounts,
		catalog:       deps.Catalog,
		roster:        deps.Roster,
		orders:        deps.Orders,
		sharedCache:   deps.SharedCache,
		logger:        logger,
		frontendURL:   deps.FrontendURL,
		secureCookies: deps.SecureCookies,
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if deps.FrontendURL != "" {
		corsConfig.AllowOrigins = []string{deps.FrontendURL}
	} else {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	v1.POST("/auth/login", handler.handleLogin)
	v1.POST("/auth/verify", handler.handleVerify)
	v1.POST("/auth/logout", handler.handleLogout)

	// The shared view is the one anonymous read path: the token is the
	// capability and the response carries only the consolidated summary.
	v1.GET("/orders/share/:token", handler.handleGetSharedOrder)

	authed := v1.Group("/")
	authed.Use(handler.requireSession)
	authed.GET("/auth/me", handler.handleMe)
	authed.GET("/colleagues", handler.handleListColleagues)
	authed.GET("/menu/drink-types", handler.handleListDrinkTypes)
	authed.GET("/menu/sizes", handler.handleListSizes)
	authed.GET("/menu/milk-options", handler.handleListMilkOptions)
	authed.POST("/orders", handler.handleCreateOrder)
	authed.GET("/orders", handler.handleListOrders)
	authed.GET("/orders/:id", handler.handleGetOrder)
	authed.GET("/stats/overview", handler.handleStatsOverview)
	authed.GET("/stats/drinks", handler.handleStatsDrinks)
	authed.GET("/stats/colleagues", handler.handleStatsColleagues)

	admin := v1.Group("/")
	admin.Use(handler.requireSession, handler.requireAdmin)
	admin.POST("/colleagues", handler.handleCreateColleague)
	admin.PUT("/colleagues/:id", handler.handleUpdateColleague)
	admin.DELETE("/colleagues/:id", handler.handleDeactivateColleague)
	admin.POST("/colleagues/:id/coffee-options", handler.handleAddCoffeeOption)
	admin.PUT("/coffee-options/:id", handler.handleUpdateCoffeeOption)
	admin.DELETE("/coffee-options/:id", handler.handleRemoveCoffeeOption)
	admin.PUT("/coffee-options/:id/set-default", handler.handleSetDefaultOption)
	admin.POST("/menu/drink-types", handler.handleCreateDrinkType)
	admin.PUT("/menu/drink-types/:id", handler.handleUpdateDrinkType)
	admin.DELETE("/menu/drink-types/:id", handler.handleDeactivateDrinkType)
	admin.POST("/menu/sizes", handler.handleCreateSize)
	admin.PUT("/menu/sizes/:id", handler.handleUpdateSize)
	admin.DELETE("/menu/sizes/:id", handler.handleDeactivateSize)
	admin.POST("/menu/milk-options", handler.handleCreateMilkOption)
	admin.PUT("/menu/milk-options/:id", handler.handleUpdateMilkOption)
	admin.DELETE("/menu/milk-options/:id", handler.handleDeactivateMilkOption)

	return router, nil
}

// requireSession validates the session cookie and stores the claims in the
// gin context, keeping identity request-scoped.
func (h *httpHandler) requireSession(c *gin.Context) {
	claims, err := h.sessions.ValidateRequest(c.Request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.Set(sessionContextKey, claims)
	c.Next()
}

func (h *httpHandler) requireAdmin(c *gin.Context) {
	claims, ok := sessionClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	if !claims.IsAdmin() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}
	c.Next()
}

func sessionClaims(c *gin.Context) (auth.SessionClaims, bool) {
	value, exists := c.Get(sessionContextKey)
	if !exists {
		return auth.SessionClaims{}, false
	}
	claims, ok := value.(auth.SessionClaims)
	return claims, ok
}

// respondError maps service errors onto the HTTP error taxonomy. Unknown
// errors become 500s with the detail kept in the log, not the response.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orders.ErrEmptyOrder),
		errors.Is(err, orders.ErrSelectionMismatch),
		errors.Is(err, orders.ErrMissingCreator),
		errors.Is(err, roster.ErrSugarOutOfRange),
		errors.Is(err, roster.ErrInvalidName),
		errors.Is(err, roster.ErrCatalogItemUnavailable),
		errors.Is(err, catalog.ErrInvalidName),
		errors.Is(err, catalog.ErrInvalidAbbreviation),
		errors.Is(err, users.ErrInvalidEmail),
		errors.Is(err, auth.ErrInvalidMagicToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, orders.ErrCoffeeOptionNotFound),
		errors.Is(err, roster.ErrColleagueNotFound),
		errors.Is(err, roster.ErrOptionNotFound),
		errors.Is(err, catalog.ErrItemNotFound),
		errors.Is(err, users.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, orders.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
