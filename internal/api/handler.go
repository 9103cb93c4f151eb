package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	cart     *service.CartService
	checkout *service.CheckoutService
	catalog  *service.CatalogService
	drafts   *service.DraftService
	tracking *service.TrackingService
	orders   service.OrderAPI
}

// NewHandler creates a new HTTP handler
func NewHandler(
	cart *service.CartService,
	checkout *service.CheckoutService,
	catalog *service.CatalogService,
	drafts *service.DraftService,
	tracking *service.TrackingService,
	orders service.OrderAPI,
) *Handler {
	return &Handler{
		cart:     cart,
		checkout: checkout,
		catalog:  catalog,
		drafts:   drafts,
		tracking: tracking,
		orders:   orders,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)

		v1.GET("/cart", h.getCart)
		v1.GET("/cart/summary", h.getCartSummary)
		v1.POST("/cart/items", h.addCartItem)
		v1.PUT("/cart/items/:productID", h.setCartQuantity)
		v1.POST("/cart/items/:productID/increment", h.incrementCartItem)
		v1.POST("/cart/items/:productID/decrement", h.decrementCartItem)
		v1.DELETE("/cart/items/:productID", h.removeCartItem)
		v1.DELETE("/cart", h.clearCart)

		v1.GET("/checkout/context", h.getCheckoutContext)
		v1.PUT("/checkout/context", h.updateCheckoutContext)
		v1.POST("/checkout/submit", h.submitOrder)

		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.GET("/orders/:id/tracking", h.getTracking)
		v1.GET("/tracking/last", h.getLastTracking)
		v1.POST("/tracking/simulate", h.startSimulation)
		v1.DELETE("/tracking/simulate", h.stopSimulation)

		admin := v1.Group("/admin")
		{
			admin.GET("/brands", h.listBrands)
			admin.GET("/categories", h.listCategories)
			admin.GET("/discounts", h.listDiscounts)

			admin.POST("/drafts", h.createDraft)
			admin.GET("/drafts/:id", h.getDraft)
			admin.POST("/drafts/:id/phase1", h.completePhase1)
			admin.POST("/drafts/:id/phase2", h.completePhase2)
			admin.POST("/drafts/:id/phase2/skip", h.skipPhase2)
			admin.POST("/drafts/:id/phase3", h.completePhase3)
			admin.POST("/drafts/:id/phase3/skip", h.skipPhase3)
			admin.POST("/drafts/:id/back/:phase", h.backToPhase)
			admin.POST("/drafts/:id/submit", h.submitDraft)
			admin.DELETE("/drafts/:id", h.closeDraft)
		}
	}
}

// userID resolves the session user. Authentication itself is handled
// upstream; an absent header means there is no session to act on.
func userID(c *gin.Context) (string, bool) {
	id := c.GetHeader("X-User-ID")
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing X-User-ID header"})
		return "", false
	}
	return id, true
}

// fail maps service errors onto HTTP statuses: local validation
// before remote failures, expired sessions as 401 so the UI can
// redirect to login.
func fail(c *gin.Context, err error) {
	var incomplete *service.IncompleteDraftError

	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired", "details": err.Error()})
	case errors.Is(err, service.ErrDraftNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Draft not found"})
	case errors.Is(err, service.ErrLineNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &incomplete):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":          "Draft incomplete",
			"missing_fields": incomplete.Fields,
		})
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrProductInactive),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrMissingPaymentMethod),
		errors.Is(err, service.ErrMissingAddress),
		errors.Is(err, service.ErrWrongPhase),
		errors.Is(err, service.ErrSimulationUnavailable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream request failed", "details": err.Error()})
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// listProducts serves the catalog from the local read model
func (h *Handler) listProducts(c *gin.Context) {
	filter := store.CatalogFilter{
		CategoryID: c.Query("category_id"),
		BrandID:    c.Query("brand_id"),
		Search:     c.Query("q"),
		ActiveOnly: c.Query("include_inactive") != "true",
	}

	products, err := h.catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// getProduct serves one catalog item
func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, product)
}

// getCart returns the user's current cart
func (h *Handler) getCart(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	cart, err := h.cart.GetCart(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// getCartSummary returns the derived checkout summary
func (h *Handler) getCartSummary(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	summary, err := h.cart.GetSummary(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type addItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// addCartItem adds a catalog item to the cart
func (h *Handler) addCartItem(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	item, err := h.catalog.GetProduct(c.Request.Context(), req.ProductID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found", "details": err.Error()})
		return
	}

	if err := h.cart.AddItem(c.Request.Context(), uid, *item, req.Quantity); err != nil {
		fail(c, err)
		return
	}

	cart, _ := h.cart.GetCart(c.Request.Context(), uid)
	c.JSON(http.StatusOK, cart)
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// setCartQuantity replaces a line's quantity; zero or below removes
// the line
func (h *Handler) setCartQuantity(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.cart.SetQuantity(c.Request.Context(), uid, c.Param("productID"), req.Quantity); err != nil {
		fail(c, err)
		return
	}

	cart, _ := h.cart.GetCart(c.Request.Context(), uid)
	c.JSON(http.StatusOK, cart)
}

// incrementCartItem raises a line's quantity by one
func (h *Handler) incrementCartItem(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	if err := h.cart.IncrementQuantity(c.Request.Context(), uid, c.Param("productID")); err != nil {
		fail(c, err)
		return
	}

	cart, _ := h.cart.GetCart(c.Request.Context(), uid)
	c.JSON(http.StatusOK, cart)
}

// decrementCartItem lowers a line's quantity by one, removing it at
// quantity one
func (h *Handler) decrementCartItem(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	if err := h.cart.DecrementQuantity(c.Request.Context(), uid, c.Param("productID")); err != nil {
		fail(c, err)
		return
	}

	cart, _ := h.cart.GetCart(c.Request.Context(), uid)
	c.JSON(http.StatusOK, cart)
}

// removeCartItem deletes a cart line
func (h *Handler) removeCartItem(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	if err := h.cart.RemoveItem(c.Request.Context(), uid, c.Param("productID")); err != nil {
		fail(c, err)
		return
	}

	cart, _ := h.cart.GetCart(c.Request.Context(), uid)
	c.JSON(http.StatusOK, cart)
}

// clearCart empties the cart
func (h *Handler) clearCart(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	if err := h.cart.Clear(c.Request.Context(), uid); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// getCheckoutContext returns the checkout handoff state
func (h *Handler) getCheckoutContext(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	cc, err := h.checkout.GetContext(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cc)
}

// updateCheckoutContext merges submitted fields into the checkout
// handoff state
func (h *Handler) updateCheckoutContext(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var update models.CheckoutContext
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	cc, err := h.checkout.UpdateContext(c.Request.Context(), uid, update)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cc)
}

// submitOrder converts the cart and checkout context into an order
func (h *Handler) submitOrder(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	order, err := h.checkout.SubmitOrder(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// listOrders proxies the user's order history
func (h *Handler) listOrders(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	orders, err := h.orders.GetUserOrders(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// getOrder proxies one order
func (h *Handler) getOrder(c *gin.Context) {
	if _, ok := userID(c); !ok {
		return
	}

	order, err := h.orders.GetOrderByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// getTracking returns the tracking timeline for an order
func (h *Handler) getTracking(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	view, err := h.tracking.GetTracking(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// getLastTracking returns the cached tracking state for the user's
// most recent order
func (h *Handler) getLastTracking(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	view, err := h.tracking.GetLastTracking(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No tracking data"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// startSimulation begins a local demo progression
func (h *Handler) startSimulation(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	view, err := h.tracking.StartSimulation(uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, view)
}

// stopSimulation cancels the user's running simulation
func (h *Handler) stopSimulation(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	h.tracking.StopSimulation(uid)
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

// listBrands serves the wizard's brand picker
func (h *Handler) listBrands(c *gin.Context) {
	refs, err := h.drafts.ListBrands(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"brands": refs})
}

// listCategories serves the wizard's category picker
func (h *Handler) listCategories(c *gin.Context) {
	refs, err := h.drafts.ListCategories(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": refs})
}

// listDiscounts serves the wizard's discount picker
func (h *Handler) listDiscounts(c *gin.Context) {
	refs, err := h.drafts.ListDiscounts(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discounts": refs})
}

// createDraft opens a wizard session; product_id switches to edit
// mode
func (h *Handler) createDraft(c *gin.Context) {
	if productID := c.Query("product_id"); productID != "" {
		session, err := h.drafts.StartEdit(c.Request.Context(), productID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, session)
		return
	}

	c.JSON(http.StatusCreated, h.drafts.StartCreate(c.Request.Context()))
}

// getDraft returns a wizard session
func (h *Handler) getDraft(c *gin.Context) {
	session, err := h.drafts.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// completePhase1 submits the first wizard screen
func (h *Handler) completePhase1(c *gin.Context) {
	var fields models.ProductPhase1
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	session, err := h.drafts.CompletePhase1(c.Param("id"), fields)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type phase2Request struct {
	Resources []models.ProductResource `json:"resources"`
}

// completePhase2 submits the resource screen
func (h *Handler) completePhase2(c *gin.Context) {
	var req phase2Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	session, err := h.drafts.CompletePhase2(c.Param("id"), req.Resources)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// skipPhase2 commits an empty resource list
func (h *Handler) skipPhase2(c *gin.Context) {
	session, err := h.drafts.SkipPhase2(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type phase3Request struct {
	DiscountIDs []string `json:"discount_ids"`
}

// completePhase3 submits the discount screen
func (h *Handler) completePhase3(c *gin.Context) {
	var req phase3Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	session, err := h.drafts.CompletePhase3(c.Param("id"), req.DiscountIDs)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// skipPhase3 commits an empty discount selection
func (h *Handler) skipPhase3(c *gin.Context) {
	session, err := h.drafts.SkipPhase3(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// backToPhase re-opens an earlier phase from the summary screen
func (h *Handler) backToPhase(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("phase"))
	if err != nil || n < 1 || n > 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phase"})
		return
	}

	phases := []models.DraftPhase{models.DraftPhase1, models.DraftPhase2, models.DraftPhase3}
	session, err := h.drafts.BackTo(c.Param("id"), phases[n-1])
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// submitDraft sends the completed draft to the product service
func (h *Handler) submitDraft(c *gin.Context) {
	item, err := h.drafts.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// closeDraft discards the wizard session
func (h *Handler) closeDraft(c *gin.Context) {
	h.drafts.Close(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
