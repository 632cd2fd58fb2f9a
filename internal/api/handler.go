package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"groupbuy-service/internal/models"
	"groupbuy-service/internal/service"
	"groupbuy-service/internal/util"
)

// Handler contains HTTP handlers
type Handler struct {
	coordinator *service.Coordinator
	registry    *service.Registry
	reporter    *service.Reporter
	finder      *service.Finder
}

// NewHandler creates a new HTTP handler
func NewHandler(
	coordinator *service.Coordinator,
	registry *service.Registry,
	reporter *service.Reporter,
	finder *service.Finder,
) *Handler {
	return &Handler{
		coordinator: coordinator,
		registry:    registry,
		reporter:    reporter,
		finder:      finder,
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
		v1.POST("/deals", h.createDeal)
		v1.GET("/deals", h.listDeals)
		v1.GET("/deals/:id", h.getDeal)
		v1.GET("/deals/:id/progress", h.getDealProgress)
		v1.GET("/deals/:id/commitments", h.getDealCommitments)
		v1.PATCH("/deals/:id/pricing", h.updatePricing)
		v1.POST("/deals/:id/approve", h.approveDeal)
		v1.POST("/deals/:id/close", h.closeDeal)

		v1.POST("/commitments", h.createCommitment)
		v1.GET("/commitments/:id", h.getCommitment)
		v1.POST("/commitments/:id/cancel", h.cancelCommitment)
		v1.GET("/buyers/:email/commitments", h.getBuyerCommitments)

		v1.GET("/categories", h.getCategories)
		v1.GET("/analytics/dashboard", h.getDashboard)
		v1.GET("/analytics/trending", h.getTrending)

		v1.POST("/sourcing/run", h.runSourcing)
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

// CreateDealRequest is the payload for creating a deal.
type CreateDealRequest struct {
	Name           string     `json:"name" binding:"required"`
	Description    string     `json:"description"`
	Category       string     `json:"category" binding:"required"`
	RetailPrice    float64    `json:"retail_price" binding:"required,gt=0"`
	GroupPrice     float64    `json:"group_price" binding:"required,gt=0"`
	TargetQuantity int        `json:"target_quantity" binding:"required,min=1"`
	ImageURL       string     `json:"image_url"`
	TariffImpact   float64    `json:"tariff_impact"`
	Deadline       *time.Time `json:"deadline"`
}

// createDeal handles manual deal creation
func (h *Handler) createDeal(c *gin.Context) {
	var req CreateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	deal, err := h.registry.CreateDeal(c.Request.Context(), service.CreateDealInput{
		Name:           req.Name,
		Description:    req.Description,
		Category:       req.Category,
		RetailPrice:    decimal.NewFromFloat(req.RetailPrice),
		GroupPrice:     decimal.NewFromFloat(req.GroupPrice),
		TargetQuantity: req.TargetQuantity,
		Origin:         models.OriginManual,
		ImageURL:       req.ImageURL,
		TariffImpact:   req.TariffImpact,
		Deadline:       req.Deadline,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, deal)
}

// listDeals handles deal listing with optional category filter
func (h *Handler) listDeals(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	deals, err := h.registry.List(c.Request.Context(), c.Query("category"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deals": deals})
}

// getDeal handles get deal by ID
func (h *Handler) getDeal(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	deal, err := h.registry.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, deal)
}

// getDealProgress serves the deal's progress from the Redis mirror with a
// store fallback
func (h *Handler) getDealProgress(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	progress, err := h.reporter.Progress(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// getDealCommitments lists the ledger entries for a deal
func (h *Handler) getDealCommitments(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	commitments, err := h.coordinator.GetCommitmentsByDeal(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"commitments": commitments})
}

// UpdatePricingRequest is the payload for pricing updates.
type UpdatePricingRequest struct {
	RetailPrice float64 `json:"retail_price" binding:"required,gt=0"`
	GroupPrice  float64 `json:"group_price" binding:"required,gt=0"`
}

// updatePricing handles pricing changes
func (h *Handler) updatePricing(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	deal, err := h.registry.UpdatePricing(c.Request.Context(), id,
		decimal.NewFromFloat(req.RetailPrice), decimal.NewFromFloat(req.GroupPrice))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, deal)
}

// ApproveDealRequest is the payload for the admin approval decision.
type ApproveDealRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

// approveDeal handles the admin approval decision
func (h *Handler) approveDeal(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req ApproveDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	deal, err := h.registry.SetApproval(c.Request.Context(), id, *req.Approved)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, deal)
}

// closeDeal handles administrative deactivation
func (h *Handler) closeDeal(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	deal, err := h.registry.Close(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, deal)
}

// CreateCommitmentRequest is the payload for placing a commitment.
type CreateCommitmentRequest struct {
	DealID     int64  `json:"deal_id" binding:"required"`
	BuyerEmail string `json:"buyer_email" binding:"required,email"`
	Quantity   int    `json:"quantity" binding:"required"`
}

// createCommitment handles commitment creation
func (h *Handler) createCommitment(c *gin.Context) {
	var req CreateCommitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	commitment, err := h.coordinator.Commit(c.Request.Context(),
		req.DealID, req.BuyerEmail, req.Quantity, c.GetHeader("Idempotency-Key"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, commitment)
}

// getCommitment handles get commitment by ID
func (h *Handler) getCommitment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	commitment, err := h.coordinator.GetCommitment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, commitment)
}

// cancelCommitment handles commitment cancellation
func (h *Handler) cancelCommitment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.coordinator.Cancel(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// getBuyerCommitments lists a buyer's commitments
func (h *Handler) getBuyerCommitments(c *gin.Context) {
	commitments, err := h.coordinator.GetCommitmentsByBuyer(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"commitments": commitments})
}

// getCategories lists distinct deal categories
func (h *Handler) getCategories(c *gin.Context) {
	categories, err := h.registry.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// getDashboard serves the platform rollup
func (h *Handler) getDashboard(c *gin.Context) {
	stats, err := h.reporter.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// getTrending serves the trending ranking
func (h *Handler) getTrending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	trending, err := h.reporter.Trending(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trending": trending})
}

// runSourcing triggers a discovery pass on demand
func (h *Handler) runSourcing(c *gin.Context) {
	found, err := h.finder.Run(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"deals_found": found, "status": "sourcing complete"})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

// respondError translates the error taxonomy to HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrDealNotFound), errors.Is(err, models.ErrCommitmentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidQuantity), errors.Is(err, models.ErrInvalidPricing):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrDealExpired):
		status = http.StatusGone
	case errors.Is(err, models.ErrDealNotOpen),
		errors.Is(err, models.ErrAlreadyCancelled),
		errors.Is(err, models.ErrConflict):
		status = http.StatusConflict
	}

	c.JSON(status, gin.H{"error": err.Error()})
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
