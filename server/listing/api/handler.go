package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	commonauth "listing_server/server/common/auth"
	commonlog "listing_server/server/common/log"
	"listing_server/server/common/middleware"
	"listing_server/server/common/transport/httpresp"
	"listing_server/server/listing/domain"
	"listing_server/server/listing/service"
)

type imageIngestor interface {
	ProcessAndStore(ctx context.Context, ownerID, originalName string, data []byte, declaredType string) (domain.ImageAsset, error)
}

type listingCoordinator interface {
	SubmitListing(ctx context.Context, ownerID string, req service.SubmitListingRequest) (domain.Listing, error)
	GetListing(ctx context.Context, id int64) (domain.Listing, error)
	DeleteListing(ctx context.Context, actorID, role string, id int64) error
	SweepPendingDeletions(ctx context.Context, limit int) (retried, cleared int, err error)
}

type Handler struct {
	images   imageIngestor
	listings listingCoordinator
	auth     *commonauth.Service
}

func NewHandler(images imageIngestor, listings listingCoordinator, auth *commonauth.Service) *Handler {
	return &Handler{images: images, listings: listings, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.GET("/listings/:id", h.getListing)

	authed := api.Group("")
	authed.Use(middleware.AuthRequired(h.auth))
	{
		authed.POST("/listings/images", h.uploadImage)
		authed.POST("/listings", h.submitListing)
		authed.DELETE("/listings/:id", h.deleteListing)
		authed.POST("/maintenance/sweep", middleware.RequireRoles("admin"), h.sweepPendingDeletions)
	}
}

func (h *Handler) uploadImage(c *gin.Context) {
	ownerID, err := actorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrUnauthorized))
		return
	}
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("image file is required"))
		return
	}
	// enforce the ceiling before buffering anything
	if fileHeader.Size > service.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, httpresp.NewErrorResponse(domain.ErrTooLarge.Error()))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("image file could not be read"))
		return
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, service.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("image file could not be read"))
		return
	}
	if int64(len(data)) > service.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, httpresp.NewErrorResponse(domain.ErrTooLarge.Error()))
		return
	}

	declaredType := fileHeader.Header.Get("Content-Type")
	asset, err := h.images.ProcessAndStore(c.Request.Context(), ownerID, fileHeader.Filename, data, declaredType)
	if err != nil {
		status, resp := imageErrorResponse(err)
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusCreated, asset)
}

func (h *Handler) submitListing(c *gin.Context) {
	ownerID, err := actorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrUnauthorized))
		return
	}
	var req service.SubmitListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}

	listing, err := h.listings.SubmitListing(c.Request.Context(), ownerID, req)
	if err != nil {
		var rateErr *domain.RateLimitError
		if errors.As(err, &rateErr) {
			c.JSON(http.StatusTooManyRequests, httpresp.NewRateLimitResponse(rateErr.Remaining, rateErr.ResetAt))
			return
		}
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, httpresp.NewValidationErrorResponse(toRespViolations(validationErr.Violations)))
			return
		}
		if errors.Is(err, domain.ErrRecordWrite) {
			c.JSON(http.StatusInternalServerError, httpresp.NewErrorResponse(httpresp.ErrSaveImagesFailed))
			return
		}
		commonlog.Errorf("submit listing: %v", err)
		c.JSON(http.StatusInternalServerError, httpresp.NewErrorResponse(httpresp.ErrInternal))
		return
	}
	c.JSON(http.StatusCreated, listing)
}

func (h *Handler) getListing(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("invalid listing id"))
		return
	}
	listing, err := h.listings.GetListing(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, httpresp.NewErrorResponse(httpresp.ErrNotFound))
			return
		}
		commonlog.Errorf("get listing %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, httpresp.NewErrorResponse(httpresp.ErrInternal))
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) deleteListing(c *gin.Context) {
	actorID, err := actorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrUnauthorized))
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("invalid listing id"))
		return
	}
	role := c.GetString("auth_role")
	if err := h.listings.DeleteListing(c.Request.Context(), actorID, role, id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, httpresp.NewErrorResponse(httpresp.ErrNotFound))
		case errors.Is(err, domain.ErrForbidden):
			c.JSON(http.StatusForbidden, httpresp.NewErrorResponse(httpresp.ErrForbidden))
		default:
			commonlog.Errorf("delete listing %d: %v", id, err)
			c.JSON(http.StatusInternalServerError, httpresp.NewErrorResponse(httpresp.ErrInternal))
		}
		return
	}
	c.JSON(http.StatusOK, httpresp.NewOKResponse())
}

func (h *Handler) sweepPendingDeletions(c *gin.Context) {
	var req struct {
		Limit int `json:"limit"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
			return
		}
	}
	retried, cleared, err := h.listings.SweepPendingDeletions(c.Request.Context(), req.Limit)
	if err != nil {
		commonlog.Errorf("sweep pending deletions: %v", err)
		c.JSON(http.StatusInternalServerError, httpresp.NewErrorResponse(httpresp.ErrInternal))
		return
	}
	c.JSON(http.StatusOK, NewSweepResponse(retried, cleared))
}

func actorFromContext(c *gin.Context) (string, error) {
	rawUserID, ok := c.Get("auth_user_id")
	if !ok {
		return "", http.ErrNoCookie
	}
	userID, ok := rawUserID.(string)
	if !ok || userID == "" {
		return "", http.ErrNoCookie
	}
	return userID, nil
}
