package api

import (
	"net/http"

	"booking-service/internal/models"
	"booking-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type updateBookingBody struct {
	Status string `json:"status" binding:"omitempty,booking_status"`
}

func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("booking_status", func(fl validator.FieldLevel) bool {
		return models.IsBookingStatus(fl.Field().String())
	})
}

// createBooking handles booking creation
func (h *Handler) createBooking(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	booking, err := h.bookings.Create(c.Request.Context(), principalFrom(c).ID, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// myBookings lists the caller's bookings
func (h *Handler) myBookings(c *gin.Context) {
	list, err := h.bookings.ListMine(c.Request.Context(), principalFrom(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ownerBookings lists bookings of the assets the caller owns
func (h *Handler) ownerBookings(c *gin.Context) {
	list, err := h.bookings.ListForOwnerAssets(c.Request.Context(), principalFrom(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// getBooking handles getting a booking by ID
func (h *Handler) getBooking(c *gin.Context) {
	booking, err := h.bookings.Get(c.Request.Context(), principalFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *Handler) reviewableBooking(c *gin.Context) {
	booking, err := h.bookings.GetReviewable(c.Request.Context(), c.Param("id"), principalFrom(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// updateBooking applies a status change requested by the renter
func (h *Handler) updateBooking(c *gin.Context) {
	var body updateBookingBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "Invalid status")
			return
		}
	}

	booking, err := h.bookings.UpdateStatus(c.Request.Context(), c.Param("id"), principalFrom(c).ID, body.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// cancelBooking handles booking cancellation
func (h *Handler) cancelBooking(c *gin.Context) {
	booking, err := h.bookings.Cancel(c.Request.Context(), c.Param("id"), principalFrom(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
}
