package controllers

import (
	"net/http"

	"settlement-service/middleware"
	"settlement-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CheckoutController struct {
	Checkout CheckoutAPI
}

// BeginCheckout starts a checkout session for the authenticated customer.
func (cc *CheckoutController) BeginCheckout(c *gin.Context) {
	customerID, ok := callerID(c)
	if !ok {
		return
	}

	var req services.BeginCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, svcErr := cc.Checkout.BeginCheckout(c.Request.Context(), customerID, &req)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Finalize settles a checkout session into an order. Safe to call repeatedly
// with the same reference.
func (cc *CheckoutController) Finalize(c *gin.Context) {
	customerID, ok := callerID(c)
	if !ok {
		return
	}

	var req services.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, svcErr := cc.Checkout.Finalize(c.Request.Context(), customerID, &req)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, order)
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user identity"})
		return uuid.Nil, false
	}
	return id, true
}
