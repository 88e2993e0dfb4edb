package controllers

import (
	"net/http"

	"github.com/flotadata/flota_backend/models"
	"github.com/gin-gonic/gin"
)

// ListPendingPayments filters with ?responsible_party_id=&state=&from=&to=.
func ListPendingPayments(c *gin.Context) {
	filter := models.PendingPaymentFilter{
		ResponsiblePartyId: queryInt(c, "responsible_party_id"),
		FromDate:           queryDate(c, "from"),
		ToDate:             queryDate(c, "to"),
	}
	if v := c.Query("state"); v != "" {
		s := models.PendingPaymentState(v)
		if !s.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
			return
		}
		filter.State = &s
	}

	payments, err := models.ListPendingPayments(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func GetPendingPayment(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	payment, err := models.GetPendingPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// SettlePendingPayment flips a Pending debt to Paid.
func SettlePendingPayment(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	payment, err := models.SettlePendingPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}
