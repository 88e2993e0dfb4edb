package controllers

import (
	"net/http"

	"github.com/flotadata/flota_backend/models"
	"github.com/flotadata/flota_backend/workflow"
	"github.com/gin-gonic/gin"
)

type transactionResponse struct {
	Entry  *models.LedgerEntry         `json:"entry"`
	Result *workflow.ApplicationResult `json:"result"`
}

func CreateTransaction(c *gin.Context) {
	var input models.NewLedgerEntry
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, result, err := workflow.CreateLedgerEntry(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, transactionResponse{Entry: entry, Result: result})
}

func UpdateTransaction(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var input models.NewLedgerEntry
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, result, err := workflow.UpdateLedgerEntry(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactionResponse{Entry: entry, Result: result})
}

func DeleteTransaction(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	entry, result, err := workflow.DeleteLedgerEntry(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry, "result": result})
}

func GetTransaction(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	entry, err := models.GetLedgerEntry(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ListTransactions filters with ?box_id=&direction=&category=&from=&to=,
// or paginates with ?limit=&after=.
func ListTransactions(c *gin.Context) {
	ctx := c.Request.Context()

	var direction *models.TransactionDirection
	if v := c.Query("direction"); v != "" {
		d := models.TransactionDirection(v)
		if !d.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid direction"})
			return
		}
		direction = &d
	}

	if limit := queryInt(c, "limit"); limit != nil {
		connection, err := models.PaginateLedgerEntry(ctx, limit, queryString(c, "after"),
			queryInt(c, "box_id"), direction)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
		return
	}

	entries, err := models.GetLedgerEntries(ctx, queryInt(c, "box_id"), direction,
		queryString(c, "category"), queryDate(c, "from"), queryDate(c, "to"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
