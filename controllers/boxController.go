package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/flotadata/flota_backend/models"
	"github.com/flotadata/flota_backend/models/reports"
	"github.com/gin-gonic/gin"
)

func CreateBox(c *gin.Context) {
	var input models.NewOperatingBox
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	box, err := models.CreateOperatingBox(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, box)
}

func UpdateBox(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var input models.NewOperatingBox
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	box, err := models.UpdateOperatingBox(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, box)
}

func DeleteBox(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	box, err := models.DeleteOperatingBox(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, box)
}

func GetBox(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	box, err := models.GetOperatingBox(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, box)
}

// ListBoxes returns the business's boxes; ?low_balance=true narrows to the
// boxes below the warning threshold.
func ListBoxes(c *gin.Context) {
	if c.Query("low_balance") == "true" {
		boxes, err := models.GetLowBalanceBoxes(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, boxes)
		return
	}

	boxes, err := models.GetOperatingBoxes(c.Request.Context(), queryString(c, "name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, boxes)
}

// BoxHistory returns a box's audit trail oldest-to-newest, optionally
// windowed with ?from=&to= or paginated with ?limit=&after=.
func BoxHistory(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if limit := queryInt(c, "limit"); limit != nil {
		connection, err := models.PaginateBoxHistory(ctx, limit, queryString(c, "after"), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
		return
	}

	history, err := models.GetBoxHistory(ctx, id, queryDate(c, "from"), queryDate(c, "to"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// ExportBoxHistory streams the box ledger as an Excel workbook.
func ExportBoxHistory(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	box, err := models.GetOperatingBox(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	history, err := models.GetBoxHistory(ctx, id, queryDate(c, "from"), queryDate(c, "to"))
	if err != nil {
		respondError(c, err)
		return
	}

	file, err := reports.BuildBoxLedgerWorkbook(box, history)
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	filename := fmt.Sprintf("box-%d-ledger-%s.xlsx", box.ID, time.Now().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := file.Write(c.Writer); err != nil {
		respondError(c, err)
	}
}

// BoxSummary aggregates movement totals per box for the dashboard.
func BoxSummary(c *gin.Context) {
	summary, err := reports.BoxSummaries(c.Request.Context(), queryDate(c, "from"), queryDate(c, "to"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
