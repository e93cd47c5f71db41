package health

import (
	"github.com/ethanbaker/mentor/pkg/sdk"
	"github.com/gin-gonic/gin"
)

// getStatus reports that the server is accepting requests
func getStatus(c *gin.Context) {
	c.JSON(sdk.NewSuccessResponse("Service is healthy", sdk.HealthResponse{Status: "ok"}).AsGinResponse())
}
