package errors

import (
	"github.com/gin-gonic/gin"
)

// Respond writes err as {"error": message} with the status for its code.
// Internal errors are also attached to the gin context for request logging.
func Respond(c *gin.Context, err error) {
	code := GetCode(err)
	if code == CodeInternal {
		_ = c.Error(err)
	}
	c.JSON(code.HTTPStatus(), gin.H{"error": GetMessage(err)})
}
