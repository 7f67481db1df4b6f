package errs

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Respond writes a coded error to the client. Business failures go out as
// HTTP 200 with the code field set; unknown errors collapse to ErrInternal
// so internals never leak into a response body.
func Respond(c *gin.Context, err error) {
	if codeErr, ok := err.(*CodeError); ok {
		c.JSON(http.StatusOK, codeErr)
		return
	}
	c.JSON(http.StatusOK, ErrInternal)
}
