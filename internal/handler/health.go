package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports whether the reservation service is up.  It answers with a
// small JSON document so load balancers and humans see the same shape as
// the rest of the API.  It deliberately checks nothing downstream: the
// gateway and the broker being down degrade individual operations, not the
// process.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "reservation"})
}
