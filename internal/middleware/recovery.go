package middleware

import (
	"errors"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into a 500 with the standard error body.
// A client that went away gets no response at all.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			event := log.Error().
				Interface("panic", r).
				Str("path", c.Request.URL.Path).
				Str("request_id", c.Writer.Header().Get(requestIDHeader))

			if err, ok := r.(error); ok && brokenPipe(err) {
				event.Msg("client connection lost")
				c.Abort()
				return
			}

			event.Bytes("stack", debug.Stack()).Msg("panic recovered")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "internal",
				"message": "internal server error",
			})
		}()
		c.Next()
	}
}

func brokenPipe(err error) bool {
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	var sysErr *os.SyscallError
	if errors.As(opErr, &sysErr) {
		return errors.Is(sysErr.Err, syscall.EPIPE) || errors.Is(sysErr.Err, syscall.ECONNRESET)
	}
	return false
}
