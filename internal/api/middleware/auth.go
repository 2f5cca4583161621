// Package middleware resolves the caller of a request and gates the
// driver-only and passenger-only route groups.
//
// Go Learning Note - Middleware Pattern (Gin):
// A gin.HandlerFunc placed with Use runs before the route handler. Calling
// c.Abort() after writing a response ends the request there; otherwise
// c.Next() hands control on. Values set with c.Set live only for the
// current request, which is how the identity reaches the handlers.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain/entities"
	"carpool/internal/services"
)

// Context keys for the authenticated caller. The handlers read the current
// driver or passenger from here and pass it to the engine explicitly.
const (
	IdentityKey         = "identity"
	CurrentDriverKey    = "current_driver"
	CurrentPassengerKey = "current_passenger"
)

// Authenticate resolves "Authorization: Bearer <nationalId>" to a registered
// identity. The token is the national ID returned by POST /login; there is
// no signature to verify.
func Authenticate(engine *services.ReservationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			c.Abort()
			return
		}

		identity, err := engine.LookupIdentity(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown identity"})
			c.Abort()
			return
		}

		c.Set(IdentityKey, identity)
		if d, ok := identity.AsDriver(); ok {
			c.Set(CurrentDriverKey, d)
		}
		if p, ok := identity.AsPassenger(); ok {
			c.Set(CurrentPassengerKey, p)
		}
		c.Next()
	}
}

// RequireDriver ensures the authenticated caller is a driver. Must be used
// after Authenticate in the chain.
func RequireDriver() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(CurrentDriverKey); !exists {
			c.JSON(http.StatusForbidden, gin.H{"error": "driver access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func RequirePassenger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(CurrentPassengerKey); !exists {
			c.JSON(http.StatusForbidden, gin.H{"error": "passenger access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentDriver returns the driver set by Authenticate.
//
// Go Learning Note - Type Assertion:
// c.MustGet panics when the key is missing and .(*entities.Driver) panics on
// a different type. Both are acceptable here because RequireDriver has
// already guaranteed the value; gin.Recovery turns a programming error into
// a 500 rather than a crash.
func CurrentDriver(c *gin.Context) *entities.Driver {
	return c.MustGet(CurrentDriverKey).(*entities.Driver)
}

func CurrentPassenger(c *gin.Context) *entities.Passenger {
	return c.MustGet(CurrentPassengerKey).(*entities.Passenger)
}
