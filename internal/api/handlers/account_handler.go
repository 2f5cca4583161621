package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/services"
)

// AccountHandler registers identities and exchanges credentials for the
// bearer token the other endpoints expect.
type AccountHandler struct {
	authService *services.AuthService
}

func NewAccountHandler(authService *services.AuthService) *AccountHandler {
	return &AccountHandler{authService: authService}
}

// RegisterDriver handles POST /drivers.
func (h *AccountHandler) RegisterDriver(c *gin.Context) {
	var req services.DriverInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	driver, err := h.authService.NewDriver(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, driver)
}

// RegisterPassenger handles POST /passengers.
func (h *AccountHandler) RegisterPassenger(c *gin.Context) {
	var req services.PassengerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	passenger, err := h.authService.NewPassenger(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, passenger)
}

type LoginRequest struct {
	NationalID string `json:"national_id" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// Login handles POST /login. The token is the national ID itself.
func (h *AccountHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity, err := h.authService.Authenticate(c.Request.Context(), req.NationalID, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":       identity.NationalID(),
		"kind":        identity.Kind(),
		"national_id": identity.NationalID(),
		"name":        identity.Profile().FullName(),
	})
}
