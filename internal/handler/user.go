package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"facilita/internal/auth"
	"facilita/internal/domain"
	"facilita/internal/repository"
)

// UserHandler handles HTTP requests for user accounts.
type UserHandler struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenManager
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userRepo repository.UserRepository, tokens *auth.TokenManager) *UserHandler {
	return &UserHandler{userRepo: userRepo, tokens: tokens}
}

// RegisterRequest is the HTTP request body for user registration.
type RegisterRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

// UserResponse is the HTTP response for user data.
type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

// RegisterResponse is the HTTP response for registration, including the
// access token.
type RegisterResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// Register handles POST /usuarios/registrar
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Name == "" || req.Phone == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name and phone are required"})
		return
	}

	role := domain.Role(req.Role)
	if role != domain.RoleContractor && role != domain.RoleProvider {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "role must be CONTRACTOR or PROVIDER"})
		return
	}

	// Check if user already exists
	existing, err := h.userRepo.GetByPhone(c.Request.Context(), req.Phone)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		respondError(c, err)
		return
	}

	if existing != nil {
		token, err := h.tokens.Generate(existing.ID, existing.Role, existing.Name)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, RegisterResponse{
			User:  toUserResponse(existing),
			Token: token,
		})
		return
	}

	user := &domain.User{
		ID:    uuid.New().String(),
		Name:  req.Name,
		Phone: req.Phone,
		Role:  role,
	}

	if err := h.userRepo.Create(c.Request.Context(), user); err != nil {
		respondError(c, err)
		return
	}

	token, err := h.tokens.Generate(user.ID, user.Role, user.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{
		User:  toUserResponse(user),
		Token: token,
	})
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:    u.ID,
		Name:  u.Name,
		Phone: u.Phone,
		Role:  string(u.Role),
	}
}
