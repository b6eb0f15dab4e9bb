package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-booking/internal/model"
	"github.com/iliyamo/hostel-booking/internal/repository"
	"github.com/iliyamo/hostel-booking/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Users      *repository.UserRepo
	Tokens     *utils.TokenCodec
	BcryptCost int
}

func NewAuthHandler(u *repository.UserRepo, tokens *utils.TokenCodec, bcryptCost int) *AuthHandler {
	return &AuthHandler{Users: u, Tokens: tokens, BcryptCost: bcryptCost}
}

// ----- DTOs -----

type registerReq struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"` // GUEST | HOSTELOWNER
}

type loginReq struct {
	Login    string `json:"login"` // e-mail or phone
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResp struct {
	User    model.User `json:"user"`
	Token   string     `json:"token"`
	Expires time.Time  `json:"expires"`
}

// Register creates a GUEST or HOSTELOWNER account and returns a token.
// Admin accounts cannot be self-registered.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		return badRequest(c, "fullName, email and password required")
	}
	if len(req.Password) < 6 {
		return badRequest(c, "password too short")
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	switch role {
	case "":
		role = model.RoleGuest
	case model.RoleGuest, model.RoleHostelOwner:
	default:
		return badRequest(c, "role must be GUEST or HOSTELOWNER")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUser{
		FullName: req.FullName, Email: req.Email, Phone: req.Phone, Password: req.Password, Role: role,
	}, h.BcryptCost)
	if err != nil {
		return fail(c, err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	token, exp, err := h.Tokens.Issue(uid, role)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, authResp{User: u, Token: token, Expires: exp})
}

// Login verifies the credentials (e-mail or phone) and returns a token.
// Unknown users, wrong passwords and deactivated accounts all get 401.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	login := strings.TrimSpace(req.Login)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}
	if login == "" || req.Password == "" {
		return badRequest(c, "login/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return fail(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) || !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, exp, err := h.Tokens.Issue(u.ID, u.Role)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, authResp{User: u, Token: token, Expires: exp})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	u, err := h.Users.GetByID(c.Request().Context(), uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
