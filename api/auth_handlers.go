package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"trellis-api/domain"
)

const bcryptCost = 10

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return strings.IndexByte(email[at+1:], '.') > 0
}

func postRegister(store Store, tokens *Tokens) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req registerRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if !validEmail(req.Email) {
			return writeError(c, fmt.Errorf("%w: invalid email", domain.ErrInvalidArgument))
		}
		if len(req.Password) < 8 {
			return writeError(c, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidArgument))
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			return writeError(c, err)
		}

		user := domain.User{
			ID:           uuid.NewString(),
			Email:        strings.ToLower(strings.TrimSpace(req.Email)),
			PasswordHash: string(hash),
			CreatedAt:    domain.Now(),
		}
		if err := store.InsertUser(c.Request().Context(), user); err != nil {
			return writeError(c, err)
		}

		token, err := tokens.Issue(user)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, tokenResponse{Token: token})
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func postLogin(store Store, tokens *Tokens) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		user, err := store.FindUserByEmail(c.Request().Context(), req.Email)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
			}
			return writeError(c, err)
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		}

		token, err := tokens.Issue(user)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, tokenResponse{Token: token})
	}
}
