package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PhoenixRFA/backlogapp/internal/server/models"
)

type tokenDTO struct {
	Bearer  string    `json:"bearer"`
	Expired time.Time `json:"expired"`
}

type userDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// sessionDTO is the payload of every successful login/refresh response.
type sessionDTO struct {
	Token tokenDTO `json:"token"`
	User  userDTO  `json:"user"`
}

func newUserDTO(u *models.User) userDTO {
	return userDTO{ID: u.ID, Name: u.Name, Email: u.Email}
}

func newSessionDTO(bearer string, expired time.Time, u *models.User) sessionDTO {
	return sessionDTO{
		Token: tokenDTO{Bearer: bearer, Expired: expired},
		User:  newUserDTO(u),
	}
}

func errorBody(msg string) gin.H {
	return gin.H{"error": msg}
}
