// Package service holds the business logic of the development backend.
package service

import (
	"goodthings/internal/config"
	"goodthings/internal/repository"
)

type Service struct {
	Auth AuthService
	Post PostService
}

func NewService(rep *repository.Repository, cfg config.Server) *Service {
	return &Service{
		Auth: NewAuthService(rep.User, cfg),
		Post: NewPostService(rep.Post),
	}
}
