package contact

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
)

type ContactUseCase interface {
	Submit(ctx context.Context, input SubmitInput) (int64, error)
}

type SubmitInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type ContactService struct {
	repo repository.ContactRepository
}

func NewContactService(repo repository.ContactRepository) *ContactService {
	return &ContactService{repo: repo}
}

func (s *ContactService) Submit(ctx context.Context, input SubmitInput) (int64, error) {
	msg := &domain.ContactMessage{
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.TrimSpace(input.Email),
		Subject: strings.TrimSpace(input.Subject),
		Message: strings.TrimSpace(input.Message),
	}
	if msg.Name == "" || msg.Email == "" || msg.Message == "" {
		return 0, fmt.Errorf("name, email and message are required: %w", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(msg.Email); err != nil {
		return 0, fmt.Errorf("invalid email: %w", domain.ErrInvalidInput)
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return 0, domain.Classify(err)
	}
	return msg.ID, nil
}

var _ ContactUseCase = (*ContactService)(nil)
