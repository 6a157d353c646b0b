package service

import (
	"context"
	"strings"
	"unicode"

	"messenger/internal/repository"
	"messenger/pkg/logger"

	"github.com/google/uuid"
)

type SuggestService interface {
	Record(ctx context.Context, userID uuid.UUID, text string) error
	Suggest(ctx context.Context, userID uuid.UUID, prefix string, limit int) ([]string, error)
}

type suggestService struct {
	suggestRepo repository.SuggestRepository
	log         logger.Logger
}

func NewSuggestService(suggestRepo repository.SuggestRepository, log logger.Logger) SuggestService {
	return &suggestService{suggestRepo: suggestRepo, log: log}
}

// Record разбирает текст на слова и пополняет частотную таблицу пользователя
func (s *suggestService) Record(ctx context.Context, userID uuid.UUID, text string) error {
	words := Tokenize(text)
	if len(words) == 0 {
		return nil
	}
	return s.suggestRepo.IncrementWords(ctx, userID, words)
}

func (s *suggestService) Suggest(ctx context.Context, userID uuid.UUID, prefix string, limit int) ([]string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return []string{}, nil
	}
	if limit <= 0 || limit > 20 {
		limit = 5
	}
	return s.suggestRepo.TopByPrefix(ctx, userID, prefix, limit)
}

// Tokenize нормализует текст: нижний регистр, только буквенно-цифровые
// слова длиной от двух символов
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		words = append(words, f)
	}
	return words
}
