package repository

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"messenger/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const suggestKeyPrefix = "suggest:"

// SuggestRepository хранит персональные частоты слов в Redis sorted set:
// member = слово, score = сколько раз пользователь его написал
type SuggestRepository interface {
	IncrementWords(ctx context.Context, userID uuid.UUID, words []string) error
	TopByPrefix(ctx context.Context, userID uuid.UUID, prefix string, limit int) ([]string, error)
}

type suggestRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewSuggestRepository(redis *redis.Client, log logger.Logger) SuggestRepository {
	return &suggestRepository{redis: redis, log: log}
}

func (r *suggestRepository) IncrementWords(ctx context.Context, userID uuid.UUID, words []string) error {
	if len(words) == 0 {
		return nil
	}

	key := suggestKeyPrefix + userID.String()
	pipe := r.redis.Pipeline()
	for _, w := range words {
		pipe.ZIncrBy(ctx, key, 1, w)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error("Failed to increment word frequencies", "error", err, "user_id", userID)
		return err
	}

	return nil
}

// TopByPrefix собирает слова с данным префиксом через ZSCAN
// и сортирует по накопленной частоте
func (r *suggestRepository) TopByPrefix(ctx context.Context, userID uuid.UUID, prefix string, limit int) ([]string, error) {
	key := suggestKeyPrefix + userID.String()
	match := strings.ToLower(prefix) + "*"

	type scored struct {
		word  string
		score float64
	}

	var candidates []scored
	var cursor uint64
	for {
		pairs, next, err := r.redis.ZScan(ctx, key, cursor, match, 200).Result()
		if err != nil {
			r.log.Error("Failed to scan word frequencies", "error", err, "user_id", userID)
			return nil, err
		}
		// ZSCAN отдает пары member, score подряд
		for i := 0; i+1 < len(pairs); i += 2 {
			score, err := strconv.ParseFloat(pairs[i+1], 64)
			if err != nil {
				continue
			}
			candidates = append(candidates, scored{word: pairs[i], score: score})
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].word < candidates[j].word
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	words := make([]string, 0, len(candidates))
	for _, c := range candidates {
		words = append(words, c.word)
	}

	return words, nil
}
