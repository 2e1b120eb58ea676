package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

var ErrResultNotFound = errors.New("game result not found")

type ArchiveRepository interface {
	SaveResult(ctx context.Context, result *entity.GameResult) error
	GetByID(ctx context.Context, id string) (*entity.GameResult, error)
	WinsByPlayer(ctx context.Context, name string) (int64, error)
}

type dbArchive struct {
	client *redis.Client
}

func NewArchiveRepository(client *redis.Client) ArchiveRepository {
	return &dbArchive{
		client: client,
	}
}

// SaveResult - records a finished game and bumps the winner's counter.
func (that *dbArchive) SaveResult(ctx context.Context, result *entity.GameResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("could not marshal game result: %w", err)
	}

	resultKey := "game:archive:" + result.ID
	if err = that.client.Set(ctx, resultKey, resultJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set game result: %w", err)
	}

	if result.IsTie() {
		return nil
	}

	winsKey := "game:archive:wins:" + result.Winner
	if err = that.client.Incr(ctx, winsKey).Err(); err != nil {
		return fmt.Errorf("failed to increment wins: %w", err)
	}

	return nil
}

func (that *dbArchive) GetByID(ctx context.Context, id string) (*entity.GameResult, error) {
	resultKey := "game:archive:" + id

	response, err := that.client.Get(ctx, resultKey).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrResultNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game result: %w", err)
	}

	var result entity.GameResult
	if err = json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game result: %w", err)
	}

	return &result, nil
}

func (that *dbArchive) WinsByPlayer(ctx context.Context, name string) (int64, error) {
	winsKey := "game:archive:wins:" + name

	wins, err := that.client.Get(ctx, winsKey).Int64()

	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to get wins: %w", err)
	}

	return wins, nil
}
