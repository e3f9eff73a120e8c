package viverse

import (
	"context"
	"strings"

	"github.com/morezero/viverse-bridge/pkg/result"
)

// LeaderboardService uploads scores and reads rankings.
type LeaderboardService struct {
	c *Client
}

type scoreArgs struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// UploadScore submits value to the named leaderboard.
func (s *LeaderboardService) UploadScore(ctx context.Context, name string, value float64) result.Result[struct{}] {
	if strings.TrimSpace(name) == "" {
		return result.Failure[struct{}](result.CodeInvalidParameter, "leaderboard name is required")
	}
	return callAck(ctx, s.c, MethodUploadScore, scoreArgs{Name: name, Value: value})
}

// GetLeaderboard returns one page of a leaderboard in rank order.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, q LeaderboardQuery) result.Result[[]LeaderboardEntry] {
	if strings.TrimSpace(q.Name) == "" {
		return result.Failure[[]LeaderboardEntry](result.CodeInvalidParameter, "leaderboard name is required")
	}
	if q.Range < 0 {
		return result.Failure[[]LeaderboardEntry](result.CodeInvalidParameter, "range must not be negative")
	}
	return callList[LeaderboardEntry](ctx, s.c, MethodGetLeaderboard, q, "ranking", "entries")
}
