package alerts

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	platformredis "medledger/internal/platform/redis"
	id "medledger/pkg/domain"
)

// recencyTTL bounds how long the recent-alert index is retained per program.
const recencyTTL = 72 * time.Hour

// RecencyCache is a best-effort Redis index of recently raised alerts per
// program, scored by raise time. Cache failures degrade to store scans; they
// are never surfaced to callers.
type RecencyCache struct {
	client *platformredis.Client
}

func NewRecencyCache(client *platformredis.Client) *RecencyCache {
	if client == nil {
		return nil
	}
	return &RecencyCache{client: client}
}

func recencyKey(programID id.ProgramID) string {
	return "medledger:alerts:recent:" + programID.String()
}

// Record indexes a raised alert.
func (c *RecencyCache) Record(ctx context.Context, alert *Alert) error {
	key := recencyKey(alert.ProgramID)
	pipe := c.client.TxPipeline()
	pipe.ZAdd(ctx, key, goredis.Z{
		Score:  float64(alert.RaisedAt.UnixMilli()),
		Member: alert.ID.String(),
	})
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(time.Now().Add(-recencyTTL).UnixMilli(), 10))
	pipe.Expire(ctx, key, recencyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record alert recency: %w", err)
	}
	return nil
}

// RecentIDs returns alert IDs raised at or after since, newest first.
func (c *RecencyCache) RecentIDs(ctx context.Context, programID id.ProgramID, since time.Time) ([]id.AlertID, error) {
	members, err := c.client.ZRevRangeByScore(ctx, recencyKey(programID), &goredis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read alert recency: %w", err)
	}
	out := make([]id.AlertID, 0, len(members))
	for _, m := range members {
		alertID, err := id.ParseAlertID(m)
		if err != nil {
			continue
		}
		out = append(out, alertID)
	}
	return out, nil
}
