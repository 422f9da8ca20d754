package stockstate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func stockKey(depotID int64) string {
	return fmt.Sprintf("gasflow:depot:%d:stock", depotID)
}

func metaKey(depotID int64) string {
	return fmt.Sprintf("gasflow:depot:%d:meta", depotID)
}

func totalKey(depotID int64) string {
	return fmt.Sprintf("gasflow:depot:%d:total", depotID)
}

const allDepotsKey = "gasflow:depots"

func (r *RedisStore) SetDepotStock(ctx context.Context, depotID int64, items []StockItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, stockKey(depotID), data, 0)
	pipe.Set(ctx, totalKey(depotID), total, 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetDepotStock(ctx context.Context, depotID int64) ([]StockItem, error) {
	data, err := r.client.Get(ctx, stockKey(depotID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []StockItem
	return items, json.Unmarshal(data, &items)
}

func (r *RedisStore) UpdateDepotMeta(ctx context.Context, meta *DepotMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, metaKey(meta.DepotID), data, 0)
	pipe.SAdd(ctx, allDepotsKey, meta.DepotID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetDepotMeta(ctx context.Context, depotID int64) (*DepotMeta, error) {
	data, err := r.client.Get(ctx, metaKey(depotID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta DepotMeta
	return &meta, json.Unmarshal(data, &meta)
}

func (r *RedisStore) GetTotal(ctx context.Context, depotID int64) (int, error) {
	val, err := r.client.Get(ctx, totalKey(depotID)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

func (r *RedisStore) GetAllDepotIDs(ctx context.Context) ([]int64, error) {
	members, err := r.client.SMembers(ctx, allDepotsKey).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *RedisStore) RemoveDepot(ctx context.Context, depotID int64) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, stockKey(depotID), metaKey(depotID), totalKey(depotID))
	pipe.SRem(ctx, allDepotsKey, depotID)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) FlushAll(ctx context.Context) error {
	ids, err := r.GetAllDepotIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		r.RemoveDepot(ctx, id)
	}
	return r.client.Del(ctx, allDepotsKey).Err()
}
