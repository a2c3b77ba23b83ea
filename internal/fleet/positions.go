package fleet

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"backend-livetrack/internal/shared/geo"
)

const positionsKey = "fleet:positions"

func onlineKey(technicianID string) string {
	return "fleet:online:" + technicianID
}

// PositionStore keeps last known technician positions in a Redis geo set.
// A technician is online while its heartbeat key has not expired.
type PositionStore struct {
	client    *redis.Client
	onlineTTL time.Duration
}

func NewPositionStore(client *redis.Client, onlineTTL time.Duration) *PositionStore {
	return &PositionStore{client: client, onlineTTL: onlineTTL}
}

func (s *PositionStore) Record(ctx context.Context, technicianID string, at geo.Point) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.GeoAdd(ctx, positionsKey, &redis.GeoLocation{
			Name:      technicianID,
			Longitude: at.Lng,
			Latitude:  at.Lat,
		})
		pipe.Set(ctx, onlineKey(technicianID), 1, s.onlineTTL)
		return nil
	})
	return err
}

// Positions returns the known positions among ids. Unknown ids are absent.
func (s *PositionStore) Positions(ctx context.Context, ids ...string) (map[string]Position, error) {
	out := map[string]Position{}
	if len(ids) == 0 {
		return out, nil
	}

	coords, err := s.client.GeoPos(ctx, positionsKey, ids...).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = onlineKey(id)
	}
	flags, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for i, id := range ids {
		if i >= len(coords) || coords[i] == nil {
			continue
		}
		out[id] = Position{
			Point:  geo.Point{Lat: coords[i].Latitude, Lng: coords[i].Longitude},
			Online: i < len(flags) && flags[i] != nil,
		}
	}
	return out, nil
}

// Nearby returns technician ids within radiusKm of center, closest first.
func (s *PositionStore) Nearby(ctx context.Context, center geo.Point, radiusKm float64) ([]string, error) {
	results, err := s.client.GeoRadius(ctx, positionsKey, center.Lng, center.Lat, &redis.GeoRadiusQuery{
		Radius: radiusKm,
		Unit:   "km",
		Sort:   "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Name)
	}
	return ids, nil
}

func (s *PositionStore) Remove(ctx context.Context, technicianID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, positionsKey, technicianID)
		pipe.Del(ctx, onlineKey(technicianID))
		return nil
	})
	return err
}
