package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"fleet-sentinel/internal/config"
	"fleet-sentinel/internal/domain"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     20,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Client() *redis.Client {
	return r.client
}

// stateTTL keeps idle assets around long enough for the long-offline
// detector to see them before they age out entirely.
const stateTTL = 7 * 24 * time.Hour

func (r *RedisStore) PipelineStateUpdate(ctx context.Context, msg *domain.TelemetryMessage) error {
	stateData := map[string]interface{}{
		"asset_id":    msg.AssetID,
		"fleet_id":    msg.FleetID,
		"lat":         msg.Latitude,
		"lng":         msg.Longitude,
		"speed_mph":   msg.SpeedMph,
		"odometer_mi": msg.OdometerMi,
		"is_moving":   msg.IsMoving,
		"ignition_on": msg.IgnitionOn,
		"timestamp":   msg.Timestamp.Unix(),
		"received_at": msg.ReceivedAt.Unix(),
	}

	pubPayload, err := json.Marshal(stateData)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	assetStateKey := fmt.Sprintf("asset:%s:state", msg.AssetID)
	geoKey := fmt.Sprintf("fleet:%s:geo", msg.FleetID)
	pubChannel := fmt.Sprintf("fleet:%s:telemetry", msg.FleetID)

	pipe := r.client.Pipeline()

	pipe.HSet(ctx, assetStateKey, stateData)
	pipe.Expire(ctx, assetStateKey, stateTTL)
	pipe.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      msg.AssetID,
		Longitude: msg.Longitude,
		Latitude:  msg.Latitude,
	})
	pipe.Publish(ctx, pubChannel, pubPayload)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}

	return nil
}

// SetAssetMeta stores the static asset facts the scanner needs but
// telemetry does not carry, mainly the expected zone assignment.
func (r *RedisStore) SetAssetMeta(ctx context.Context, assetID, label, expectedZone string) error {
	key := fmt.Sprintf("asset:%s:meta", assetID)
	return r.client.HSet(ctx, key, map[string]interface{}{
		"label":         label,
		"expected_zone": expectedZone,
	}).Err()
}

// FleetAssets materializes the fleet snapshot the scanner and access filter
// run over. Assets with unparseable state are skipped, not surfaced.
func (r *RedisStore) FleetAssets(ctx context.Context, fleetID string) ([]domain.Asset, error) {
	geoKey := fmt.Sprintf("fleet:%s:geo", fleetID)
	ids, err := r.client.ZRange(ctx, geoKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list fleet members: %w", err)
	}

	assets := make([]domain.Asset, 0, len(ids))
	for _, id := range ids {
		state, err := r.client.HGetAll(ctx, fmt.Sprintf("asset:%s:state", id)).Result()
		if err != nil || len(state) == 0 {
			continue
		}
		meta, _ := r.client.HGetAll(ctx, fmt.Sprintf("asset:%s:meta", id)).Result()

		asset, ok := assetFromState(id, state, meta)
		if !ok {
			continue
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

func assetFromState(id string, state, meta map[string]string) (domain.Asset, bool) {
	lat, errLat := strconv.ParseFloat(state["lat"], 64)
	lng, errLng := strconv.ParseFloat(state["lng"], 64)
	if errLat != nil || errLng != nil {
		return domain.Asset{}, false
	}

	ts, err := strconv.ParseInt(state["timestamp"], 10, 64)
	if err != nil {
		return domain.Asset{}, false
	}

	moving, _ := strconv.ParseBool(state["is_moving"])
	ignition, _ := strconv.ParseBool(state["ignition_on"])

	return domain.Asset{
		ID:           id,
		Label:        meta["label"],
		Latitude:     lat,
		Longitude:    lng,
		IsMoving:     moving,
		IgnitionOn:   ignition,
		LastUpdate:   time.Unix(ts, 0),
		ExpectedZone: meta["expected_zone"],
	}, true
}

func (r *RedisStore) GetAPIKey(ctx context.Context, apiKey string) (string, error) {
	key := fmt.Sprintf("sentinel:auth:%s", apiKey)
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get api key failed: %w", err)
	}
	return val, nil
}

func (r *RedisStore) CheckAlertDedup(ctx context.Context, assetID string, alertType domain.AlertType) (bool, error) {
	key := fmt.Sprintf("alert:%s:%s", assetID, string(alertType))
	count, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return count > 0, nil
}

func (r *RedisStore) SetAlertDedup(ctx context.Context, assetID string, alertType domain.AlertType) error {
	key := fmt.Sprintf("alert:%s:%s", assetID, string(alertType))
	return r.client.Set(ctx, key, "1", 5*time.Minute).Err()
}

func (r *RedisStore) PublishAlert(ctx context.Context, fleetID string, payload []byte) error {
	channel := fmt.Sprintf("fleet:%s:alerts", fleetID)
	return r.client.Publish(ctx, channel, payload).Err()
}

// SubscribeAlerts returns a pub/sub subscription on the fleet alert channel.
// Caller owns the subscription and must Close it.
func (r *RedisStore) SubscribeAlerts(ctx context.Context, fleetID string) *redis.PubSub {
	channel := fmt.Sprintf("fleet:%s:alerts", fleetID)
	return r.client.Subscribe(ctx, channel)
}
