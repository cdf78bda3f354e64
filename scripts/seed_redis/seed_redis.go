package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file — using system environment variables")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisGetEnv("REDIS_ADDR", "localhost:6379"),
		Password: redisGetEnv("REDIS_PASSWORD", ""),
		DB:       0,
	})
	defer client.Close()

	ctx := context.Background()

	fmt.Println("Connecting to Redis...")
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Connection failed: %v\n\nMake sure Redis is running:\n  docker-compose up -d redis", err)
	}
	fmt.Println("✓ Connected")

	step1_api_keys(ctx, client)
	step2_asset_meta(ctx, client)
	step3_verify(ctx, client)

	fmt.Println("\n✅ Redis seeded successfully")
	fmt.Println("   Run next: go run cmd/sentinel/main.go")
}

func step1_api_keys(ctx context.Context, client *redis.Client) {
	fmt.Println("\n── Step 1: Seeding API keys ────────────────────")

	// Key pattern: sentinel:auth:{api_key} → identity
	// This is what authenticator.go looks up at Level 2
	// TTL = 0 means permanent — these never expire
	apiKeys := map[string]string{
		"sentinel:auth:gps_gateway_key": "gps_gateway",
		"sentinel:auth:import_job_key":  "attendance_import",
		"sentinel:auth:test_key":        "test_client",
	}

	for key, identity := range apiKeys {
		err := client.Set(ctx, key, identity, 0).Err()
		if err != nil {
			log.Fatalf("Failed to set key %s: %v", key, err)
		}
		fmt.Printf("  ✓ %-40s → %s\n", key, identity)
	}
}

func step2_asset_meta(ctx context.Context, client *redis.Client) {
	fmt.Println("\n── Step 2: Seeding asset metadata ──────────────")

	// Key pattern: asset:{id}:meta — the expected zone is what the
	// geofence detector compares resolved positions against.
	assets := []struct {
		id, label, zone string
	}{
		{"EXC-101", "Excavator 101 (Dave Ortiz)", "zone_north"},
		{"EXC-102", "Excavator 102 (open)", "zone_north"},
		{"TRK-210", "Water Truck 210 (Maria Chen)", "zone_south"},
		{"GEN-310", "Generator 310", "zone_south"},
	}

	for _, a := range assets {
		key := fmt.Sprintf("asset:%s:meta", a.id)
		err := client.HSet(ctx, key, map[string]interface{}{
			"label":         a.label,
			"expected_zone": a.zone,
		}).Err()
		if err != nil {
			log.Fatalf("Failed to seed asset %s: %v", a.id, err)
		}
		fmt.Printf("  ✓ %-10s → %s (%s)\n", a.id, a.zone, a.label)
	}
}

func step3_verify(ctx context.Context, client *redis.Client) {
	fmt.Println("\n── Step 3: Verification ────────────────────────")

	keys, err := client.Keys(ctx, "sentinel:auth:*").Result()
	if err != nil {
		log.Fatalf("Verification failed: %v", err)
	}
	fmt.Printf("  ✓ %d API keys found in Redis\n", len(keys))

	val, err := client.Get(ctx, "sentinel:auth:test_key").Result()
	if err != nil {
		log.Fatalf("Spot check failed: %v", err)
	}
	fmt.Printf("  ✓ spot check: sentinel:auth:test_key → %s\n", val)

	zone, err := client.HGet(ctx, "asset:EXC-101:meta", "expected_zone").Result()
	if err != nil {
		log.Fatalf("Asset meta spot check failed: %v", err)
	}
	fmt.Printf("  ✓ spot check: asset:EXC-101:meta → %s\n", zone)
}

func redisGetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
