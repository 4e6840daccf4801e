package backends

import (
	"commitlens/internal/backends/ddb"
	"commitlens/internal/backends/file"
	"commitlens/internal/ports"
	"commitlens/internal/types"
	"context"
	"crypto/sha1"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/redis/go-redis/v9"

	redisbackend "commitlens/internal/backends/redis"
)

const (
	StateBackendEnvKey = "STATE_BACKEND"
	BackendFile        = "file"
	BackendDDB         = "ddb"
	BackendRedis       = "redis"

	StateFileKey     = "STATE_FILE"
	StateCompressKey = "STATE_COMPRESS"

	DDBEndpointKey = "DDB_ENDPOINT"
	DDBTableKey    = "DDB_TABLE"
	SNSEndpointKey = "SNS_ENDPOINT"

	RedisHost  = "REDIS_HOST"
	RedisPort  = "REDIS_PORT"
	RedisUser  = "REDIS_USER"
	RedisPass  = "REDIS_PASS"
	RedisTLS   = "REDIS_SSL"
	RedisDBNum = "REDIS_DB_NUM"

	defaultTable = "commitlens"
)

// StateBackendFromEnv constructs the StateStore for the cache belonging to configPath.
// Supported backends are "file" (default), "redis" and "ddb", selected by STATE_BACKEND.
// Each config path gets its own cache name so several projects can share one Redis or table.
func StateBackendFromEnv(ctx context.Context, configPath string) (ports.StateStore, error) {
	name := CacheName(configPath)
	compress := parseBoolean(getenv(StateCompressKey, "false"))

	switch backend := os.Getenv(StateBackendEnvKey); backend {
	case BackendRedis:
		redisClient, err := redisClientFromEnv(ctx)
		if err != nil {
			return nil, err
		}
		return redisbackend.NewStateStore(redisClient, name, compress), nil

	case BackendDDB:
		ddbClient, err := ddbClientFromEnv(ctx)
		if err != nil {
			return nil, err
		}
		return ddb.NewStateStore(ctx, getenv(DDBTableKey, defaultTable), name, compress, ddbClient)

	case BackendFile, "":
		p := os.Getenv(StateFileKey)
		if p == "" {
			p = filepath.Join(filepath.Dir(configPath), ".commitlens", "directory-cache.json")
		}
		return file.NewStateStore(p, compress), nil

	default:
		return nil, types.Err(types.ErrInvalidBackend, nil, "unknown state backend %q", backend)
	}
}

// CacheName derives a stable short name for the cache attached to a config file.
func CacheName(configPath string) string {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		abs = configPath
	}
	sum := sha1.Sum([]byte(filepath.Clean(abs)))
	return hex.EncodeToString(sum[:])[:12]
}

// SNSClientFromEnv creates an SNS client; SNS_ENDPOINT points it at a local emulator.
func SNSClientFromEnv(ctx context.Context) (*sns.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	se := os.Getenv(SNSEndpointKey)
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if se != "" {
			o.BaseEndpoint = aws.String(se)
			if o.Region == "" {
				o.Region = getenv("AWS_REGION", "us-east-1")
			}
			o.Credentials = credentials.NewStaticCredentialsProvider("test", "test", "")
		}
	}), nil
}

// ddbClientFromEnv creates a DynamoDB client from environment variables, if any.
func ddbClientFromEnv(ctx context.Context) (*dynamodb.Client, error) {
	var ddbEndpoint *string
	if de := os.Getenv(DDBEndpointKey); de != "" {
		ddbEndpoint = aws.String(de)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if ddbEndpoint != nil {
			// local testing only
			o.BaseEndpoint = ddbEndpoint
			o.Region = getenv("AWS_REGION", "us-east-1")
			o.Credentials = credentials.NewStaticCredentialsProvider(
				getenv("AWS_ACCESS_KEY_ID", "x"),
				getenv("AWS_SECRET_ACCESS_KEY", "x"),
				"",
			)
		}
	}), nil
}

// redisClientFromEnv creates a Redis client from environment variables, if any.
func redisClientFromEnv(ctx context.Context) (*redis.Client, error) {
	host := getenv(RedisHost, "localhost")
	port := getenv(RedisPort, "6379")
	dbNum, err := strconv.Atoi(getenv(RedisDBNum, "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid Redis DB number: %w", err)
	}

	var tlsConfig *tls.Config
	if parseBoolean(getenv(RedisTLS, "false")) {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:      fmt.Sprintf("%s:%s", host, port),
		Username:  os.Getenv(RedisUser),
		Password:  os.Getenv(RedisPass),
		DB:        dbNum,
		TLSConfig: tlsConfig,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return redisClient, nil
}

// getenv retrieves the value of the environment variable named by the key.
func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func parseBoolean(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}
