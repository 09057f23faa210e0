package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"openaigateway/internal/core"
	"openaigateway/internal/util"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const (
	statsRedisKey    = "openaigateway:stats"
	settingsRedisKey = "openaigateway:settings"
)

// FileStorage implements persistence using JSON files
type FileStorage struct {
	statsPath    string
	settingsPath string
}

func NewFileStorage(statsPath, settingsPath string) *FileStorage {
	if statsPath == "" {
		statsPath = core.StatsFilePath
	}
	if settingsPath == "" {
		settingsPath = core.SettingsFilePath
	}
	return &FileStorage{statsPath: statsPath, settingsPath: settingsPath}
}

func (fs *FileStorage) SaveStats(stats *core.RequestStats) error {
	data, err := sonic.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	return os.WriteFile(fs.statsPath, data, core.FilePermissionReadWrite)
}

func (fs *FileStorage) LoadStats() (*core.RequestStats, error) {
	data, err := os.ReadFile(fs.statsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyStats(), nil
		}
		return nil, err
	}
	return decodeStats(data)
}

func (fs *FileStorage) SaveSettings(settings *core.Settings) error {
	data, err := sonic.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return os.WriteFile(fs.settingsPath, data, core.FilePermissionReadWrite)
}

// LoadSettings returns nil, nil when no settings were persisted yet.
func (fs *FileStorage) LoadSettings() (*core.Settings, error) {
	data, err := os.ReadFile(fs.settingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var settings core.Settings
	if err := sonic.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("decode settings %s: %w", fs.settingsPath, err)
	}
	return &settings, nil
}

func (fs *FileStorage) Close() error {
	return nil
}

// RedisStorage implements persistence using Redis
type RedisStorage struct {
	client      *redis.Client
	ctx         context.Context
	key         string
	settingsKey string
}

// RedisStorageConfig Redis storage config
type RedisStorageConfig struct {
	URL         string
	Key         string
	SettingsKey string
}

func NewRedisStorage(config RedisStorageConfig) (*RedisStorage, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	ctx := context.Background()

	if _, err = client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	key := config.Key
	if key == "" {
		key = statsRedisKey
	}
	settingsKey := config.SettingsKey
	if settingsKey == "" {
		settingsKey = settingsRedisKey
	}

	return &RedisStorage{client: client, ctx: ctx, key: key, settingsKey: settingsKey}, nil
}

func (rs *RedisStorage) SaveStats(stats *core.RequestStats) error {
	data, err := util.MarshalJSON(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	return rs.client.Set(rs.ctx, rs.key, data, 0).Err()
}

func (rs *RedisStorage) LoadStats() (*core.RequestStats, error) {
	val, err := rs.client.Get(rs.ctx, rs.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return emptyStats(), nil
		}
		return nil, err
	}
	return decodeStats(val)
}

func (rs *RedisStorage) SaveSettings(settings *core.Settings) error {
	data, err := util.MarshalJSON(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return rs.client.Set(rs.ctx, rs.settingsKey, data, 0).Err()
}

func (rs *RedisStorage) LoadSettings() (*core.Settings, error) {
	val, err := rs.client.Get(rs.ctx, rs.settingsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var settings core.Settings
	if err := util.UnmarshalJSON(val, &settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &settings, nil
}

func (rs *RedisStorage) Close() error {
	return rs.client.Close()
}

func emptyStats() *core.RequestStats {
	return &core.RequestStats{RequestHistory: []core.RequestRecord{}}
}

func decodeStats(data []byte) (*core.RequestStats, error) {
	var stats core.RequestStats
	if err := sonic.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	if stats.RequestHistory == nil {
		stats.RequestHistory = []core.RequestRecord{}
	}
	return &stats, nil
}

// Options selects the storage backend.
type Options struct {
	RedisURL     string
	StatsFile    string
	SettingsFile string
}

// InitStorage initializes storage (returns StorageInterface)
func InitStorage(opts Options, logger core.Logger) core.StorageInterface {
	if opts.RedisURL != "" {
		redisStorage, err := NewRedisStorage(RedisStorageConfig{URL: opts.RedisURL})
		if err != nil {
			logger.Warn("Failed to initialize Redis storage: %v, falling back to file storage", err)
			return NewFileStorage(opts.StatsFile, opts.SettingsFile)
		}
		logger.Info("Using Redis storage")
		return redisStorage
	}

	logger.Info("Using file storage (%s, %s)", opts.StatsFile, opts.SettingsFile)
	return NewFileStorage(opts.StatsFile, opts.SettingsFile)
}
