package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/store/object"
	"github.com/marmos91/dittodrive/pkg/store/object/memory"
	s3store "github.com/marmos91/dittodrive/pkg/store/object/s3"
	"github.com/marmos91/dittodrive/pkg/store/slot"
	badgerslot "github.com/marmos91/dittodrive/pkg/store/slot/badger"
	fsslot "github.com/marmos91/dittodrive/pkg/store/slot/fs"
)

// CreateSlot creates the local snapshot slot selected by cfg.Type.
//
// Supported types:
//   - "filesystem": a single file, replaced atomically on every save
//   - "badger": a single key in a BadgerDB database
func CreateSlot(ctx context.Context, cfg *SlotConfig) (slot.Slot, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemSlot(ctx, cfg.Filesystem)
	case "badger":
		return createBadgerSlot(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown slot type: %q (supported: filesystem, badger)", cfg.Type)
	}
}

func createFilesystemSlot(ctx context.Context, options map[string]any) (slot.Slot, error) {
	var slotCfg fsslot.Config
	if err := mapstructure.Decode(options, &slotCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem slot config: %w", err)
	}

	if slotCfg.Path == "" {
		return nil, fmt.Errorf("filesystem slot: path is required")
	}

	s, err := fsslot.New(ctx, slotCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem slot: %w", err)
	}

	logger.Info("Filesystem slot initialized: path=%s", s.Path())
	return s, nil
}

func createBadgerSlot(ctx context.Context, options map[string]any) (slot.Slot, error) {
	var slotCfg badgerslot.Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &slotCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode badger slot config: %w", err)
	}

	if slotCfg.DBPath == "" && !slotCfg.InMemory {
		return nil, fmt.Errorf("badger slot: db_path is required")
	}

	s, err := badgerslot.New(ctx, slotCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger slot: %w", err)
	}

	logger.Info("Badger slot initialized: db_path=%s in_memory=%v", slotCfg.DBPath, slotCfg.InMemory)
	return s, nil
}

// S3ObjectConfig is the decoded object.s3 section.
type S3ObjectConfig struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// DecodeS3ObjectConfig decodes and checks the object.s3 section.
func DecodeS3ObjectConfig(options map[string]any) (S3ObjectConfig, error) {
	var storeCfg S3ObjectConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &storeCfg,
	})
	if err != nil {
		return storeCfg, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return storeCfg, fmt.Errorf("failed to decode S3 object store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return storeCfg, fmt.Errorf("S3 object store: bucket is required")
	}
	if storeCfg.Region == "" {
		return storeCfg, fmt.Errorf("S3 object store: region is required")
	}
	return storeCfg, nil
}

// CreateObjectStore creates the object channel selected by cfg.Type.
//
// Supported types:
//   - "memory": in-process map, lost on exit (development and tests)
//   - "s3": Amazon S3 or a compatible service
//
// s3Metrics may be nil.
func CreateObjectStore(ctx context.Context, cfg *ObjectConfig, s3Metrics s3store.S3Metrics) (object.Store, error) {
	switch cfg.Type {
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Warn("Using in-memory object store: published snapshots are lost on exit")
		return memory.New(), nil
	case "s3":
		return createS3ObjectStore(ctx, cfg.S3, s3Metrics)
	default:
		return nil, fmt.Errorf("unknown object store type: %q (supported: memory, s3)", cfg.Type)
	}
}

func createS3ObjectStore(ctx context.Context, options map[string]any, s3Metrics s3store.S3Metrics) (object.Store, error) {
	storeCfg, err := DecodeS3ObjectConfig(options)
	if err != nil {
		return nil, err
	}

	client, err := s3store.NewClientFromConfig(ctx, s3store.ClientConfig{
		Region:          storeCfg.Region,
		Endpoint:        storeCfg.Endpoint,
		AccessKeyID:     storeCfg.AccessKeyID,
		SecretAccessKey: storeCfg.SecretAccessKey,
		ForcePathStyle:  storeCfg.ForcePathStyle,
		MaxRetries:      storeCfg.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	store, err := s3store.New(ctx, s3store.Config{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
		Metrics:   s3Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 object store: %w", err)
	}

	logger.Info("S3 object store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}
