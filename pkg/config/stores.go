package config

import (
	"context"
	"fmt"

	"github.com/marmos91/dittoweb/pkg/store/docroot"
	docbadger "github.com/marmos91/dittoweb/pkg/store/docroot/badger"
	docfs "github.com/marmos91/dittoweb/pkg/store/docroot/fs"
	docmemory "github.com/marmos91/dittoweb/pkg/store/docroot/memory"
	docs3 "github.com/marmos91/dittoweb/pkg/store/docroot/s3"
	"github.com/mitchellh/mapstructure"
)

// s3YAMLConfig represents S3 configuration loaded from YAML files.
type s3YAMLConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// CreateStore creates the document store selected by cfg.Type, decoding the
// matching type-specific section.
//
// Supported types:
//   - "filesystem": pkg/store/docroot/fs (document root directory)
//   - "memory": pkg/store/docroot/memory (empty in-memory store)
//   - "s3": pkg/store/docroot/s3 (Amazon S3 or compatible storage)
//   - "badger": pkg/store/docroot/badger (embedded key/value database)
//
// The caller owns the returned store and must Close it.
func CreateStore(ctx context.Context, cfg *StoreConfig) (docroot.WritableStore, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemStore(ctx, cfg.Filesystem)
	case "memory":
		return docmemory.NewMemoryStore(), nil
	case "s3":
		return createS3Store(ctx, cfg.S3)
	case "badger":
		return createBadgerStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}
}

func createFilesystemStore(ctx context.Context, options map[string]any) (docroot.WritableStore, error) {
	var fsCfg struct {
		Path string `mapstructure:"path"`
	}
	if err := mapstructure.Decode(options, &fsCfg); err != nil {
		return nil, fmt.Errorf("invalid filesystem store config: %w", err)
	}

	if fsCfg.Path == "" {
		return nil, fmt.Errorf("filesystem store: path is required")
	}

	store, err := docfs.NewFSStore(ctx, fsCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem store: %w", err)
	}

	return store, nil
}

func createS3Store(ctx context.Context, options map[string]any) (docroot.WritableStore, error) {
	var yamlCfg s3YAMLConfig
	if err := mapstructure.Decode(options, &yamlCfg); err != nil {
		return nil, fmt.Errorf("invalid S3 store config: %w", err)
	}

	if yamlCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 store: bucket is required")
	}
	if yamlCfg.Region == "" {
		return nil, fmt.Errorf("S3 store: region is required")
	}

	client, err := docs3.NewClient(ctx, docs3.ClientConfig{
		Region:          yamlCfg.Region,
		Endpoint:        yamlCfg.Endpoint,
		AccessKeyID:     yamlCfg.AccessKeyID,
		SecretAccessKey: yamlCfg.SecretAccessKey,
		ForcePathStyle:  yamlCfg.ForcePathStyle,
		MaxRetries:      yamlCfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	store, err := docs3.NewS3Store(ctx, docs3.S3StoreConfig{
		Client:    client,
		Bucket:    yamlCfg.Bucket,
		KeyPrefix: yamlCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 store: %w", err)
	}

	return store, nil
}

func createBadgerStore(ctx context.Context, options map[string]any) (docroot.WritableStore, error) {
	var badgerCfg docbadger.BadgerStoreConfig
	if err := mapstructure.Decode(options, &badgerCfg); err != nil {
		return nil, fmt.Errorf("invalid badger store config: %w", err)
	}

	store, err := docbadger.NewBadgerStore(ctx, badgerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return store, nil
}
