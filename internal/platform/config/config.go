package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultPort          = "8080"
	defaultReadTimeout   = 15 * time.Second
	defaultWriteTimeout  = 30 * time.Second
	defaultIdleTimeout   = 120 * time.Second
	defaultSnapshotPath  = "data/presskit-snapshot.json"
	defaultRemoteTimeout = 10 * time.Second
	defaultUploadBytes   = 5 << 20
)

// Content store modes.
const (
	ModeRemote = "remote"
	ModeLocal  = "local"
)

// Save policies applied when the remote store rejects a save.
const (
	SavePolicyStrict       = "strict"
	SavePolicyOfflineFirst = "offline-first"
)

// Change notifier kinds.
const (
	NotifierWatch  = "watch"
	NotifierRedis  = "redis"
	NotifierPubSub = "pubsub"
	NotifierPoll   = "poll"
)

// Config is the full process configuration. Every key is read from
// PRESSKIT_<GROUP>_<NAME>, for example PRESSKIT_SYNC_REDIS_ADDR.
type Config struct {
	Environment string
	Server      ServerConfig
	Firestore   FirestoreConfig
	Storage     StorageConfig
	Content     ContentConfig
	Sync        SyncConfig
	Upload      UploadConfig
	Admin       AdminConfig
}

type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

// FirestoreConfig locates the config record and the asset metadata.
type FirestoreConfig struct {
	ProjectID        string
	EmulatorHost     string
	ConfigCollection string
	ConfigDocument   string
	AssetCollection  string
}

// StorageConfig locates the asset bucket and the base used for public URLs.
type StorageConfig struct {
	Bucket        string
	PublicBaseURL string
	EmulatorHost  string
}

// ContentConfig controls how the content store persists and reloads.
type ContentConfig struct {
	Mode          string
	SavePolicy    string
	SnapshotPath  string
	RemoteTimeout time.Duration
	AssetCacheTTL time.Duration
	SeedRemote    bool
}

// SyncConfig selects the change notifiers wired next to the in-process broadcaster.
type SyncConfig struct {
	Notifiers     []string
	WatchDebounce time.Duration
	PollInterval  time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string
	PubSubTopic   string
	PubSubSub     string
}

// UploadConfig holds the image upload policy.
type UploadConfig struct {
	MaxBytes     int64
	AllowedTypes []string
	MaxFiles     int
	Concurrency  int
}

// AdminConfig holds the fixed admin credential pair.
type AdminConfig struct {
	Email        string
	Password     string
	PasswordHash string
	Realm        string
}

// SecretResolver turns a secret:// reference into its value.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

type SecretResolverFunc func(context.Context, string) (string, error)

func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError lists every missing, unknown or malformed setting found by
// Load, so an operator can fix them in one pass.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return "config: invalid settings: " + strings.Join(e.fields, ", ")
}

func (e *ValidationError) Fields() []string {
	return append([]string(nil), e.fields...)
}

// SecretError reports a secret reference that could not be resolved.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("config: resolve %s: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

type loadOptions struct {
	envFile   string
	explicit  map[string]string
	systemEnv bool
	resolver  SecretResolver
}

type Option func(*loadOptions)

// WithEnvFile replaces the ".env" path. An empty path skips the file.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) { o.envFile = path }
}

// WithEnvMap supplies values that win over every other layer.
func WithEnvMap(values map[string]string) Option {
	return func(o *loadOptions) { o.explicit = values }
}

// WithoutSystemEnv ignores the process environment (tests).
func WithoutSystemEnv() Option {
	return func(o *loadOptions) { o.systemEnv = false }
}

// WithSecretResolver enables secret:// and sm:// values.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loadOptions) { o.resolver = resolver }
}

// Load reads the configuration. Precedence, highest first: WithEnvMap values,
// the process environment, the .env file, built-in defaults.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	o := loadOptions{envFile: ".env", systemEnv: true}
	for _, opt := range opts {
		opt(&o)
	}
	dotEnv, err := readDotEnv(o.envFile)
	if err != nil {
		return Config{}, err
	}

	src := &source{}
	src.lookups = append(src.lookups, fromMap(o.explicit))
	if o.systemEnv {
		src.lookups = append(src.lookups, os.LookupEnv)
	}
	src.lookups = append(src.lookups, fromMap(dotEnv))

	cfg := read(src)
	for _, secret := range []*string{&cfg.Sync.RedisPassword, &cfg.Admin.Password, &cfg.Admin.PasswordHash} {
		if *secret, err = resolve(ctx, *secret, o.resolver); err != nil {
			return Config{}, err
		}
	}
	if problems := append(src.malformed, cfg.problems()...); len(problems) > 0 {
		return Config{}, &ValidationError{fields: problems}
	}
	return cfg, nil
}

func read(src *source) Config {
	cfg := Config{
		Environment: src.lower("PRESSKIT_ENVIRONMENT", "local"),
		Server: ServerConfig{
			Port:           src.str("PRESSKIT_SERVER_PORT", defaultPort),
			ReadTimeout:    src.duration("PRESSKIT_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   src.duration("PRESSKIT_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    src.duration("PRESSKIT_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			AllowedOrigins: src.list("PRESSKIT_SERVER_ALLOWED_ORIGINS"),
		},
		Firestore: FirestoreConfig{
			ProjectID:        src.str("PRESSKIT_FIRESTORE_PROJECT_ID", src.str("GOOGLE_CLOUD_PROJECT", "")),
			EmulatorHost:     src.str("PRESSKIT_FIRESTORE_EMULATOR_HOST", ""),
			ConfigCollection: src.str("PRESSKIT_FIRESTORE_CONFIG_COLLECTION", "presskit_config"),
			ConfigDocument:   src.str("PRESSKIT_FIRESTORE_CONFIG_DOCUMENT", "main"),
			AssetCollection:  src.str("PRESSKIT_FIRESTORE_ASSET_COLLECTION", "uploaded_images"),
		},
		Storage: StorageConfig{
			Bucket:        src.str("PRESSKIT_STORAGE_BUCKET", "presskit-images"),
			PublicBaseURL: strings.TrimRight(src.str("PRESSKIT_STORAGE_PUBLIC_BASE_URL", "https://storage.googleapis.com"), "/"),
			EmulatorHost:  src.str("PRESSKIT_STORAGE_EMULATOR_HOST", ""),
		},
		Content: ContentConfig{
			Mode:          src.lower("PRESSKIT_CONTENT_MODE", ModeRemote),
			SavePolicy:    src.lower("PRESSKIT_CONTENT_SAVE_POLICY", SavePolicyStrict),
			SnapshotPath:  src.str("PRESSKIT_CONTENT_SNAPSHOT_PATH", defaultSnapshotPath),
			RemoteTimeout: src.duration("PRESSKIT_CONTENT_REMOTE_TIMEOUT", defaultRemoteTimeout),
			AssetCacheTTL: src.duration("PRESSKIT_CONTENT_ASSET_CACHE_TTL", 30*time.Second),
			SeedRemote:    src.flag("PRESSKIT_CONTENT_SEED_REMOTE", true),
		},
		Sync: SyncConfig{
			Notifiers:     src.list("PRESSKIT_SYNC_NOTIFIERS"),
			WatchDebounce: src.duration("PRESSKIT_SYNC_WATCH_DEBOUNCE", 200*time.Millisecond),
			PollInterval:  src.duration("PRESSKIT_SYNC_POLL_INTERVAL", 30*time.Second),
			RedisAddr:     src.str("PRESSKIT_SYNC_REDIS_ADDR", ""),
			RedisPassword: src.str("PRESSKIT_SYNC_REDIS_PASSWORD", ""),
			RedisDB:       int(src.integer("PRESSKIT_SYNC_REDIS_DB", 0)),
			RedisChannel:  src.str("PRESSKIT_SYNC_REDIS_CHANNEL", "presskit:content-updated"),
			PubSubTopic:   src.str("PRESSKIT_SYNC_PUBSUB_TOPIC", "presskit-content-updated"),
			PubSubSub:     src.str("PRESSKIT_SYNC_PUBSUB_SUBSCRIPTION", ""),
		},
		Upload: UploadConfig{
			MaxBytes:     src.integer("PRESSKIT_UPLOAD_MAX_BYTES", defaultUploadBytes),
			AllowedTypes: src.list("PRESSKIT_UPLOAD_ALLOWED_TYPES"),
			MaxFiles:     int(src.integer("PRESSKIT_UPLOAD_MAX_FILES", 10)),
			Concurrency:  int(src.integer("PRESSKIT_UPLOAD_CONCURRENCY", 3)),
		},
		Admin: AdminConfig{
			Email:        src.str("PRESSKIT_ADMIN_EMAIL", "admin@croix.com"),
			Password:     src.str("PRESSKIT_ADMIN_PASSWORD", "croix2024"),
			PasswordHash: src.str("PRESSKIT_ADMIN_PASSWORD_HASH", ""),
			Realm:        src.str("PRESSKIT_ADMIN_REALM", "presskit-admin"),
		},
	}
	if len(cfg.Upload.AllowedTypes) == 0 {
		cfg.Upload.AllowedTypes = []string{"image/jpeg", "image/png", "image/webp"}
	}
	return cfg
}

// problems names the settings that make the configuration unusable.
func (c Config) problems() []string {
	var out []string
	need := func(ok bool, field string) {
		if !ok {
			out = append(out, field)
		}
	}

	need(c.Server.Port != "", "Server.Port")
	switch c.Content.Mode {
	case ModeRemote:
		need(c.Firestore.ProjectID != "", "Firestore.ProjectID")
		need(c.Storage.Bucket != "", "Storage.Bucket")
	case ModeLocal:
	default:
		out = append(out, "Content.Mode")
	}
	need(c.Content.SavePolicy == SavePolicyStrict || c.Content.SavePolicy == SavePolicyOfflineFirst, "Content.SavePolicy")
	need(c.Content.SnapshotPath != "", "Content.SnapshotPath")
	for _, kind := range c.Sync.Notifiers {
		switch kind {
		case NotifierWatch, NotifierPoll:
		case NotifierRedis:
			need(c.Sync.RedisAddr != "", "Sync.RedisAddr")
		case NotifierPubSub:
			need(c.Firestore.ProjectID != "", "Firestore.ProjectID")
		default:
			out = append(out, "Sync.Notifiers["+kind+"]")
		}
	}
	need(c.Upload.MaxBytes > 0, "Upload.MaxBytes")
	need(c.Upload.MaxFiles > 0, "Upload.MaxFiles")
	need(c.Upload.Concurrency > 0, "Upload.Concurrency")
	need(c.Admin.Email != "", "Admin.Email")
	need(c.Admin.Password != "" || c.Admin.PasswordHash != "", "Admin.Password")
	return out
}

var errNoResolver = errors.New("no secret resolver configured")

// resolve returns value unchanged unless it is a secret:// or sm:// reference.
func resolve(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	var name string
	switch {
	case strings.HasPrefix(value, "secret://"):
		name = strings.TrimPrefix(value, "secret://")
	case strings.HasPrefix(value, "sm://"):
		name = strings.TrimPrefix(value, "sm://")
	default:
		return value, nil
	}
	ref := "secret://" + name
	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errNoResolver}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return secret, nil
}
