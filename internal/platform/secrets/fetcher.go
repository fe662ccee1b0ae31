package secrets

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Accessor is the slice of the Secret Manager client the fetcher needs.
type Accessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Ref is a parsed "secret://name?version=3&project=p" reference.
type Ref struct {
	Name    string
	Version string
	Project string
}

// ParseRef parses a secret:// reference. Version defaults to latest.
func ParseRef(raw string) (Ref, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Ref{}, fmt.Errorf("secrets: invalid reference %q: %w", raw, err)
	}
	if u.Scheme != "secret" {
		return Ref{}, fmt.Errorf("secrets: unsupported scheme %q", u.Scheme)
	}
	ref := Ref{
		Name:    strings.Trim(u.Host+u.Path, "/"),
		Version: strings.TrimSpace(u.Query().Get("version")),
		Project: strings.TrimSpace(u.Query().Get("project")),
	}
	if ref.Name == "" {
		return Ref{}, fmt.Errorf("secrets: reference %q names no secret", raw)
	}
	if ref.Version == "" {
		ref.Version = "latest"
	}
	return ref, nil
}

func (r Ref) resource() string {
	return "projects/" + r.Project + "/secrets/" + r.Name + "/versions/" + r.Version
}

// Fetcher resolves secret references for config.Load. Values are kept for the
// life of the process. When Secret Manager is not configured, or denies or
// lacks a secret, the KEY=VALUE fallback file is consulted by secret name.
type Fetcher struct {
	accessor Accessor
	owned    bool
	project  string
	logger   *zap.Logger

	fallbackPath string
	fallback     func() map[string]string

	group  singleflight.Group
	mu     sync.RWMutex
	values map[string]string
}

type Option func(*Fetcher)

func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithProject sets the project for references without ?project=.
func WithProject(projectID string) Option {
	return func(f *Fetcher) { f.project = strings.TrimSpace(projectID) }
}

// WithFallbackFile sets the local fallback file. An empty path disables it.
func WithFallbackFile(path string) Option {
	return func(f *Fetcher) { f.fallbackPath = strings.TrimSpace(path) }
}

// WithAccessor supplies the Secret Manager client; the fetcher will not close it.
func WithAccessor(a Accessor) Option {
	return func(f *Fetcher) { f.accessor = a }
}

// NewFetcher dials Secret Manager when a project is known and no accessor was
// supplied. A dial failure is logged and leaves the fetcher on the fallback
// file.
func NewFetcher(ctx context.Context, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		logger:       zap.NewNop(),
		fallbackPath: ".secrets.local",
		values:       map[string]string{},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.fallback = sync.OnceValue(f.readFallback)

	if f.accessor == nil && f.project != "" {
		client, err := secretmanager.NewClient(ctx)
		if err != nil {
			f.logger.Warn("secret manager unavailable, using fallback file only", zap.Error(err))
		} else {
			f.accessor, f.owned = client, true
		}
	}
	return f, nil
}

// Close closes the Secret Manager client if NewFetcher dialled it.
func (f *Fetcher) Close() error {
	if !f.owned {
		return nil
	}
	return f.accessor.Close()
}

// Resolve returns the value for raw, a secret:// reference.
func (f *Fetcher) Resolve(ctx context.Context, raw string) (string, error) {
	ref, err := ParseRef(raw)
	if err != nil {
		return "", err
	}
	if ref.Project == "" {
		ref.Project = f.project
	}
	key := ref.Project + "/" + ref.Name + "@" + ref.Version

	f.mu.RLock()
	cached, ok := f.values[key]
	f.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := f.group.Do(key, func() (any, error) {
		value, err := f.lookup(ctx, ref)
		if err != nil {
			return "", err
		}
		f.mu.Lock()
		f.values[key] = value
		f.mu.Unlock()
		return value, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (f *Fetcher) lookup(ctx context.Context, ref Ref) (string, error) {
	if f.accessor != nil && ref.Project != "" {
		resp, err := f.accessor.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: ref.resource()})
		switch {
		case err == nil && resp.GetPayload() == nil:
			return "", fmt.Errorf("secrets: %s has no payload", ref.resource())
		case err == nil:
			return string(resp.GetPayload().GetData()), nil
		case !canFallBack(err):
			return "", fmt.Errorf("secrets: access %s: %w", ref.resource(), err)
		}
		f.logger.Debug("secret not readable remotely, trying fallback file", zap.String("secret", ref.Name), zap.Error(err))
	}
	if value, ok := f.fallback()[ref.Name]; ok {
		return value, nil
	}
	return "", fmt.Errorf("secrets: no value for %s", ref.Name)
}

func (f *Fetcher) readFallback() map[string]string {
	values := map[string]string{}
	if f.fallbackPath == "" {
		return values
	}
	file, err := os.Open(f.fallbackPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.logger.Warn("cannot read secrets fallback file", zap.String("path", f.fallbackPath), zap.Error(err))
		}
		return values
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		if k, v, ok := strings.Cut(line, "="); ok {
			values[strings.TrimSpace(k)] = strings.Trim(strings.TrimSpace(v), `"'`)
		}
	}
	return values
}

// canFallBack reports failures that mean "not available to this process"
// rather than a malformed request.
func canFallBack(err error) bool {
	switch status.Code(err) {
	case codes.NotFound, codes.PermissionDenied, codes.Unauthenticated, codes.Unavailable:
		return true
	default:
		return false
	}
}
