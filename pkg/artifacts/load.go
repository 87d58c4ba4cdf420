package artifacts

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/viant/afs"

	"github.com/agentstation/docsync/pkg/errors"
)

// Loader reads artifacts from local paths or any URL scheme registered
// with afs (file://, mem://, s3:// and so on).
type Loader struct {
	fs afs.Service
}

// NewLoader returns a Loader backed by fs, or by a default afs service when
// fs is nil.
func NewLoader(fs afs.Service) *Loader {
	if fs == nil {
		fs = afs.New()
	}
	return &Loader{fs: fs}
}

// Load reads and decodes both artifacts with a default Loader.
func Load(ctx context.Context, manifestURL, catalogURL string) (*Manifest, *Catalog, error) {
	return NewLoader(nil).Load(ctx, manifestURL, catalogURL)
}

// LoadDefaultDescriptions reads a YAML overlay with a default Loader.
func LoadDefaultDescriptions(ctx context.Context, url string) (*DefaultDescriptions, error) {
	return NewLoader(nil).DefaultDescriptions(ctx, url)
}

// Load reads and decodes the manifest and catalog.
func (l *Loader) Load(ctx context.Context, manifestURL, catalogURL string) (*Manifest, *Catalog, error) {
	var manifest Manifest
	if err := l.decode(ctx, "manifest", manifestURL, &manifest); err != nil {
		return nil, nil, err
	}
	var catalog Catalog
	if err := l.decode(ctx, "catalog", catalogURL, &catalog); err != nil {
		return nil, nil, err
	}
	return &manifest, &catalog, nil
}

// DefaultDescriptions reads a YAML overlay.
func (l *Loader) DefaultDescriptions(ctx context.Context, url string) (*DefaultDescriptions, error) {
	data, err := l.download(ctx, url)
	if err != nil {
		return nil, err
	}
	return ParseDefaultDescriptions(data)
}

func (l *Loader) decode(ctx context.Context, artifact, url string, v any) error {
	data, err := l.download(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.WrapArtifact(artifact, err)
	}
	return nil
}

func (l *Loader) download(ctx context.Context, url string) ([]byte, error) {
	location, err := resolve(url)
	if err != nil {
		return nil, err
	}
	data, err := l.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, errors.WrapIO("read", url, err)
	}
	return data, nil
}

// resolve turns a relative local path into an absolute one.
func resolve(url string) (string, error) {
	if url == "" {
		return "", errors.NewValidationError("url", url, "artifact location is required")
	}
	if strings.Contains(url, "://") || filepath.IsAbs(url) {
		return url, nil
	}
	abs, err := filepath.Abs(url)
	if err != nil {
		return "", errors.WrapIO("resolve", url, err)
	}
	return abs, nil
}
