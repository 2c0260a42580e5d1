package definition

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/trackflow/trackflow/model"
	"github.com/viant/afs"
)

// Loader loads YAML workflow definitions from any afs supported URL
// (file, embed, mem, s3, gs, ...).
type Loader struct {
	fs afs.Service
}

// NewLoader creates a definition loader.
func NewLoader() *Loader {
	return &Loader{fs: afs.New()}
}

// Load loads a single definition from the supplied URL.
func (l *Loader) Load(ctx context.Context, URL string) (*model.Definition, error) {
	if path.Ext(URL) == "" {
		URL += ".yaml"
	}
	data, err := l.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load definition from %s: %w", URL, err)
	}
	definition, err := model.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse definition from %s: %w", URL, err)
	}
	return definition, nil
}

// LoadAll loads every .yaml definition under the supplied URL into the
// store.  Files that are not YAML are skipped.
func (l *Loader) LoadAll(ctx context.Context, URL string, store *Service) ([]*model.Definition, error) {
	objects, err := l.fs.List(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions at %s: %w", URL, err)
	}
	var ret []*model.Definition
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(object.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		definition, err := l.Load(ctx, object.URL())
		if err != nil {
			return nil, err
		}
		if err = store.Create(ctx, definition); err != nil {
			return nil, err
		}
		ret = append(ret, definition)
	}
	return ret, nil
}
