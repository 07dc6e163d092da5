package catalog

import (
	"context"
	"io"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/chararch/migbatch"
)

// LabelsFile is the optional yaml file of a migrations directory mapping versions to labels
const LabelsFile = "labels.yaml"

var migrationFile = regexp.MustCompile(`^Version(\d+)\.\w+$`)

// DirCatalog lists the migrations of a directory, one Version<digits>.<ext> file per migration
type DirCatalog struct {
	store FileStore
	dir   string
}

// NewDirCatalog create a migbatch.Catalog over dir of store
func NewDirCatalog(store FileStore, dir string) *DirCatalog {
	return &DirCatalog{store: store, dir: dir}
}

// Entries returns the migrations sorted by version. A version without label in labels.yaml is labelled by itself.
func (c *DirCatalog) Entries(ctx context.Context) ([]migbatch.CatalogEntry, error) {
	names, err := c.store.List(ctx, c.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "list migrations dir:%v", c.dir)
	}
	labels, err := c.labels(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	entries := make([]migbatch.CatalogEntry, 0, len(names))
	for _, name := range names {
		m := migrationFile.FindStringSubmatch(name)
		if m == nil || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		label := labels[m[1]]
		if label == "" {
			label = m[1]
		}
		entries = append(entries, migbatch.CatalogEntry{Version: m[1], Label: label})
	}
	sort.Slice(entries, func(i, j int) bool {
		return versionLess(entries[i].Version, entries[j].Version)
	})
	return entries, nil
}

func (c *DirCatalog) labels(ctx context.Context) (map[string]string, error) {
	labels := map[string]string{}
	reader, err := c.store.Open(ctx, path.Join(c.dir, LabelsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return labels, nil
		}
		migbatch.DefaultLogger.Warn(ctx, "open labels of migrations dir:%v failed, err:%v", c.dir, err)
		return labels, nil
	}
	defer reader.Close()
	bs, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrapf(err, "read labels of migrations dir:%v", c.dir)
	}
	if err = yaml.Unmarshal(bs, &labels); err != nil {
		return nil, errors.Wrapf(err, "parse labels of migrations dir:%v", c.dir)
	}
	return labels, nil
}

// versionLess compares digit strings numerically without overflow
func versionLess(a, b string) bool {
	a, b = strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
