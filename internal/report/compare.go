package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nao1215/sitesnap/internal/model"
	"golang.org/x/sync/errgroup"
)

// Diff is the comparison of two crawl manifests, matched by page path.
type Diff struct {
	// BaseA and BaseB are the start URLs of the two crawls.
	BaseA string `json:"baseA"`
	BaseB string `json:"baseB"`

	// CrawledA and CrawledB are the crawl timestamps.
	CrawledA time.Time `json:"crawledA"`
	CrawledB time.Time `json:"crawledB"`

	// OnlyInA lists pages recorded only by the first crawl.
	OnlyInA []model.PageResult `json:"onlyInA"`

	// OnlyInB lists pages recorded only by the second crawl.
	OnlyInB []model.PageResult `json:"onlyInB"`

	// StatusChanges lists pages whose status differs.
	StatusChanges []StatusChange `json:"statusChanges"`

	// Unchanged counts pages present in both with the same status.
	Unchanged int `json:"unchanged"`
}

// StatusChange is one path whose status differs between two crawls.
type StatusChange struct {
	Path   string       `json:"pathname"`
	Before model.Status `json:"before"`
	After  model.Status `json:"after"`
}

// HasChanges reports whether the two crawls differ.
func (d *Diff) HasChanges() bool {
	return len(d.OnlyInA) > 0 || len(d.OnlyInB) > 0 || len(d.StatusChanges) > 0
}

// Compare matches the pages of a and b by path. Manifests of different
// origins, such as a staging and a production crawl, compare by path alone.
// Every list in the result is sorted by path.
func Compare(a, b *model.Manifest) *Diff {
	d := &Diff{
		BaseA:         a.BaseURL,
		BaseB:         b.BaseURL,
		CrawledA:      a.CrawledAt,
		CrawledB:      b.CrawledAt,
		OnlyInA:       []model.PageResult{},
		OnlyInB:       []model.PageResult{},
		StatusChanges: []StatusChange{},
	}

	inA := indexByPath(a.Pages)
	inB := indexByPath(b.Pages)

	for path, pa := range inA {
		pb, ok := inB[path]
		switch {
		case !ok:
			d.OnlyInA = append(d.OnlyInA, pa)
		case pa.Status != pb.Status:
			d.StatusChanges = append(d.StatusChanges, StatusChange{
				Path:   path,
				Before: pa.Status,
				After:  pb.Status,
			})
		default:
			d.Unchanged++
		}
	}
	for path, pb := range inB {
		if _, ok := inA[path]; !ok {
			d.OnlyInB = append(d.OnlyInB, pb)
		}
	}

	model.SortPages(d.OnlyInA)
	model.SortPages(d.OnlyInB)
	sort.Slice(d.StatusChanges, func(i, j int) bool {
		return d.StatusChanges[i].Path < d.StatusChanges[j].Path
	})
	return d
}

// indexByPath maps each path to its first result.
func indexByPath(pages []model.PageResult) map[string]model.PageResult {
	m := make(map[string]model.PageResult, len(pages))
	for _, p := range pages {
		if _, ok := m[p.Path]; !ok {
			m[p.Path] = p
		}
	}
	return m
}

// LoadManifestPair reads two manifests concurrently. Each path may be a
// manifest file or an output directory.
func LoadManifestPair(ctx context.Context, pathA, pathB string) (*model.Manifest, *model.Manifest, error) {
	var a, b *model.Manifest

	g, gctx := errgroup.WithContext(ctx)
	load := func(path string, dst **model.Manifest) func() error {
		return func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := ReadManifest(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			*dst = m
			return nil
		}
	}
	g.Go(load(pathA, &a))
	g.Go(load(pathB, &b))

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}
