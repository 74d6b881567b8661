package usecase

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/user/slot-watcher/internal/entity"
	"github.com/user/slot-watcher/internal/repository"
	"github.com/user/slot-watcher/pkg/utils"
)

const (
	directPathFragment   = "/impftermine/service"
	renderedPathFragment = "/impftermine/suche/"
)

// ClassifySource derives kind and id from a locator. Unknown locator shapes
// are configuration errors.
func ClassifySource(locator string) (entity.Source, error) {
	u, err := url.Parse(locator)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return entity.Source{}, fmt.Errorf("%w: %q is not an absolute URL", repository.ErrConfiguration, locator)
	}

	src := entity.Source{Locator: locator}
	switch {
	case strings.Contains(locator, directPathFragment):
		src.Kind = entity.KindDirect
		src.ID = u.Query().Get("plz")
	case strings.Contains(locator, renderedPathFragment):
		src.Kind = entity.KindRendered
		src.ID = utils.LastPathSegment(u)
	default:
		return entity.Source{}, fmt.Errorf("%w: unrecognized source locator %q", repository.ErrConfiguration, locator)
	}

	if src.ID == "" {
		return entity.Source{}, fmt.Errorf("%w: no postal code in locator %q", repository.ErrConfiguration, locator)
	}
	return src, nil
}

// ClassifySources classifies every locator. An empty list or a duplicate
// locator is a configuration error.
func ClassifySources(locators []string) ([]entity.Source, error) {
	if len(locators) == 0 {
		return nil, fmt.Errorf("%w: no source URLs provided", repository.ErrConfiguration)
	}

	seen := make(map[string]struct{}, len(locators))
	sources := make([]entity.Source, 0, len(locators))
	for _, locator := range locators {
		if _, dup := seen[locator]; dup {
			return nil, fmt.Errorf("%w: duplicate source locator %q", repository.ErrConfiguration, locator)
		}
		seen[locator] = struct{}{}

		src, err := ClassifySource(locator)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}
