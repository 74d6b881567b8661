package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/slot-watcher/internal/entity"
	"github.com/user/slot-watcher/internal/repository"
)

func TestClassifySource(t *testing.T) {
	tests := []struct {
		name    string
		locator string
		kind    entity.Kind
		id      string
	}{
		{
			name:    "direct service url",
			locator: "https://001-iz.impfterminservice.de/impftermine/service?plz=10115",
			kind:    entity.KindDirect,
			id:      "10115",
		},
		{
			name:    "direct service url with extra params",
			locator: "https://229-iz.impfterminservice.de/impftermine/service?foo=bar&plz=69124",
			kind:    entity.KindDirect,
			id:      "69124",
		},
		{
			name:    "rendered search url",
			locator: "https://005-iz.impfterminservice.de/impftermine/suche/XXXX-XXXX-XXXX/69123",
			kind:    entity.KindRendered,
			id:      "69123",
		},
		{
			name:    "rendered search url with trailing slash",
			locator: "https://005-iz.impfterminservice.de/impftermine/suche/XXXX-XXXX-XXXX/69123/",
			kind:    entity.KindRendered,
			id:      "69123",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src, err := ClassifySource(tc.locator)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, src.Kind)
			assert.Equal(t, tc.id, src.ID)
			assert.Equal(t, tc.locator, src.Locator)
		})
	}
}

func TestClassifySource_Rejects(t *testing.T) {
	for _, locator := range []string{
		"https://example.com/somewhere/else",
		"not a url",
		"/impftermine/service?plz=10115",
		"https://001-iz.impfterminservice.de/impftermine/service",
	} {
		_, err := ClassifySource(locator)
		assert.ErrorIs(t, err, repository.ErrConfiguration, locator)
	}
}

func TestClassifySources(t *testing.T) {
	sources, err := ClassifySources([]string{
		"https://001-iz.impfterminservice.de/impftermine/service?plz=10115",
		"https://005-iz.impfterminservice.de/impftermine/suche/XXXX/69123",
	})
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "10115", sources[0].ID)
	assert.Equal(t, "69123", sources[1].ID)
}

func TestClassifySources_EmptyAndDuplicates(t *testing.T) {
	_, err := ClassifySources(nil)
	assert.ErrorIs(t, err, repository.ErrConfiguration)

	loc := "https://001-iz.impfterminservice.de/impftermine/service?plz=10115"
	_, err = ClassifySources([]string{loc, loc})
	assert.ErrorIs(t, err, repository.ErrConfiguration)
}
