package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/slot-watcher/internal/entity"
	"github.com/user/slot-watcher/internal/fingerprint"
	"github.com/user/slot-watcher/internal/repository"
)

type fakeSession struct {
	html string
	err  error
	got  repository.RenderRequest
}

func (f *fakeSession) Render(_ context.Context, req repository.RenderRequest) (string, error) {
	f.got = req
	return f.html, f.err
}

const (
	pageWithSlots = `<html><head><script nonce="1"></script></head><body>
<div class="ets-corona-search-overlay-inner"><button class="btn-magenta">Suchen</button></div>
<button class="ets-slot-button">Mo 10:00</button>
<button class="ets-slot-button">Mo 10:15</button>
<button class="ets-slot-button">Di 08:00</button>
</body></html>`
	pageWithoutSlots = `<html><body><p>Derzeit stehen leider keine Termine zur Verfügung.</p></body></html>`
	pageBlocked      = `<html><body><div class="alert alert-danger">Fehler</div></body></html>`
)

func renderedSource() entity.Source {
	return entity.Source{ID: "69123", Kind: entity.KindRendered, Locator: "https://005-iz.impfterminservice.de/impftermine/suche/J7PK-9SXQ-GCWV/69123"}
}

func TestRenderedPageProbe_CountsSlots(t *testing.T) {
	session := &fakeSession{html: pageWithSlots}
	opts := DefaultRenderedOptions()
	opts.BlockRequestFragment = "/rest/tracking"

	payload, err := NewRenderedPageProbe(opts).Probe(context.Background(), renderedSource(), session)
	require.NoError(t, err)

	assert.Equal(t, 3, payload.AvailableCount)
	assert.Equal(t, fingerprint.HTML(pageWithSlots), payload.Fingerprint)
	assert.Equal(t, renderedSource().Locator, session.got.URL)
	assert.Equal(t, defaultSearchButtonSelector, session.got.ClickSelector)
	assert.Equal(t, defaultSearchResponse, session.got.ResponseURLFragment)
	assert.Equal(t, "/rest/tracking", session.got.BlockURLFragment)
}

func TestRenderedPageProbe_ZeroSlotsIsSuccess(t *testing.T) {
	payload, err := NewRenderedPageProbe(DefaultRenderedOptions()).Probe(context.Background(), renderedSource(), &fakeSession{html: pageWithoutSlots})
	require.NoError(t, err)
	assert.Equal(t, 0, payload.AvailableCount)
}

func TestRenderedPageProbe_DangerBannerIsRateLimit(t *testing.T) {
	payload, err := NewRenderedPageProbe(DefaultRenderedOptions()).Probe(context.Background(), renderedSource(), &fakeSession{html: pageBlocked})
	assert.Nil(t, payload)
	assert.ErrorIs(t, err, repository.ErrRateLimited)
}

func TestRenderedPageProbe_SessionErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: repository.ErrProbeTimeout},
		{name: "already classified", err: repository.ErrProbeTimeout, want: repository.ErrProbeTimeout},
		{name: "crash", err: errors.New("websocket closed"), want: repository.ErrProbeTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRenderedPageProbe(DefaultRenderedOptions()).Probe(context.Background(), renderedSource(), &fakeSession{err: tt.err})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRenderedPageProbe_NoSession(t *testing.T) {
	_, err := NewRenderedPageProbe(DefaultRenderedOptions()).Probe(context.Background(), renderedSource(), nil)
	assert.ErrorIs(t, err, repository.ErrProbeTransport)
}

func TestRenderedPageProbe_WrongKind(t *testing.T) {
	src := entity.Source{ID: "70174", Kind: entity.KindDirect, Locator: "https://example.com/impftermine/service?plz=70174"}
	_, err := NewRenderedPageProbe(DefaultRenderedOptions()).Probe(context.Background(), src, &fakeSession{})
	assert.ErrorIs(t, err, repository.ErrUnclassifiedSource)
}
