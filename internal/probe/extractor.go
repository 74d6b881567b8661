package probe

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/slot-watcher/internal/repository"
)

// PageSummary holds what the rendered probe needs from a search result page.
type PageSummary struct {
	Slots   int
	Blocked bool
}

// ExtractPageSummary parses rendered HTML and counts slot and error banner elements.
func ExtractPageSummary(htmlContent, slotSelector, dangerSelector string) (*PageSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("%w: parse rendered page: %v", repository.ErrProbeTransport, err)
	}

	return &PageSummary{
		Slots:   doc.Find(slotSelector).Length(),
		Blocked: doc.Find(dangerSelector).Length() > 0,
	}, nil
}
