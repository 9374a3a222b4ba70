package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"watchlens/internal/infrastructure/logging"
)

// entrySelector matches one watch entry in a Takeout "watch-history.html" export
const entrySelector = "div.content-cell.mdl-cell.mdl-cell--6-col.mdl-typography--body-1"

// Placeholders stand in for fields an entry did not carry. Normalize drops rows holding them.
const (
	UnknownTitle   = "Unknown Title"
	UnknownChannel = "Unknown Channel"
	UnknownDate    = "Unknown Date"
)

// RawRow is one export entry before date parsing and filtering
type RawRow struct {
	Title   string
	Channel string
	RawDate string
}

// HTMLExportParser extracts watch entries from a history export with a colly collector over file://
type HTMLExportParser struct {
	logger logging.Logger
}

// NewHTMLExportParser creates a parser. Collector events are logged at debug level.
func NewHTMLExportParser(logger logging.Logger) *HTMLExportParser {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &HTMLExportParser{logger: logger}
}

func (p *HTMLExportParser) newCollector() *colly.Collector {
	t := &http.Transport{}
	t.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))

	c := colly.NewCollector(
		colly.Debugger(logging.NewCollyDebugger(p.logger)),
	)
	c.WithTransport(t)
	// exports grow well past colly's 10MB default
	c.MaxBodySize = 0
	return c
}

// ParseFile returns the entries of the export at path in document order
func (p *HTMLExportParser) ParseFile(ctx context.Context, path string) ([]RawRow, error) {
	start := time.Now()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve export path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}

	var rows []RawRow
	var visitErr error

	c := p.newCollector()
	c.OnRequest(func(r *colly.Request) {
		if err := ctx.Err(); err != nil {
			visitErr = err
			r.Abort()
		}
	})
	c.OnHTML(entrySelector, func(e *colly.HTMLElement) {
		rows = append(rows, extractRow(e.DOM))
	})
	c.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	if err := c.Visit(u.String()); err != nil && visitErr == nil {
		visitErr = err
	}
	if visitErr != nil {
		return nil, fmt.Errorf("parse export %s: %w", path, visitErr)
	}

	logging.LogOperation(p.logger, "parse_html_export", time.Since(start), map[string]interface{}{
		"path":    path,
		"entries": len(rows),
	})
	return rows, nil
}

// extractRow reads the first link as the title, the second as the channel and
// the second non-blank text node directly under the cell as the date
func extractRow(cell *goquery.Selection) RawRow {
	row := RawRow{Title: UnknownTitle, Channel: UnknownChannel, RawDate: UnknownDate}

	links := cell.Find("a")
	if t := strings.TrimSpace(links.Eq(0).Text()); t != "" {
		row.Title = t
	}
	if ch := strings.TrimSpace(links.Eq(1).Text()); ch != "" {
		row.Channel = ch
	}

	texts := 0
	cell.Contents().EachWithBreak(func(_ int, n *goquery.Selection) bool {
		if goquery.NodeName(n) != "#text" {
			return true
		}
		txt := strings.TrimSpace(n.Text())
		if txt == "" {
			return true
		}
		texts++
		if texts == 2 {
			row.RawDate = txt
			return false
		}
		return true
	})
	return row
}
