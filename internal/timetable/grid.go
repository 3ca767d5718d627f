package timetable

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mocal/internal/locale"
	appLog "mocal/internal/log"
	"mocal/internal/model"
)

// ParseGrid parses a snapshot of the rendered timetable page into a week
// context: the period banner (and the Monday anchor recovered from it) plus
// one raw cell per element whose accessibility label contains a colon, the
// portal's convention for lesson tiles.
//
// The day-column index of a cell is recovered by walking its ancestors for
// the first element exposing one of the locale's day-index attributes; -1
// when none is found. Cell order carries no meaning.
func ParseGrid(html string, loc *locale.Table, zone *time.Location) model.WeekContext {
	var wk model.WeekContext

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		appLog.Error("grid: snapshot parse failed", err)
		return wk
	}

	wk.Header = bannerText(doc, loc)
	wk.Monday = ParseWeekHeader(wk.Header, zone)

	doc.Find(`[aria-label*=':']`).Each(func(_ int, sel *goquery.Selection) {
		label, _ := sel.Attr("aria-label")
		label = strings.TrimSpace(label)
		if label == "" {
			return
		}
		wk.Cells = append(wk.Cells, model.Cell{
			Label:    label,
			DayIndex: dayIndexOf(sel, loc),
		})
	})

	appLog.Debug("grid parsed",
		"header", wk.Header,
		"has_monday", wk.Monday != nil,
		"cell_count", len(wk.Cells),
	)
	return wk
}

// bannerText probes the locale's banner selectors in order and returns the
// first non-empty text. Selectors past the first hit are never evaluated.
func bannerText(doc *goquery.Document, loc *locale.Table) string {
	for _, sel := range loc.Banner {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// dayIndexOf walks the cell's ancestors (self included) for the first
// day-index attribute holding a value in 0..6.
func dayIndexOf(sel *goquery.Selection, loc *locale.Table) int {
	for _, attr := range loc.DayIndexAttrs {
		holder := sel.Closest("[" + attr + "]")
		if holder.Length() == 0 {
			continue
		}
		v, ok := holder.Attr(attr)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 || n > 6 {
			continue
		}
		return n
	}
	return -1
}
