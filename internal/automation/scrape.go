package automation

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tabrown76/Aramark-Scripts/internal/browser"
	"github.com/tabrown76/Aramark-Scripts/internal/pricelevel"
	"github.com/tabrown76/Aramark-Scripts/internal/pricing"
)

// Selectors of the two portals.
const (
	selMenuRows    = "#menuitems tr.menuitem"
	selNavLinks    = "#navbar a"
	selSaveMenu    = `button[title="Save Menu"]`
	selVendorRows  = "tr[data-vendor-id]"
	selLogin       = "#login"
	selPassword    = "#password"
	selLoginSubmit = "button.login-form-submit"
	selSearch      = `input[name="search_text"]`
	selPriceLevel  = "#activePriceLevelId"
)

// mirrorValuesJS copies live form values into value attributes so the
// serialized DOM reflects what is on screen.
const mirrorValuesJS = `(() => {
	document.querySelectorAll("input, textarea").forEach(el => el.setAttribute("value", el.value));
	return true;
})()`

// snapshot returns the page's current HTML with live input values.
func snapshot(ctx context.Context, page browser.Page) (*goquery.Document, error) {
	if err := page.Evaluate(ctx, mirrorValuesJS, nil); err != nil {
		return nil, fmt.Errorf("%w: mirror input values: %v", ErrUnitIO, err)
	}
	html, err := page.OuterHTML(ctx, "html")
	if err != nil {
		return nil, fmt.Errorf("%w: read page: %v", ErrUnitIO, err)
	}
	return parseHTML(html)
}

func parseHTML(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

// ParseMenuRows reads the name, price and calories cells of each menu row.
// A cell's input value wins over its text unless the value is blank.
func ParseMenuRows(doc *goquery.Document) []pricing.MenuRow {
	rows := []pricing.MenuRow{}
	doc.Find(selMenuRows).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td")
		rows = append(rows, pricing.MenuRow{
			Name:     cellValue(cells.Eq(0)),
			Price:    cellValue(cells.Eq(1)),
			Calories: cellValue(cells.Eq(2)),
		})
	})
	return rows
}

func cellValue(td *goquery.Selection) string {
	if v, ok := td.Find("input").First().Attr("value"); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return strings.TrimSpace(td.Text())
}

// ParseTabLinks returns the absolute URLs of the navbar links, in page
// order, without credentials, duplicates or the portal homepage.
func ParseTabLinks(doc *goquery.Document, homepage string) ([]string, error) {
	home, err := url.Parse(homepage)
	if err != nil {
		return nil, fmt.Errorf("parse homepage %q: %w", homepage, err)
	}
	homeKey := stripUserinfo(home).String()

	seen := map[string]bool{homeKey: true}
	links := []string{}
	doc.Find(selNavLinks).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := stripUserinfo(home.ResolveReference(ref))
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		key := abs.String()
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, key)
	})
	return links, nil
}

func stripUserinfo(u *url.URL) *url.URL {
	c := *u
	c.User = nil
	return &c
}

// ParseVendorIDs extracts the numeric ids of the vendor table rows.
func ParseVendorIDs(doc *goquery.Document) []int {
	ids := []int{}
	doc.Find(selVendorRows).Each(func(_ int, tr *goquery.Selection) {
		attr, _ := tr.Attr("data-vendor-id")
		if id, ok := pricelevel.ParseVendorID(attr); ok {
			ids = append(ids, id)
		}
	})
	return ids
}
