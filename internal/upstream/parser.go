package upstream

import (
	"errors"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"

	"github.com/MrSnakeDoc/stopwatch/internal/domain"
)

// Selectors for the virtual monitor board.
const (
	boardSelector     = ".content_in"
	rowSelector       = "div.row"
	lineSelector      = "div.line"
	directionSelector = "div.direction"
	etaSelector       = "div.time"
)

var errNoBoard = errors.New("departures board not found in page")

// ErrScriptedBoard reports an empty board on a page that fills it in with
// scripts, which a static fetch cannot run.
var ErrScriptedBoard = errors.New("departures board is empty and populated by scripts")

// ParseDepartures extracts departure rows from a rendered board page.
// A board without rows is valid (nothing is running); a page without the
// board container is not.
func ParseDepartures(r io.Reader) ([]domain.DepartureRow, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return scrapeBoard(doc.Selection)
}

// ParseStaticDepartures is ParseDepartures for pages whose scripts never ran.
// An empty board next to script tags is ErrScriptedBoard instead of a valid
// empty result.
func ParseStaticDepartures(r io.Reader) ([]domain.DepartureRow, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	rows, err := scrapeBoard(doc.Selection)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 && doc.Find("script").Length() > 0 {
		return nil, ErrScriptedBoard
	}
	return rows, nil
}

func scrapeBoard(page *goquery.Selection) (rows []domain.DepartureRow, err error) {
	board := page.Find(boardSelector).First()
	if board.Length() == 0 {
		return nil, errNoBoard
	}

	rows = make([]domain.DepartureRow, 0)
	board.Find(rowSelector).EachWithBreak(func(i int, row *goquery.Selection) bool {
		var line, direction, eta string
		if line, err = cell(row, lineSelector); err != nil {
			err = fmt.Errorf("row %d: %w", i, err)
			return false
		}
		if direction, err = cell(row, directionSelector); err != nil {
			err = fmt.Errorf("row %d: %w", i, err)
			return false
		}
		if eta, err = cell(row, etaSelector); err != nil {
			err = fmt.Errorf("row %d: %w", i, err)
			return false
		}
		rows = append(rows, domain.DepartureRow{Line: line, Direction: direction, ETA: eta})
		return true
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func cell(row *goquery.Selection, selector string) (string, error) {
	s := row.Find(selector).First()
	if s.Length() == 0 {
		return "", fmt.Errorf("missing %q cell", selector)
	}
	return s.Text(), nil
}
