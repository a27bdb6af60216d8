package catalog

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ImportHTML extracts foods from the first HTML table whose header row names
// at least the name and calories columns. Recognised headers are name,
// category, calories, protein, carbs, fat and emoji. Categories are split on
// commas. Rows that fail validation are reported as an error.
func ImportHTML(r io.Reader) ([]Food, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var (
		foods    []Food
		rowErr   error
		imported bool
	)

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		columns := headerColumns(table)
		if _, ok := columns["name"]; !ok {
			return true
		}
		if _, ok := columns["calories"]; !ok {
			return true
		}

		imported = true
		table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			cells := row.Find("td")
			if cells.Length() == 0 {
				return true
			}
			values := make([]string, cells.Length())
			cells.Each(func(i int, cell *goquery.Selection) {
				values[i] = strings.TrimSpace(cell.Text())
			})

			food, err := foodFromRow(columns, values)
			if err != nil {
				rowErr = err
				return false
			}
			foods = append(foods, food)
			return true
		})
		return false
	})

	if rowErr != nil {
		return nil, rowErr
	}
	if !imported {
		return nil, fmt.Errorf("no nutrition table found")
	}
	return foods, nil
}

func headerColumns(table *goquery.Selection) map[string]int {
	columns := make(map[string]int)
	table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		key := strings.ToLower(strings.TrimSpace(th.Text()))
		columns[key] = i
	})
	return columns
}

func foodFromRow(columns map[string]int, values []string) (Food, error) {
	cell := func(key string) string {
		i, ok := columns[key]
		if !ok || i >= len(values) {
			return ""
		}
		return values[i]
	}
	number := func(key string) (float64, error) {
		raw := strings.ReplaceAll(cell(key), ",", ".")
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
		}
		return v, nil
	}

	f := Food{
		Name:  cell("name"),
		Emoji: cell("emoji"),
	}
	f.ID = Slug(f.Name)
	for _, tag := range strings.Split(cell("category"), ",") {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			f.Category = append(f.Category, tag)
		}
	}

	var err error
	if f.Calories, err = number("calories"); err != nil {
		return Food{}, err
	}
	if f.Protein, err = number("protein"); err != nil {
		return Food{}, err
	}
	if f.Carbs, err = number("carbs"); err != nil {
		return Food{}, err
	}
	if f.Fat, err = number("fat"); err != nil {
		return Food{}, err
	}

	if err := Validate(f); err != nil {
		return Food{}, fmt.Errorf("invalid row %q: %w", f.Name, err)
	}
	return f, nil
}
