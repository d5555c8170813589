package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/linkstash/linkstash/internal/domain"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
)

// itemView is the printable form of a saved item.
type itemView struct {
	ID        string    `json:"id" yaml:"id"`
	URL       string    `json:"url" yaml:"url"`
	Title     string    `json:"title,omitempty" yaml:"title,omitempty"`
	Notes     string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	SourceApp string    `json:"source_app,omitempty" yaml:"source_app,omitempty"`
	Tags      []string  `json:"tags" yaml:"tags"`
	Favorite  bool      `json:"favorite" yaml:"favorite"`
	Archived  bool      `json:"archived" yaml:"archived"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

func newItemView(item *domain.SavedItem) itemView {
	tags := make([]string, 0, len(item.Tags))
	for _, t := range item.Tags {
		tags = append(tags, t.Name)
	}
	return itemView{
		ID:        item.ID,
		URL:       item.URL,
		Title:     item.Title,
		Notes:     item.Notes,
		SourceApp: item.SourceApp,
		Tags:      tags,
		Favorite:  item.IsFavorite,
		Archived:  item.IsArchived,
		CreatedAt: item.CreatedAt,
	}
}

// tagView is the printable form of a tag.
type tagView struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Items int    `json:"items" yaml:"items"`
}

func newTagView(tag *domain.Tag) tagView {
	return tagView{ID: tag.ID, Name: tag.Name, Items: tag.ItemCount}
}

func (a *app) printItems(items []*domain.SavedItem) error {
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, newItemView(item))
	}
	if a.output != outputTable {
		return a.encode(views)
	}

	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{v.ID, markers(v), displayTitle(v), strings.Join(v.Tags, ", "), v.URL})
	}
	a.printTable([]string{"ID", "", "Title", "Tags", "URL"}, rows)
	return nil
}

func (a *app) printItem(item *domain.SavedItem) error {
	v := newItemView(item)
	if a.output != outputTable {
		return a.encode(v)
	}

	rows := [][]string{
		{"ID", v.ID},
		{"URL", v.URL},
		{"Title", v.Title},
		{"Tags", strings.Join(v.Tags, ", ")},
		{"Notes", v.Notes},
		{"Source", v.SourceApp},
		{"Favorite", yesNo(v.Favorite)},
		{"Archived", yesNo(v.Archived)},
		{"Saved", v.CreatedAt.Local().Format(time.DateTime)},
	}
	a.printTable(nil, rows)
	return nil
}

func (a *app) printTags(tags []*domain.Tag) error {
	views := make([]tagView, 0, len(tags))
	for _, t := range tags {
		views = append(views, newTagView(t))
	}
	if a.output != outputTable {
		return a.encode(views)
	}

	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{v.ID, v.Name, fmt.Sprint(v.Items)})
	}
	a.printTable([]string{"ID", "Name", "Items"}, rows)
	return nil
}

func (a *app) printTable(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case headers == nil && col == 0:
				return mutedStyle
			default:
				return cellStyle
			}
		}).
		Rows(rows...)
	if headers != nil {
		t.Headers(headers...)
	}
	fmt.Fprintln(a.out, t.Render())
}

func (a *app) encode(v any) error {
	switch a.output {
	case outputJSON:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", a.output)
	}
}

func markers(v itemView) string {
	var b strings.Builder
	if v.Favorite {
		b.WriteString("★")
	}
	if v.Archived {
		b.WriteString("⌂")
	}
	return b.String()
}

func displayTitle(v itemView) string {
	if v.Title != "" {
		return v.Title
	}
	return "(untitled)"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
