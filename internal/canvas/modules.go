package canvas

import (
	"context"
	"encoding/json"
	"fmt"

	"canvas-finder/internal/domain"
)

type moduleDTO struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

type moduleItemDTO struct {
	ID      int             `json:"id"`
	Title   string          `json:"title"`
	Type    domain.ItemType `json:"type"`
	HTMLURL *string         `json:"html_url"`
}

// ListModules returns a course's modules in server order.
func (c *Client) ListModules(ctx context.Context, courseID int) ([]domain.Module, error) {
	path := fmt.Sprintf("/api/v1/courses/%d/modules", courseID)
	pages, err := c.GetPaginated(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var out []domain.Module
	err = decodeEach(c.resolve(path, nil), pages, func(raw json.RawMessage) error {
		var m moduleDTO
		if err := json.Unmarshal(raw, &m); err != nil {
			return err
		}
		out = append(out, domain.Module{ID: m.ID, Name: m.Name, Position: m.Position})
		return nil
	})
	return out, err
}

// ListModuleItems returns a module's items in the order Canvas returns them.
func (c *Client) ListModuleItems(ctx context.Context, courseID, moduleID int) ([]domain.ModuleItem, error) {
	path := fmt.Sprintf("/api/v1/courses/%d/modules/%d/items", courseID, moduleID)
	pages, err := c.GetPaginated(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var out []domain.ModuleItem
	err = decodeEach(c.resolve(path, nil), pages, func(raw json.RawMessage) error {
		var it moduleItemDTO
		if err := json.Unmarshal(raw, &it); err != nil {
			return err
		}
		item := domain.ModuleItem{ID: it.ID, Title: it.Title, Type: it.Type}
		if it.HTMLURL != nil {
			item.URL = *it.HTMLURL
		}
		out = append(out, item)
		return nil
	})
	if err == nil {
		c.metrics.AddItems(len(out))
	}
	return out, err
}

func decodeEach(rawURL string, pages []Page, fn func(json.RawMessage) error) error {
	for _, page := range pages {
		for _, raw := range page {
			if err := fn(raw); err != nil {
				return &Error{Kind: KindDecode, URL: rawURL, Body: raw, Err: err}
			}
		}
	}
	return nil
}
