package kb

import (
	"context"
	"fmt"
	"net/url"
)

// Tag endpoints live under the v3alpha API surface.
const tagsPath = "/v3alpha/knowledge-base/tags"

// ListTags returns all tags defined in the knowledge base.
func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	var resp struct {
		Data []Tag `json:"data"`
	}
	if err := c.getJSON(ctx, tagsPath, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CreateTag creates a new tag label.
func (c *Client) CreateTag(ctx context.Context, label string) (Tag, error) {
	if label == "" {
		return Tag{}, validationError("tag label is required")
	}
	var resp struct {
		Data Tag `json:"data"`
	}
	body := map[string]any{"data": map[string]any{"label": label}}
	if err := c.postJSON(ctx, tagsPath, body, &resp); err != nil {
		return Tag{}, err
	}
	if resp.Data.Label == "" {
		resp.Data.Label = label
	}
	return resp.Data, nil
}

// DeleteTag removes a tag by its ID.
func (c *Client) DeleteTag(ctx context.Context, tagID string) error {
	if tagID == "" {
		return validationError("tagID is required")
	}
	return c.deleteJSON(ctx, tagsPath+"/"+url.PathEscape(tagID), nil)
}

// FindTagID resolves a tag label to its server-assigned ID.
func (c *Client) FindTagID(ctx context.Context, label string) (string, error) {
	tags, err := c.ListTags(ctx)
	if err != nil {
		return "", err
	}
	for _, tag := range tags {
		if tag.Label == label {
			return tag.TagID, nil
		}
	}
	return "", &APIError{Kind: KindNotFound, Message: fmt.Sprintf("tag %q not found", label)}
}

// AttachTags attaches tag labels to a document.
func (c *Client) AttachTags(ctx context.Context, documentID string, tags []string) error {
	return c.tagOp(ctx, documentID, tags, "attach")
}

// DetachTags detaches tag labels from a document.
func (c *Client) DetachTags(ctx context.Context, documentID string, tags []string) error {
	return c.tagOp(ctx, documentID, tags, "detach")
}

func (c *Client) tagOp(ctx context.Context, documentID string, tags []string, op string) error {
	if documentID == "" {
		return validationError("documentID is required")
	}
	if len(tags) == 0 {
		return validationError("at least one tag is required")
	}
	path := fmt.Sprintf("/v3alpha/knowledge-base/docs/%s/tags/%s", url.PathEscape(documentID), op)
	body := map[string]any{"data": map[string]any{"tags": tags}}
	return c.postJSON(ctx, path, body, nil)
}

// SyncDocumentTags reconciles a document's tags to the desired set by
// detaching removed labels and attaching new ones. Unchanged labels are
// left alone.
func (c *Client) SyncDocumentTags(ctx context.Context, documentID string, desired, current []string) error {
	toDetach := diffTags(current, desired)
	toAttach := diffTags(desired, current)

	if len(toDetach) > 0 {
		if err := c.DetachTags(ctx, documentID, toDetach); err != nil {
			return fmt.Errorf("detaching %v: %w", toDetach, err)
		}
	}
	if len(toAttach) > 0 {
		if err := c.AttachTags(ctx, documentID, toAttach); err != nil {
			return fmt.Errorf("attaching %v: %w", toAttach, err)
		}
	}
	return nil
}

// diffTags returns the labels in a that are not in b, preserving order.
func diffTags(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, t := range b {
		inB[t] = true
	}
	var out []string
	for _, t := range a {
		if !inB[t] {
			out = append(out, t)
		}
	}
	return out
}
