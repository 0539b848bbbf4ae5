package examclient

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"path"
	"strconv"
)

// Resource is a backend collection reached through the authorized pipeline.
// Payloads are passed through as JSON; the backend owns their shape.
type Resource struct {
	client     *Client
	collection string
	item       string
}

// List returns every item of the collection. Query may be nil.
func (r Resource) List(ctx context.Context, query url.Values) ([]json.RawMessage, error) {
	if !r.client.ready() {
		return nil, ErrClientNotReady
	}
	var out []json.RawMessage
	if err := r.client.api.Get(ctx, r.collection, query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get decodes one item into out.
func (r Resource) Get(ctx context.Context, id int64, out any) error {
	if !r.client.ready() {
		return ErrClientNotReady
	}
	return r.client.api.Get(ctx, r.itemPath(id), nil, out)
}

// Create posts in and decodes the created item into out.
func (r Resource) Create(ctx context.Context, in, out any) error {
	if !r.client.ready() {
		return ErrClientNotReady
	}
	return r.client.api.Post(ctx, r.collection, in, out)
}

// Update puts in and decodes the updated item into out.
func (r Resource) Update(ctx context.Context, id int64, in, out any) error {
	if !r.client.ready() {
		return ErrClientNotReady
	}
	return r.client.api.Put(ctx, r.itemPath(id), in, out)
}

// Delete removes one item.
func (r Resource) Delete(ctx context.Context, id int64) error {
	if !r.client.ready() {
		return ErrClientNotReady
	}
	return r.client.api.Delete(ctx, r.itemPath(id), nil, nil)
}

func (r Resource) itemPath(id int64) string {
	return path.Join(r.item, strconv.FormatInt(id, 10))
}

func (c *Client) resource(collection string) Resource {
	return Resource{client: c, collection: collection, item: collection}
}

// Exams is the exam catalogue.
func (c *Client) Exams() Resource { return c.resource("/exams") }

// ExamTests are the tests of one exam.
func (c *Client) ExamTests(examID int64) Resource {
	return c.resource("/exams/" + strconv.FormatInt(examID, 10) + "/tests")
}

// Questions is the question bank.
func (c *Client) Questions() Resource { return c.resource("/questions") }

// Users is the user administration collection.
func (c *Client) Users() Resource { return c.resource("/users") }

// Skills is the skill catalogue.
func (c *Client) Skills() Resource { return c.resource("/skills") }

// Sections are the sections of one skill. Items are addressed as
// /sections/{id}.
func (c *Client) Sections(skillID int64) Resource {
	return Resource{
		client:     c,
		collection: "/skills/" + strconv.FormatInt(skillID, 10) + "/sections",
		item:       "/sections",
	}
}

// UserStats decodes the user summary into out.
func (c *Client) UserStats(ctx context.Context, out any) error {
	if !c.ready() {
		return ErrClientNotReady
	}
	return c.api.Get(ctx, "/users/stats/summary", nil, out)
}

// Generation runs one content generation action.
func (c *Client) Generation(ctx context.Context, action string, in, out any) error {
	if !c.ready() {
		return ErrClientNotReady
	}
	return c.api.Post(ctx, "/generation/"+url.PathEscape(action), in, out)
}

// Grading runs one grading action.
func (c *Client) Grading(ctx context.Context, action string, in, out any) error {
	if !c.ready() {
		return ErrClientNotReady
	}
	return c.api.Post(ctx, "/grading/"+url.PathEscape(action), in, out)
}

// UploadedImage describes a stored image.
type UploadedImage struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

// UploadImage stores an image read from r.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) (UploadedImage, error) {
	if !c.ready() {
		return UploadedImage{}, ErrClientNotReady
	}
	var out UploadedImage
	if err := c.api.Upload(ctx, "/upload/image", "file", filename, r, &out); err != nil {
		return UploadedImage{}, err
	}
	return out, nil
}

// DeleteImage removes a stored image by the filename UploadImage returned.
func (c *Client) DeleteImage(ctx context.Context, filename string) error {
	if !c.ready() {
		return ErrClientNotReady
	}
	return c.api.Delete(ctx, "/upload/image", url.Values{"filename": {filename}}, nil)
}
