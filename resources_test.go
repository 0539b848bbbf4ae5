package examclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/owlenglish/examclient/api"
)

type exam struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Level string `json:"level,omitempty"`
}

func TestResourceCRUD(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t, "admin@example.com", "admin123")
	ctx := context.Background()

	var created exam
	if err := env.client.Exams().Create(ctx, exam{Title: "IELTS mock"}, &created); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 || created.Title != "IELTS mock" {
		t.Fatalf("unexpected created exam %+v", created)
	}

	var updated exam
	if err := env.client.Exams().Update(ctx, created.ID, map[string]string{"level": "B2"}, &updated); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "IELTS mock" || updated.Level != "B2" {
		t.Fatalf("expected merged update, got %+v", updated)
	}

	items, err := env.client.Exams().List(ctx, nil)
	if err != nil || len(items) != 1 {
		t.Fatalf("List: %d items, %v", len(items), err)
	}
	var listed exam
	if err := json.Unmarshal(items[0], &listed); err != nil || listed.ID != created.ID {
		t.Fatalf("unexpected listed item %s", items[0])
	}

	if err := env.client.Exams().Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	err = env.client.Exams().Get(ctx, created.ID, &exam{})
	apiErr, ok := api.AsError(err)
	if !ok || apiErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %v", err)
	}
}

func TestNestedResources(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t, "admin@example.com", "admin123")
	ctx := context.Background()

	if err := env.client.ExamTests(4).Create(ctx, map[string]string{"title": "Listening"}, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	items, err := env.client.ExamTests(4).List(ctx, nil)
	if err != nil || len(items) != 1 {
		t.Fatalf("List: %d items, %v", len(items), err)
	}
	if other, _ := env.client.ExamTests(5).List(ctx, nil); len(other) != 0 {
		t.Fatalf("expected exam 5 to have no tests, got %d", len(other))
	}
	if env.fake.Hits(http.MethodPost, "/exams/4/tests") != 1 {
		t.Fatal("expected nested collection path")
	}

	if err := env.client.Sections(2).Create(ctx, map[string]string{"name": "Part 1"}, nil); err != nil {
		t.Fatalf("Create section: %v", err)
	}
	if env.fake.Hits(http.MethodPost, "/skills/2/sections") != 1 {
		t.Fatal("expected sections to be created under their skill")
	}
	if err := env.client.Sections(2).Delete(ctx, 99); err == nil {
		t.Fatal("expected missing section delete to fail")
	}
	if env.fake.Hits(http.MethodDelete, "/sections/99") != 1 {
		t.Fatal("expected sections to be addressed by id")
	}
}

func TestResourceRequiresSession(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.client.Questions().List(context.Background(), nil)
	if !api.IsUnauthorized(err) {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestGenerationAndGrading(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t, "admin@example.com", "admin123")
	ctx := context.Background()

	var out struct {
		Action string          `json:"action"`
		Input  json.RawMessage `json:"input"`
	}
	if err := env.client.Generation(ctx, "questions", map[string]int{"count": 3}, &out); err != nil {
		t.Fatalf("Generation: %v", err)
	}
	if out.Action != "questions" || !strings.Contains(string(out.Input), `"count":3`) {
		t.Fatalf("unexpected echo %+v", out)
	}
	if err := env.client.Grading(ctx, "writing", map[string]string{"essay": "..."}, &out); err != nil {
		t.Fatalf("Grading: %v", err)
	}
	if out.Action != "writing" {
		t.Fatalf("unexpected action %q", out.Action)
	}
}

func TestUploadAndDeleteImage(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t, "admin@example.com", "admin123")
	ctx := context.Background()

	img, err := env.client.UploadImage(ctx, "Chart.PNG", strings.NewReader("not really a png"))
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if !strings.HasSuffix(img.Filename, ".png") || img.Size != 16 || !strings.HasPrefix(img.URL, "/static/uploads/") {
		t.Fatalf("unexpected upload %+v", img)
	}

	if err := env.client.DeleteImage(ctx, img.Filename); err != nil {
		t.Fatalf("DeleteImage: %v", err)
	}
	err = env.client.DeleteImage(ctx, img.Filename)
	apiErr, ok := api.AsError(err)
	if !ok || apiErr.Message != "File not found" {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResourceOnNilClient(t *testing.T) {
	var c *Client
	if _, err := c.Exams().List(context.Background(), nil); !errors.Is(err, ErrClientNotReady) {
		t.Fatalf("expected ErrClientNotReady, got %v", err)
	}
}
