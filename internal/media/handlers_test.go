package media

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"backend-snsapp/internal/auth"
	"backend-snsapp/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func fakeAuth(c *fiber.Ctx) error {
	auth.SetCaller(c, "user-1")
	return c.Next()
}

func passThrough(c *fiber.Ctx) error { return c.Next() }

func uploadRequest(t *testing.T, field string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, "upload.bin")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write(content)
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/media/images", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadHandler(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO media_objects`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), "image/gif", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc, _ := newService(t, mock, 1024)
	app := fiber.New()
	RegisterRoutes(app.Group(MountPath), svc, fakeAuth, passThrough)

	resp, err := app.Test(uploadRequest(t, "image", gifBytes))
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status: %v %v", err, resp.StatusCode)
	}
	var body struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID == "" || body.URL != "http://cdn.test/media/"+body.ID+".gif" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestUploadHandlerErrors(t *testing.T) {
	svc, _ := newService(t, nil, 16)
	app := fiber.New()
	RegisterRoutes(app.Group(MountPath), svc, fakeAuth, passThrough)

	cases := []struct {
		field   string
		content []byte
		status  int
	}{
		{"other", gifBytes, http.StatusBadRequest},
		{"image", []byte("text"), http.StatusBadRequest},
		{"image", gifBytes, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		resp, err := app.Test(uploadRequest(t, tc.field, tc.content))
		if err != nil {
			t.Fatalf("test request: %v", err)
		}
		if resp.StatusCode != tc.status {
			t.Fatalf("field %s: expected %d, got %d", tc.field, tc.status, resp.StatusCode)
		}
	}
}

func TestUploadRequiresCaller(t *testing.T) {
	svc, _ := newService(t, nil, 16)
	app := fiber.New()
	RegisterRoutes(app.Group(MountPath), svc, passThrough, passThrough)

	resp, err := app.Test(uploadRequest(t, "image", gifBytes))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401")
	}
}

func TestServesStoredFiles(t *testing.T) {
	svc, dir := newService(t, nil, 16)
	if err := os.WriteFile(filepath.Join(dir, "pic.png"), pngBytes, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	app := fiber.New()
	RegisterRoutes(app.Group(MountPath), svc, fakeAuth, passThrough)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/media/pic.png", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("expected stored file to be served")
	}
}

func TestUploadHandlerHidesStorageError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO media_objects`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), "image/gif", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errSave)

	log, err := logger.New("media-test", "INFO", "")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	var logs bytes.Buffer
	log.SetOutput(&logs)

	svc := NewService(mock, Options{Dir: t.TempDir(), BaseURL: "http://cdn.test/media", MaxBytes: 1024}, log)
	app := fiber.New()
	RegisterRoutes(app.Group(MountPath), svc, fakeAuth, passThrough)

	resp, err := app.Test(uploadRequest(t, "image", gifBytes))
	if err != nil || resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500")
	}
	body, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(body), errSave.Error()) || strings.Contains(string(body), "media_objects") {
		t.Fatalf("storage error leaked to client: %s", body)
	}
	if !strings.Contains(logs.String(), errSave.Error()) {
		t.Fatalf("expected storage error in logs")
	}
}
