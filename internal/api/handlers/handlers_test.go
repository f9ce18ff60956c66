package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/platform"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/queue"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/service"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/transfer"
)

const callerID int64 = 7

type stubPosts struct {
	service.PostService
	created *transfer.PostCreation
	post    *models.ScheduledPost
	err     error
}

func (s *stubPosts) Create(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.ScheduledPost, error) {
	s.created = pc
	return s.post, s.err
}

func (s *stubPosts) Get(ctx context.Context, userID int64, postID string) (*models.ScheduledPost, error) {
	if userID != callerID {
		return nil, service.ErrPostNotFound
	}
	return s.post, s.err
}

func (s *stubPosts) Remove(ctx context.Context, userID int64, postID string) error {
	return s.err
}

type stubLifecycle struct {
	service.PublishService
	history []*models.PostingHistory
	err     error
}

func (s *stubLifecycle) History(ctx context.Context, userID int64, postID string) ([]*models.PostingHistory, error) {
	return s.history, s.err
}

func (s *stubLifecycle) ResetForRetry(ctx context.Context, userID int64, postID string) error {
	return s.err
}

type stubEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (e *stubEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type()}, nil
}

func withUser(app *fiber.App) {
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", callerID)
		return c.Next()
	})
}

func newPostApp(posts *stubPosts, lifecycle *stubLifecycle, enq *stubEnqueuer) *fiber.App {
	app := fiber.New()
	withUser(app)
	h := NewPostHandler(posts, lifecycle, enq, time.Minute)
	app.Post("/api/posts", h.CreatePost)
	app.Get("/api/posts/:id", h.GetPost)
	app.Delete("/api/posts/:id", h.RemovePost)
	app.Post("/api/posts/:id/retry", h.RetryPost)
	app.Post("/api/posts/:id/publish", h.PublishPost)
	app.Get("/api/posts/:id/history", h.PostHistory)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func TestCreatePost(t *testing.T) {
	assert := assert.New(t)

	t.Run("created", func(t *testing.T) {
		posts := &stubPosts{post: &models.ScheduledPost{ID: "p1", Status: models.PostStatusScheduled}}
		app := newPostApp(posts, &stubLifecycle{}, &stubEnqueuer{})

		resp, body := doJSON(t, app, "POST", "/api/posts", map[string]any{
			"platform":       "instagram",
			"post_type":      "feed",
			"account_id":     1,
			"scheduled_time": "2026-03-01T13:00:00Z",
			"media":          []map[string]any{{"storage_path": "a.jpg", "media_type": "image", "order": 0}},
		})
		assert.Equal(fiber.StatusCreated, resp.StatusCode)
		assert.Equal("p1", body["id"])
		require.NotNil(t, posts.created)
		assert.Equal(int64(1), posts.created.AccountID)
		assert.Equal("a.jpg", posts.created.Media[0].StoragePath)
	})

	t.Run("validation error", func(t *testing.T) {
		posts := &stubPosts{err: &service.ValidationError{Message: "carousel posts require at least 2 media items, got 1"}}
		app := newPostApp(posts, &stubLifecycle{}, &stubEnqueuer{})

		resp, body := doJSON(t, app, "POST", "/api/posts", map[string]any{"platform": "instagram"})
		assert.Equal(fiber.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal("carousel posts require at least 2 media items, got 1", body["error"])
	})

	t.Run("bad body", func(t *testing.T) {
		app := newPostApp(&stubPosts{}, &stubLifecycle{}, &stubEnqueuer{})
		req := httptest.NewRequest("POST", "/api/posts", bytes.NewReader([]byte("{")))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestPublishNow(t *testing.T) {
	assert := assert.New(t)

	t.Run("queued once", func(t *testing.T) {
		enq := &stubEnqueuer{}
		posts := &stubPosts{post: &models.ScheduledPost{ID: "p1", Status: models.PostStatusScheduled}}
		app := newPostApp(posts, &stubLifecycle{}, enq)

		resp, body := doJSON(t, app, "POST", "/api/posts/p1/publish", nil)
		assert.Equal(fiber.StatusAccepted, resp.StatusCode)
		assert.Equal("queued", body["status"])
		require.Len(t, enq.tasks, 1)
		assert.Equal(queue.TaskTypePublishPost, enq.tasks[0].Type())
		assert.JSONEq(`{"post_id":"p1"}`, string(enq.tasks[0].Payload()))
	})

	t.Run("already queued", func(t *testing.T) {
		enq := &stubEnqueuer{err: asynq.ErrTaskIDConflict}
		posts := &stubPosts{post: &models.ScheduledPost{ID: "p1", Status: models.PostStatusScheduled}}
		app := newPostApp(posts, &stubLifecycle{}, enq)

		resp, _ := doJSON(t, app, "POST", "/api/posts/p1/publish", nil)
		assert.Equal(fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("published post", func(t *testing.T) {
		enq := &stubEnqueuer{}
		posts := &stubPosts{post: &models.ScheduledPost{ID: "p1", Status: models.PostStatusPublished}}
		app := newPostApp(posts, &stubLifecycle{}, enq)

		resp, body := doJSON(t, app, "POST", "/api/posts/p1/publish", nil)
		assert.Equal(fiber.StatusConflict, resp.StatusCode)
		assert.Equal(service.ErrAlreadyPublished.Error(), body["error"])
		assert.Empty(enq.tasks)
	})

	t.Run("unknown post", func(t *testing.T) {
		posts := &stubPosts{err: service.ErrPostNotFound}
		app := newPostApp(posts, &stubLifecycle{}, &stubEnqueuer{})

		resp, _ := doJSON(t, app, "POST", "/api/posts/p1/publish", nil)
		assert.Equal(fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestRetryAndRemove(t *testing.T) {
	assert := assert.New(t)

	app := newPostApp(&stubPosts{}, &stubLifecycle{}, &stubEnqueuer{})
	resp, body := doJSON(t, app, "POST", "/api/posts/p1/retry", nil)
	assert.Equal(fiber.StatusOK, resp.StatusCode)
	assert.Equal(models.PostStatusScheduled, body["status"])

	app = newPostApp(&stubPosts{}, &stubLifecycle{err: service.ErrNotSchedulable}, &stubEnqueuer{})
	resp, _ = doJSON(t, app, "POST", "/api/posts/p1/retry", nil)
	assert.Equal(fiber.StatusConflict, resp.StatusCode)

	app = newPostApp(&stubPosts{}, &stubLifecycle{}, &stubEnqueuer{})
	resp, _ = doJSON(t, app, "DELETE", "/api/posts/p1", nil)
	assert.Equal(fiber.StatusNoContent, resp.StatusCode)
}

type stubAccounts struct {
	service.AccountService
	validateErr error
}

func (s *stubAccounts) Validate(ctx context.Context, userID, accountID int64) error {
	return s.validateErr
}

func TestPostHistory(t *testing.T) {
	assert := assert.New(t)

	t.Run("attempts in order", func(t *testing.T) {
		lifecycle := &stubLifecycle{history: []*models.PostingHistory{
			{ID: 1, PostID: "p1", Outcome: models.PostStatusFailed, ErrorMessage: "Media upload failed"},
			{ID: 2, PostID: "p1", Outcome: models.PostStatusPublished, PlatformPostID: "ig1"},
		}}
		app := newPostApp(&stubPosts{}, lifecycle, &stubEnqueuer{})

		resp, err := app.Test(httptest.NewRequest("GET", "/api/posts/p1/history", nil))
		require.NoError(t, err)
		assert.Equal(fiber.StatusOK, resp.StatusCode)

		var entries []models.PostingHistory
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
		require.Len(t, entries, 2)
		assert.Equal("Media upload failed", entries[0].ErrorMessage)
		assert.Equal("ig1", entries[1].PlatformPostID)
	})

	t.Run("never attempted", func(t *testing.T) {
		app := newPostApp(&stubPosts{}, &stubLifecycle{}, &stubEnqueuer{})

		resp, err := app.Test(httptest.NewRequest("GET", "/api/posts/p1/history", nil))
		require.NoError(t, err)
		raw, _ := io.ReadAll(resp.Body)
		assert.Equal("[]", string(raw))
	})

	t.Run("other user's post", func(t *testing.T) {
		app := newPostApp(&stubPosts{}, &stubLifecycle{err: service.ErrPostNotFound}, &stubEnqueuer{})

		resp, _ := doJSON(t, app, "GET", "/api/posts/p1/history", nil)
		assert.Equal(fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestValidateAccount(t *testing.T) {
	assert := assert.New(t)

	newApp := func(s *stubAccounts) *fiber.App {
		app := fiber.New()
		withUser(app)
		h := NewAccountHandler(s)
		app.Post("/api/accounts/:id/validate", h.ValidateAccount)
		return app
	}

	resp, body := doJSON(t, newApp(&stubAccounts{}), "POST", "/api/accounts/3/validate", nil)
	assert.Equal(fiber.StatusOK, resp.StatusCode)
	assert.Equal(true, body["valid"])

	rejected := &stubAccounts{validateErr: &platform.Error{Platform: "facebook", Code: 190, Message: "Error validating access token"}}
	resp, body = doJSON(t, newApp(rejected), "POST", "/api/accounts/3/validate", nil)
	assert.Equal(fiber.StatusOK, resp.StatusCode)
	assert.Equal(false, body["valid"])
	assert.Equal("Error validating access token", body["error"])

	resp, _ = doJSON(t, newApp(&stubAccounts{validateErr: service.ErrAccountNotFound}), "POST", "/api/accounts/3/validate", nil)
	assert.Equal(fiber.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, newApp(&stubAccounts{}), "POST", "/api/accounts/abc/validate", nil)
	assert.Equal(fiber.StatusBadRequest, resp.StatusCode)
}

type stubMedia struct {
	service.MediaService
	got []byte
}

func (s *stubMedia) Upload(ctx context.Context, userID int64, file []byte) (*transfer.MediaUploadResult, error) {
	s.got = file
	return &transfer.MediaUploadResult{StoragePath: "media/7/x.png", MediaType: models.MediaTypeImage}, nil
}

func TestUploadMedia(t *testing.T) {
	assert := assert.New(t)
	media := &stubMedia{}
	app := fiber.New()
	withUser(app)
	app.Post("/api/media", NewMediaHandler(media).UploadMedia)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "x.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/media", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(fiber.StatusCreated, resp.StatusCode)
	assert.Equal([]byte("png-bytes"), media.got)

	resp, err = app.Test(httptest.NewRequest("POST", "/api/media", nil))
	require.NoError(t, err)
	assert.Equal(fiber.StatusBadRequest, resp.StatusCode)
}

func TestTriggerSweep(t *testing.T) {
	assert := assert.New(t)

	enq := &stubEnqueuer{}
	app := fiber.New()
	app.Post("/api/sweep", NewSweepHandler(enq, time.Minute, 30*time.Second).TriggerSweep)

	resp, body := doJSON(t, app, "POST", "/api/sweep", nil)
	assert.Equal(fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(true, body["queued"])
	require.Len(t, enq.tasks, 1)
	assert.Equal(queue.TaskTypeSweep, enq.tasks[0].Type())

	enq.err = asynq.ErrDuplicateTask
	resp, body = doJSON(t, app, "POST", "/api/sweep", nil)
	assert.Equal(fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(false, body["queued"])
}
