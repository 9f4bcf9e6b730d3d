package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"taskhub/internal/cache"
	"taskhub/internal/database"
	"taskhub/internal/domain"
	"taskhub/internal/events"
	"taskhub/internal/jobs"
	"taskhub/internal/mail"
	"taskhub/internal/middleware"
	"taskhub/internal/modules/attachments"
	"taskhub/internal/modules/auth"
	"taskhub/internal/modules/comments"
	"taskhub/internal/modules/notifications"
	"taskhub/internal/modules/projects"
	"taskhub/internal/modules/tasks"
	"taskhub/internal/modules/teams"
	jwtsvc "taskhub/internal/pkg/jwt"
	"taskhub/internal/pkg/validator"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
	"taskhub/internal/storage"
)

type E2ETestSuite struct {
	router     *gin.Engine
	db         *gorm.DB
	jwtService *jwtsvc.Service
	dispatcher *events.Dispatcher
	runner     *jobs.Runner
}

type TestResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorDetail    `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func setupTestSuite(t *testing.T) *E2ETestSuite {
	require.NoError(t, validator.RegisterCustom())

	db, err := database.Connect(":memory:")
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, database.Migrate(db))

	for _, name := range []string{domain.RoleAdmin, domain.RoleTeamOwner, domain.RoleProjectManager, domain.RoleMember} {
		require.NoError(t, db.Create(&domain.Role{Name: name}).Error)
	}

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	jobRepo := repository.NewJobRepository(db)
	resolver := repository.NewTargetResolver(db)

	engine := policy.NewEngine(policy.DefaultGrants(), resolver)

	root := t.TempDir()
	store := storage.NewStore()
	store.Mount(domain.DiskPublic, storage.NewLocalDisk(filepath.Join(root, "public"), "/static"))
	store.Mount(domain.DiskPrivate, storage.NewLocalDisk(filepath.Join(root, "private"), ""))

	jwtService := jwtsvc.New("test_secret_key_32_characters_min", 24*time.Hour)
	memCache := cache.New(time.Minute)
	emitter := events.NewEmitter(outboxRepo)

	hub := notifications.NewHub()
	notificationService := notifications.NewService(notificationRepo, hub)
	notificationHandler := notifications.NewHandler(notificationService, hub)

	authHandler := auth.NewHandler(auth.NewService(userRepo, roleRepo, jwtService, engine))
	teamHandler := teams.NewHandler(teams.NewService(teamRepo, engine, memCache))
	projectHandler := projects.NewHandler(projects.NewService(projectRepo, engine, emitter, memCache))
	taskHandler := tasks.NewHandler(tasks.NewService(taskRepo, userRepo, engine, emitter))
	commentHandler := comments.NewHandler(comments.NewService(commentRepo, resolver, engine, emitter))
	attachmentHandler := attachments.NewHandler(attachments.NewService(attachmentRepo, store, resolver, engine, emitter))

	registry := jobs.NewRegistry()
	jobs.NewHandlers(taskRepo, userRepo, commentRepo, attachmentRepo, notificationService, mail.NewLogMailer(), store).RegisterAll(registry)

	queue := jobs.NewQueue(jobRepo)
	dispatcher := events.NewDispatcher(outboxRepo, queue, time.Second)
	runner := jobs.NewRunner(jobRepo, registry,
		[]string{domain.QueueDefault, domain.QueueEmails, domain.QueueFileProcessing},
		time.Second, time.Minute)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	public := api.Group("/")
	protected := api.Group("/")
	protected.Use(middleware.JWTAuth(jwtService))

	authHandler.RegisterRoutes(public, protected)
	teamHandler.RegisterRoutes(protected)
	projectHandler.RegisterRoutes(protected)
	taskHandler.RegisterRoutes(protected)
	commentHandler.RegisterRoutes(protected)
	attachmentHandler.RegisterRoutes(protected)
	notificationHandler.RegisterRoutes(protected)

	return &E2ETestSuite{
		router:     r,
		db:         db,
		jwtService: jwtService,
		dispatcher: dispatcher,
		runner:     runner,
	}
}

func (s *E2ETestSuite) makeRequest(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) *TestResponse {
	t.Helper()
	var resp TestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Status: %d, Body: %s", w.Code, w.Body.String())
	return &resp
}

func dataMap(t *testing.T, resp *TestResponse) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &m))
	return m
}

func dataList(t *testing.T, resp *TestResponse) []map[string]interface{} {
	t.Helper()
	var l []map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &l))
	return l
}

// registerUser creates an account through the API and returns its token
// and id. Every registered user starts as a plain member.
func (s *E2ETestSuite) registerUser(t *testing.T, email, name string) (string, int64) {
	t.Helper()
	w := s.makeRequest("POST", "/api/auth/register", map[string]interface{}{
		"email":    email,
		"password": "Password123!",
		"name":     name,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, "register %s: %s", email, w.Body.String())

	data := dataMap(t, parseResponse(t, w))
	user := data["user"].(map[string]interface{})
	return data["token"].(string), int64(user["id"].(float64))
}

// grantRole attaches a role row directly and returns a fresh token
// carrying the new claim set.
func (s *E2ETestSuite) grantRole(t *testing.T, email, roleName string) string {
	t.Helper()
	var user domain.User
	require.NoError(t, s.db.Where("email = ?", email).First(&user).Error)
	var role domain.Role
	require.NoError(t, s.db.Where("name = ?", roleName).First(&role).Error)
	require.NoError(t, s.db.Model(&user).Association("Roles").Append(&role))

	w := s.makeRequest("POST", "/api/auth/login", map[string]interface{}{
		"email":    email,
		"password": "Password123!",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	return dataMap(t, parseResponse(t, w))["token"].(string)
}

// processJobs drains the outbox into the job table and runs everything
// that became due, the same path the background goroutines take.
func (s *E2ETestSuite) processJobs(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.dispatcher.Drain(ctx))
	for _, q := range []string{domain.QueueDefault, domain.QueueEmails, domain.QueueFileProcessing} {
		require.NoError(t, s.runner.RunDue(ctx, q))
	}
}

func (s *E2ETestSuite) createProject(t *testing.T, token string, teamID int64, name string) int64 {
	t.Helper()
	w := s.makeRequest("POST", "/api/projects", map[string]interface{}{
		"name":    name,
		"team_id": teamID,
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return int64(dataMap(t, parseResponse(t, w))["id"].(float64))
}

func (s *E2ETestSuite) createTeam(t *testing.T, token, name string) int64 {
	t.Helper()
	w := s.makeRequest("POST", "/api/teams", map[string]interface{}{"name": name}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return int64(dataMap(t, parseResponse(t, w))["id"].(float64))
}

func TestFlow1_RegistrationAndAuth(t *testing.T) {
	suite := setupTestSuite(t)

	var token string

	t.Run("POST /auth/register", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/auth/register", map[string]interface{}{
			"email":    "dana@test.com",
			"password": "Password123!",
			"name":     "Dana",
		}, "")
		require.Equal(t, http.StatusCreated, w.Code)

		resp := parseResponse(t, w)
		assert.True(t, resp.Success)
		data := dataMap(t, resp)
		assert.NotEmpty(t, data["token"])
		token = data["token"].(string)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/auth/register", map[string]interface{}{
			"email":    "dana@test.com",
			"password": "Password123!",
			"name":     "Dana Again",
		}, "")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "CONFLICT", parseResponse(t, w).Error.Code)
	})

	t.Run("POST /auth/login", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/auth/login", map[string]interface{}{
			"email":    "dana@test.com",
			"password": "Password123!",
		}, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, dataMap(t, parseResponse(t, w))["token"])
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/auth/login", map[string]interface{}{
			"email":    "dana@test.com",
			"password": "nope nope",
		}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("GET /auth/me", func(t *testing.T) {
		w := suite.makeRequest("GET", "/api/auth/me", nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "dana@test.com", dataMap(t, parseResponse(t, w))["email"])
	})

	t.Run("protected route without token", func(t *testing.T) {
		w := suite.makeRequest("GET", "/api/auth/me", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestFlow2_TaskLifecycleAndNotifications(t *testing.T) {
	suite := setupTestSuite(t)

	adminToken := func() string {
		_, _ = suite.registerUser(t, "admin@test.com", "Admin")
		return suite.grantRole(t, "admin@test.com", domain.RoleAdmin)
	}()
	memberToken, memberID := suite.registerUser(t, "member@test.com", "Member")

	teamID := suite.createTeam(t, adminToken, "Platform")
	projectID := suite.createProject(t, adminToken, teamID, "Launch")

	var taskID int64

	t.Run("POST /tasks with assignee", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/tasks", map[string]interface{}{
			"name":        "Write release notes",
			"project_id":  projectID,
			"priority":    "high",
			"assigned_to": memberID,
		}, adminToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		data := dataMap(t, parseResponse(t, w))
		taskID = int64(data["id"].(float64))
		assert.Equal(t, "pending", data["status"], "status defaults to pending")
	})

	t.Run("assignment fans out to a notification", func(t *testing.T) {
		suite.processJobs(t)

		w := suite.makeRequest("GET", "/api/notifications", nil, memberToken)
		require.Equal(t, http.StatusOK, w.Code)
		items := dataList(t, parseResponse(t, w))
		require.Len(t, items, 1)
		assert.Equal(t, "task_assigned", items[0]["type"])

		w = suite.makeRequest("GET", "/api/notifications/unread-count", nil, memberToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), dataMap(t, parseResponse(t, w))["unread"])
	})

	t.Run("assignee can view the task", func(t *testing.T) {
		w := suite.makeRequest("GET", fmt.Sprintf("/api/tasks/%d", taskID), nil, memberToken)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("PUT /tasks/:id to completed", func(t *testing.T) {
		w := suite.makeRequest("PUT", fmt.Sprintf("/api/tasks/%d", taskID), map[string]interface{}{
			"status": "completed",
		}, adminToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "completed", dataMap(t, parseResponse(t, w))["status"])
	})

	t.Run("repeat save emits no duplicate events", func(t *testing.T) {
		w := suite.makeRequest("PUT", fmt.Sprintf("/api/tasks/%d", taskID), map[string]interface{}{
			"status": "completed",
		}, adminToken)
		require.Equal(t, http.StatusOK, w.Code)

		var count int64
		require.NoError(t, suite.db.Model(&domain.OutboxEvent{}).
			Where("event_type = ?", "task.status_updated").Count(&count).Error)
		assert.Equal(t, int64(1), count)

		require.NoError(t, suite.db.Model(&domain.OutboxEvent{}).
			Where("event_type = ?", "task.completed").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("GET /tasks/completed", func(t *testing.T) {
		w := suite.makeRequest("GET", "/api/tasks/completed", nil, adminToken)
		require.Equal(t, http.StatusOK, w.Code)
		items := dataList(t, parseResponse(t, w))
		require.Len(t, items, 1)
		assert.Equal(t, "Write release notes", items[0]["name"])
	})

	t.Run("pipeline leaves no unprocessed events or pending jobs", func(t *testing.T) {
		suite.processJobs(t)

		var count int64
		require.NoError(t, suite.db.Model(&domain.OutboxEvent{}).
			Where("processed_at IS NULL").Count(&count).Error)
		assert.Zero(t, count)

		require.NoError(t, suite.db.Model(&domain.Job{}).
			Where("status = ?", domain.JobPending).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestFlow3_Comments(t *testing.T) {
	suite := setupTestSuite(t)

	adminToken := func() string {
		_, _ = suite.registerUser(t, "admin@test.com", "Admin")
		return suite.grantRole(t, "admin@test.com", domain.RoleAdmin)
	}()
	_, _ = suite.registerUser(t, "manager@test.com", "Manager")
	managerToken := suite.grantRole(t, "manager@test.com", domain.RoleProjectManager)
	memberToken, _ := suite.registerUser(t, "member@test.com", "Member")

	teamID := suite.createTeam(t, adminToken, "Platform")
	projectID := suite.createProject(t, adminToken, teamID, "Launch")

	w := suite.makeRequest("POST", "/api/tasks", map[string]interface{}{
		"name":       "Review the proposal",
		"project_id": projectID,
	}, adminToken)
	require.Equal(t, http.StatusCreated, w.Code)
	taskID := int64(dataMap(t, parseResponse(t, w))["id"].(float64))

	t.Run("short link-heavy comment is rejected", func(t *testing.T) {
		w := suite.makeRequest("POST", fmt.Sprintf("/api/tasks/%d/comments", taskID), map[string]interface{}{
			"content": "http://a.io http://b.io",
		}, memberToken)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	var commentID int64

	t.Run("valid comment is created", func(t *testing.T) {
		w := suite.makeRequest("POST", fmt.Sprintf("/api/tasks/%d/comments", taskID), map[string]interface{}{
			"content": "looks good, one question about the rollout plan",
		}, managerToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		data := dataMap(t, parseResponse(t, w))
		commentID = int64(data["id"].(float64))
		assert.Equal(t, false, data["is_edited"])
	})

	t.Run("comment on a missing task is 404", func(t *testing.T) {
		w := suite.makeRequest("POST", "/api/tasks/9999/comments", map[string]interface{}{
			"content": "where did this go",
		}, memberToken)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("too short edit is rejected", func(t *testing.T) {
		w := suite.makeRequest("PUT", fmt.Sprintf("/api/comments/%d", commentID), map[string]interface{}{
			"content": "too short",
		}, managerToken)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("author edits the comment", func(t *testing.T) {
		w := suite.makeRequest("PUT", fmt.Sprintf("/api/comments/%d", commentID), map[string]interface{}{
			"content": "looks good, approved for the next sprint",
		}, managerToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("resubmitting the same content reports it unchanged", func(t *testing.T) {
		w := suite.makeRequest("PUT", fmt.Sprintf("/api/comments/%d", commentID), map[string]interface{}{
			"content": "looks good, approved for the next sprint",
		}, managerToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := parseResponse(t, w)
		assert.Equal(t, "Comment content unchanged", resp.Message)
	})

	t.Run("listing returns the comment", func(t *testing.T) {
		w := suite.makeRequest("GET", fmt.Sprintf("/api/tasks/%d/comments", taskID), nil, memberToken)
		require.Equal(t, http.StatusOK, w.Code)
		data := dataMap(t, parseResponse(t, w))
		assert.Equal(t, float64(1), data["total"])
	})
}

func TestFlow4_Attachments(t *testing.T) {
	suite := setupTestSuite(t)

	adminToken := func() string {
		_, _ = suite.registerUser(t, "admin@test.com", "Admin")
		return suite.grantRole(t, "admin@test.com", domain.RoleAdmin)
	}()

	teamID := suite.createTeam(t, adminToken, "Platform")
	projectID := suite.createProject(t, adminToken, teamID, "Launch")

	w := suite.makeRequest("POST", "/api/tasks", map[string]interface{}{
		"name":       "Collect design assets",
		"project_id": projectID,
	}, adminToken)
	require.Equal(t, http.StatusCreated, w.Code)
	taskID := int64(dataMap(t, parseResponse(t, w))["id"].(float64))

	upload := func(t *testing.T, path, fileName, content string) *httptest.ResponseRecorder {
		t.Helper()
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest("POST", path, &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+adminToken)
		rec := httptest.NewRecorder()
		suite.router.ServeHTTP(rec, req)
		return rec
	}

	var attachmentID int64

	t.Run("POST /tasks/:id/attachments", func(t *testing.T) {
		w := upload(t, fmt.Sprintf("/api/tasks/%d/attachments", taskID), "notes.txt", "the quick brown fox")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		data := dataMap(t, parseResponse(t, w))
		attachmentID = int64(data["id"].(float64))
		assert.Equal(t, "notes.txt", data["file_name"])
		assert.Equal(t, "19 B", data["human_size"])
		assert.Equal(t, fmt.Sprintf("/api/attachments/%d/download", attachmentID), data["url"],
			"private disk uploads are reachable only through the download route")
	})

	t.Run("upload to a missing task is 404", func(t *testing.T) {
		w := upload(t, "/api/tasks/9999/attachments", "notes.txt", "orphan")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("GET /tasks/:id/attachments", func(t *testing.T) {
		w := suite.makeRequest("GET", fmt.Sprintf("/api/tasks/%d/attachments", taskID), nil, adminToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, dataList(t, parseResponse(t, w)), 1)
	})

	t.Run("GET /attachments/:id/download", func(t *testing.T) {
		w := suite.makeRequest("GET", fmt.Sprintf("/api/attachments/%d/download", attachmentID), nil, adminToken)
		require.Equal(t, http.StatusOK, w.Code)

		body, err := io.ReadAll(w.Body)
		require.NoError(t, err)
		assert.Equal(t, "the quick brown fox", string(body))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "notes.txt")
	})

	t.Run("PATCH /attachments/:id", func(t *testing.T) {
		w := suite.makeRequest("PATCH", fmt.Sprintf("/api/attachments/%d", attachmentID), map[string]interface{}{
			"file_name": "release-notes.txt",
		}, adminToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "release-notes.txt", dataMap(t, parseResponse(t, w))["file_name"])
	})

	t.Run("DELETE /attachments/:id", func(t *testing.T) {
		w := suite.makeRequest("DELETE", fmt.Sprintf("/api/attachments/%d", attachmentID), nil, adminToken)
		require.Equal(t, http.StatusOK, w.Code)

		w = suite.makeRequest("GET", fmt.Sprintf("/api/attachments/%d/download", attachmentID), nil, adminToken)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}
