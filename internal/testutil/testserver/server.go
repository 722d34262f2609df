package testserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"relief_backend/internal/app"
	"relief_backend/internal/config"
	"relief_backend/internal/models"
	"relief_backend/internal/ratelimit"
	"relief_backend/internal/storage"
	"relief_backend/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const TestJWTSecret = "test_secret_key_for_relief_backend_123"

type TestServer struct {
	Server *httptest.Server
	DB     *gorm.DB
	App    *app.Application
	Email  *testutil.RecordingEmailProvider
}

// NewTestConfig - конфигурация по умолчанию без файлов и env
func NewTestConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.Database.Driver = "sqlite"
	cfg.JWT.Secret = TestJWTSecret
	cfg.JWT.TTL = 60
	cfg.OTP.TTLMinutes = 10
	cfg.OTP.CleanupInterval = 60
	cfg.OTP.CleanupGraceHour = 24
	cfg.Storage.Type = "local"
	cfg.Storage.BasePath = t.TempDir()
	cfg.Storage.BaseURL = "/uploads"
	cfg.Upload.MaxSize = 10 * 1024 * 1024
	cfg.Upload.AllowedTypes = []string{
		"image/jpeg", "image/png", "image/gif", "image/webp",
		"video/mp4", "video/webm", "video/ogg",
	}
	cfg.RateLimit.Requests = 1000
	cfg.RateLimit.WindowSeconds = 60
	return cfg
}

// NewTestServer поднимает приложение поверх sqlite. limiter может быть nil.
func NewTestServer(t *testing.T, limiter ratelimit.Limiter) *TestServer {
	t.Helper()

	cfg := NewTestConfig(t)
	db := testutil.NewTestDB(t)
	recorder := testutil.NewRecordingEmailProvider()

	localStorage, err := storage.NewLocalStorage(storage.Config{
		BasePath: cfg.Storage.BasePath,
		BaseURL:  cfg.Storage.BaseURL,
	})
	require.NoError(t, err)

	if limiter == nil {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, time.Minute)
	}

	application, err := app.SetupRouter(cfg, db, app.Dependencies{
		Email:   recorder,
		Storage: localStorage,
		Limiter: limiter,
	})
	require.NoError(t, err, "Не удалось собрать приложение")

	server := httptest.NewServer(application.Router)
	t.Cleanup(server.Close)

	return &TestServer{
		Server: server,
		DB:     db,
		App:    application,
		Email:  recorder,
	}
}

func (ts *TestServer) SendRequest(t *testing.T, method, path, token string, body interface{}) (*http.Response, string) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Ошибка кодирования JSON для запроса: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("Ошибка создания HTTP-запроса: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return ts.Do(t, req)
}

// Do выполняет готовый запрос (multipart, cookie) и читает тело
func (ts *TestServer) Do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()

	res, err := ts.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("Ошибка отправки HTTP-запроса: %v", err)
	}
	defer res.Body.Close()

	resBodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("Ошибка чтения тела ответа: %v", err)
	}
	return res, string(resBodyBytes)
}

// Login выполняет signin и возвращает токен
func (ts *TestServer) Login(t *testing.T, email, password string) string {
	t.Helper()

	res, body := ts.SendRequest(t, http.MethodPost, "/api/auth/signin", "", map[string]interface{}{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, res.StatusCode, "Вход должен быть успешным. Ответ: "+body)

	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &session))
	require.NotEmpty(t, session.Token, "Токен не должен быть пустым")
	return session.Token
}

// CreateAndLoginUser создает пользователя в БД и логинит его через API
func (ts *TestServer) CreateAndLoginUser(t *testing.T, name, email string, role models.UserRole, verified bool) (string, *models.User) {
	t.Helper()

	const password = "password123"
	user := testutil.CreateUser(t, ts.DB, name, email, password, role, verified)
	return ts.Login(t, email, password), user
}
