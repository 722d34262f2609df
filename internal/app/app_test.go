package app_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"
	"time"

	"relief_backend/internal/email"
	"relief_backend/internal/middleware"
	"relief_backend/internal/models"
	"relief_backend/internal/ratelimit"
	"relief_backend/internal/testutil/testserver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(body), v), "Ответ не является JSON: %s", body)
}

// Полный сценарий: регистрация через OTP, инцидент, проверка, vetting, назначение, ответ респондента
func TestIncidentLifecycle(t *testing.T) {
	ts := testserver.NewTestServer(t, nil)

	// --- 1. Регистрация жителя через OTP ---
	res, body := ts.SendRequest(t, http.MethodPost, "/api/auth/send-otp", "", map[string]interface{}{
		"name":     "Jane Citizen",
		"email":    "jane@test.com",
		"password": "password123",
		"role":     models.UserRoleCommunity,
	})
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	assert.NotContains(t, body, "otp\":")

	code, err := ts.Email.LastOTP("jane@test.com")
	require.NoError(t, err)

	res, body = ts.SendRequest(t, http.MethodPost, "/api/auth/signin", "", map[string]interface{}{
		"email": "jane@test.com", "password": "password123",
	})
	require.Equal(t, http.StatusForbidden, res.StatusCode, "До подтверждения email вход запрещен: "+body)

	res, body = ts.SendRequest(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]interface{}{
		"email": "jane@test.com", "otp": code,
	})
	require.Equal(t, http.StatusOK, res.StatusCode, body)

	citizenToken := ts.Login(t, "jane@test.com", "password123")

	// --- 2. Житель сообщает об инциденте ---
	res, body = ts.SendRequest(t, http.MethodPost, "/api/incidents", citizenToken, map[string]interface{}{
		"title":       "Flooded underpass",
		"description": "Water is waist deep",
		"type":        "FLOOD",
		"severity":    4,
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, body)
	var incident models.IncidentReport
	decode(t, body, &incident)
	assert.Equal(t, models.IncidentStatusPending, incident.Status)

	// --- 3. Администратор подтверждает инцидент ---
	adminToken, admin := ts.CreateAndLoginUser(t, "Admin", "admin@test.com", models.UserRoleAdmin, true)

	res, body = ts.SendRequest(t, http.MethodPatch, "/api/incidents/"+incident.ID, adminToken, map[string]interface{}{
		"status": "VERIFIED",
	})
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	decode(t, body, &incident)
	assert.Equal(t, models.IncidentStatusVerified, incident.Status)

	res, _ = ts.SendRequest(t, http.MethodPatch, "/api/incidents/"+incident.ID, citizenToken, map[string]interface{}{
		"status": "CLOSED",
	})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	// --- 4. Vetting волонтера ---
	volunteerToken, volunteer := ts.CreateAndLoginUser(t, "Vol", "vol@test.com", models.UserRoleVolunteer, false)

	res, body = ts.SendRequest(t, http.MethodPost, "/api/users/"+volunteer.ID+"/vet", adminToken, map[string]interface{}{
		"decision": "APPROVE",
	})
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	assert.Contains(t, body, `"verified":true`)

	// --- 5. Назначение ---
	res, body = ts.SendRequest(t, http.MethodPost, "/api/incidents/"+incident.ID+"/allocate", adminToken, map[string]interface{}{
		"allocatedToId": volunteer.ID,
		"resourceType":  "BOAT",
		"priority":      1,
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, body)
	var allocation models.ResourceAllocation
	decode(t, body, &allocation)
	assert.Equal(t, models.AllocationStatusAssigned, allocation.Status)

	assert.Eventually(t, func() bool {
		return len(ts.Email.SentTo("vol@test.com", email.TemplateAllocation)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// --- 6. Волонтер принимает назначение, повтор отклоняется ---
	decision := map[string]interface{}{"allocationId": allocation.ID, "decision": "ACCEPT"}
	res, body = ts.SendRequest(t, http.MethodPatch, "/api/incidents/"+incident.ID+"/allocate", volunteerToken, decision)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	decode(t, body, &allocation)
	assert.Equal(t, models.AllocationStatusAccepted, allocation.Status)

	res, body = ts.SendRequest(t, http.MethodPatch, "/api/incidents/"+incident.ID+"/allocate", volunteerToken, decision)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, body, "ASSIGNED")

	// --- 7. Отчет респондента ---
	res, body = ts.SendRequest(t, http.MethodPost, "/api/incidents/"+incident.ID+"/status-report", volunteerToken, map[string]interface{}{
		"message": "Evacuated 12 people",
		"status":  "in progress",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, body)

	res, _ = ts.SendRequest(t, http.MethodPost, "/api/incidents/"+incident.ID+"/status-report", citizenToken, map[string]interface{}{
		"message": "I am not a responder",
	})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, body = ts.SendRequest(t, http.MethodGet, "/api/incidents/"+incident.ID+"/responses", citizenToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	var responses struct {
		Responses []models.Response `json:"responses"`
	}
	decode(t, body, &responses)
	assert.Len(t, responses.Responses, 1)

	// --- 8. Уведомления ---
	var citizenInbox struct {
		Notifications []models.Notification `json:"notifications"`
		UnreadCount   int64                 `json:"unreadCount"`
	}
	res, body = ts.SendRequest(t, http.MethodGet, "/api/notifications", citizenToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	decode(t, body, &citizenInbox)
	// подтверждение, назначение, отчет
	assert.Equal(t, int64(3), citizenInbox.UnreadCount)

	res, body = ts.SendRequest(t, http.MethodGet, "/api/notifications", adminToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	var adminInbox struct {
		Notifications []models.Notification `json:"notifications"`
	}
	decode(t, body, &adminInbox)
	require.Len(t, adminInbox.Notifications, 1)
	assert.Equal(t, admin.ID, adminInbox.Notifications[0].UserID)
	assert.Equal(t, models.NotificationTypeSuccess, adminInbox.Notifications[0].Type)

	res, body = ts.SendRequest(t, http.MethodPost, "/api/notifications/mark-read", citizenToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	assert.Contains(t, body, `"updated":3`)

	// --- 9. Статистика ---
	res, body = ts.SendRequest(t, http.MethodGet, "/api/incidents/user-stats", volunteerToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	assert.Contains(t, body, `"assignedIncidents":1`)

	res, _ = ts.SendRequest(t, http.MethodGet, "/api/resource-allocations/stats", citizenToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestSignInSetsSessionCookie(t *testing.T) {
	ts := testserver.NewTestServer(t, nil)
	ts.CreateAndLoginUser(t, "Vol", "vol@test.com", models.UserRoleVolunteer, true)

	res, body := ts.SendRequest(t, http.MethodPost, "/api/auth/signin", "", map[string]interface{}{
		"email": "vol@test.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, res.StatusCode, body)

	var session *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == middleware.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	req, err := http.NewRequest(http.MethodGet, ts.Server.URL+"/api/auth/session", nil)
	require.NoError(t, err)
	req.AddCookie(session)
	res, body = ts.Do(t, req)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	assert.Contains(t, body, "vol@test.com")
	assert.NotContains(t, body, "password")
}

func TestSessionTokensShareOneSigner(t *testing.T) {
	ts := testserver.NewTestServer(t, nil)
	token, user := ts.CreateAndLoginUser(t, "Vol", "vol@test.com", models.UserRoleVolunteer, true)

	// токен, выданный при входе, разбирается тем же сервисом, что стоит в middleware
	claims, err := ts.App.Tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID())

	issued, _, err := ts.App.Tokens.Generate(user.ID)
	require.NoError(t, err)
	res, body := ts.SendRequest(t, http.MethodGet, "/api/auth/session", issued, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	assert.Contains(t, body, "vol@test.com")
}

func TestOTPRoutesAreRateLimited(t *testing.T) {
	ts := testserver.NewTestServer(t, ratelimit.NewMemoryLimiter(2, time.Minute))
	payload := map[string]interface{}{"email": "nobody@test.com"}

	for i := 0; i < 2; i++ {
		res, _ := ts.SendRequest(t, http.MethodPost, "/api/auth/resend-otp", "", payload)
		assert.NotEqual(t, http.StatusTooManyRequests, res.StatusCode)
	}

	res, _ := ts.SendRequest(t, http.MethodPost, "/api/auth/resend-otp", "", payload)
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)

	// signin не входит в группу OTP
	res, _ = ts.SendRequest(t, http.MethodPost, "/api/auth/signin", "", map[string]interface{}{
		"email": "nobody@test.com", "password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestUploadAndSupport(t *testing.T) {
	ts := testserver.NewTestServer(t, nil)
	token, _ := ts.CreateAndLoginUser(t, "Jane", "jane@test.com", models.UserRoleCommunity, false)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="files"; filename="note.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("not really a jpeg"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	payload := body.Bytes()

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/api/upload", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, _ := ts.Do(t, req)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode, "Загрузка требует аутентификации")

	req, err = http.NewRequest(http.MethodPost, ts.Server.URL+"/api/upload", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	res, resBody := ts.Do(t, req)
	require.Equal(t, http.StatusCreated, res.StatusCode, resBody)
	var uploaded struct {
		URLs []string `json:"urls"`
	}
	decode(t, resBody, &uploaded)
	require.Len(t, uploaded.URLs, 1)

	// битое изображение загружается без превью
	assert.NotContains(t, resBody, "thumbnailUrl")

	res, resBody = ts.SendRequest(t, http.MethodPost, "/api/support", "", map[string]interface{}{
		"name":    "Anon",
		"email":   "anon@test.com",
		"subject": "Question",
		"message": "How do I volunteer?",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, resBody)
	assert.Contains(t, resBody, `"id"`)
}

func TestHealth(t *testing.T) {
	ts := testserver.NewTestServer(t, nil)

	res, body := ts.SendRequest(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"ok","database":"up"}`, body)
}
