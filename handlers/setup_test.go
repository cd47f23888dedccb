package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"oficios_app_go/config"
	"oficios_app_go/db"
	"oficios_app_go/middleware"
	"oficios_app_go/models"
	"oficios_app_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "secret123"

type testApp struct {
	e   *echo.Echo
	db  *gorm.DB
	cfg *config.Config
}

// setupTestApp builds the full router on an in-memory database and local storage
func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := testDB.DB(); err == nil {
			sqlDB.Close()
		}
	})

	db.DB = testDB
	services.Storage = services.NewLocalStorage(t.TempDir())

	cfg := &config.Config{
		Environment:     "test",
		SessionSecret:   "test-secret-test-secret-test-secret",
		ResponseLinkTTL: time.Hour,
		EmailTestMode:   true,
		AppURL:          "http://oficios.test",
	}

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(e)
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})
	RegisterRoutes(e, middleware.NewLimiters(middleware.NewMemoryStore(time.Now)))

	return &testApp{e: e, db: testDB, cfg: cfg}
}

// createUser inserts an active user with the given role and the test password
func (a *testApp) createUser(t *testing.T, username, role string, institucionID *string) *models.User {
	t.Helper()
	hash, err := services.HashPassword(testPassword)
	require.NoError(t, err)
	user := &models.User{
		Username:  username,
		FirstName: "Test",
		LastName:  strings.ToUpper(username),
		Email:     username + "@example.org",
		Password:  hash,
		IsActive:  true,
		Perfil: &models.UsuarioPerfil{
			Role:          role,
			EsProfesional: role == models.RoleProfesional,
			InstitucionID: institucionID,
		},
	}
	require.NoError(t, a.db.Create(user).Error)
	return user
}

// login creates a user with role and returns its session cookie
func (a *testApp) login(t *testing.T, username, role string) *http.Cookie {
	t.Helper()
	user := a.createUser(t, username, role, nil)
	session, err := services.CreateSession(a.db, user, "127.0.0.1", "test-agent")
	require.NoError(t, err)
	return &http.Cookie{Name: middleware.SessionCookieName, Value: session.Token}
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	cookie      *http.Cookie
	htmx        bool
	accept      string
}

func (a *testApp) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(r.method, r.path, r.body)
	if r.contentType != "" {
		req.Header.Set(echo.HeaderContentType, r.contentType)
	}
	if r.cookie != nil {
		req.AddCookie(r.cookie)
	}
	if r.htmx {
		req.Header.Set("HX-Request", "true")
	}
	if r.accept != "" {
		req.Header.Set(echo.HeaderAccept, r.accept)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(t *testing.T, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	return a.do(t, request{method: http.MethodGet, path: path, cookie: cookie})
}

func (a *testApp) sendJSON(t *testing.T, method, path string, cookie *http.Cookie, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return a.do(t, request{method: method, path: path, body: bytes.NewReader(raw), contentType: echo.MIMEApplicationJSON, cookie: cookie})
}

func (a *testApp) postForm(t *testing.T, path string, cookie *http.Cookie, form url.Values, htmx bool) *httptest.ResponseRecorder {
	return a.do(t, request{
		method:      http.MethodPost,
		path:        path,
		body:        strings.NewReader(form.Encode()),
		contentType: echo.MIMEApplicationForm,
		cookie:      cookie,
		htmx:        htmx,
	})
}

// postMultipart sends fields plus an optional PDF under "archivo"
func (a *testApp) postMultipart(t *testing.T, method, path string, cookie *http.Cookie, fields url.Values, pdf []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, w.WriteField(k, v))
		}
	}
	if pdf != nil {
		part, err := w.CreateFormFile("archivo", "oficio.pdf")
		require.NoError(t, err)
		_, err = part.Write(pdf)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return a.do(t, request{method: method, path: path, body: body, contentType: w.FormDataContentType(), cookie: cookie})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// dataID returns data.id of a {"message", "data"} response
func dataID(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	data, ok := decode(t, rec)["data"].(map[string]interface{})
	require.True(t, ok, rec.Body.String())
	id, _ := data["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func validPDF() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
}

func createInstitucion(t *testing.T, testDB *gorm.DB, nombre string) *models.Institucion {
	inst := &models.Institucion{Nombre: nombre}
	require.NoError(t, testDB.Create(inst).Error)
	return inst
}
