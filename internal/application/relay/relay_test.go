package relay

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"joinnow/internal/common/errors"
	commonhttp "joinnow/internal/common/http"
	"joinnow/internal/common/logger"
	"joinnow/internal/models"
)

// ==========================
// Fixtures
// ==========================

func developerForm() models.ApplicationForm {
	return models.ApplicationForm{
		Name:  "Ann Lee",
		Gmail: "ann@gmail.com",
		Phone: "555",
		Role:  models.RoleDeveloper,
		Developer: models.DeveloperAnswers{
			Why:        "love code",
			Github:     "gh/ann",
			Experience: "2y",
		},
		Public: models.PublicAnswers{Why: "stale answer"},
	}
}

type capturedRequest struct {
	method      string
	contentType string
	fields      []models.Field
}

// newRelayServer answers every request with status and records the
// multipart fields it received in order.
func newRelayServer(t *testing.T, status int) (*httptest.Server, *capturedRequest, *int32) {
	t.Helper()
	captured := &capturedRequest{}
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		captured.method = r.Method
		captured.contentType = r.Header.Get("Content-Type")

		mediaType, params, err := mime.ParseMediaType(captured.contentType)
		if err == nil && mediaType == "multipart/form-data" {
			mr := multipart.NewReader(r.Body, params["boundary"])
			for {
				part, err := mr.NextPart()
				if err == io.EOF {
					break
				}
				if err != nil {
					break
				}
				value, _ := io.ReadAll(part)
				captured.fields = append(captured.fields, models.Field{Key: part.FormName(), Value: string(value)})
			}
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte("relay says hi"))
	}))
	t.Cleanup(srv.Close)
	return srv, captured, &calls
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.Timeout = 5 * time.Second

	c, err := NewClient(ClientOptions{
		Config:     cfg,
		HTTPClient: commonhttp.NewClient(cfg.Timeout),
		Logger:     logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return c
}

// ==========================
// Config
// ==========================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"empty url", func(c *Config) { c.URL = "" }, "relay url is required"},
		{"relative url", func(c *Config) { c.URL = "/submit" }, "absolute http(s) url"},
		{"ftp url", func(c *Config) { c.URL = "ftp://example.com" }, "absolute http(s) url"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout must be positive"},
		{"no prefix", func(c *Config) { c.SubjectPrefix = "" }, "subject_prefix is required"},
		{"no template", func(c *Config) { c.Template = "" }, "template is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewClient_InvalidConfig(t *testing.T) {
	_, err := NewClient(ClientOptions{Config: &Config{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid relay configuration")
}

// ==========================
// Payload
// ==========================

func TestBuildPayload_Developer(t *testing.T) {
	p, err := BuildPayload(developerForm(), DefaultConfig().Metadata())
	require.NoError(t, err)

	want := []models.Field{
		{Key: "name", Value: "Ann Lee"},
		{Key: "email", Value: "ann@gmail.com"},
		{Key: "phone", Value: "555"},
		{Key: "linkedin", Value: "Not provided"},
		{Key: "resume", Value: "Not provided"},
		{Key: "role", Value: "Developer"},
		{Key: "why_developer", Value: "love code"},
		{Key: "github", Value: "gh/ann"},
		{Key: "developer_experience", Value: "2y"},
		{Key: "_subject", Value: "NETWORTHWARS Internship Application - Ann Lee (Developer)"},
		{Key: "_captcha", Value: "false"},
		{Key: "_template", Value: "table"},
	}
	assert.Equal(t, want, p.Fields())

	_, hasPublic := p.Get("why_public")
	assert.False(t, hasPublic)
}

func TestBuildPayload_RoleSpecificKeys(t *testing.T) {
	tests := []struct {
		role    models.RoleID
		label   string
		present []string
		absent  []string
	}{
		{
			role:    models.RolePublic,
			label:   "Public Reaction",
			present: []string{"why_public", "campaign_examples", "public_experience"},
			absent:  []string{"why_developer", "github", "why_creator", "portfolio"},
		},
		{
			role:    models.RoleCreator,
			label:   "Content Creator",
			present: []string{"why_creator", "portfolio", "preferred_platforms"},
			absent:  []string{"why_developer", "why_public", "campaign_examples"},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			form := developerForm()
			form.Role = tt.role
			form.LinkedIn = "linkedin.com/in/ann"

			p, err := BuildPayload(form, DefaultConfig().Metadata())
			require.NoError(t, err)

			role, _ := p.Get("role")
			assert.Equal(t, tt.label, role)
			linkedin, _ := p.Get("linkedin")
			assert.Equal(t, "linkedin.com/in/ann", linkedin)

			keys := p.Keys()
			for _, k := range tt.present {
				assert.Contains(t, keys, k)
			}
			for _, k := range tt.absent {
				assert.NotContains(t, keys, k)
			}
		})
	}
}

func TestBuildPayload_NoRole(t *testing.T) {
	form := developerForm()
	form.Role = models.RoleUnset

	_, err := BuildPayload(form, DefaultConfig().Metadata())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidRole)
}

func TestBuildPayload_CaptchaEnabled(t *testing.T) {
	meta := DefaultConfig().Metadata()
	meta.DisableCaptcha = false

	p, err := BuildPayload(developerForm(), meta)
	require.NoError(t, err)
	v, _ := p.Get(KeyCaptcha)
	assert.Equal(t, "true", v)
}

func TestValidatePayload(t *testing.T) {
	p, err := BuildPayload(developerForm(), DefaultConfig().Metadata())
	require.NoError(t, err)
	assert.True(t, ValidatePayload(models.RoleDeveloper, p).Valid)

	p.Add("why_public", "leak")
	res := ValidatePayload(models.RoleDeveloper, p)
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrors("why_public"), "errors: %v", res.GetErrorMessages())

	res = ValidatePayload(models.RoleID("astronaut"), p)
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrors("role"))
}

// ==========================
// Client
// ==========================

func TestClient_Submit_Success(t *testing.T) {
	srv, captured, calls := newRelayServer(t, http.StatusOK)
	c := newTestClient(t, srv.URL)

	err := c.Submit(context.Background(), developerForm())
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, http.MethodPost, captured.method)
	assert.True(t, strings.HasPrefix(captured.contentType, "multipart/form-data"))

	want, err := BuildPayload(developerForm(), DefaultConfig().Metadata())
	require.NoError(t, err)
	assert.Equal(t, want.Fields(), captured.fields)
}

func TestClient_Submit_Rejected(t *testing.T) {
	srv, _, calls := newRelayServer(t, http.StatusInternalServerError)
	c := newTestClient(t, srv.URL)

	err := c.Submit(context.Background(), developerForm())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrRelayRejected)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls), "no retries")

	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.True(t, stdErr.Retryable)
}

func TestClient_Submit_ClientErrorNotRetryable(t *testing.T) {
	srv, _, _ := newRelayServer(t, http.StatusBadRequest)
	c := newTestClient(t, srv.URL)

	err := c.Submit(context.Background(), developerForm())
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeRelayRejected, stdErr.Code)
	assert.False(t, stdErr.Retryable)
}

func TestClient_Submit_TransportFailure(t *testing.T) {
	srv, _, _ := newRelayServer(t, http.StatusOK)
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	err := c.Submit(context.Background(), developerForm())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrRelayRequestFailed)
}

func TestClient_Submit_NoRoleMakesNoRequest(t *testing.T) {
	srv, _, calls := newRelayServer(t, http.StatusOK)
	c := newTestClient(t, srv.URL)

	form := developerForm()
	form.Role = models.RoleUnset
	err := c.Submit(context.Background(), form)
	assert.ErrorIs(t, err, errors.ErrInvalidRole)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestClient_Submit_ContextCancelled(t *testing.T) {
	srv, _, _ := newRelayServer(t, http.StatusOK)
	c := newTestClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Submit(ctx, developerForm())
	assert.ErrorIs(t, err, errors.ErrRelayRequestFailed)
}
