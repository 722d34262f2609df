package email

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	err  error
	sent []*gomail.Message
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func testConfig() *SMTPConfig {
	cfg := DefaultConfig()
	cfg.Host = "smtp.example.com"
	cfg.FromEmail = "noreply@example.com"
	return cfg
}

func TestDefaultTemplates_RenderOTP(t *testing.T) {
	tm, err := NewDefaultTemplateManager("")
	require.NoError(t, err)

	html, err := tm.Render(TemplateOTP, TemplateData{"Name": "Asel", "OTP": "123456", "ExpiresInMinutes": 10})
	require.NoError(t, err)
	assert.Contains(t, html, "123456")
	assert.Contains(t, html, "10 minutes")
}

func TestDefaultTemplates_DirectoryOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "otp.html"), []byte("code={{.OTP}}"), 0o600))

	tm, err := NewDefaultTemplateManager(dir)
	require.NoError(t, err)

	html, err := tm.Render(TemplateOTP, TemplateData{"OTP": "654321"})
	require.NoError(t, err)
	assert.Equal(t, "code=654321", html)
}

func TestSMTPProvider_SendTemplate(t *testing.T) {
	tm, err := NewDefaultTemplateManager("")
	require.NoError(t, err)
	d := &fakeDialer{}
	p := newSMTPProvider(testConfig(), d, tm)

	err = p.SendTemplate(context.Background(), []string{"user@example.com"}, "Verify", TemplateOTP,
		TemplateData{"Name": "User", "OTP": "111111", "ExpiresInMinutes": 10})
	require.NoError(t, err)
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"user@example.com"}, d.sent[0].GetHeader("To"))
}

func TestSMTPProvider_BreakerOpensAfterFailures(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	p := newSMTPProvider(testConfig(), d, nil)
	msg := &Email{To: []string{"user@example.com"}, Subject: "x", Body: "y"}

	for i := 0; i < 3; i++ {
		err := p.Send(context.Background(), msg)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}

	err := p.Send(context.Background(), msg)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestSMTPProvider_Validate(t *testing.T) {
	cfg := testConfig()
	cfg.FromEmail = ""
	p := newSMTPProvider(cfg, &fakeDialer{}, nil)

	assert.Error(t, p.Validate())
}
