package email

import (
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const otpTemplate = `<h2>Verify your email</h2>
<p>Hello {{.Name}},</p>
<p>Your verification code is <strong style="font-size:20px;letter-spacing:4px">{{.OTP}}</strong>.</p>
<p>The code expires in {{.ExpiresInMinutes}} minutes. If you did not request it, ignore this email.</p>`

const allocationTemplate = `<h2>New assignment</h2>
<p>Hello {{.Name}},</p>
<p>You have been assigned <strong>{{.ResourceType}}</strong> (priority {{.Priority}}) for the incident
"<strong>{{.IncidentTitle}}</strong>"{{if .Address}} at {{.Address}}{{end}}.</p>
{{if .Description}}<p>{{.Description}}</p>{{end}}
<p>Please sign in to accept or decline the assignment.</p>`

const supportTemplate = `<h2>Support request</h2>
<p><strong>From:</strong> {{.Name}} &lt;{{.Email}}&gt;</p>
<p><strong>Subject:</strong> {{.Subject}}</p>
<p>{{.Message}}</p>`

// TemplateManager реализует TemplateRenderer для управления шаблонами email
type TemplateManager struct {
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

func NewTemplateManager() *TemplateManager {
	return &TemplateManager{
		templates: make(map[string]*template.Template),
	}
}

// NewDefaultTemplateManager - менеджер со встроенными шаблонами.
// Если dir задан, файлы *.html из него перекрывают встроенные по имени.
func NewDefaultTemplateManager(dir string) (*TemplateManager, error) {
	tm := NewTemplateManager()

	builtin := map[string]string{
		TemplateOTP:        otpTemplate,
		TemplateAllocation: allocationTemplate,
		TemplateSupport:    supportTemplate,
	}
	for name, body := range builtin {
		if err := tm.AddTemplate(name, body); err != nil {
			return nil, err
		}
	}

	if dir != "" {
		if _, err := os.Stat(dir); err == nil {
			if err := tm.LoadTemplates(dir); err != nil {
				return nil, err
			}
		}
	}
	return tm, nil
}

func (tm *TemplateManager) Render(templateName string, data TemplateData) (string, error) {
	tm.mutex.RLock()
	tpl, exists := tm.templates[templateName]
	tm.mutex.RUnlock()

	if !exists {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

func (tm *TemplateManager) AddTemplate(name string, templateStr string) error {
	tpl, err := template.New(name).Parse(templateStr)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	tm.mutex.Lock()
	tm.templates[name] = tpl
	tm.mutex.Unlock()

	return nil
}

// LoadTemplates загружает шаблоны из директории
func (tm *TemplateManager) LoadTemplates(dirPath string) error {
	return filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", path, err)
		}

		templateName := strings.TrimSuffix(filepath.Base(path), ".html")
		if err := tm.AddTemplate(templateName, string(content)); err != nil {
			return fmt.Errorf("failed to add template %s: %w", templateName, err)
		}

		return nil
	})
}
