package core

import (
	"bytes"
	"encoding/base64"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"io/ioutil"
	"net/http"
	"net/mail"
	"path"
	"strings"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: {tmplCacheEntry}}

	Attachment struct {
		Content     *bytes.Buffer // base64 encoded
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
		// Send renders and delivers msg before returning
		Send(msg *EmailMessage) error
	}

	// EmailRenderer renders templated messages from <name>.txt and <name>.gohtml files,
	// each extending _base.txt or _base.gohtml of the same directory.
	EmailRenderer struct {
		templates       tmplCache
		appName         string
		frontendBaseURL string
	}
)

// NewEmailRenderer parses the email templates found in dir.
// In strict mode, templates fail on missing keys.
func NewEmailRenderer(fsys fs.FS, dir string, conf *Config) (*EmailRenderer, error) {
	r := &EmailRenderer{
		templates:       make(tmplCache),
		appName:         conf.AppName,
		frontendBaseURL: conf.FrontendBaseURL,
	}
	strict := conf.Debug || conf.TestMode

	fps, err := fs.Glob(fsys, path.Join(dir, "*"))
	if err != nil {
		return nil, errors.Wrap(err, "listing email templates")
	}
	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := r.templates[name]
		if !ok {
			entry = make(tmplCacheEntry)
			r.templates[name] = entry
		}
		base := path.Join(dir, "_base"+ext)
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(fsys, base, fp)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fp)
			}
			if strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(fsys, base, fp)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fp)
			}
			if strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		}
	}
	return r, nil
}

func (r *EmailRenderer) contextData(m *EmailMessage) ContextData {
	return ContextData{
		AppName:         r.appName,
		FrontendBaseURL: r.frontendBaseURL,
		Data:            m.TemplateData,
	}
}

func (r *EmailRenderer) template(name, ext string) (interface{}, bool) {
	entry, ok := r.templates[name]
	if !ok {
		return nil, ok
	}
	tmpl, ok := entry[ext]
	return tmpl, ok
}

func (r *EmailRenderer) renderText(m *EmailMessage) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := r.template(m.TemplateName, ".txt")
	if !ok {
		return errors.Errorf("email template %s.txt not found", m.TemplateName)
	}
	tmpl := tmplEntry.(*texttmpl.Template)

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, r.contextData(m)); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (r *EmailRenderer) renderHTML(m *EmailMessage) error {
	if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := r.template(m.TemplateName, ".gohtml")
	if !ok {
		return nil // text only
	}
	tmpl := tmplEntry.(*htmltmpl.Template)

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, r.contextData(m)); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

// Render fills the message's TextContent and HTMLContent.
func (r *EmailRenderer) Render(m *EmailMessage) error {
	if err := r.renderText(m); err != nil {
		return errors.Wrap(err, "rendering text content")
	}
	return errors.Wrap(r.renderHTML(m), "rendering html content")
}

func (m *EmailMessage) Attach(rdr io.Reader, filename string, ct ...string) error {
	content, err := ioutil.ReadAll(rdr)
	if err != nil {
		return err
	}
	at := Attachment{Filename: filename, Content: new(bytes.Buffer)}

	encoder := base64.NewEncoder(base64.StdEncoding, at.Content)
	if _, err := encoder.Write(content); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}

	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = http.DetectContentType(content)
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }
