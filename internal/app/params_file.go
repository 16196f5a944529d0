package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samvad-hq/coinify-go/pkg/coinify"
	"gopkg.in/yaml.v3"
)

// InvoiceFile is the on-disk form of invoice create/update parameters.
type InvoiceFile struct {
	Amount        *float64       `json:"amount" yaml:"amount"`
	Currency      string         `json:"currency" yaml:"currency"`
	PluginName    string         `json:"plugin_name" yaml:"plugin_name"`
	PluginVersion string         `json:"plugin_version" yaml:"plugin_version"`
	Description   *string        `json:"description" yaml:"description"`
	Custom        map[string]any `json:"custom" yaml:"custom"`
	CallbackURL   *string        `json:"callback_url" yaml:"callback_url"`
	CallbackEmail *string        `json:"callback_email" yaml:"callback_email"`
	ReturnURL     *string        `json:"return_url" yaml:"return_url"`
	CancelURL     *string        `json:"cancel_url" yaml:"cancel_url"`
}

// LoadInvoiceFile reads a YAML or JSON parameters file.
func LoadInvoiceFile(path string) (InvoiceFile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return InvoiceFile{}, errors.New("invoice file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return InvoiceFile{}, fmt.Errorf("read invoice file: %w", err)
	}

	var f InvoiceFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(raw, &f)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(raw, &f)
	default:
		return InvoiceFile{}, fmt.Errorf("invoice file format not recognized (expected YAML or JSON)")
	}
	if err != nil {
		return InvoiceFile{}, fmt.Errorf("decode invoice file: %w", err)
	}
	f.Custom = normalizeYAML(f.Custom)
	return f, nil
}

// CreateParams merges file values into p; values already set on p win.
func (f InvoiceFile) CreateParams(p coinify.InvoiceCreateParams) coinify.InvoiceCreateParams {
	if p.Amount == 0 && f.Amount != nil {
		p.Amount = *f.Amount
	}
	p.Currency = firstNonEmpty(p.Currency, f.Currency)
	p.PluginName = firstNonEmpty(p.PluginName, f.PluginName)
	p.PluginVersion = firstNonEmpty(p.PluginVersion, f.PluginVersion)
	p.Description = firstSet(p.Description, f.Description)
	p.CallbackURL = firstSet(p.CallbackURL, f.CallbackURL)
	p.CallbackEmail = firstSet(p.CallbackEmail, f.CallbackEmail)
	p.ReturnURL = firstSet(p.ReturnURL, f.ReturnURL)
	p.CancelURL = firstSet(p.CancelURL, f.CancelURL)
	if p.Custom == nil {
		p.Custom = f.Custom
	}
	return p
}

// UpdateParams merges file values into p; values already set on p win.
func (f InvoiceFile) UpdateParams(p coinify.InvoiceUpdateParams) coinify.InvoiceUpdateParams {
	p.Description = firstSet(p.Description, f.Description)
	if p.Custom == nil {
		p.Custom = f.Custom
	}
	return p
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func firstSet(a, b *string) *string {
	if a != nil {
		return a
	}
	return b
}

// normalizeYAML converts map[interface{}]interface{} nodes so the value can be JSON encoded.
func normalizeYAML(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return normalizeYAML(val)
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[fmt.Sprint(k)] = normalizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = normalizeValue(inner)
		}
		return out
	default:
		return v
	}
}
