package app

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/samvad-hq/coinify-go/pkg/coinify"
	"gopkg.in/yaml.v3"
)

// Render writes the decoded envelope in the requested format. A body that
// was not a JSON object is written raw.
func Render(w io.Writer, format string, resp *coinify.Response) error {
	if resp == nil {
		return fmt.Errorf("no response to render")
	}
	if resp.Body == nil {
		_, err := fmt.Fprintln(w, string(resp.Raw))
		return err
	}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(resp.Body); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp.Body); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// ResultError turns a response the caller should treat as failed into an error.
func ResultError(resp *coinify.Response) error {
	if resp == nil {
		return fmt.Errorf("empty response")
	}
	if resp.Success() {
		return nil
	}
	if apiErr := resp.APIError(); apiErr != nil {
		return apiErr
	}
	if err := resp.DecodeErr(); err != nil {
		return fmt.Errorf("http status %d: %w", resp.StatusCode, err)
	}
	return fmt.Errorf("request unsuccessful (http status %d)", resp.StatusCode)
}
