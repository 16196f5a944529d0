package publishers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Supported publisher types.
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypePubSub = "pubsub"
	TypeHTTP   = "http"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

// PublisherConfig is one sink declared in the publishers file. Only the
// block matching Type is read.
type PublisherConfig struct {
	ID      string                 `json:"id" yaml:"id"`
	Type    string                 `json:"type" yaml:"type"`
	Enabled *bool                  `json:"enabled" yaml:"enabled"`
	SQS     *SQSPublisherConfig    `json:"sqs" yaml:"sqs"`
	SNS     *SNSPublisherConfig    `json:"sns" yaml:"sns"`
	PubSub  *PubSubPublisherConfig `json:"pubsub" yaml:"pubsub"`
	HTTP    *HTTPPublisherConfig   `json:"http" yaml:"http"`
}

// IsEnabled defaults to true when the file leaves enabled out.
func (cfg PublisherConfig) IsEnabled() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}

// sinkSettings is the per-type block of a PublisherConfig.
type sinkSettings interface {
	clean()
	validate() error
}

// settings returns the block selected by Type. present is false when the
// block is missing from the file.
func (cfg *PublisherConfig) settings() (block sinkSettings, present bool, err error) {
	switch cfg.Type {
	case TypeSQS:
		return cfg.SQS, cfg.SQS != nil, nil
	case TypeSNS:
		return cfg.SNS, cfg.SNS != nil, nil
	case TypePubSub:
		return cfg.PubSub, cfg.PubSub != nil, nil
	case TypeHTTP:
		return cfg.HTTP, cfg.HTTP != nil, nil
	}
	return nil, false, fmt.Errorf("unsupported publisher type %q", cfg.Type)
}

func (cfg *PublisherConfig) clean() {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if block, present, err := cfg.settings(); err == nil && present {
		block.clean()
	}
}

func (cfg *PublisherConfig) validate() error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	if cfg.Type == "" {
		return fmt.Errorf("publisher %q: type is required", cfg.ID)
	}
	block, present, err := cfg.settings()
	if err != nil {
		return fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}
	if !present {
		return fmt.Errorf("publisher %q: %s block is required", cfg.ID, cfg.Type)
	}
	if err := block.validate(); err != nil {
		return fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}
	return nil
}

// AWSCredentials optionally pins static credentials instead of the default chain.
type AWSCredentials struct {
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `json:"session_token" yaml:"session_token"`
}

func (c *AWSCredentials) clean() {
	if c == nil {
		return
	}
	c.AccessKeyID = strings.TrimSpace(c.AccessKeyID)
	c.SecretAccessKey = strings.TrimSpace(c.SecretAccessKey)
	c.SessionToken = strings.TrimSpace(c.SessionToken)
}

// validate requires the key pair to be given together.
func (c *AWSCredentials) validate(block string) error {
	if c == nil {
		return nil
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("%s.credentials needs both access_key_id and secret_access_key", block)
	}
	return nil
}

// SQSPublisherConfig holds AWS SQS specific settings.
type SQSPublisherConfig struct {
	QueueURL    string          `json:"uri" yaml:"uri"`
	Region      string          `json:"region" yaml:"region"`
	Credentials *AWSCredentials `json:"credentials" yaml:"credentials"`
}

func (c *SQSPublisherConfig) clean() {
	c.QueueURL = strings.TrimSpace(c.QueueURL)
	c.Region = strings.TrimSpace(c.Region)
	c.Credentials.clean()
}

func (c *SQSPublisherConfig) validate() error {
	switch {
	case c.QueueURL == "":
		return errors.New("sqs.uri is required")
	case c.Region == "":
		return errors.New("sqs.region is required")
	}
	return c.Credentials.validate(TypeSQS)
}

// SNSPublisherConfig holds AWS SNS specific settings.
type SNSPublisherConfig struct {
	TopicARN    string          `json:"topic_arn" yaml:"topic_arn"`
	Region      string          `json:"region" yaml:"region"`
	Credentials *AWSCredentials `json:"credentials" yaml:"credentials"`
}

func (c *SNSPublisherConfig) clean() {
	c.TopicARN = strings.TrimSpace(c.TopicARN)
	c.Region = strings.TrimSpace(c.Region)
	c.Credentials.clean()
}

func (c *SNSPublisherConfig) validate() error {
	switch {
	case !strings.HasPrefix(c.TopicARN, "arn:"):
		return fmt.Errorf("sns.topic_arn must be a topic ARN, got %q", c.TopicARN)
	case c.Region == "":
		return errors.New("sns.region is required")
	}
	return c.Credentials.validate(TypeSNS)
}

// PubSubPublisherConfig holds Google Cloud Pub/Sub settings. Endpoint is
// only needed for emulators and private endpoints.
type PubSubPublisherConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
}

func (c *PubSubPublisherConfig) clean() {
	c.ProjectID = strings.TrimSpace(c.ProjectID)
	c.Topic = strings.TrimSpace(c.Topic)
	c.CredentialsFile = strings.TrimSpace(c.CredentialsFile)
	c.Endpoint = strings.TrimSpace(c.Endpoint)
}

func (c *PubSubPublisherConfig) validate() error {
	if c.ProjectID == "" || c.Topic == "" {
		return errors.New("pubsub.project_id and pubsub.topic are required")
	}
	return nil
}

// HTTPPublisherConfig describes a webhook sink. A non-empty Secret signs
// every body with SignatureHeader.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
	Secret         string            `json:"secret" yaml:"secret"`
}

func (c *HTTPPublisherConfig) clean() {
	c.URL = strings.TrimSpace(c.URL)
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	if c.Method == "" {
		c.Method = httpDefaultMethod
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = httpDefaultTimeoutSeconds
	}
	c.Secret = strings.TrimSpace(c.Secret)

	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			headers[k] = v
		}
	}
	c.Headers = nil
	if len(headers) > 0 {
		c.Headers = headers
	}
}

func (c *HTTPPublisherConfig) validate() error {
	if c.URL == "" {
		return errors.New("http.url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("http.url must be an absolute http(s) URL, got %q", c.URL)
	}
	return nil
}

// ConfigRegistry holds the validated publishers file. It is read-only once
// loaded.
type ConfigRegistry struct {
	publishers []PublisherConfig
	byID       map[string]int
}

// LoadRegistry reads a publishers file. ".json" files are decoded as JSON,
// anything else as YAML. Unknown keys are rejected so typos do not silently
// disable a sink.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	var file struct {
		Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
	}
	if err := decodeStrict(raw, filepath.Ext(path), &file); err != nil {
		return nil, fmt.Errorf("decode publishers file: %w", err)
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	reg := &ConfigRegistry{byID: make(map[string]int, len(file.Publishers))}
	for i := range file.Publishers {
		cfg := file.Publishers[i]
		cfg.clean()
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := reg.byID[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.byID[cfg.ID] = len(reg.publishers)
		reg.publishers = append(reg.publishers, cfg)
	}
	return reg, nil
}

func decodeStrict(raw []byte, ext string, out any) error {
	if strings.EqualFold(ext, ".json") {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		return dec.Decode(out)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// ByID returns the publisher declared with id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}
	i, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return PublisherConfig{}, false
	}
	return r.publishers[i], true
}

// Enabled returns the enabled publishers in file order.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	if r == nil {
		return nil
	}
	out := make([]PublisherConfig, 0, len(r.publishers))
	for _, cfg := range r.publishers {
		if cfg.IsEnabled() {
			out = append(out, cfg)
		}
	}
	return out
}
