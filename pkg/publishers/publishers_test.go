package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: http2
    type: http
    enabled: true
    http:
      url: https://example.com/2
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "http2" {
		t.Fatalf("expected only http2 enabled, got %#v", enabled)
	}
}

func TestPublisherConfigRejectsMissingHTTPBlock(t *testing.T) {
	cfg := PublisherConfig{ID: "h1", Type: TypeHTTP}
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected validation error for missing http block")
	}
}

func TestLoadRegistryJSONWithAllTypes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.json")
	raw := `{"publishers":[
  {"id":"q","type":"SQS","sqs":{"uri":"https://sqs.example.com/q","region":"eu-west-1"}},
  {"id":"t","type":"sns","sns":{"topic_arn":"arn:aws:sns:eu-west-1:1:t","region":"eu-west-1"}},
  {"id":"g","type":"pubsub","pubsub":{"project_id":"p","topic":"invoices"}},
  {"id":"h","type":"http","http":{"url":" https://example.com/hook ","secret":" s "}}
]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.Enabled()) != 4 {
		t.Fatalf("expected 4 enabled publishers, got %d", len(reg.Enabled()))
	}
	q, ok := reg.ByID("q")
	if !ok || q.Type != TypeSQS {
		t.Fatalf("sqs publisher type not normalized: %#v", q)
	}
	h, _ := reg.ByID("h")
	if h.HTTP.URL != "https://example.com/hook" || h.HTTP.Method != "POST" || h.HTTP.TimeoutSeconds != 5 || h.HTTP.Secret != "s" {
		t.Fatalf("http publisher not sanitized: %#v", h.HTTP)
	}
}

func TestLoadRegistryRejectsDuplicateIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.yaml")
	raw := `
publishers:
  - id: a
    type: http
    http:
      url: https://example.com
  - id: a
    type: http
    http:
      url: https://example.com/2
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestPublisherConfigRejectsIncompleteSinks(t *testing.T) {
	cases := []PublisherConfig{
		{ID: "s", Type: TypeSNS, SNS: &SNSPublisherConfig{Region: "eu-west-1"}},
		{ID: "arn", Type: TypeSNS, SNS: &SNSPublisherConfig{TopicARN: "invoices", Region: "eu-west-1"}},
		{ID: "g", Type: TypePubSub, PubSub: &PubSubPublisherConfig{ProjectID: "p"}},
		{ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "https://q"}},
		{ID: "creds", Type: TypeSQS, SQS: &SQSPublisherConfig{
			QueueURL:    "https://q",
			Region:      "eu-west-1",
			Credentials: &AWSCredentials{AccessKeyID: "AKIA"},
		}},
		{ID: "rel", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "/hooks"}},
		{ID: "k", Type: "kafka"},
	}
	for _, cfg := range cases {
		if err := cfg.validate(); err == nil {
			t.Fatalf("expected validation error for %s", cfg.ID)
		}
	}
}

func TestLoadRegistryRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.yaml")
	raw := `
publishers:
  - id: t
    type: sns
    sns:
      topic-arn: arn:aws:sns:eu-west-1:1:t
      region: eu-west-1
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected misspelled key to be rejected")
	}
}
