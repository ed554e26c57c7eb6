// Package registry resolves schema IDs from a schema registry, registering
// schemas on first use and caching assigned IDs for the life of the run.
package registry

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/riferrei/srclient"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/protofake/metrics"
)

// Registry registers a schema under a subject, returning its assigned ID.
// Registration is idempotent: re-registering an identical schema returns
// the ID already assigned.
type Registry interface {
	Register(subject, schema string) (int, error)
}

// Config of a schema registry client.
type Config struct {
	URL      string `long:"url" env:"URL" description:"Schema registry URL (eg, http://localhost:8081)"`
	Username string `long:"username" env:"USERNAME" description:"Schema registry basic-auth username"`
	Password string `long:"password" env:"PASSWORD" description:"Schema registry basic-auth password"`
	Subject  string `long:"subject-strategy" env:"SUBJECT_STRATEGY" default:"record" choice:"record" choice:"topic" choice:"topic-record" description:"Naming strategy of registered subjects"`
}

// Client is a Registry of a remote schema registry.
type Client struct {
	sr *srclient.SchemaRegistryClient
}

// NewClient returns a Client of the Config.
func NewClient(cfg Config) *Client {
	var sr = srclient.NewSchemaRegistryClient(cfg.URL)
	if cfg.Username != "" {
		sr.SetCredentials(cfg.Username, cfg.Password)
	}
	return &Client{sr: sr}
}

// Register implements Registry.
func (c *Client) Register(subject, schema string) (int, error) {
	var s, err = c.sr.CreateSchema(subject, schema, srclient.Protobuf)
	if err != nil {
		return 0, err
	}
	return s.ID(), nil
}

// Subject returns the subject of record |name| produced to |topic|
// under naming |strategy|.
func Subject(strategy, topic, name string) (string, error) {
	switch strategy {
	case "", "record":
		return name, nil
	case "topic":
		return topic + "-value", nil
	case "topic-record":
		return topic + "-" + name, nil
	default:
		return "", errors.Errorf("unknown subject strategy %q", strategy)
	}
}

// Resolver resolves schema IDs through a Registry, querying it at most once
// per subject.
type Resolver struct {
	reg     Registry
	mu      sync.Mutex
	ids     map[string]int
	lookups int
}

// NewResolver returns a Resolver of the Registry.
func NewResolver(reg Registry) *Resolver {
	return &Resolver{reg: reg, ids: make(map[string]int)}
}

// Resolve the ID of |schema| under |subject|, registering it on first use.
// Failures are returned as *Error.
func (r *Resolver) Resolve(subject, schema string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.ids[subject]; ok {
		return id, nil
	}
	r.lookups++

	var id, err = r.reg.Register(subject, schema)
	if err != nil {
		metrics.RegistryLookupsTotal.WithLabelValues(metrics.Fail).Inc()
		return 0, &Error{Subject: subject, Err: err}
	}
	metrics.RegistryLookupsTotal.WithLabelValues(metrics.Ok).Inc()
	r.ids[subject] = id

	log.WithFields(log.Fields{
		"subject": subject,
		"id":      id,
	}).Info("resolved schema ID")

	return id, nil
}

// Lookups returns the number of Registry queries made by the Resolver.
func (r *Resolver) Lookups() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups
}

// Error is a failure to register or look up a schema.
type Error struct {
	Subject string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("schema registry: registering subject %q: %s", e.Subject, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
