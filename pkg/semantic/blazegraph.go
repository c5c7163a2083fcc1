package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kadirpekel/ontomed/pkg/config"
	"github.com/kadirpekel/ontomed/pkg/httpclient"
)

// Binding is a single SPARQL result value.
type Binding struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

type sparqlResponse struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Boolean *bool `json:"boolean,omitempty"`
	Results struct {
		Bindings []map[string]Binding `json:"bindings"`
	} `json:"results"`
}

// BlazegraphStore persists the ontology graph in a Blazegraph instance,
// speaking SPARQL over its REST API.
type BlazegraphStore struct {
	baseURL    string
	namespace  string
	httpClient *httpclient.Client

	mu        sync.RWMutex
	connected bool
	prefixes  map[string]string
}

var _ GraphStore = (*BlazegraphStore)(nil)

// NewBlazegraphStore creates a store for the given instance and namespace
// with default timeouts.
func NewBlazegraphStore(baseURL, namespace string) (*BlazegraphStore, error) {
	cfg := &config.GraphConfig{
		Provider:  config.GraphProviderBlazegraph,
		BaseURL:   baseURL,
		Namespace: namespace,
	}
	cfg.SetDefaults()

	return NewBlazegraphStoreFromConfig(cfg)
}

// NewBlazegraphStoreFromConfig creates a store from configuration.
func NewBlazegraphStoreFromConfig(cfg *config.GraphConfig) (*BlazegraphStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base_url is required")
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "ontomed"
	}
	timeout := cfg.Timeout.Duration()
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpOpts := []httpclient.Option{
		httpclient.WithHTTPClient(&http.Client{Timeout: timeout}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.TLS != nil {
		httpOpts = append(httpOpts, httpclient.WithTLSConfig(&httpclient.TLSConfig{
			InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
			CACertificate:      cfg.TLS.CACertificate,
		}))
	}

	store := &BlazegraphStore{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		namespace:  namespace,
		httpClient: httpclient.New(httpOpts...),
		prefixes:   make(map[string]string),
	}

	// Vocabularies the query builders rely on.
	store.prefixes["med"] = MedicalOntologyURI
	store.prefixes["rdf"] = RDFURI
	store.prefixes["rdfs"] = RDFSURI
	store.prefixes["owl"] = OWLURI

	return store, nil
}

// Namespace returns the Blazegraph namespace this store writes to.
func (s *BlazegraphStore) Namespace() string {
	return s.namespace
}

func (s *BlazegraphStore) endpoint() string {
	return fmt.Sprintf("%s/namespace/%s/sparql", s.baseURL, s.namespace)
}

// namespaceProperties is the configuration payload Blazegraph expects when
// creating a namespace.
func namespaceProperties(name string) string {
	return fmt.Sprintf(`com.bigdata.namespace.%[1]s.spo.com.bigdata.btree.BTreeBranchingFactor=1024
com.bigdata.rdf.store.AbstractTripleStore.textIndex=false
com.bigdata.rdf.store.AbstractTripleStore.axiomsClass=com.bigdata.rdf.axioms.NoAxioms
com.bigdata.rdf.sail.namespace=%[1]s
com.bigdata.rdf.store.AbstractTripleStore.quads=false
com.bigdata.namespace.%[1]s.lex.com.bigdata.btree.BTreeBranchingFactor=400
com.bigdata.rdf.store.AbstractTripleStore.statementIdentifiers=false
`, name)
}

// EnsureNamespace creates the Blazegraph namespace if it does not exist.
// A 409 response means the namespace is already there and is not an error.
func (s *BlazegraphStore) EnsureNamespace(ctx context.Context) error {
	createURL := fmt.Sprintf("%s/namespace", s.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, createURL,
		strings.NewReader(namespaceProperties(s.namespace)))
	if err != nil {
		return fmt.Errorf("failed to create namespace request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := s.httpClient.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if resp != nil && resp.StatusCode == http.StatusConflict {
		slog.Info("Blazegraph namespace already exists", "namespace", s.namespace)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create namespace %s: %w", s.namespace, err)
	}

	slog.Info("Blazegraph namespace created", "namespace", s.namespace)
	return nil
}

// Connect ensures the namespace exists and verifies the SPARQL endpoint
// responds.
func (s *BlazegraphStore) Connect(ctx context.Context) error {
	if err := s.EnsureNamespace(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(), nil)
	if err != nil {
		return fmt.Errorf("failed to create probe request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to connect to Blazegraph at %s: %w", s.endpoint(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to connect to Blazegraph at %s: HTTP %d", s.endpoint(), resp.StatusCode)
	}

	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()

	slog.Info("Connected to Blazegraph", "namespace", s.namespace, "base_url", s.baseURL)
	return nil
}

// IsConnected reports the state recorded by the last Connect or Close.
func (s *BlazegraphStore) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// BindPrefix registers a namespace prefix prepended to every query.
func (s *BlazegraphStore) BindPrefix(prefix, uri string) error {
	if prefix == "" || uri == "" {
		return fmt.Errorf("prefix and uri cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefixes[prefix] = uri
	return nil
}

// Prefixes returns a copy of the bound namespace prefixes.
func (s *BlazegraphStore) Prefixes() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.prefixes))
	for prefix, uri := range s.prefixes {
		out[prefix] = uri
	}
	return out
}

func (s *BlazegraphStore) withPrefixes(query string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.prefixes) == 0 {
		return query
	}

	names := make([]string, 0, len(s.prefixes))
	for prefix := range s.prefixes {
		names = append(names, prefix)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, prefix := range names {
		fmt.Fprintf(&b, "PREFIX %s: <%s>\n", prefix, s.prefixes[prefix])
	}
	b.WriteString(query)
	return b.String()
}

// Query runs a SPARQL SELECT and returns the raw result bindings. Bound
// prefixes are prepended so callers can use short names.
func (s *BlazegraphStore) Query(ctx context.Context, query string) ([]map[string]Binding, error) {
	result, err := s.rawQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return result.Results.Bindings, nil
}

// Ask runs a SPARQL ASK and returns the boolean verdict.
func (s *BlazegraphStore) Ask(ctx context.Context, query string) (bool, error) {
	result, err := s.rawQuery(ctx, query)
	if err != nil {
		return false, err
	}
	if result.Boolean == nil {
		return false, fmt.Errorf("ASK query returned no boolean")
	}
	return *result.Boolean, nil
}

func (s *BlazegraphStore) rawQuery(ctx context.Context, query string) (*sparqlResponse, error) {
	if !s.IsConnected() {
		return nil, ErrNotConnected
	}

	form := url.Values{}
	form.Set("query", s.withPrefixes(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := s.httpClient.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read query response: %w", err)
	}

	var result sparqlResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}
	return &result, nil
}

// Update runs a SPARQL UPDATE against the namespace.
func (s *BlazegraphStore) Update(ctx context.Context, update string) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(),
		strings.NewReader(s.withPrefixes(update)))
	if err != nil {
		return fmt.Errorf("failed to create update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/sparql-update")

	resp, err := s.httpClient.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	return nil
}

// AddConcept writes the concept and its outgoing edges as triples.
func (s *BlazegraphStore) AddConcept(ctx context.Context, concept *Concept) error {
	if concept == nil {
		return fmt.Errorf("concept cannot be nil")
	}
	if concept.ID == "" {
		return fmt.Errorf("concept id cannot be empty")
	}

	subject := conceptURI(concept.ID)
	conceptType := concept.Type
	if conceptType == "" {
		conceptType = DefaultConceptType
	}

	var b strings.Builder
	b.WriteString("INSERT DATA {\n")
	fmt.Fprintf(&b, "  %s rdf:type %s .\n", subject, ontologyURI(conceptType))
	if concept.Label != "" {
		fmt.Fprintf(&b, "  %s rdfs:label %s .\n", subject, quoteLiteral(concept.Label))
	}
	if concept.Description != "" {
		fmt.Fprintf(&b, "  %s rdfs:comment %s .\n", subject, quoteLiteral(concept.Description))
	}

	names := make([]string, 0, len(concept.Properties))
	for name := range concept.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  %s %s %s .\n", subject, ontologyURI(name), sparqlLiteral(concept.Properties[name]))
	}

	for _, rel := range concept.Relationships {
		if rel.Type == "" || rel.Target == "" {
			continue
		}
		fmt.Fprintf(&b, "  %s %s %s .\n", subject, ontologyURI(rel.Type), conceptURI(rel.Target))
	}
	b.WriteString("}")

	if err := s.Update(ctx, b.String()); err != nil {
		return fmt.Errorf("failed to store concept %s: %w", concept.ID, err)
	}
	return nil
}

// Concept reads a single concept and its outgoing edges.
func (s *BlazegraphStore) Concept(ctx context.Context, id string) (*Concept, error) {
	if id == "" {
		return nil, fmt.Errorf("concept id cannot be empty")
	}

	query := fmt.Sprintf("SELECT ?p ?o WHERE { %s ?p ?o }", conceptURI(id))
	bindings, err := s.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query concept %s: %w", id, err)
	}
	if len(bindings) == 0 {
		return nil, NewConceptNotFoundError(id)
	}

	concept := &Concept{ID: id}
	for _, row := range bindings {
		predicate := row["p"].Value
		object := row["o"]

		switch predicate {
		case RDFURI + "type":
			concept.Type = localName(object.Value)
		case RDFSURI + "label":
			concept.Label = object.Value
		case RDFSURI + "comment":
			concept.Description = object.Value
		default:
			if object.Type == "uri" {
				concept.Relationships = append(concept.Relationships, Relationship{
					Source: id,
					Type:   localName(predicate),
					Target: localName(object.Value),
				})
				continue
			}
			if concept.Properties == nil {
				concept.Properties = make(map[string]any)
			}
			concept.Properties[localName(predicate)] = object.Value
		}
	}
	return concept, nil
}

// Concepts lists every typed subject with label and description, then
// attaches outgoing edges in a single follow-up query.
func (s *BlazegraphStore) Concepts(ctx context.Context) ([]*Concept, error) {
	query := `SELECT DISTINCT ?concept ?label ?type ?description
WHERE {
  ?concept a ?type .
  OPTIONAL { ?concept rdfs:label ?label . }
  OPTIONAL { ?concept rdfs:comment ?description . }
  FILTER(!isBlank(?concept))
}`

	bindings, err := s.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query concepts: %w", err)
	}

	var concepts []*Concept
	index := make(map[string]*Concept)
	for _, row := range bindings {
		id := localName(row["concept"].Value)
		if id == "" {
			continue
		}
		// One row per declared type; keep the first.
		if _, seen := index[id]; seen {
			continue
		}
		concept := &Concept{
			ID:          id,
			Label:       row["label"].Value,
			Type:        localName(row["type"].Value),
			Description: row["description"].Value,
		}
		index[id] = concept
		concepts = append(concepts, concept)
	}

	if err := s.loadRelationships(ctx, concepts, index); err != nil {
		slog.Warn("Failed to load concept relationships", "error", err)
	}

	sort.Slice(concepts, func(i, j int) bool { return concepts[i].ID < concepts[j].ID })
	return concepts, nil
}

func (s *BlazegraphStore) loadRelationships(ctx context.Context, concepts []*Concept, index map[string]*Concept) error {
	if len(concepts) == 0 {
		return nil
	}

	subjects := make([]string, 0, len(concepts))
	for _, concept := range concepts {
		subjects = append(subjects, conceptURI(concept.ID))
	}

	query := fmt.Sprintf(`SELECT ?subject ?predicate ?object
WHERE {
  VALUES ?subject { %s }
  ?subject ?predicate ?object .
  FILTER(?predicate != rdf:type)
  FILTER(isIRI(?object))
}`, strings.Join(subjects, " "))

	bindings, err := s.Query(ctx, query)
	if err != nil {
		return err
	}

	for _, row := range bindings {
		source := localName(row["subject"].Value)
		concept, ok := index[source]
		if !ok {
			continue
		}
		concept.Relationships = append(concept.Relationships, Relationship{
			Source: source,
			Type:   localName(row["predicate"].Value),
			Target: localName(row["object"].Value),
		})
	}
	return nil
}

// Relationships returns the outgoing edges of a concept with target labels
// when present.
func (s *BlazegraphStore) Relationships(ctx context.Context, conceptID string) ([]Relationship, error) {
	if conceptID == "" {
		return nil, fmt.Errorf("concept id cannot be empty")
	}

	subject := conceptURI(conceptID)
	exists, err := s.Ask(ctx, fmt.Sprintf("ASK { %s ?p ?o }", subject))
	if err != nil {
		return nil, fmt.Errorf("failed to check concept %s: %w", conceptID, err)
	}
	if !exists {
		return nil, NewConceptNotFoundError(conceptID)
	}

	query := fmt.Sprintf(`SELECT ?relationship ?target ?targetLabel
WHERE {
  %s ?relationship ?target .
  OPTIONAL { ?target rdfs:label ?targetLabel }
  FILTER(?relationship != rdf:type)
  FILTER(isIRI(?target))
}`, subject)

	bindings, err := s.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships for %s: %w", conceptID, err)
	}

	var rels []Relationship
	for _, row := range bindings {
		rels = append(rels, Relationship{
			Source: conceptID,
			Type:   localName(row["relationship"].Value),
			Target: localName(row["target"].Value),
			Label:  row["targetLabel"].Value,
		})
	}
	return rels, nil
}

// RemoveConcept deletes all triples where the concept is subject or object.
func (s *BlazegraphStore) RemoveConcept(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("concept id cannot be empty")
	}

	subject := conceptURI(id)
	exists, err := s.Ask(ctx, fmt.Sprintf("ASK { { %s ?p ?o } UNION { ?s ?p %s } }", subject, subject))
	if err != nil {
		return fmt.Errorf("failed to check concept %s: %w", id, err)
	}
	if !exists {
		return NewConceptNotFoundError(id)
	}

	update := fmt.Sprintf("DELETE WHERE { %s ?p ?o } ;\nDELETE WHERE { ?s ?p %s }", subject, subject)
	if err := s.Update(ctx, update); err != nil {
		return fmt.Errorf("failed to remove concept %s: %w", id, err)
	}
	return nil
}

// Stats runs the statistics query battery. Individual query failures are
// logged and reported as zero so a partially loaded ontology still answers.
func (s *BlazegraphStore) Stats(ctx context.Context) (*Statistics, error) {
	if !s.IsConnected() {
		return nil, ErrNotConnected
	}

	stats := &Statistics{}
	counters := []struct {
		name  string
		query string
		dest  *int
	}{
		{
			name:  "total_concepts",
			query: `SELECT (COUNT(DISTINCT ?concept) AS ?count) WHERE { ?concept a med:Concept . }`,
			dest:  &stats.TotalConcepts,
		},
		{
			name:  "total_relationships",
			query: `SELECT (COUNT(*) AS ?count) WHERE { ?s ?p ?o . FILTER(isIRI(?o)) FILTER(?p != rdf:type) }`,
			dest:  &stats.TotalRelationships,
		},
		{
			name:  "class_count",
			query: `SELECT (COUNT(DISTINCT ?class) AS ?count) WHERE { ?class a owl:Class . FILTER(!isBlank(?class)) }`,
			dest:  &stats.ClassCount,
		},
		{
			name: "subclass_count",
			query: `SELECT (COUNT(?subclass) AS ?count) WHERE {
  ?subclass rdfs:subClassOf ?superclass .
  ?subclass a owl:Class .
  ?superclass a owl:Class .
  FILTER(?subclass != ?superclass)
  FILTER(!isBlank(?subclass))
  FILTER(!isBlank(?superclass))
}`,
			dest: &stats.SubclassCount,
		},
		{
			name:  "annotation_count",
			query: `SELECT (COUNT(?s) AS ?count) WHERE { ?s ?p ?o . ?p a owl:AnnotationProperty . }`,
			dest:  &stats.AnnotationCount,
		},
		{
			name: "axiom_count",
			query: `SELECT (COUNT(?s) AS ?count) WHERE {
  { ?s owl:equivalentClass ?o } UNION
  { ?s owl:disjointWith ?o } UNION
  { ?s owl:complementOf ?o } UNION
  { ?s owl:intersectionOf ?o } UNION
  { ?s owl:unionOf ?o }
}`,
			dest: &stats.AxiomCount,
		},
		{
			name: "property_count",
			query: `SELECT (COUNT(DISTINCT ?property) AS ?count) WHERE {
  { ?property a owl:ObjectProperty } UNION
  { ?property a owl:DatatypeProperty } UNION
  { ?property a owl:AnnotationProperty }
}`,
			dest: &stats.PropertyCount,
		},
	}

	for _, counter := range counters {
		value, err := s.countQuery(ctx, counter.query)
		if err != nil {
			slog.Warn("Statistics query failed", "counter", counter.name, "error", err)
			continue
		}
		*counter.dest = value
	}
	return stats, nil
}

func (s *BlazegraphStore) countQuery(ctx context.Context, query string) (int, error) {
	bindings, err := s.Query(ctx, query)
	if err != nil {
		return 0, err
	}
	if len(bindings) == 0 {
		return 0, nil
	}

	raw := bindings[0]["count"].Value
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("unexpected count value %q: %w", raw, err)
	}
	return value, nil
}

// Clear removes every triple from the namespace.
func (s *BlazegraphStore) Clear(ctx context.Context) error {
	if err := s.Update(ctx, "DELETE WHERE { ?s ?p ?o }"); err != nil {
		return fmt.Errorf("failed to clear namespace %s: %w", s.namespace, err)
	}
	slog.Info("Cleared Blazegraph namespace", "namespace", s.namespace)
	return nil
}

// Close drops the connection state. The HTTP client holds no persistent
// resources.
func (s *BlazegraphStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

// conceptURI renders a concept id as an absolute ontology URI term.
func conceptURI(id string) string {
	return "<" + MedicalOntologyURI + url.PathEscape(id) + ">"
}

// ontologyURI renders a readable type or predicate name as an absolute
// ontology URI term.
func ontologyURI(name string) string {
	return "<" + MedicalOntologyURI + url.PathEscape(name) + ">"
}

// localName extracts the readable part of a URI after the last # or /.
func localName(uri string) string {
	name := uri
	if idx := strings.LastIndex(name, "#"); idx >= 0 {
		name = name[idx+1:]
	} else if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

var literalReplacer = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func quoteLiteral(s string) string {
	return `"` + literalReplacer.Replace(s) + `"`
}

// sparqlLiteral renders a Go value as a SPARQL literal term. Numbers and
// booleans stay bare; everything else is quoted.
func sparqlLiteral(value any) string {
	switch v := value.(type) {
	case string:
		return quoteLiteral(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return quoteLiteral(fmt.Sprintf("%v", v))
	}
}
