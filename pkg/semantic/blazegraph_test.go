package semantic

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBlazegraph emulates the two REST surfaces the store touches: the
// namespace admin endpoint and the per-namespace SPARQL endpoint.
type fakeBlazegraph struct {
	t               *testing.T
	namespaceStatus int
	askResult       bool
	selectJSON      string

	mu      sync.Mutex
	queries []string
	updates []string
}

func (f *fakeBlazegraph) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/namespace", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, http.MethodPost, r.Method)
		assert.Equal(f.t, "text/plain", r.Header.Get("Content-Type"))

		status := f.namespaceStatus
		if status == 0 {
			status = http.StatusCreated
		}
		w.WriteHeader(status)
	})
	mux.HandleFunc("/namespace/ontomed/sparql", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}

		if r.Header.Get("Content-Type") == "application/sparql-update" {
			body, err := io.ReadAll(r.Body)
			require.NoError(f.t, err)
			f.mu.Lock()
			f.updates = append(f.updates, string(body))
			f.mu.Unlock()
			w.WriteHeader(http.StatusOK)
			return
		}

		require.NoError(f.t, r.ParseForm())
		query := r.FormValue("query")
		f.mu.Lock()
		f.queries = append(f.queries, query)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/sparql-results+json")
		if strings.Contains(query, "ASK") {
			fmt.Fprintf(w, `{"head":{},"boolean":%t}`, f.askResult)
			return
		}
		if f.selectJSON != "" {
			io.WriteString(w, f.selectJSON)
			return
		}
		io.WriteString(w, `{"head":{"vars":[]},"results":{"bindings":[]}}`)
	})
	return mux
}

func (f *fakeBlazegraph) lastUpdate() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) == 0 {
		return ""
	}
	return f.updates[len(f.updates)-1]
}

func (f *fakeBlazegraph) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return ""
	}
	return f.queries[len(f.queries)-1]
}

func newBlazegraphTestStore(t *testing.T, fake *fakeBlazegraph) *BlazegraphStore {
	t.Helper()
	fake.t = t

	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	store, err := NewBlazegraphStore(server.URL, "ontomed")
	require.NoError(t, err)
	return store
}

func connectedBlazegraphStore(t *testing.T, fake *fakeBlazegraph) *BlazegraphStore {
	t.Helper()
	store := newBlazegraphTestStore(t, fake)
	require.NoError(t, store.Connect(context.Background()))
	return store
}

func TestNewBlazegraphStoreFromConfig_Validation(t *testing.T) {
	_, err := NewBlazegraphStoreFromConfig(nil)
	assert.Error(t, err)

	_, err = NewBlazegraphStore("", "ontomed")
	assert.Error(t, err)
}

func TestBlazegraphStore_EnsureNamespace_Creates(t *testing.T) {
	var gotBody string
	mux := http.NewServeMux()
	mux.HandleFunc("/namespace", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = string(body)
		w.WriteHeader(http.StatusCreated)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	store, err := NewBlazegraphStore(server.URL, "ontomed")
	require.NoError(t, err)
	require.NoError(t, store.EnsureNamespace(context.Background()))

	assert.Contains(t, gotBody, "com.bigdata.rdf.sail.namespace=ontomed")
	assert.Contains(t, gotBody, "com.bigdata.rdf.store.AbstractTripleStore.quads=false")
	assert.Contains(t, gotBody, "com.bigdata.namespace.ontomed.spo.com.bigdata.btree.BTreeBranchingFactor=1024")
}

func TestBlazegraphStore_EnsureNamespace_AlreadyExists(t *testing.T) {
	fake := &fakeBlazegraph{namespaceStatus: http.StatusConflict}
	store := newBlazegraphTestStore(t, fake)

	assert.NoError(t, store.EnsureNamespace(context.Background()))
}

func TestBlazegraphStore_Connect(t *testing.T) {
	fake := &fakeBlazegraph{namespaceStatus: http.StatusConflict}
	store := newBlazegraphTestStore(t, fake)

	assert.False(t, store.IsConnected())
	require.NoError(t, store.Connect(context.Background()))
	assert.True(t, store.IsConnected())
}

func TestBlazegraphStore_QueryRequiresConnect(t *testing.T) {
	fake := &fakeBlazegraph{}
	store := newBlazegraphTestStore(t, fake)

	_, err := store.Query(context.Background(), "SELECT * WHERE { ?s ?p ?o }")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestBlazegraphStore_Query_PrependsPrefixes(t *testing.T) {
	fake := &fakeBlazegraph{}
	store := connectedBlazegraphStore(t, fake)

	_, err := store.Query(context.Background(), "SELECT * WHERE { ?s ?p ?o }")
	require.NoError(t, err)

	sent := fake.lastQuery()
	assert.Contains(t, sent, "PREFIX med: <"+MedicalOntologyURI+">")
	assert.Contains(t, sent, "PREFIX rdfs: <"+RDFSURI+">")
	assert.Contains(t, sent, "SELECT * WHERE { ?s ?p ?o }")
}

func TestBlazegraphStore_AddConcept_WritesTriples(t *testing.T) {
	fake := &fakeBlazegraph{}
	store := connectedBlazegraphStore(t, fake)

	concept := &Concept{
		ID:          "hypertension",
		Label:       "Hypertension",
		Description: "Elevated blood pressure",
		Properties:  map[string]any{"icd10": "I10", "prevalence": 0.3},
		Relationships: []Relationship{
			{Type: "treatedBy", Target: "lisinopril"},
		},
	}
	require.NoError(t, store.AddConcept(context.Background(), concept))

	update := fake.lastUpdate()
	subject := "<" + MedicalOntologyURI + "hypertension>"
	assert.Contains(t, update, "INSERT DATA {")
	assert.Contains(t, update, subject+" rdf:type <"+MedicalOntologyURI+"Concept>")
	assert.Contains(t, update, subject+` rdfs:label "Hypertension"`)
	assert.Contains(t, update, subject+` rdfs:comment "Elevated blood pressure"`)
	assert.Contains(t, update, subject+` <`+MedicalOntologyURI+`icd10> "I10"`)
	assert.Contains(t, update, subject+" <"+MedicalOntologyURI+"prevalence> 0.3")
	assert.Contains(t, update, subject+" <"+MedicalOntologyURI+"treatedBy> <"+MedicalOntologyURI+"lisinopril>")
}

func TestBlazegraphStore_AddConcept_EscapesLiterals(t *testing.T) {
	fake := &fakeBlazegraph{}
	store := connectedBlazegraphStore(t, fake)

	concept := &Concept{
		ID:    "note",
		Label: `say "hello"` + "\nnext line",
	}
	require.NoError(t, store.AddConcept(context.Background(), concept))

	update := fake.lastUpdate()
	assert.Contains(t, update, `"say \"hello\"\nnext line"`)
}

func TestBlazegraphStore_Concept(t *testing.T) {
	subject := MedicalOntologyURI + "hypertension"
	fake := &fakeBlazegraph{
		selectJSON: fmt.Sprintf(`{
  "head": {"vars": ["p", "o"]},
  "results": {"bindings": [
    {"p": {"type": "uri", "value": "%stype"}, "o": {"type": "uri", "value": "%sConcept"}},
    {"p": {"type": "uri", "value": "%slabel"}, "o": {"type": "literal", "value": "Hypertension"}},
    {"p": {"type": "uri", "value": "%scomment"}, "o": {"type": "literal", "value": "Elevated blood pressure"}},
    {"p": {"type": "uri", "value": "%sicd10"}, "o": {"type": "literal", "value": "I10"}},
    {"p": {"type": "uri", "value": "%streatedBy"}, "o": {"type": "uri", "value": "%slisinopril"}}
  ]}
}`, RDFURI, MedicalOntologyURI, RDFSURI, RDFSURI, MedicalOntologyURI, MedicalOntologyURI, MedicalOntologyURI),
	}
	store := connectedBlazegraphStore(t, fake)

	concept, err := store.Concept(context.Background(), "hypertension")
	require.NoError(t, err)
	assert.Equal(t, "hypertension", concept.ID)
	assert.Equal(t, "Concept", concept.Type)
	assert.Equal(t, "Hypertension", concept.Label)
	assert.Equal(t, "Elevated blood pressure", concept.Description)
	assert.Equal(t, "I10", concept.Properties["icd10"])

	require.Len(t, concept.Relationships, 1)
	assert.Equal(t, "treatedBy", concept.Relationships[0].Type)
	assert.Equal(t, "lisinopril", concept.Relationships[0].Target)

	assert.Contains(t, fake.lastQuery(), "<"+subject+"> ?p ?o")
}

func TestBlazegraphStore_Concept_NotFound(t *testing.T) {
	fake := &fakeBlazegraph{}
	store := connectedBlazegraphStore(t, fake)

	_, err := store.Concept(context.Background(), "missing")
	assert.True(t, IsConceptNotFound(err))
}

func TestBlazegraphStore_Relationships_NotFound(t *testing.T) {
	fake := &fakeBlazegraph{askResult: false}
	store := connectedBlazegraphStore(t, fake)

	_, err := store.Relationships(context.Background(), "missing")
	assert.True(t, IsConceptNotFound(err))
}

func TestBlazegraphStore_RemoveConcept(t *testing.T) {
	fake := &fakeBlazegraph{askResult: true}
	store := connectedBlazegraphStore(t, fake)

	require.NoError(t, store.RemoveConcept(context.Background(), "hypertension"))

	subject := "<" + MedicalOntologyURI + "hypertension>"
	update := fake.lastUpdate()
	assert.Contains(t, update, "DELETE WHERE { "+subject+" ?p ?o }")
	assert.Contains(t, update, "DELETE WHERE { ?s ?p "+subject+" }")
}

func TestBlazegraphStore_RemoveConcept_NotFound(t *testing.T) {
	fake := &fakeBlazegraph{askResult: false}
	store := connectedBlazegraphStore(t, fake)

	err := store.RemoveConcept(context.Background(), "missing")
	assert.True(t, IsConceptNotFound(err))
	assert.Empty(t, fake.lastUpdate())
}

func TestBlazegraphStore_Stats(t *testing.T) {
	fake := &fakeBlazegraph{
		selectJSON: `{"head":{"vars":["count"]},"results":{"bindings":[{"count":{"type":"literal","value":"4"}}]}}`,
	}
	store := connectedBlazegraphStore(t, fake)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalConcepts)
	assert.Equal(t, 4, stats.TotalRelationships)
	assert.Equal(t, 4, stats.ClassCount)
	assert.Equal(t, 4, stats.SubclassCount)
	assert.Equal(t, 4, stats.AnnotationCount)
	assert.Equal(t, 4, stats.AxiomCount)
	assert.Equal(t, 4, stats.PropertyCount)
}

func TestBlazegraphStore_Clear(t *testing.T) {
	fake := &fakeBlazegraph{}
	store := connectedBlazegraphStore(t, fake)

	require.NoError(t, store.Clear(context.Background()))
	assert.Contains(t, fake.lastUpdate(), "DELETE WHERE { ?s ?p ?o }")
}

func TestLocalName(t *testing.T) {
	assert.Equal(t, "Concept", localName(MedicalOntologyURI+"Concept"))
	assert.Equal(t, "label", localName(RDFSURI+"label"))
	assert.Equal(t, "resource", localName("http://example.org/path/resource"))
	assert.Equal(t, "plain", localName("plain"))
	assert.Equal(t, "with space", localName(MedicalOntologyURI+"with%20space"))
}

func TestSparqlLiteral(t *testing.T) {
	assert.Equal(t, `"text"`, sparqlLiteral("text"))
	assert.Equal(t, "true", sparqlLiteral(true))
	assert.Equal(t, "42", sparqlLiteral(42))
	assert.Equal(t, "0.5", sparqlLiteral(0.5))
	assert.Equal(t, `"[1 2]"`, sparqlLiteral([]int{1, 2}))
}
