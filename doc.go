// Package ontomed provides a medical ontology content service: declarative
// prompt templates, LLM-backed content generation and a concept graph store,
// exposed over a REST API.
//
// # Quick Start
//
// Install OntoMed:
//
//	go install github.com/kadirpekel/ontomed/cmd/ontomed@latest
//
// Create a configuration:
//
//	templates:
//	  dir: ./templates
//
//	llms:
//	  default:
//	    provider: openai
//	    model: gpt-4o
//	    api_key: "${OPENAI_API_KEY}"
//
//	graph:
//	  provider: blazegraph
//	  base_url: http://localhost:9999/blazegraph
//
// Start the server:
//
//	ontomed serve --config config.yaml
//
// Or run with no configuration at all: the service falls back to an
// in-memory graph and an environment-detected LLM provider:
//
//	ontomed serve
//
// # Using as Go Library
//
// Import the packages directly:
//
//	import (
//	    "github.com/kadirpekel/ontomed/pkg/component"
//	    "github.com/kadirpekel/ontomed/pkg/config"
//	    "github.com/kadirpekel/ontomed/pkg/template"
//	)
//
// The composition root builds every component from a processed config:
//
//	cfg, _, err := config.LoadConfigFile(ctx, "config.yaml")
//	cm, err := component.NewComponentManager(ctx, cfg)
//	defer cm.Close()
//	srv, err := cm.BuildServer()
//
// # Key Features
//
//   - Declarative YAML templates with {{placeholder}} substitution
//   - LLM content generation: text, structured JSON and embeddings
//   - Concept graph over Blazegraph or in memory
//   - Concept similarity search backed by an embedded vector index
//   - REST API with request tracing and Prometheus metrics
//
// # Architecture
//
// A single service process wires a template store, a content generator and
// a graph store behind a chi REST API:
//
//	Client → REST API → {Template Store, Generator → LLM, Graph Store}
//
// All dependencies are built once by the component manager and handed down
// explicitly.
//
// # License
//
// AGPL-3.0 - See LICENSE.md for details.
package ontomed
