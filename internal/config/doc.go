// Package config loads the docdex YAML configuration and resolves the
// effective settings from file values, environment variables, and
// defaults. The environment wins over the file.
//
// # File Format
//
// All sections and fields are optional:
//
//	log:
//	  level: debug
//	store:
//	  path: /var/lib/docdex/docdex.db
//	vector:
//	  url: postgres://localhost:5432/docdex
//	  collection: doc_chunks
//	  dimension: 1024
//	embedding:
//	  provider: jina
//	  model: jina-embeddings-v3
//	  batch_size: 50
//	queue:
//	  concurrency: 4
//	  poll_interval_ms: 500
//	  max_retries: 3
//	segment:
//	  target_size: 1000
//	  overlap: 200
//
// Durations are plain integers with an explicit unit in the field name
// (poll_interval_ms), not Go duration strings.
//
// # Resolution
//
// Load reads the explicit path when one is given. Otherwise it tries
// $DOCDEX_CONFIG, then docdex.yaml and docdex.yml in the working
// directory, ~/.config/docdex/config.yaml, and /etc/docdex/config.yaml.
// No file at all is fine; docdex runs on defaults plus the environment.
//
// Zero values defer to the owning component: an omitted queue.concurrency
// becomes the queue package's default, an omitted vector.dimension the
// vector store's, and so on. Only log.level and store.path are defaulted
// here. vector.url has no default and is required by Validate.
//
// # Environment
//
// DOCDEX_DB_PATH overrides store.path, DATABASE_URL overrides vector.url,
// and DOCDEX_EMBEDDING_PROVIDER overrides embedding.provider. Embedding
// API keys are picked up by the embedding client itself (JINA_API_KEY,
// OPENAI_API_KEY) when embedding.api_key is unset.
package config
