// Package internal contains the core implementation packages for pagesmith.
//
// # Package Organization
//
//   - page: page model, variants (template, document, blank) and manifest specs
//   - templates: html/template engine, reference scanning and composition resolver
//   - registry: in-memory template -> pages and data -> pages indices
//   - build: scan and build steps, build statistics
//   - rebuild: change handlers for templates, data and assets plus the dispatcher
//   - watcher: fsnotify-based file watching with rename pairing
//   - assets: named asset bundles with staleness checks and fingerprinted URLs
//   - data: YAML/JSON data file loading
//   - markdown: goldmark rendering with frontmatter
//   - config: viper configuration and the page manifest
//   - metrics: Prometheus recorder
//   - errors, logging, language, version: shared infrastructure
//
// # Flow
//
// The CLI performs one scan and one full build, then hands the populated
// builder and registry to the watch loop. Each filesystem event goes to the
// handler for its directory, which looks up the affected pages and rebuilds
// only those.
package internal
