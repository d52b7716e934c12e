// Package resource locates and decodes the textures pipelines read.
//
// Resources are named by an Identifier, "namespace:path", and live on disk
// under <root>/<namespace>/<path>. A Source resolves identifiers to openers;
// Dir implements it over any fs.FS and Layered stacks several sources so a
// resource pack can shadow another.
//
// Images memoizes decoded textures between nodes of one generation cycle.
package resource
