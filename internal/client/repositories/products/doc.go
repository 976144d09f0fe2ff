// Package products caches product display metadata (name, image,
// description) in the local database so cart enrichment does not have to
// refetch it after a restart.
package products
