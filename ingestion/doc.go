// Package ingestion loads utilities into the store.
//
// The Pipeline type manages two import workflows:
//   - Seed CSV files in the Name,Type,Building,Floor,Id,Latitude,Longitude layout,
//     with optional Status and LastChecked columns
//   - GTFS transit feeds, turned into bus stop utilities inside a bounding box
//
// Rows whose content fingerprint matches the stored utility are skipped, and a
// seed file whose fingerprint matches its last checkpoint is not re-read at all.
// GTFS files are parsed concurrently on a worker pool.
package ingestion
