// Package importer implements the CSV import pipeline: parsing raw CSV text,
// mapping arbitrary source headers onto the four canonical transaction fields,
// validating rows, and publishing validated rows as transactions.
//
// The workflow a caller routes a user through has three gates:
//
//	Loaded     – raw CSV text has been uploaded
//	Configured – a column mapping has been supplied
//	Cleaned    – every mapped row passes validation
//
// Once cleaned, Publish (or PublishLater via the background queue) moves the
// import from pending to importing, commits each row strictly in source order,
// and lands on complete or failed. A failed row stops the run; rows already
// committed stay committed. Completed imports are frozen: any further write
// attempt fails validation.
//
// The package has no HTTP or storage dependencies; persistence is consumed
// through the Store interface and background dispatch through Publisher.
package importer
