// Package catalog loads avatar records from a JSON document and serves them
// read-only to the resolver and the CLI.
//
// Records are opaque bags of fields: nothing guarantees that the primary
// model URL, the alternate-format map, the preview images and the deployed
// filename lists agree with each other. The catalog never reconciles them;
// that is the job of the resolve package.
package catalog
