// Package event decodes object storage notifications into the single record
// the worker acts on.
package event

import "strings"

// ObjectCreatedPrefix marks the S3 event names that announce a new object
const ObjectCreatedPrefix = "ObjectCreated"

// minioEventPrefix is prepended by MinIO to the S3 event names it emits
const minioEventPrefix = "s3:"

// gcsObjectFinalize is the GCS Pub/Sub eventType for a newly written object
const gcsObjectFinalize = "OBJECT_FINALIZE"

// Record is the part of a storage notification the worker needs
type Record struct {
	EventName  string
	BucketName string
	ObjectKey  string

	// Raw holds the record as delivered, for logging
	Raw map[string]any
}

// Created reports whether the record announces a newly created object
func (r *Record) Created() bool {
	name := strings.TrimPrefix(r.EventName, minioEventPrefix)
	return strings.HasPrefix(name, ObjectCreatedPrefix) || r.EventName == gcsObjectFinalize
}
