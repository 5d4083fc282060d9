package event

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// Attribute names GCS sets on Pub/Sub notifications
const (
	AttrEventType = "eventType"
	AttrBucketID  = "bucketId"
	AttrObjectID  = "objectId"
)

type envelope struct {
	Records []json.RawMessage `json:"Records"`
}

type s3Record struct {
	EventName *string `json:"eventName"`
	S3        *struct {
		Bucket *struct {
			Name *string `json:"name"`
		} `json:"bucket"`
		Object *struct {
			Key *string `json:"key"`
		} `json:"object"`
	} `json:"s3"`
}

// Decode parses a queue message body into the first record it carries.
// S3 style envelopes are read from the body; GCS notifications, whose body is
// the object resource, are read from the message attributes.
func Decode(body string, attributes map[string]string) (*Record, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		if _, ok := attributes[AttrEventType]; ok {
			return fromAttributes(attributes, nil)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if _, ok := env["Records"]; !ok {
		if _, ok := attributes[AttrEventType]; ok {
			return fromAttributes(attributes, body)
		}
		return nil, &MissingFieldError{Field: "Records"}
	}

	var e envelope
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(e.Records) == 0 {
		return nil, &MissingFieldError{Field: "Records[0]"}
	}

	return decodeS3Record(e.Records[0])
}

func decodeS3Record(raw json.RawMessage) (*Record, error) {
	var full map[string]any
	if err := json.Unmarshal(raw, &full); err != nil {
		return nil, fmt.Errorf("%w: record: %v", ErrMalformed, err)
	}

	var r s3Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch {
	case r.EventName == nil:
		return nil, &MissingFieldError{Field: "eventName"}
	case r.S3 == nil:
		return nil, &MissingFieldError{Field: "s3"}
	case r.S3.Bucket == nil || r.S3.Bucket.Name == nil:
		return nil, &MissingFieldError{Field: "s3.bucket.name"}
	case r.S3.Object == nil || r.S3.Object.Key == nil:
		return nil, &MissingFieldError{Field: "s3.object.key"}
	}

	// S3 form-encodes keys in notifications
	key, err := url.QueryUnescape(*r.S3.Object.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: object key %q: %v", ErrMalformed, *r.S3.Object.Key, err)
	}

	return &Record{
		EventName:  *r.EventName,
		BucketName: *r.S3.Bucket.Name,
		ObjectKey:  key,
		Raw:        full,
	}, nil
}

func fromAttributes(attributes map[string]string, body any) (*Record, error) {
	for _, field := range []string{AttrEventType, AttrBucketID, AttrObjectID} {
		if attributes[field] == "" {
			return nil, &MissingFieldError{Field: field}
		}
	}

	raw := map[string]any{
		AttrEventType: attributes[AttrEventType],
		AttrBucketID:  attributes[AttrBucketID],
		AttrObjectID:  attributes[AttrObjectID],
	}
	if body != nil {
		raw["payload"] = body
	}

	return &Record{
		EventName:  attributes[AttrEventType],
		BucketName: attributes[AttrBucketID],
		ObjectKey:  attributes[AttrObjectID],
		Raw:        raw,
	}, nil
}
