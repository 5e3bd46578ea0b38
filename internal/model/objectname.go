package model

import (
	"path"
	"strings"
	"time"
)

// NameDelimiter separates the fields of a correlation-encoded object name:
//
//	{time}-{userId}-{theme}-{gender}-{skin}-{requestId}
//
// The request id is always last and may itself contain the delimiter.
const NameDelimiter = "-"

const (
	nameTimeLayout = "20060102150405"
	nameFieldCount = 6
)

// ObjectName is the correlation context carried in every object name the
// pipeline writes.
type ObjectName struct {
	Time      string
	UserID    string
	Theme     string
	Gender    string
	Skin      string
	RequestID string
}

// NewObjectName builds the name for a fresh request. Callers must have
// checked the fields with CheckNameField.
func NewObjectName(now time.Time, userID, theme, gender, skin, requestID string) ObjectName {
	return ObjectName{
		Time:      now.UTC().Format(nameTimeLayout),
		UserID:    userID,
		Theme:     theme,
		Gender:    gender,
		Skin:      skin,
		RequestID: requestID,
	}
}

// String returns the encoded name without a path or extension.
func (n ObjectName) String() string {
	return strings.Join([]string{n.Time, n.UserID, n.Theme, n.Gender, n.Skin, n.RequestID}, NameDelimiter)
}

// ParseObjectName recovers the correlation fields from an object key. Any
// leading path and a trailing file extension are ignored.
func ParseObjectName(key string) (ObjectName, error) {
	base := path.Base(key)
	if ext := path.Ext(base); ext != "" && !strings.Contains(ext, NameDelimiter) {
		base = strings.TrimSuffix(base, ext)
	}

	parts := strings.SplitN(base, NameDelimiter, nameFieldCount)
	if len(parts) != nameFieldCount {
		return ObjectName{}, &ValidationError{Field: "objectName", Reason: "has too few fields: " + key}
	}
	for _, p := range parts {
		if p == "" {
			return ObjectName{}, &ValidationError{Field: "objectName", Reason: "has an empty field: " + key}
		}
	}

	return ObjectName{
		Time:      parts[0],
		UserID:    parts[1],
		Theme:     parts[2],
		Gender:    parts[3],
		Skin:      parts[4],
		RequestID: parts[5],
	}, nil
}

// CheckNameField rejects values that would break ParseObjectName.
func CheckNameField(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	if strings.Contains(value, NameDelimiter) || strings.Contains(value, "/") {
		return &ValidationError{Field: field, Reason: "must not contain '" + NameDelimiter + "' or '/'"}
	}
	return nil
}
