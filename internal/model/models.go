package model

import "time"

// RequestStatus is the pipeline stage a generation request last reached.
type RequestStatus string

const (
	StatusRequested RequestStatus = "requested"
	StatusSwapping  RequestStatus = "swapping"
	StatusRestoring RequestStatus = "restoring"
	StatusCompleted RequestStatus = "completed"
)

var statusSequence = []RequestStatus{StatusRequested, StatusSwapping, StatusRestoring, StatusCompleted}

var statusOrder = map[RequestStatus]int{
	StatusRequested: 0,
	StatusSwapping:  1,
	StatusRestoring: 2,
	StatusCompleted: 3,
}

// Precedes reports whether s is an earlier stage than next. Redelivered
// events use it to avoid moving a request backwards.
func (s RequestStatus) Precedes(next RequestStatus) bool {
	return statusOrder[s] < statusOrder[next]
}

// Predecessors lists, in order, every status that Precedes s. Stores use
// it to make status writes forward-only.
func (s RequestStatus) Predecessors() []RequestStatus {
	var out []RequestStatus
	for _, prev := range statusSequence {
		if prev.Precedes(s) {
			out = append(out, prev)
		}
	}
	return out
}

// SubmitRequest is the struct for POST /apis/images/upload
type SubmitRequest struct {
	UserID string `json:"userId"`
	Theme  string `json:"theme"`
	Gender string `json:"gender"`
	Skin   string `json:"skin"`
}

// SubmitResponse is returned once a request id and upload URL are issued.
type SubmitResponse struct {
	UUID      string `json:"uuid"`
	UploadURL string `json:"uploadUrl"`
}

// ResultResponse is the body of GET /apis/images/{userId}
type ResultResponse struct {
	ImageURL string `json:"imageUrl"`
	Story    string `json:"story"`
	Theme    string `json:"theme"`
	Gender   string `json:"gender"`
	Skin     string `json:"skin"`
	UUID     string `json:"uuid"`
	UserID   string `json:"userId"`
}

// StatusResponse is the body of GET /api/v1/requests/{uuid}
type StatusResponse struct {
	UUID      string        `json:"uuid"`
	UserID    string        `json:"userId"`
	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// ProcessRecord is the per-request audit entry, keyed by request id.
type ProcessRecord struct {
	RequestID    string        `json:"uuid" dynamodbav:"uuid"`
	UserID       string        `json:"userId" dynamodbav:"userId"`
	Theme        string        `json:"theme" dynamodbav:"theme"`
	Gender       string        `json:"gender" dynamodbav:"gender"`
	Skin         string        `json:"skin" dynamodbav:"skin"`
	BaseImageKey string        `json:"baseImageKey" dynamodbav:"base_image_object_key"`
	BaseStory    string        `json:"baseStory" dynamodbav:"base_story"`
	Status       RequestStatus `json:"status" dynamodbav:"status"`
	CreatedAt    time.Time     `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt    time.Time     `json:"updatedAt" dynamodbav:"updated_at"`
}

// DisplayRecord is the latest completed generation for a user.
type DisplayRecord struct {
	UserID         string    `json:"userId" dynamodbav:"userId"`
	RequestID      string    `json:"uuid" dynamodbav:"uuid"`
	BaseImageKey   string    `json:"baseImageKey" dynamodbav:"base_image_object_key"`
	ResultImageKey string    `json:"resultImageKey" dynamodbav:"result_object_key"`
	Story          string    `json:"story" dynamodbav:"base_story"`
	Theme          string    `json:"theme" dynamodbav:"theme"`
	Gender         string    `json:"gender" dynamodbav:"gender"`
	Skin           string    `json:"skin" dynamodbav:"skin"`
	CreatedAt      time.Time `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}

// BaseResource is a pre-generated portrait and its story, keyed by
// (theme, gender, skin) with ResourceID as the secondary id.
type BaseResource struct {
	ResourceID   string `json:"resourceId" yaml:"resourceId" dynamodbav:"-"`
	Theme        string `json:"theme" yaml:"theme" dynamodbav:"theme"`
	Gender       string `json:"gender" yaml:"gender" dynamodbav:"gender"`
	Skin         string `json:"skin" yaml:"skin" dynamodbav:"skin_tone"`
	BaseImageKey string `json:"baseImageKey" yaml:"baseImageKey" dynamodbav:"base_image_object_key"`
	Story        string `json:"story" yaml:"story" dynamodbav:"story"`
}

// ObjectCreated is a storage write notification: bucket plus decoded object key.
type ObjectCreated struct {
	Bucket string
	Key    string
}
